package notification

import (
	"log/slog"
	"net/http"
	"strconv"

	"schoollibrary/service/notify"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc notify.Service
	V   *validator.Validate
	Log *slog.Logger
}

type MarkViewedReq struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// GET /v1/readers/:id/notifications
func (h *Controller) Unread(c echo.Context) error {
	readerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || readerID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	rows, err := h.Svc.Unread(c.Request().Context(), readerID)
	if err != nil {
		h.Log.Error("notifications unread", "err", err, "reader_id", readerID)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// POST /v1/notifications/viewed
func (h *Controller) MarkViewed(c echo.Context) error {
	var req MarkViewedReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	if err := h.Svc.MarkViewed(c.Request().Context(), req.IDs); err != nil {
		h.Log.Error("notifications mark viewed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "viewed"})
}
