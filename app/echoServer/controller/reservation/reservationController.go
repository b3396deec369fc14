package reservation

import (
	"log/slog"
	"net/http"
	"strconv"

	rs "schoollibrary/service/reservation"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc rs.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/reservations
func (h *Controller) Create(c echo.Context) error {
	var req ReserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	out, err := h.Svc.Reserve(c.Request().Context(), req.ReaderID, req.BookID)
	if err != nil {
		h.Log.Error("reservation create", "err", err, "reader_id", req.ReaderID, "book_id", req.BookID)
		switch rs.Code(err) {
		case rs.ErrBookNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		case rs.ErrReaderNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "reader not found"})
		case rs.ErrAlreadyReserved:
			return c.JSON(http.StatusConflict, echo.Map{"message": "already reserved"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": out.ReservationID,
		"copy_id":        out.CopyID,
		"queue_position": out.QueuePosition,
	})
}

// POST /v1/reservations/:id/cancel
func (h *Controller) Cancel(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	title, err := h.Svc.Cancel(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("reservation cancel", "err", err, "reservation_id", id)
		switch rs.Code(err) {
		case rs.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "reservation not found"})
		case rs.ErrNotPending:
			return c.JSON(http.StatusConflict, echo.Map{"message": "reservation not pending"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"book_title": title})
}

// GET /v1/readers/:id/reservations
func (h *Controller) Mine(c echo.Context) error {
	readerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || readerID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	rows, err := h.Svc.Mine(c.Request().Context(), readerID)
	if err != nil {
		h.Log.Error("reservation list", "err", err, "reader_id", readerID)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
