package loan

import (
	"log/slog"
	"net/http"
	"strconv"

	ls "schoollibrary/service/loan"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc ls.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/loans
func (h *Controller) Borrow(c echo.Context) error {
	var req BorrowReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	out, err := h.Svc.Borrow(c.Request().Context(), req.ReaderID, req.BookID)
	if err != nil {
		h.Log.Error("loan borrow", "err", err, "reader_id", req.ReaderID, "book_id", req.BookID)
		switch ls.Code(err) {
		case ls.ErrAgeRestricted:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "not old enough to loan this book"})
		case ls.ErrAllowanceExceeded:
			return c.JSON(http.StatusConflict, echo.Map{"message": "active loan limit reached"})
		case ls.ErrNoCopyAvailable:
			return c.JSON(http.StatusConflict, echo.Map{"message": "no copy available"})
		case ls.ErrBookNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		case ls.ErrReaderNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "reader not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"loan_id":  out.LoanID,
		"copy_id":  out.CopyID,
		"due_date": out.DueDate.Format("2006-01-02"),
	})
}

// POST /v1/loans/:id/return
func (h *Controller) Return(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	title, err := h.Svc.Return(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("loan return", "err", err, "loan_id", id)
		switch ls.Code(err) {
		case ls.ErrLoanNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "loan not found"})
		case ls.ErrNotActive:
			return c.JSON(http.StatusConflict, echo.Map{"message": "loan not active"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"book_title": title})
}

// GET /v1/readers/:id/loans
func (h *Controller) History(c echo.Context) error {
	readerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || readerID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	rows, err := h.Svc.History(c.Request().Context(), readerID)
	if err != nil {
		h.Log.Error("loan history", "err", err, "reader_id", readerID)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
