package echoServer

import (
	"schoollibrary/app/echoServer/controller/book"
	"schoollibrary/app/echoServer/controller/loan"
	"schoollibrary/app/echoServer/controller/notification"
	"schoollibrary/app/echoServer/controller/reservation"

	"github.com/labstack/echo/v4"
)

type C struct {
	Book         *book.Controller
	Loan         *loan.Controller
	Reservation  *reservation.Controller
	Notification *notification.Controller

	AdminCode string
}

func Register(e *echo.Echo, c C) {
	v1 := e.Group("/v1")

	// Catalog
	v1.GET("/books", c.Book.List)
	v1.GET("/books/:id", c.Book.Detail)

	// Loans
	v1.POST("/loans", c.Loan.Borrow)
	v1.POST("/loans/:id/return", c.Loan.Return)
	v1.GET("/readers/:id/loans", c.Loan.History)

	// Reservations
	v1.POST("/reservations", c.Reservation.Create)
	v1.POST("/reservations/:id/cancel", c.Reservation.Cancel)
	v1.GET("/readers/:id/reservations", c.Reservation.Mine)

	// Notifications
	v1.GET("/readers/:id/notifications", c.Notification.Unread)
	v1.POST("/notifications/viewed", c.Notification.MarkViewed)

	// Librarian endpoints
	admin := e.Group("/v1", AdminOnly(c.AdminCode))
	admin.POST("/books", c.Book.Create)
	admin.POST("/books/:id/copies", c.Book.AddCopies)
	admin.GET("/books/:id/copies", c.Book.ListCopies)
	admin.PATCH("/books/:id/copies/:copy_id", c.Book.SetCopyStatus)
	admin.DELETE("/books/:id", c.Book.Decommission)
}
