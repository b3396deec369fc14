// Package main school library API.
//
// @title           School Library API
// @version         1.0
// @description     loans, reservations and copy management for a school library.
// @BasePath        /
// @schemes         http
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"schoollibrary/app/echoServer"
	bookctrl "schoollibrary/app/echoServer/controller/book"
	loanctrl "schoollibrary/app/echoServer/controller/loan"
	notifctrl "schoollibrary/app/echoServer/controller/notification"
	resctrl "schoollibrary/app/echoServer/controller/reservation"
	"schoollibrary/app/echoServer/validation"
	"schoollibrary/config"
	bookrepo "schoollibrary/repository/book"
	loanrepo "schoollibrary/repository/loan"
	notifrepo "schoollibrary/repository/notification"
	resrepo "schoollibrary/repository/reservation"
	booksvc "schoollibrary/service/book"
	loansvc "schoollibrary/service/loan"
	"schoollibrary/service/notify"
	ressvc "schoollibrary/service/reservation"
	"schoollibrary/util/database"
	"schoollibrary/util/httpx"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB: *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	br := bookrepo.New(db)
	lr := loanrepo.New(db)
	rr := resrepo.New(db)
	nr := notifrepo.New(db)

	// services
	ns := notify.New(nr, cfg.NotifyWebhookURL, httpx.Client(), log)
	ls := loansvc.New(db, lr, rr, ns)
	rs := ressvc.New(db, rr)
	bs := booksvc.New(db, br, lr, rr, ns)

	// controllers
	v := validator.New()
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	loanC := &loanctrl.Controller{Svc: ls, V: v, Log: log}
	resC := &resctrl.Controller{Svc: rs, V: v, Log: log}
	notifC := &notifctrl.Controller{Svc: ns, V: v, Log: log}

	// due-soon / overdue reminders
	rem := loansvc.NewReminder(lr, ns)
	go runReminders(ctx, rem, cfg.ReminderInterval, log)

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Book:         bookC,
		Loan:         loanC,
		Reservation:  resC,
		Notification: notifC,

		AdminCode: cfg.AdminCode,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = "8080"
	}

	slog.Info("starting server", "PORT_env", os.Getenv("PORT"), "chosen_port", port)

	e.Logger.Fatal(e.Start(":" + port))
}

func runReminders(ctx context.Context, rem loansvc.Reminder, interval time.Duration, log *slog.Logger) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for range t.C {
		if n, err := rem.SendDueSoon(ctx); err != nil {
			log.Error("due-soon sweep", "err", err)
		} else if n > 0 {
			log.Info("due-soon sweep", "sent", n)
		}
		if n, err := rem.SendOverdue(ctx); err != nil {
			log.Error("overdue sweep", "err", err)
		} else if n > 0 {
			log.Info("overdue sweep", "sent", n)
		}
	}
}
