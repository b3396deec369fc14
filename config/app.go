package config

import "time"

type App struct {
	Port             string        `env:"APP_PORT" default:"8080"`
	DatabaseURL      string        `env:"DATABASE_URL,required"`
	AdminCode        string        `env:"ADMIN_CODE,required"`
	NotifyWebhookURL string        `env:"NOTIFY_WEBHOOK_URL"`
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" default:"1h"`
	Env              string        `env:"APP_ENV" default:"dev"`
}
