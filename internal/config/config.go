package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	BotToken     string
	DatabaseURL  string
	FirstAdminID int64 // сеем при старте, если таблица admins пуста
	Location     *time.Location
	ScheduleFile string
	HTTPAddr     string
	LogLevel     string
	Env          string // dev|prod
	SentryDSN    string
}

func Load() (*Config, error) {
	tz := getenv("TZ", "Europe/Yekaterinburg")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	var firstAdmin int64
	if s := os.Getenv("FIRST_ADMIN_ID"); s != "" {
		firstAdmin, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("FIRST_ADMIN_ID: %w", err)
		}
	}

	cfg := &Config{
		BotToken:     mustEnv("BOT_TOKEN"),
		DatabaseURL:  mustEnv("DATABASE_URL"),
		FirstAdminID: firstAdmin,
		Location:     loc,
		ScheduleFile: getenv("SCHEDULE_FILE", "rasp.csv"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		Env:          getenv("ENV", "dev"),
		SentryDSN:    os.Getenv("SENTRY_DSN"),
	}
	return cfg, nil
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("required env " + k + " is empty")
	}
	return v
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
