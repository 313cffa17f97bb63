package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/itcube/itcube-bot/internal/app"
	"github.com/itcube/itcube-bot/internal/config"
	"github.com/itcube/itcube-bot/internal/db"
	"github.com/itcube/itcube-bot/internal/jobs"
	"github.com/itcube/itcube-bot/internal/logging"
	"github.com/itcube/itcube-bot/internal/observability"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("файл .env не найден, используем переменные окружения")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("конфигурация: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("логгер: %v", err)
	}
	defer lg.Closer()
	logger := lg.Sugar

	flushSentry, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, "itcube-bot")
	if err != nil {
		logger.Warnw("sentry init", "err", err)
	}
	defer flushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalw("подключение к БД", "err", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		logger.Fatalw("миграции", "err", err)
	}
	if err := db.SeedFirstAdmin(ctx, database, cfg.FirstAdminID); err != nil {
		logger.Warnw("сид первого админа", "err", err)
	}

	sched := app.MustSchedule(cfg, logger)
	if names := sched.Directions(); len(names) > 0 {
		if err := db.SyncDirections(ctx, database, names); err != nil {
			logger.Warnw("синхронизация направлений", "err", err)
		}
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatalw("запуск бота", "err", err)
	}
	logger.Infow("бот запущен", "username", bot.Self.UserName)

	deps := &app.Deps{
		Bot:     bot,
		BotID:   bot.Self.ID,
		BotName: bot.Self.UserName,
		DB:      database,
		Log:     lg.Named("dispatcher"),
		Cfg:     cfg,
		Sched:   sched,
		Limiter: app.NewChatLimiter(),
	}

	app.StartHTTP(ctx, cfg.HTTPAddr, database)

	runner := jobs.New(ctx)
	runner.Every(10*time.Minute, "schedule_reload", jobs.ReloadSchedule(sched, database, lg.Named("jobs")))
	runner.Every(30*time.Second, "db_ping", jobs.PingDB(database))
	runner.Every(24*time.Hour, "stale_tickets", jobs.StaleTicketsDigest(bot, database, lg.Named("jobs"), cfg.Location, 24*time.Hour))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query", "my_chat_member"}
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			logger.Info("остановка по сигналу")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			app.HandleUpdate(ctx, deps, update)
		}
	}
}
