package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/chorecast/chorecast/api"
	"github.com/chorecast/chorecast/chore"
	"github.com/chorecast/chorecast/config"
	"github.com/chorecast/chorecast/database"
	"github.com/chorecast/chorecast/eventlog"
	"github.com/chorecast/chorecast/ledger"
	"github.com/chorecast/chorecast/reminder"
	"github.com/chorecast/chorecast/scheduler"
	"github.com/chorecast/chorecast/session"
	"github.com/chorecast/chorecast/user"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		printErrorAndExit("loading config", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		printErrorAndExit("database connection", err)
	}
	if err := database.Migrate(db); err != nil {
		printErrorAndExit("migrating database", err)
	}

	feed := eventlog.NewSQLLogger(db)
	events := eventlog.NewWorker(feed, 100)
	events.Start()
	defer events.Shutdown()

	userRepo := user.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	choreRepo := chore.NewRepository(db)
	reminderRepo := reminder.NewRepository(db)

	ledgerService := ledger.NewService(ledger.NewPostgresStore(db))
	choreService := chore.NewService(choreRepo)

	var sender reminder.Sender = reminder.LogSender{}
	if cfg.SMTP.Enabled {
		sender = reminder.NewSMTPSender(cfg.SMTP.Addr, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
	}

	jobs := scheduler.New(choreRepo, reminderRepo, sessionRepo, userRepo, sender, scheduler.WithEvents(events))
	if err := jobs.Start(cfg.Scheduler.ReminderSpec, cfg.Scheduler.RecurrenceSpec); err != nil {
		printErrorAndExit("starting scheduler", err)
	}
	defer jobs.Stop()

	handler := &api.Handler{
		Ledger:   ledgerService,
		Chores:   choreService,
		Users:    userRepo,
		Sessions: sessionRepo,
		Events:   events,
		Feed:     feed,
	}

	slog.Info("server starting", "addr", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, handler.Routes()); err != nil {
		printErrorAndExit("server stopped", err)
	}
}

func printErrorAndExit(msg string, e error) {
	slog.Error(msg, "error", e)
	os.Exit(1)
}
