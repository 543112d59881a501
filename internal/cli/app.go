package cli

import (
	"fmt"

	"daybook/internal/config"
	"daybook/internal/daystore"
	"daybook/internal/logs"
	"daybook/internal/planner"
	"daybook/internal/reminder"
	"daybook/internal/storage"
)

const alertBuffer = 16

// App is everything a command needs, built once from the config file.
type App struct {
	Config     config.Config
	ConfigPath string
	Log        *logs.Logger
	Planner    *planner.Planner
	Scheduler  *reminder.Scheduler
	// Alerts receives fallback reminder messages for whoever is presenting
	// them (the TUI or the watch command).
	Alerts chan string

	store *storage.Store
}

// Bootstrap loads the config at configPath and opens the store.
func Bootstrap(configPath string) (*App, error) {
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logs.New(logs.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	app := &App{
		Config:     cfg,
		ConfigPath: configPath,
		Log:        log,
		Alerts:     make(chan string, alertBuffer),
		store:      store,
	}

	notifier := reminder.NewDesktopNotifier(cfg.NotificationsEnabled())
	deliverer := reminder.NewDeliverer(notifier, reminder.AlertFunc(app.alert), log)
	app.Scheduler = reminder.NewScheduler(deliverer, reminder.WithLogger(log))
	app.Planner = planner.New(
		daystore.New(store, log),
		app.Scheduler,
		notifier,
		planner.WithLogger(log),
	)
	log.Infow("daybook started", "config", configPath, "db", cfg.DBPath)
	return app, nil
}

func (a *App) alert(message string) {
	select {
	case a.Alerts <- message:
	default:
		a.Log.Warnw("alert dropped, nobody is listening", "message", message)
	}
}

// Close disarms reminders and releases the store.
func (a *App) Close() error {
	a.Scheduler.Stop()
	err := a.store.Close()
	a.Log.Close()
	return err
}
