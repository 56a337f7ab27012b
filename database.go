package main

import (
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/TheTipo01/suggestionBot/internal/sticky"
	"github.com/TheTipo01/suggestionBot/internal/store"
	"github.com/bwmarrin/lit"
	"github.com/go-co-op/gocron"
)

// openStore returns the backend selected by the driver field of the config
func openStore(cfg Config) (store.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "mysql":
		return store.NewMySQL("mysql", cfg.DSN)
	case "redis":
		return store.NewRedis(cfg.DSN)
	case "file", "":
		return store.NewFile(cfg.DataDir)
	case "memory":
		lit.Warn("Using the memory driver, suggestions will be lost on restart")
		return store.NewMemory(), nil
	default:
		return nil, errors.Errorf("unknown driver %q", cfg.Driver)
	}
}

// Periodically forgets debounce state of channels that went quiet
func loadScheduler(reminders *sticky.Manager, interval time.Duration) *gocron.Scheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	// Create cron scheduler
	cron := gocron.NewScheduler(time.Local)

	_, err := cron.Every(interval).Do(func() {
		if n := reminders.Prune(interval); n > 0 {
			lit.Debug("Pruned reminder state of %d channels", n)
		}
	})
	if err != nil {
		lit.Error("Can't schedule reminder pruning, %s", err)
	}

	// And start the scheduler
	cron.StartAsync()

	return cron
}
