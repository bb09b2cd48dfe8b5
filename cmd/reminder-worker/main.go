package main

import (
	"context"
	"os"
	"time"

	"atlas/internal/amqp"
	"atlas/internal/cache"
	"atlas/internal/cli"
	"atlas/internal/log"
	"atlas/internal/services"
)

// Reminders stay deduplicated for a day; a new scan after that resends
// anything still unread.
const (
	sentCacheSize = 10000
	sentCacheTTL  = 24 * time.Hour
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting reminder-worker",
		"interval", cfg.ReminderInterval,
		"sqlite_db", cfg.SQLiteDBPath,
		"timezone", cfg.Timezone)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	dialCtx, cancelDial := context.WithTimeout(context.Background(), time.Minute)
	amqpClient, err := amqp.NewClient(dialCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPLedgerQueue, cfg.AMQPReminderQueue)
	cancelDial()
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	sent := cache.NewLRUCache[time.Time](sentCacheSize, sentCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(sent)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	processor := services.NewReminderProcessor(repo, amqpClient, sent, cfg.Location())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	run := func(now time.Time) {
		result, err := processor.Process(ctx, now)
		if err != nil {
			logger.Error("Reminder scan failed", "error", err)
			return
		}
		logger.Info("Reminder scan complete",
			"pending", result.Pending,
			"published", result.Published,
			"skipped", result.Skipped,
			"failed", result.Failed,
			"next_check", now.Add(cfg.ReminderInterval).Format("15:04:05"))
	}

	logger.Info("Running initial reminder scan...")
	run(time.Now())

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			logger.Info("Reminder-worker shutdown complete")
			return
		case now := <-ticker.C:
			run(now)
		}
	}
}
