// Command notifier consumes ledger events and e-mails budget alerts.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dan9191/smartbank/internal/app"
	"github.com/Dan9191/smartbank/internal/config"
)

func main() {
	logger := app.NewLogger(os.Getenv("LOG_LEVEL"))

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger = app.NewLogger(cfg.LogLevel)
	if cfg.AMQPURL == "" {
		logger.Fatal("AMQP_URL is required for the notifier")
	}
	if !cfg.NotifyEnabled {
		logger.Warn("NOTIFY_ENABLED is off; events will be consumed without sending e-mail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer rt.Close()

	if err := rt.Events.Consume(ctx, rt.Service.Notifier.HandleLedgerEvent); err != nil && ctx.Err() == nil {
		logger.Errorf("Consumer stopped: %v", err)
	}
	logger.Info("Notifier stopped")
}
