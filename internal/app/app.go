// Package app wires the configured store, broker and integrations into the
// services shared by the binaries under cmd/.
package app

import (
	"context"
	"fmt"

	"github.com/Dan9191/smartbank/internal/config"
	"github.com/Dan9191/smartbank/internal/events"
	"github.com/Dan9191/smartbank/internal/integrations/cbr"
	"github.com/Dan9191/smartbank/internal/repository"
	"github.com/Dan9191/smartbank/internal/repository/docstore"
	"github.com/Dan9191/smartbank/internal/repository/postgres"
	"github.com/Dan9191/smartbank/internal/service"
	"github.com/Dan9191/smartbank/internal/utils/email"
	"github.com/sirupsen/logrus"
)

// NewLogger returns a JSON logger at level, falling back to info.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

// OpenRepository opens the store selected by cfg.StoreBackend, applying
// migrations first.
func OpenRepository(ctx context.Context, cfg *config.Config, log *logrus.Logger) (repository.Repository, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if err := postgres.RunMigrations(cfg.DBConn); err != nil {
			return nil, err
		}
		repo, err := postgres.Open(ctx, cfg.DBConn)
		if err != nil {
			return nil, err
		}
		log.Info("Using PostgreSQL store")
		return repo, nil
	case config.BackendSQLite:
		backend, err := docstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Infof("Using SQLite document store at %s", cfg.SQLitePath)
		return docstore.New(backend), nil
	case config.BackendMemory:
		log.Warn("Using in-memory store; data is lost on exit")
		return docstore.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// Runtime holds the opened resources of a process.
type Runtime struct {
	Repo    repository.Repository
	Service *service.Service
	// Events is nil when no broker is configured.
	Events *events.Client
	Mailer *email.Sender
}

// Build opens the store and broker and constructs the services.
func Build(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*Runtime, error) {
	repo, err := OpenRepository(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Repo: repo}

	opts := service.Options{
		Rates: cbr.NewRateClient(cfg.CBRURL, cfg.RateMargin, log),
	}
	if cfg.AMQPURL != "" {
		rt.Events, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, log)
		if err != nil {
			rt.Close()
			return nil, err
		}
		opts.Publisher = rt.Events
	}
	if cfg.NotifyEnabled {
		rt.Mailer = email.NewSender(cfg, log)
		opts.Mailer = rt.Mailer
	}

	rt.Service, err = service.NewService(repo, log, cfg, opts)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) Close() {
	if rt.Events != nil {
		rt.Events.Close()
	}
	rt.Repo.Close()
}
