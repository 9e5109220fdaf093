package scheduler

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/smartbank/internal/config"
	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/repository"
	"github.com/Dan9191/smartbank/internal/repository/docstore"
	"github.com/Dan9191/smartbank/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) (*service.Service, repository.Repository) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	repo := docstore.NewMemory()
	t.Cleanup(func() { repo.Close() })
	svc, err := service.NewService(repo, log, &config.Config{
		JWTSecret:     "s",
		SessionTTL:    time.Hour,
		IdleTimeout:   time.Minute,
		EncryptionKey: strings.Repeat("11", 32),
	}, service.Options{HashCost: bcrypt.MinCost})
	require.NoError(t, err)
	return svc, repo
}

func TestNewRegistersJobs(t *testing.T) {
	svc, _ := newService(t)
	log := logrus.New()
	log.SetOutput(io.Discard)

	s, err := New(svc, log, false)
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)

	s, err = New(svc, log, true)
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 3)

	s.Start()
	s.Stop()
}

func TestAdvanceJob(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	user, err := svc.Auth.Register(ctx, service.RegisterInput{FirstName: "Juan", LastName: "Pérez", Email: "juan@test.com", Password: "pw123456"})
	require.NoError(t, err)

	subs, err := svc.Catalog.Subscriptions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	yesterday := time.Now().Add(-24 * time.Hour)
	_, err = svc.Catalog.UpdateSubscription(ctx, user.ID, subs[0].ID, models.SubscriptionPatch{NextPayment: &yesterday})
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	s, err := New(svc, log, false)
	require.NoError(t, err)
	s.advanceSubscriptions(ctx)

	got, err := repo.FindSubscription(ctx, user.ID, subs[0].ID)
	require.NoError(t, err)
	assert.True(t, got.NextPayment.After(time.Now()))
}

func TestSweepJob(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	_, err := svc.Auth.Register(ctx, service.RegisterInput{FirstName: "Juan", LastName: "Pérez", Email: "juan@test.com", Password: "pw123456"})
	require.NoError(t, err)
	res, err := svc.Auth.Login(ctx, "juan@test.com", "pw123456")
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	s, err := New(svc, log, false)
	require.NoError(t, err)

	s.sweepSessions(ctx)
	_, err = repo.FindSession(ctx, res.User.ID, res.Session.ID)
	require.NoError(t, err)

	require.NoError(t, repo.TouchSession(ctx, res.User.ID, res.Session.ID, time.Now().Add(-2*time.Minute)))
	s.sweepSessions(ctx)
	_, err = repo.FindSession(ctx, res.User.ID, res.Session.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
