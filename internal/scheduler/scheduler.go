// Package scheduler runs the periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/smartbank/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Default job schedules.
const (
	AdvanceSpec   = "0 1 * * *"
	RemindersSpec = "0 8 * * *"
	SweepSpec     = "@every 5m"
)

type job struct {
	spec string
	run  func(context.Context)
}

// Scheduler drives subscription and session maintenance from cron.
type Scheduler struct {
	cron      *cron.Cron
	svc       *service.Service
	log       *logrus.Logger
	now       func() time.Time
	reminders bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New registers the jobs. Reminder e-mails are scheduled only when remind is
// set.
func New(svc *service.Service, log *logrus.Logger, remind bool) (*Scheduler, error) {
	logger := cron.PrintfLogger(log)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		)),
		svc:       svc,
		log:       log,
		now:       time.Now,
		reminders: remind,
		ctx:       ctx,
		cancel:    cancel,
	}

	jobs := []job{
		{AdvanceSpec, s.advanceSubscriptions},
		{SweepSpec, s.sweepSessions},
	}
	if remind {
		jobs = append(jobs, job{RemindersSpec, s.sendReminders})
	}
	for _, job := range jobs {
		run := job.run
		if _, err := s.cron.AddFunc(job.spec, func() { run(s.ctx) }); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to schedule %q: %w", job.spec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.log.Infof("Scheduler started with %d jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) advanceSubscriptions(ctx context.Context) {
	n, err := s.svc.Subscriptions.AdvanceDue(ctx, s.now())
	if err != nil {
		s.log.Errorf("Subscription advance failed after %d updates: %v", n, err)
	}
}

func (s *Scheduler) sendReminders(ctx context.Context) {
	n, err := s.svc.Subscriptions.DueReminders(ctx, s.now())
	if err != nil {
		s.log.Errorf("Subscription reminders failed: %v", err)
		return
	}
	s.log.Infof("Sent subscription reminders to %d users", n)
}

func (s *Scheduler) sweepSessions(ctx context.Context) {
	if _, err := s.svc.Auth.PurgeIdleSessions(ctx); err != nil {
		s.log.Errorf("Session sweep failed: %v", err)
	}
}
