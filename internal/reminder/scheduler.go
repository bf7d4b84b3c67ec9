package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/evcraddock/field-visits/internal/visit"
)

// DefaultSchedule runs the reminder check every morning at 8.
const DefaultSchedule = "0 8 * * *"

// Lister loads the entries to check.
type Lister interface {
	ListEntries(ctx context.Context) ([]visit.Entry, error)
}

// Scheduler checks for due reminders on a cron schedule.
type Scheduler struct {
	lister   Lister
	notifier Notifier
	schedule string
	now      func() time.Time
	cron     *cron.Cron
}

// NewScheduler creates a scheduler. Empty schedule selects DefaultSchedule.
func NewScheduler(l Lister, n Notifier, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Scheduler{
		lister:   l,
		notifier: n,
		schedule: schedule,
		now:      time.Now,
		cron:     cron.New(),
	}
}

// RunOnce notifies every due entry and returns how many were sent.
// A failed notification does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	entries, err := s.lister.ListEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading entries: %w", err)
	}

	var errs []error
	sent := 0
	for _, e := range Due(entries, s.now()) {
		if err := s.notifier.Notify(ctx, e); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// Start registers the cron job and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		sent, err := s.RunOnce(ctx)
		if err != nil {
			slog.Error("reminder run failed", "error", err, "sent", sent)
			return
		}
		slog.Info("reminder run finished", "sent", sent)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	slog.Info("reminder scheduler started", "schedule", s.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
