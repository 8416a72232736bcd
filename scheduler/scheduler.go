package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chorecast/chorecast/chore"
	"github.com/chorecast/chorecast/eventlog"
	"github.com/chorecast/chorecast/reminder"
	"github.com/chorecast/chorecast/session"
	"github.com/chorecast/chorecast/user"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the recurring batch jobs: turning overdue chores into
// reminders, dispatching due reminders, resetting completed chores for
// their next cycle, and purging expired sessions. Jobs touch tables
// disjoint from the balance ledger and use single-statement updates, so
// they never contend with settlement transactions.
type Scheduler struct {
	cron      *cron.Cron
	chores    chore.Repository
	reminders reminder.Repository
	sessions  session.Repository
	users     user.Repository
	sender    reminder.Sender
	events    *eventlog.Worker
	now       func() time.Time

	// ctx is passed to every job run and cancelled by Stop, so in-flight
	// repository calls are interrupted during shutdown.
	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func WithEvents(events *eventlog.Worker) Option {
	return func(s *Scheduler) {
		s.events = events
	}
}

func New(chores chore.Repository, reminders reminder.Repository, sessions session.Repository, users user.Repository, sender reminder.Sender, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:      cron.New(),
		ctx:       ctx,
		cancel:    cancel,
		chores:    chores,
		reminders: reminders,
		sessions:  sessions,
		users:     users,
		sender:    sender,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the jobs under the given cron expressions and starts the
// scheduler in the background.
func (s *Scheduler) Start(reminderSpec, recurrenceSpec string) error {
	jobs := []struct {
		spec string
		name string
		run  func(context.Context) error
	}{
		{reminderSpec, "process overdue chores", s.ProcessOverdueChores},
		{reminderSpec, "send due reminders", s.SendDueReminders},
		{recurrenceSpec, "reset recurring chores", s.ResetRecurringChores},
		{recurrenceSpec, "purge expired sessions", s.PurgeExpiredSessions},
	}

	for _, job := range jobs {
		name := job.name
		run := job.run
		_, err := s.cron.AddFunc(job.spec, func() {
			if err := run(s.ctx); err != nil {
				slog.Error("scheduled job failed", "job", name, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("registering job %q: %w", name, err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop cancels the job context and waits for any running job to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// ProcessOverdueChores creates a reminder for every open chore whose due
// date has passed.
func (s *Scheduler) ProcessOverdueChores(ctx context.Context) error {
	now := s.now().UTC()
	overdue, err := s.chores.ListOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("listing overdue chores: %w", err)
	}

	for _, c := range overdue {
		rem := &reminder.Reminder{
			ID:        uuid.New(),
			UserID:    c.AssignedTo,
			Message:   fmt.Sprintf("Reminder: it's time to %s!", c.Name),
			Type:      reminder.TypeChore,
			DueDate:   now,
			Sent:      false,
			CreatedAt: now,
		}
		if err := s.reminders.Save(ctx, rem); err != nil {
			slog.Error("failed to save chore reminder", "chore", c.Name, "error", err)
			continue
		}
	}

	slog.Info("processed overdue chores", "count", len(overdue))
	return nil
}

// SendDueReminders delivers unsent reminders whose due date has passed and
// marks them sent. Delivery failures leave the reminder unsent for the next
// run.
func (s *Scheduler) SendDueReminders(ctx context.Context) error {
	due, err := s.reminders.ListDue(ctx, s.now().UTC())
	if err != nil {
		return fmt.Errorf("listing due reminders: %w", err)
	}

	sent := 0
	for _, rem := range due {
		recipient, err := s.users.GetByID(ctx, rem.UserID)
		if err != nil || recipient == nil {
			slog.Error("cannot resolve reminder recipient", "user_id", rem.UserID, "error", err)
			continue
		}
		if err := s.sender.Send(ctx, recipient.Email, "ChoreCast reminder", rem.Message); err != nil {
			slog.Error("failed to deliver reminder", "user_id", rem.UserID, "error", err)
			continue
		}
		if err := s.reminders.MarkSent(ctx, rem.ID); err != nil {
			slog.Error("failed to mark reminder sent", "reminder_id", rem.ID, "error", err)
			continue
		}
		sent++
		if s.events != nil {
			s.events.Log(eventlog.New(
				eventlog.WithType(eventlog.TypeReminderSent),
				eventlog.WithData(map[string]string{
					"reminder_id": rem.ID.String(),
					"user_id":     rem.UserID.String(),
				}),
			))
		}
	}

	slog.Info("sent due reminders", "due", len(due), "sent", sent)
	return nil
}

// ResetRecurringChores re-opens completed chores whose next cycle has
// started.
func (s *Scheduler) ResetRecurringChores(ctx context.Context) error {
	reset, err := s.chores.ResetRecurring(ctx, s.now().UTC())
	if err != nil {
		return fmt.Errorf("resetting recurring chores: %w", err)
	}

	for _, c := range reset {
		slog.Info("reset chore for next cycle", "chore", c.Name)
		if s.events != nil {
			s.events.Log(eventlog.New(
				eventlog.WithType(eventlog.TypeChoreReset),
				eventlog.WithHousehold(c.HouseholdID),
				eventlog.WithData(map[string]string{"chore_id": c.ID.String(), "name": c.Name}),
			))
		}
	}
	return nil
}

func (s *Scheduler) PurgeExpiredSessions(ctx context.Context) error {
	purged, err := s.sessions.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return fmt.Errorf("purging sessions: %w", err)
	}
	if purged > 0 {
		slog.Info("purged expired sessions", "count", purged)
	}
	return nil
}
