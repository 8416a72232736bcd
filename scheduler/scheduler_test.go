package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chorecast/chorecast/chore"
	"github.com/chorecast/chorecast/reminder"
	"github.com/chorecast/chorecast/session"
	"github.com/chorecast/chorecast/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var frozenNow = time.Date(2025, time.April, 10, 6, 0, 0, 0, time.UTC)

type fakeChores struct {
	chore.Repository
	overdue []chore.Chore
	reset   []chore.Chore
}

func (f *fakeChores) ListOverdue(ctx context.Context, before time.Time) ([]chore.Chore, error) {
	var out []chore.Chore
	for _, c := range f.overdue {
		if !c.Completed && c.NextDue.Before(before) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChores) ResetRecurring(ctx context.Context, before time.Time) ([]chore.Chore, error) {
	return f.reset, nil
}

type fakeReminders struct {
	saved []reminder.Reminder
	due   []reminder.Reminder
	sent  []uuid.UUID
}

func (f *fakeReminders) Save(ctx context.Context, r *reminder.Reminder) error {
	f.saved = append(f.saved, *r)
	return nil
}

func (f *fakeReminders) ListDue(ctx context.Context, before time.Time) ([]reminder.Reminder, error) {
	return f.due, nil
}

func (f *fakeReminders) MarkSent(ctx context.Context, id uuid.UUID) error {
	f.sent = append(f.sent, id)
	return nil
}

type fakeSessions struct {
	session.Repository
	purged int64
}

func (f *fakeSessions) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return f.purged, nil
}

type fakeUsers struct {
	user.Repository
	byID map[uuid.UUID]*user.User
}

func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return f.byID[id], nil
}

type recordingSender struct {
	to   []string
	fail bool
}

func (r *recordingSender) Send(ctx context.Context, to, subject, body string) error {
	if r.fail {
		return errors.New("smtp down")
	}
	r.to = append(r.to, to)
	return nil
}

func TestProcessOverdueChoresCreatesReminders(t *testing.T) {
	t.Parallel()

	assignee := uuid.New()
	chores := &fakeChores{overdue: []chore.Chore{
		{ID: uuid.New(), Name: "take out the trash", AssignedTo: assignee, NextDue: frozenNow.Add(-time.Hour)},
		{ID: uuid.New(), Name: "water the plants", AssignedTo: assignee, NextDue: frozenNow.Add(time.Hour)}, // not due yet
	}}
	reminders := &fakeReminders{}
	s := New(chores, reminders, &fakeSessions{}, &fakeUsers{}, &recordingSender{}, WithClock(func() time.Time { return frozenNow }))

	require.NoError(t, s.ProcessOverdueChores(context.Background()))

	require.Len(t, reminders.saved, 1)
	rem := reminders.saved[0]
	assert.Equal(t, assignee, rem.UserID)
	assert.Equal(t, reminder.TypeChore, rem.Type)
	assert.Contains(t, rem.Message, "take out the trash")
	assert.False(t, rem.Sent)
}

func TestSendDueRemindersMarksSent(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	remID := uuid.New()
	reminders := &fakeReminders{due: []reminder.Reminder{
		{ID: remID, UserID: userID, Message: "do the dishes", Type: reminder.TypeChore, DueDate: frozenNow.Add(-time.Minute)},
	}}
	users := &fakeUsers{byID: map[uuid.UUID]*user.User{
		userID: {ID: userID, Email: "sam@example.com"},
	}}
	sender := &recordingSender{}
	s := New(&fakeChores{}, reminders, &fakeSessions{}, users, sender, WithClock(func() time.Time { return frozenNow }))

	require.NoError(t, s.SendDueReminders(context.Background()))

	assert.Equal(t, []string{"sam@example.com"}, sender.to)
	assert.Equal(t, []uuid.UUID{remID}, reminders.sent)
}

func TestSendDueRemindersKeepsUnsentOnFailure(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	reminders := &fakeReminders{due: []reminder.Reminder{
		{ID: uuid.New(), UserID: userID, Message: "vacuum", Type: reminder.TypeChore, DueDate: frozenNow.Add(-time.Minute)},
	}}
	users := &fakeUsers{byID: map[uuid.UUID]*user.User{
		userID: {ID: userID, Email: "sam@example.com"},
	}}
	s := New(&fakeChores{}, reminders, &fakeSessions{}, users, &recordingSender{fail: true}, WithClock(func() time.Time { return frozenNow }))

	require.NoError(t, s.SendDueReminders(context.Background()))

	// delivery failed: the reminder stays unsent for the next run
	assert.Empty(t, reminders.sent)
}

func TestSendDueRemindersSkipsUnknownRecipients(t *testing.T) {
	t.Parallel()

	reminders := &fakeReminders{due: []reminder.Reminder{
		{ID: uuid.New(), UserID: uuid.New(), Message: "mop", Type: reminder.TypeChore, DueDate: frozenNow.Add(-time.Minute)},
	}}
	sender := &recordingSender{}
	s := New(&fakeChores{}, reminders, &fakeSessions{}, &fakeUsers{byID: map[uuid.UUID]*user.User{}}, sender, WithClock(func() time.Time { return frozenNow }))

	require.NoError(t, s.SendDueReminders(context.Background()))
	assert.Empty(t, sender.to)
	assert.Empty(t, reminders.sent)
}

func TestStartRejectsBadCronSpec(t *testing.T) {
	t.Parallel()

	s := New(&fakeChores{}, &fakeReminders{}, &fakeSessions{}, &fakeUsers{}, &recordingSender{})
	err := s.Start("not a cron spec", "@daily")
	assert.Error(t, err)
}

func TestStopCancelsJobContext(t *testing.T) {
	t.Parallel()

	s := New(&fakeChores{}, &fakeReminders{}, &fakeSessions{}, &fakeUsers{}, &recordingSender{})
	require.NoError(t, s.Start("@daily", "@daily"))
	require.NoError(t, s.ctx.Err())

	s.Stop()
	assert.ErrorIs(t, s.ctx.Err(), context.Canceled)
}
