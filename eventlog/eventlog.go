package eventlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Domain event types recorded in the activity feed. Balance edges carry no
// history; the feed tracks the actions, not the resulting amounts.
const (
	TypeExpenseCreated = "expense.created"
	TypeExpenseSettled = "expense.settled"
	TypeChoreCreated   = "chore.created"
	TypeChoreCompleted = "chore.completed"
	TypeChoreReset     = "chore.reset"
	TypeReminderSent   = "reminder.sent"
	TypeUserRegistered = "user.registered"
	TypeUserLoggedIn   = "user.logged_in"
)

type Event struct {
	ID        uuid.UUID         `json:"id,omitempty"`
	Type      string            `json:"event_type,omitempty"`
	Data      any               `json:"event_data,omitempty"`
	Metadata  map[string]string `json:"event_metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type Option func(*Event)

func WithType(eventType string) Option {
	return func(e *Event) {
		e.Type = eventType
	}
}

func WithData(data any) Option {
	return func(e *Event) {
		e.Data = data
	}
}

// WithHousehold tags the event with the household it happened in.
func WithHousehold(householdID uuid.UUID) Option {
	return func(e *Event) {
		e.Metadata["household_id"] = householdID.String()
	}
}

func WithActor(userID uuid.UUID) Option {
	return func(e *Event) {
		e.Metadata["user_id"] = userID.String()
	}
}

func New(opts ...Option) Event {
	e := Event{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Metadata:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

type Logger interface {
	Save(ctx context.Context, e Event) error
	ListByType(ctx context.Context, eventType string) ([]Event, error)
}
