package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeChore   Type = "chore"
	TypeExpense Type = "expense"
)

type Reminder struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	DueDate   time.Time `json:"due_date"`
	Sent      bool      `json:"sent"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	Save(ctx context.Context, r *Reminder) error
	// ListDue returns reminders due before the given time that have not been
	// sent yet.
	ListDue(ctx context.Context, before time.Time) ([]Reminder, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
}

// Sender delivers a reminder to a recipient. Mail delivery lives behind this
// interface; the scheduler only knows about it, not about SMTP.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}
