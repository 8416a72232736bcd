package reminder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Save(ctx context.Context, rem *Reminder) error {
	query := `INSERT INTO reminders (id, user_id, message, type, due_date, sent, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		rem.ID,
		rem.UserID,
		rem.Message,
		rem.Type,
		rem.DueDate,
		rem.Sent,
		rem.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting reminder: %w", err)
	}
	return nil
}

func (r *repository) ListDue(ctx context.Context, before time.Time) ([]Reminder, error) {
	query := `SELECT id, user_id, message, type, due_date, sent, created_at
              FROM reminders
              WHERE due_date < $1 AND sent = FALSE
              ORDER BY due_date ASC`

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []Reminder
	for rows.Next() {
		var rem Reminder
		err := rows.Scan(
			&rem.ID,
			&rem.UserID,
			&rem.Message,
			&rem.Type,
			&rem.DueDate,
			&rem.Sent,
			&rem.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

func (r *repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE reminders SET sent = TRUE WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
