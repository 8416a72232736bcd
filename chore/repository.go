package chore

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

func (r *repository) Save(ctx context.Context, c *Chore) error {
	query := `INSERT INTO chores (id, household_id, name, description, frequency, assigned_to, last_done, next_due, completed, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.HouseholdID,
		c.Name,
		c.Description,
		c.Frequency,
		c.AssignedTo,
		c.LastDone,
		c.NextDue,
		c.Completed,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting chore: %w", err)
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Chore, error) {
	query := `SELECT id, household_id, name, COALESCE(description, ''), frequency, assigned_to, last_done, next_due, completed, created_at
              FROM chores WHERE id = $1`

	var chore Chore
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&chore.ID,
		&chore.HouseholdID,
		&chore.Name,
		&chore.Description,
		&chore.Frequency,
		&chore.AssignedTo,
		&chore.LastDone,
		&chore.NextDue,
		&chore.Completed,
		&chore.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrChoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying chore: %w", err)
	}
	return &chore, nil
}

func (r *repository) ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]Chore, error) {
	query := `SELECT id, household_id, name, COALESCE(description, ''), frequency, assigned_to, last_done, next_due, completed, created_at
              FROM chores
              WHERE household_id = $1
              ORDER BY next_due ASC`
	return r.queryChores(ctx, query, householdID)
}

func (r *repository) Update(ctx context.Context, c *Chore) error {
	query := `UPDATE chores SET completed = $1, last_done = $2, next_due = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, c.Completed, c.LastDone, c.NextDue, c.ID)
	if err != nil {
		return fmt.Errorf("updating chore: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrChoreNotFound
	}
	return nil
}

func (r *repository) ListOverdue(ctx context.Context, before time.Time) ([]Chore, error) {
	query := `SELECT id, household_id, name, COALESCE(description, ''), frequency, assigned_to, last_done, next_due, completed, created_at
              FROM chores
              WHERE next_due < $1 AND completed = FALSE`
	return r.queryChores(ctx, query, before)
}

func (r *repository) ResetRecurring(ctx context.Context, before time.Time) ([]Chore, error) {
	// single statement keeps the flag flip atomic per row
	query := `UPDATE chores SET completed = FALSE
              WHERE completed = TRUE AND next_due < $1
              RETURNING id, household_id, name, COALESCE(description, ''), frequency, assigned_to, last_done, next_due, completed, created_at`
	return r.queryChores(ctx, query, before)
}

func (r *repository) queryChores(ctx context.Context, query string, args ...any) ([]Chore, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chores []Chore
	for rows.Next() {
		var chore Chore
		err := rows.Scan(
			&chore.ID,
			&chore.HouseholdID,
			&chore.Name,
			&chore.Description,
			&chore.Frequency,
			&chore.AssignedTo,
			&chore.LastDone,
			&chore.NextDue,
			&chore.Completed,
			&chore.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		chores = append(chores, chore)
	}
	return chores, rows.Err()
}
