package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&postgresTx{tx: tx}); err != nil {
		return mapConflict(err)
	}
	if err := tx.Commit(); err != nil {
		return mapConflict(err)
	}
	return nil
}

// mapConflict translates Postgres serialization failures and deadlock aborts
// into ErrWriteConflict so the engine can retry the whole transaction.
func mapConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", ErrWriteConflict, pqErr.Message)
		}
	}
	return err
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) SaveExpense(ctx context.Context, e *Expense) error {
	participants, err := json.Marshal(e.Participants)
	if err != nil {
		return fmt.Errorf("encoding participants: %w", err)
	}

	query := `INSERT INTO expenses (id, household_id, description, amount_cents, payer_id, participants, settled, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = t.tx.ExecContext(ctx, query,
		e.ID,
		e.HouseholdID,
		e.Description,
		e.Amount,
		e.PayerID,
		participants,
		e.Settled,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting expense: %w", err)
	}
	return nil
}

func (t *postgresTx) Expense(ctx context.Context, id uuid.UUID) (*Expense, error) {
	// FOR UPDATE serializes concurrent settlement attempts on the same
	// expense row.
	query := `SELECT id, household_id, description, amount_cents, payer_id, participants, settled, created_at
              FROM expenses WHERE id = $1 FOR UPDATE`
	return scanExpense(t.tx.QueryRowContext(ctx, query, id))
}

func (t *postgresTx) MarkSettled(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE expenses SET settled = TRUE WHERE id = $1`
	_, err := t.tx.ExecContext(ctx, query, id)
	return err
}

func (t *postgresTx) Edge(ctx context.Context, householdID, debtor, creditor uuid.UUID) (*BalanceEdge, error) {
	// Row lock held until commit: the read-modify-write on an edge must not
	// interleave with another transaction touching the same pair.
	query := `SELECT id, household_id, debtor, creditor, amount_cents, updated_at
              FROM balances WHERE household_id = $1 AND debtor = $2 AND creditor = $3 FOR UPDATE`

	var edge BalanceEdge
	err := t.tx.QueryRowContext(ctx, query, householdID, debtor, creditor).Scan(
		&edge.ID,
		&edge.HouseholdID,
		&edge.Debtor,
		&edge.Creditor,
		&edge.Amount,
		&edge.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying balance edge: %w", err)
	}
	return &edge, nil
}

func (t *postgresTx) UpsertEdge(ctx context.Context, edge *BalanceEdge) error {
	query := `INSERT INTO balances (id, household_id, debtor, creditor, amount_cents, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6)
              ON CONFLICT (household_id, debtor, creditor)
              DO UPDATE SET amount_cents = EXCLUDED.amount_cents, updated_at = EXCLUDED.updated_at`
	_, err := t.tx.ExecContext(ctx, query,
		edge.ID,
		edge.HouseholdID,
		edge.Debtor,
		edge.Creditor,
		edge.Amount,
		edge.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting balance edge: %w", err)
	}
	return nil
}

func (t *postgresTx) DeleteEdge(ctx context.Context, householdID, debtor, creditor uuid.UUID) error {
	query := `DELETE FROM balances WHERE household_id = $1 AND debtor = $2 AND creditor = $3`
	_, err := t.tx.ExecContext(ctx, query, householdID, debtor, creditor)
	return err
}

func (s *PostgresStore) FindExpense(ctx context.Context, id uuid.UUID) (*Expense, error) {
	query := `SELECT id, household_id, description, amount_cents, payer_id, participants, settled, created_at
              FROM expenses WHERE id = $1`
	return scanExpense(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) HouseholdExpenses(ctx context.Context, householdID uuid.UUID) ([]Expense, error) {
	query := `SELECT id, household_id, description, amount_cents, payer_id, participants, settled, created_at
              FROM expenses
              WHERE household_id = $1
              ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *expense)
	}
	return expenses, rows.Err()
}

func (s *PostgresStore) HouseholdBalances(ctx context.Context, householdID uuid.UUID) ([]BalanceEdge, error) {
	query := `SELECT id, household_id, debtor, creditor, amount_cents, updated_at
              FROM balances WHERE household_id = $1`
	return s.queryEdges(ctx, query, householdID)
}

func (s *PostgresStore) UserDebts(ctx context.Context, userID uuid.UUID) ([]BalanceEdge, error) {
	query := `SELECT id, household_id, debtor, creditor, amount_cents, updated_at
              FROM balances WHERE debtor = $1`
	return s.queryEdges(ctx, query, userID)
}

func (s *PostgresStore) UserCredits(ctx context.Context, userID uuid.UUID) ([]BalanceEdge, error) {
	query := `SELECT id, household_id, debtor, creditor, amount_cents, updated_at
              FROM balances WHERE creditor = $1`
	return s.queryEdges(ctx, query, userID)
}

func (s *PostgresStore) queryEdges(ctx context.Context, query string, arg any) ([]BalanceEdge, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []BalanceEdge
	for rows.Next() {
		var edge BalanceEdge
		err := rows.Scan(
			&edge.ID,
			&edge.HouseholdID,
			&edge.Debtor,
			&edge.Creditor,
			&edge.Amount,
			&edge.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*Expense, error) {
	var expense Expense
	var participants []byte
	err := row.Scan(
		&expense.ID,
		&expense.HouseholdID,
		&expense.Description,
		&expense.Amount,
		&expense.PayerID,
		&participants,
		&expense.Settled,
		&expense.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrExpenseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning expense: %w", err)
	}
	if err := json.Unmarshal(participants, &expense.Participants); err != nil {
		return nil, fmt.Errorf("decoding participants: %w", err)
	}
	return &expense, nil
}
