package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/chorecast/chorecast/money"
	"github.com/google/uuid"
)

var (
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrNoParticipants  = errors.New("expense needs at least one participant")
	ErrExpenseNotFound = errors.New("expense not found")
	ErrAlreadySettled  = errors.New("expense already settled")
	ErrWriteConflict   = errors.New("conflicting write on ledger rows")
)

// Expense is a shared cost split across household members. Everything but
// the Settled flag is immutable after creation: the reversal on settlement
// recomputes the original per-participant share from Amount and
// Participants, so those must never change.
type Expense struct {
	ID           uuid.UUID   `json:"id"`
	HouseholdID  uuid.UUID   `json:"household_id"`
	Description  string      `json:"description"`
	Amount       money.Money `json:"amount"`
	PayerID      uuid.UUID   `json:"payer_id"`
	Participants []uuid.UUID `json:"participants"`
	Settled      bool        `json:"settled"`
	CreatedAt    time.Time   `json:"created_at"`
}

// BalanceEdge means "Debtor owes Creditor Amount" within one household.
// At most one edge exists per ordered (debtor, creditor) pair per household,
// and a stored edge always has Amount > 0; an edge that would drop to or
// below zero is deleted instead.
type BalanceEdge struct {
	ID          uuid.UUID   `json:"id"`
	HouseholdID uuid.UUID   `json:"household_id"`
	Debtor      uuid.UUID   `json:"debtor"`
	Creditor    uuid.UUID   `json:"creditor"`
	Amount      money.Money `json:"amount"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Store is the persistence surface for expenses and balance edges. All edge
// access goes through here or through Tx, which keeps the no-zero-edge rule
// in one place.
type Store interface {
	// InTx runs fn inside a transaction: every write fn performs is applied
	// atomically, or not at all when fn returns an error. Implementations
	// return ErrWriteConflict (possibly wrapped) when the transaction lost a
	// race on the rows it touched and is worth retrying.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	FindExpense(ctx context.Context, id uuid.UUID) (*Expense, error)
	HouseholdExpenses(ctx context.Context, householdID uuid.UUID) ([]Expense, error)
	HouseholdBalances(ctx context.Context, householdID uuid.UUID) ([]BalanceEdge, error)
	UserDebts(ctx context.Context, userID uuid.UUID) ([]BalanceEdge, error)
	UserCredits(ctx context.Context, userID uuid.UUID) ([]BalanceEdge, error)
}

// Tx is the mutating surface available inside Store.InTx. Reads through Tx
// see the transaction's own writes and hold off concurrent writers on the
// same rows until commit.
type Tx interface {
	SaveExpense(ctx context.Context, e *Expense) error
	// Expense loads an expense for update. Returns ErrExpenseNotFound when
	// the id is unknown.
	Expense(ctx context.Context, id uuid.UUID) (*Expense, error)
	MarkSettled(ctx context.Context, id uuid.UUID) error

	// Edge returns the edge for the ordered pair, or nil when none exists.
	Edge(ctx context.Context, householdID, debtor, creditor uuid.UUID) (*BalanceEdge, error)
	UpsertEdge(ctx context.Context, edge *BalanceEdge) error
	DeleteEdge(ctx context.Context, householdID, debtor, creditor uuid.UUID) error
}
