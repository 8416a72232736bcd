package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chorecast/chorecast/money"
	"github.com/google/uuid"
)

// Transactions that lose a race on shared edge rows are retried this many
// times before the conflict is surfaced to the caller.
const maxTxAttempts = 3

// Service is the settlement engine: it records expenses by applying their
// per-participant split to the balance ledger and reverses that split when
// an expense is settled. Each operation is a single transaction over the
// expense row and every edge it touches.
type Service struct {
	store Store
	now   func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordExpense persists a new expense and charges every non-payer
// participant their half-up share, directed participant → payer. The payer's
// own share, and any rounding drift from share*count differing from the
// total, is absorbed by the payer.
func (s *Service) RecordExpense(ctx context.Context, householdID uuid.UUID, description string, amount money.Money, payerID uuid.UUID, participants []uuid.UUID) (*Expense, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	expense := &Expense{
		ID:           uuid.New(),
		HouseholdID:  householdID,
		Description:  description,
		Amount:       amount,
		PayerID:      payerID,
		Participants: participants,
		Settled:      false,
		CreatedAt:    s.now().UTC(),
	}

	share, _, err := money.Split(amount, len(participants))
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(tx Tx) error {
		if err := tx.SaveExpense(ctx, expense); err != nil {
			return err
		}
		for _, participant := range participants {
			if participant == payerID {
				continue
			}
			if err := s.charge(ctx, tx, householdID, participant, payerID, share); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return expense, nil
}

// ReverseExpense marks the expense settled and retracts its split from the
// ledger. Settling twice fails with ErrAlreadySettled rather than silently
// doing nothing, so callers can tell a duplicate attempt from a fresh one.
func (s *Service) ReverseExpense(ctx context.Context, expenseID uuid.UUID) error {
	return s.inTx(ctx, func(tx Tx) error {
		expense, err := tx.Expense(ctx, expenseID)
		if err != nil {
			return err
		}
		if expense.Settled {
			return ErrAlreadySettled
		}
		if err := tx.MarkSettled(ctx, expenseID); err != nil {
			return err
		}

		// Same inputs as at record time, so the same share comes out.
		share, _, err := money.Split(expense.Amount, len(expense.Participants))
		if err != nil {
			return err
		}
		for _, participant := range expense.Participants {
			if participant == expense.PayerID {
				continue
			}
			if err := s.retract(ctx, tx, expense.HouseholdID, participant, expense.PayerID, share); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) charge(ctx context.Context, tx Tx, householdID, debtor, creditor uuid.UUID, share money.Money) error {
	edge, err := tx.Edge(ctx, householdID, debtor, creditor)
	if err != nil {
		return err
	}
	if edge == nil {
		edge = &BalanceEdge{
			ID:          uuid.New(),
			HouseholdID: householdID,
			Debtor:      debtor,
			Creditor:    creditor,
		}
	}
	edge.Amount = edge.Amount.Add(share)
	edge.UpdatedAt = s.now().UTC()
	return tx.UpsertEdge(ctx, edge)
}

func (s *Service) retract(ctx context.Context, tx Tx, householdID, debtor, creditor uuid.UUID, share money.Money) error {
	edge, err := tx.Edge(ctx, householdID, debtor, creditor)
	if err != nil {
		return err
	}
	if edge == nil {
		return nil
	}
	edge.Amount = edge.Amount.Sub(share)
	if !edge.Amount.IsPositive() {
		return tx.DeleteEdge(ctx, householdID, debtor, creditor)
	}
	edge.UpdatedAt = s.now().UTC()
	return tx.UpsertEdge(ctx, edge)
}

func (s *Service) inTx(ctx context.Context, fn func(tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.store.InTx(ctx, fn)
		if !errors.Is(err, ErrWriteConflict) {
			return err
		}
		slog.Warn("ledger transaction conflict, retrying", "attempt", attempt)
	}
	return err
}

// Read-side projections. These never mutate the ledger.

func (s *Service) FindExpense(ctx context.Context, id uuid.UUID) (*Expense, error) {
	return s.store.FindExpense(ctx, id)
}

func (s *Service) HouseholdExpenses(ctx context.Context, householdID uuid.UUID) ([]Expense, error) {
	return s.store.HouseholdExpenses(ctx, householdID)
}

func (s *Service) HouseholdBalances(ctx context.Context, householdID uuid.UUID) ([]BalanceEdge, error) {
	return s.store.HouseholdBalances(ctx, householdID)
}

func (s *Service) UserDebts(ctx context.Context, userID uuid.UUID) ([]BalanceEdge, error) {
	return s.store.UserDebts(ctx, userID)
}

func (s *Service) UserCredits(ctx context.Context, userID uuid.UUID) ([]BalanceEdge, error) {
	return s.store.UserCredits(ctx, userID)
}
