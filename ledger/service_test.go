package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chorecast/chorecast/money"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClock = func() time.Time {
	return time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewService(store, WithClock(testClock)), store
}

func cents(s string) money.Money {
	m, err := money.Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func edgeAmount(t *testing.T, store Store, householdID, debtor, creditor uuid.UUID) (money.Money, bool) {
	t.Helper()
	edges, err := store.HouseholdBalances(context.Background(), householdID)
	require.NoError(t, err)
	for _, edge := range edges {
		if edge.Debtor == debtor && edge.Creditor == creditor {
			return edge.Amount, true
		}
	}
	return 0, false
}

func TestRecordExpenseSplitsAcrossParticipants(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()
	household := uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	expense, err := svc.RecordExpense(ctx, household, "groceries", cents("100.00"), a, []uuid.UUID{a, b, c})
	require.NoError(t, err)
	assert.False(t, expense.Settled)
	assert.Equal(t, testClock().UTC(), expense.CreatedAt)

	// 100.00 / 3 rounds half-up to 33.33 per head; the payer absorbs the
	// missing cent.
	got, ok := edgeAmount(t, store, household, b, a)
	require.True(t, ok)
	assert.Equal(t, cents("33.33"), got)

	got, ok = edgeAmount(t, store, household, c, a)
	require.True(t, ok)
	assert.Equal(t, cents("33.33"), got)

	// the payer never owes themselves
	_, ok = edgeAmount(t, store, household, a, a)
	assert.False(t, ok)

	edges, err := store.HouseholdBalances(ctx, household)
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestRecordExpenseValidation(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()
	household := uuid.New()
	payer := uuid.New()

	_, err := svc.RecordExpense(ctx, household, "nothing", 0, payer, []uuid.UUID{payer})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.RecordExpense(ctx, household, "refund", cents("-5.00"), payer, []uuid.UUID{payer})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.RecordExpense(ctx, household, "orphan", cents("10.00"), payer, nil)
	assert.ErrorIs(t, err, ErrNoParticipants)

	// rejected before anything touched storage
	expenses, err := store.HouseholdExpenses(ctx, household)
	require.NoError(t, err)
	assert.Empty(t, expenses)
	edges, err := store.HouseholdBalances(ctx, household)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestPayerOutsideParticipants(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()
	household := uuid.New()
	payer, b, c := uuid.New(), uuid.New(), uuid.New()

	// payer not in the participant list: every participant owes a full
	// share, split by participant count only.
	_, err := svc.RecordExpense(ctx, household, "takeout", cents("30.00"), payer, []uuid.UUID{b, c})
	require.NoError(t, err)

	got, ok := edgeAmount(t, store, household, b, payer)
	require.True(t, ok)
	assert.Equal(t, cents("15.00"), got)
	got, ok = edgeAmount(t, store, household, c, payer)
	require.True(t, ok)
	assert.Equal(t, cents("15.00"), got)
}

func TestEdgesAccumulateAndPartialSettlement(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()
	household := uuid.New()
	a, b := uuid.New(), uuid.New()

	first, err := svc.RecordExpense(ctx, household, "coffee", cents("10.00"), a, []uuid.UUID{a, b})
	require.NoError(t, err)
	_, err = svc.RecordExpense(ctx, household, "lunch", cents("10.00"), a, []uuid.UUID{a, b})
	require.NoError(t, err)

	got, ok := edgeAmount(t, store, household, b, a)
	require.True(t, ok)
	assert.Equal(t, cents("10.00"), got)

	// settling only the first expense reduces the edge, it does not delete it
	require.NoError(t, svc.ReverseExpense(ctx, first.ID))

	got, ok = edgeAmount(t, store, household, b, a)
	require.True(t, ok)
	assert.Equal(t, cents("5.00"), got)
}

func TestRoundTripRestoresLedger(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()
	household := uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	// pre-existing debt from an earlier expense
	_, err := svc.RecordExpense(ctx, household, "rent", cents("40.00"), a, []uuid.UUID{a, b})
	require.NoError(t, err)

	expense, err := svc.RecordExpense(ctx, household, "utilities", cents("100.00"), a, []uuid.UUID{a, b, c})
	require.NoError(t, err)
	require.NoError(t, svc.ReverseExpense(ctx, expense.ID))

	// b is back at the prior 20.00, c's edge is gone entirely
	got, ok := edgeAmount(t, store, household, b, a)
	require.True(t, ok)
	assert.Equal(t, cents("20.00"), got)
	_, ok = edgeAmount(t, store, household, c, a)
	assert.False(t, ok)

	settled, err := svc.FindExpense(ctx, expense.ID)
	require.NoError(t, err)
	assert.True(t, settled.Settled)
}

func TestSettlingDeletesClearedEdges(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()
	household := uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	expense, err := svc.RecordExpense(ctx, household, "groceries", cents("100.00"), a, []uuid.UUID{a, b, c})
	require.NoError(t, err)
	require.NoError(t, svc.ReverseExpense(ctx, expense.ID))

	edges, err := store.HouseholdBalances(ctx, household)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestReverseExpenseNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	err := svc.ReverseExpense(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrExpenseNotFound)
}

func TestReverseExpenseTwice(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()
	household := uuid.New()
	a, b := uuid.New(), uuid.New()

	// two identical expenses so the edge survives the first settlement
	first, err := svc.RecordExpense(ctx, household, "coffee", cents("10.00"), a, []uuid.UUID{a, b})
	require.NoError(t, err)
	_, err = svc.RecordExpense(ctx, household, "coffee again", cents("10.00"), a, []uuid.UUID{a, b})
	require.NoError(t, err)

	require.NoError(t, svc.ReverseExpense(ctx, first.ID))
	err = svc.ReverseExpense(ctx, first.ID)
	assert.ErrorIs(t, err, ErrAlreadySettled)

	// the double settlement must not have touched the ledger a second time
	got, ok := edgeAmount(t, store, household, b, a)
	require.True(t, ok)
	assert.Equal(t, cents("5.00"), got)
}

func TestConservation(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()
	household := uuid.New()
	payer := uuid.New()
	members := []uuid.UUID{payer, uuid.New(), uuid.New(), uuid.New()}

	var expectedIntoPayer money.Money
	amounts := []string{"100.00", "33.35", "7.77", "250.01"}
	for i, amt := range amounts {
		_, err := svc.RecordExpense(ctx, household, fmt.Sprintf("expense %d", i), cents(amt), payer, members)
		require.NoError(t, err)
		share, _, err := money.Split(cents(amt), len(members))
		require.NoError(t, err)
		// three non-payer participants each owe one share
		expectedIntoPayer = expectedIntoPayer.Add(share.Add(share).Add(share))
	}

	credits, err := store.UserCredits(ctx, payer)
	require.NoError(t, err)
	var total money.Money
	for _, edge := range credits {
		total = total.Add(edge.Amount)
	}
	assert.Equal(t, expectedIntoPayer, total)
}

func TestNoZeroEdgesEver(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()
	household := uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	var recorded []uuid.UUID
	for _, amt := range []string{"10.00", "0.01", "99.99", "3.33"} {
		expense, err := svc.RecordExpense(ctx, household, "e", cents(amt), a, []uuid.UUID{a, b, c})
		require.NoError(t, err)
		recorded = append(recorded, expense.ID)
	}
	// settle a couple, in reverse order of creation
	require.NoError(t, svc.ReverseExpense(ctx, recorded[3]))
	require.NoError(t, svc.ReverseExpense(ctx, recorded[1]))

	edges, err := store.HouseholdBalances(ctx, household)
	require.NoError(t, err)
	for _, edge := range edges {
		assert.True(t, edge.Amount.IsPositive(), "edge %s -> %s has amount %s", edge.Debtor, edge.Creditor, edge.Amount)
	}
}

func TestConcurrentRecordsOnSamePair(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()
	household := uuid.New()
	a, b := uuid.New(), uuid.New()

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordExpense(ctx, household, "split", cents("10.00"), a, []uuid.UUID{a, b})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// every 5.00 share must land; a lost read-modify-write would show up here
	got, ok := edgeAmount(t, store, household, b, a)
	require.True(t, ok)
	assert.Equal(t, money.FromCents(workers*500), got)
}

// flakyStore fails InTx with a write conflict a fixed number of times before
// delegating to the real store.
type flakyStore struct {
	*MemoryStore
	mu        sync.Mutex
	conflicts int
}

func (f *flakyStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	f.mu.Lock()
	remaining := f.conflicts
	if remaining > 0 {
		f.conflicts--
	}
	f.mu.Unlock()
	if remaining > 0 {
		return ErrWriteConflict
	}
	return f.MemoryStore.InTx(ctx, fn)
}

func TestRetriesOnWriteConflict(t *testing.T) {
	t.Parallel()

	store := &flakyStore{MemoryStore: NewMemoryStore(), conflicts: 2}
	svc := NewService(store, WithClock(testClock))
	ctx := context.Background()
	household := uuid.New()
	a, b := uuid.New(), uuid.New()

	// two conflicts, three attempts allowed: succeeds on the last one
	_, err := svc.RecordExpense(ctx, household, "contested", cents("10.00"), a, []uuid.UUID{a, b})
	require.NoError(t, err)

	got, ok := edgeAmount(t, store.MemoryStore, household, b, a)
	require.True(t, ok)
	assert.Equal(t, cents("5.00"), got)
}

func TestConflictSurfacedAfterRetriesExhausted(t *testing.T) {
	t.Parallel()

	store := &flakyStore{MemoryStore: NewMemoryStore(), conflicts: maxTxAttempts}
	svc := NewService(store, WithClock(testClock))
	household := uuid.New()
	a, b := uuid.New(), uuid.New()

	_, err := svc.RecordExpense(context.Background(), household, "contested", cents("10.00"), a, []uuid.UUID{a, b})
	assert.ErrorIs(t, err, ErrWriteConflict)

	// nothing may be left behind by the failed attempts
	expenses, storeErr := store.MemoryStore.HouseholdExpenses(context.Background(), household)
	require.NoError(t, storeErr)
	assert.Empty(t, expenses)
}

func TestQueriesAreScoped(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	houseOne, houseTwo := uuid.New(), uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	_, err := svc.RecordExpense(ctx, houseOne, "rent", cents("50.00"), a, []uuid.UUID{a, b})
	require.NoError(t, err)
	// b owes c in a different household
	_, err = svc.RecordExpense(ctx, houseTwo, "beers", cents("20.00"), c, []uuid.UUID{b, c})
	require.NoError(t, err)

	balances, err := svc.HouseholdBalances(ctx, houseOne)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, a, balances[0].Creditor)

	// debts cross household boundaries
	debts, err := svc.UserDebts(ctx, b)
	require.NoError(t, err)
	assert.Len(t, debts, 2)

	credits, err := svc.UserCredits(ctx, c)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.Equal(t, cents("10.00"), credits[0].Amount)
}
