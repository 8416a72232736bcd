package ledger

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type edgeKey struct {
	householdID uuid.UUID
	debtor      uuid.UUID
	creditor    uuid.UUID
}

// MemoryStore keeps the ledger in process memory behind a single mutex.
// Transactions run against a copy of the state that only replaces the live
// maps on success, so a failed transaction leaves nothing behind. Used by
// the test suite and as a throwaway dev backend.
type MemoryStore struct {
	mu       sync.Mutex
	expenses map[uuid.UUID]Expense
	edges    map[edgeKey]BalanceEdge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		expenses: make(map[uuid.UUID]Expense),
		edges:    make(map[edgeKey]BalanceEdge),
	}
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{
		expenses: maps.Clone(m.expenses),
		edges:    maps.Clone(m.edges),
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.expenses = tx.expenses
	m.edges = tx.edges
	return nil
}

type memoryTx struct {
	expenses map[uuid.UUID]Expense
	edges    map[edgeKey]BalanceEdge
}

func (t *memoryTx) SaveExpense(ctx context.Context, e *Expense) error {
	t.expenses[e.ID] = *e
	return nil
}

func (t *memoryTx) Expense(ctx context.Context, id uuid.UUID) (*Expense, error) {
	expense, ok := t.expenses[id]
	if !ok {
		return nil, ErrExpenseNotFound
	}
	return &expense, nil
}

func (t *memoryTx) MarkSettled(ctx context.Context, id uuid.UUID) error {
	expense, ok := t.expenses[id]
	if !ok {
		return ErrExpenseNotFound
	}
	expense.Settled = true
	t.expenses[id] = expense
	return nil
}

func (t *memoryTx) Edge(ctx context.Context, householdID, debtor, creditor uuid.UUID) (*BalanceEdge, error) {
	edge, ok := t.edges[edgeKey{householdID, debtor, creditor}]
	if !ok {
		return nil, nil
	}
	return &edge, nil
}

func (t *memoryTx) UpsertEdge(ctx context.Context, edge *BalanceEdge) error {
	t.edges[edgeKey{edge.HouseholdID, edge.Debtor, edge.Creditor}] = *edge
	return nil
}

func (t *memoryTx) DeleteEdge(ctx context.Context, householdID, debtor, creditor uuid.UUID) error {
	delete(t.edges, edgeKey{householdID, debtor, creditor})
	return nil
}

func (m *MemoryStore) FindExpense(ctx context.Context, id uuid.UUID) (*Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expense, ok := m.expenses[id]
	if !ok {
		return nil, ErrExpenseNotFound
	}
	return &expense, nil
}

func (m *MemoryStore) HouseholdExpenses(ctx context.Context, householdID uuid.UUID) ([]Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expenses []Expense
	for _, expense := range m.expenses {
		if expense.HouseholdID == householdID {
			expenses = append(expenses, expense)
		}
	}
	sort.Slice(expenses, func(i, j int) bool {
		return expenses[i].CreatedAt.After(expenses[j].CreatedAt)
	})
	return expenses, nil
}

func (m *MemoryStore) HouseholdBalances(ctx context.Context, householdID uuid.UUID) ([]BalanceEdge, error) {
	return m.filterEdges(func(e BalanceEdge) bool { return e.HouseholdID == householdID })
}

func (m *MemoryStore) UserDebts(ctx context.Context, userID uuid.UUID) ([]BalanceEdge, error) {
	return m.filterEdges(func(e BalanceEdge) bool { return e.Debtor == userID })
}

func (m *MemoryStore) UserCredits(ctx context.Context, userID uuid.UUID) ([]BalanceEdge, error) {
	return m.filterEdges(func(e BalanceEdge) bool { return e.Creditor == userID })
}

func (m *MemoryStore) filterEdges(keep func(BalanceEdge) bool) ([]BalanceEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var edges []BalanceEdge
	for _, edge := range m.edges {
		if keep(edge) {
			edges = append(edges, edge)
		}
	}
	return edges, nil
}
