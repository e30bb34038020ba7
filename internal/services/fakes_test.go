package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IvaDonGon/TusGastos/internal/core"
	"github.com/IvaDonGon/TusGastos/internal/memory"
)

var errBoom = errors.New("boom")

// recordingNotifier keeps every published event.
type recordingNotifier struct {
	mu       sync.Mutex
	alerts   []core.BudgetAlerts
	created  [][]core.RecurringOccurrence
	failWith error
}

func (n *recordingNotifier) PublishBudgetAlert(_ context.Context, _, _ string, alerts core.BudgetAlerts) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alerts)
	return n.failWith
}

func (n *recordingNotifier) PublishOccurrencesCreated(_ context.Context, _, _ string, created []core.RecurringOccurrence) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, created)
	return n.failWith
}

// faultyStore wraps the memory store and fails selected calls.
type faultyStore struct {
	*memory.Store
	failCreateFor string
	failLimits    bool
	failExpenses  bool
}

func (f *faultyStore) CreateOccurrence(ctx context.Context, occ core.RecurringOccurrence) (core.RecurringOccurrence, error) {
	if occ.DefinitionID == f.failCreateFor {
		return core.RecurringOccurrence{}, core.WrapStorage("create occurrence", errBoom)
	}
	return f.Store.CreateOccurrence(ctx, occ)
}

func (f *faultyStore) FetchCategoryLimits(ctx context.Context, userID string) ([]core.CategoryLimit, error) {
	if f.failLimits {
		return nil, core.WrapStorage("fetch limits", errBoom)
	}
	return f.Store.FetchCategoryLimits(ctx, userID)
}

func (f *faultyStore) FetchExpensesInRange(ctx context.Context, userID string, rng core.DateRange, categoryID string) ([]core.Expense, error) {
	if f.failExpenses {
		return nil, core.WrapStorage("fetch expenses", errBoom)
	}
	return f.Store.FetchExpensesInRange(ctx, userID, rng, categoryID)
}

const testUser = "u1"

// feb10 is the reference time used across the service tests.
var feb10 = time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mustDefinition(t *testing.T, s *memory.Store, name string, amount core.Amount, day int, active bool) core.RecurringDefinition {
	t.Helper()
	d, err := s.CreateRecurringDefinition(context.Background(), core.RecurringDefinition{
		UserID: testUser, Name: name, Amount: amount, DayOfMonth: day, Active: active,
	})
	if err != nil {
		t.Fatalf("create definition: %v", err)
	}
	return d
}

func mustCategory(t *testing.T, s *memory.Store, name string) core.CategoryDefinition {
	t.Helper()
	c, err := s.CreateCategory(context.Background(), core.CategoryDefinition{UserID: testUser, Name: name, Active: true})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

func mustExpense(t *testing.T, s *memory.Store, categoryID, date string, amount core.Amount) {
	t.Helper()
	if _, err := s.CreateExpense(context.Background(), core.Expense{
		UserID: testUser, CategoryID: categoryID, Date: date, Amount: amount,
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}
}
