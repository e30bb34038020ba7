package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IvaDonGon/TusGastos/internal/core"
	"github.com/IvaDonGon/TusGastos/internal/memory"
)

func TestCategoryServiceCachesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	mustCategory(t, store, "Supermercado")
	svc := NewCategoryService(store, time.Minute)

	cats, err := svc.List(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 || cats[0].IconName != "shopping-cart" {
		t.Fatalf("unexpected categories: %+v", cats)
	}

	// A write behind the service's back is hidden by the cache.
	mustCategory(t, store, "Farmacia")
	if cats, _ := svc.List(ctx, testUser); len(cats) != 1 {
		t.Fatalf("expected cached list, got %d", len(cats))
	}

	created, err := svc.Create(ctx, core.CategoryDefinition{UserID: testUser, Name: "  Mascotas ", IconName: "paw"})
	if err != nil {
		t.Fatal(err)
	}
	if created.Name != "Mascotas" || created.IconName != "paw" || !created.Active {
		t.Fatalf("unexpected created category: %+v", created)
	}
	cats, _ = svc.List(ctx, testUser)
	if len(cats) != 3 {
		t.Fatalf("cache not invalidated, got %d", len(cats))
	}

	if _, err := svc.Create(ctx, core.CategoryDefinition{UserID: testUser, Name: "  "}); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Get(ctx, testUser, "nope"); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDefinitionService(t *testing.T) {
	ctx := context.Background()
	svc := NewDefinitionService(memory.New())

	tests := []struct {
		name string
		def  core.RecurringDefinition
	}{
		{"empty name", core.RecurringDefinition{UserID: testUser, Name: " ", Amount: 100, DayOfMonth: 1}},
		{"zero amount", core.RecurringDefinition{UserID: testUser, Name: "Luz", Amount: 0, DayOfMonth: 1}},
		{"day 32", core.RecurringDefinition{UserID: testUser, Name: "Luz", Amount: 100, DayOfMonth: 32}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.def); !core.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	def, err := svc.Create(ctx, core.RecurringDefinition{UserID: testUser, Name: "Luz", Amount: 30000, DayOfMonth: 12, Active: true})
	if err != nil {
		t.Fatal(err)
	}
	def.Amount = 35000
	def.Active = false
	updated, err := svc.Update(ctx, def)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Amount != 35000 || updated.Active {
		t.Fatalf("update not applied: %+v", updated)
	}

	missing := def
	missing.ID = "nope"
	if _, err := svc.Update(ctx, missing); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Delete(ctx, testUser, def.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, testUser, def.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestExpenseServiceCreate(t *testing.T) {
	ctx := context.Background()
	store, food, _ := budgetFixture(t)
	notifier := &recordingNotifier{}
	categories := NewCategoryService(store, 0)
	budget := NewBudgetService(store, notifier)
	svc := NewExpenseService(store, categories, budget, time.UTC)

	saved, err := svc.CreateExpense(ctx, core.Expense{UserID: testUser, CategoryID: food.ID, Date: "2025-02-10", Amount: 20000, Note: " pan "})
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" || saved.Note != "pan" {
		t.Fatalf("unexpected saved expense: %+v", saved)
	}
	if len(notifier.alerts) != 1 || len(notifier.alerts[0].Over) != 2 {
		t.Fatalf("expected an alert event with Comida now over: %+v", notifier.alerts)
	}

	tests := []struct {
		name  string
		e     core.Expense
		check func(error) bool
	}{
		{"bad date", core.Expense{UserID: testUser, Date: "10/02/2025", Amount: 100}, core.IsValidation},
		{"zero amount", core.Expense{UserID: testUser, Date: "2025-02-10", Amount: 0}, core.IsValidation},
		{"unknown category", core.Expense{UserID: testUser, CategoryID: "nope", Date: "2025-02-10", Amount: 100}, core.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateExpense(ctx, tt.e); !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestExpenseServiceList(t *testing.T) {
	ctx := context.Background()
	store, food, _ := budgetFixture(t)
	svc := NewExpenseService(store, nil, nil, time.UTC)

	got, err := svc.ListExpenses(ctx, testUser, core.CurrentMonthRange(feb10), food.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Date != "2025-02-09" {
		t.Fatalf("unexpected expenses: %+v", got)
	}
	if _, err := svc.ListExpenses(ctx, testUser, core.DateRange{Start: "x", End: "y"}, ""); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDashboardSummary(t *testing.T) {
	ctx := context.Background()
	store, _, _ := budgetFixture(t)
	mustDefinition(t, store, "Luz", 30000, 12, true)
	if _, err := NewOccurrenceManager(store, store, nil).EnsureForUser(ctx, testUser, feb10); err != nil {
		t.Fatal(err)
	}
	svc := NewDashboardService(store, NewCategoryService(store, time.Minute))

	sum, err := svc.Summary(ctx, testUser, feb10)
	if err != nil {
		t.Fatal(err)
	}
	if sum.MonthlyTotal != 1134999 || sum.PreviousTotal != 100000 {
		t.Fatalf("unexpected totals: %d / %d", sum.MonthlyTotal, sum.PreviousTotal)
	}
	if !sum.Delta.Up || sum.PendingCount != 1 {
		t.Fatalf("unexpected delta or pending: %+v %d", sum.Delta, sum.PendingCount)
	}
	if len(sum.Weekly) != 7 || sum.Weekly[6].Date != "2025-02-10" {
		t.Fatalf("unexpected weekly series: %+v", sum.Weekly)
	}
	if len(sum.Recent) != 4 || sum.Recent[0].Date != "2025-02-09" {
		t.Fatalf("unexpected recent list: %+v", sum.Recent)
	}

	failing := NewDashboardService(&faultyStore{Store: store, failExpenses: true}, NewCategoryService(store, 0))
	if _, err := failing.Summary(ctx, testUser, feb10); !core.IsStorage(err) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestCategoryServiceUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	food := mustCategory(t, store, "Comida")
	gifts := mustCategory(t, store, "Regalos")
	if err := store.UpsertCategoryLimit(ctx, testUser, gifts.ID, 5000); err != nil {
		t.Fatal(err)
	}
	mustExpense(t, store, food.ID, "2025-02-03", 1200)
	svc := NewCategoryService(store, time.Minute)
	if _, err := svc.List(ctx, testUser); err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(ctx, core.CategoryDefinition{ID: food.ID, UserID: testUser, Name: " Super ", Active: false})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Super" || updated.Active {
		t.Fatalf("unexpected update: %+v", updated)
	}
	got, err := svc.Get(ctx, testUser, food.ID)
	if err != nil || got.Name != "Super" || got.Active {
		t.Fatalf("cache not invalidated after update: %+v %v", got, err)
	}

	tests := []struct {
		name  string
		id    string
		check func(error) bool
	}{
		{"in use", food.ID, func(err error) bool { return errors.Is(err, core.ErrCategoryInUse) }},
		{"unknown", "nope", core.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Delete(ctx, testUser, tt.id); !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	if err := svc.Delete(ctx, testUser, gifts.ID); err != nil {
		t.Fatal(err)
	}
	cats, _ := svc.List(ctx, testUser)
	if len(cats) != 1 || cats[0].ID != food.ID {
		t.Fatalf("cache not invalidated after delete: %+v", cats)
	}
	if limits, _ := store.FetchCategoryLimits(ctx, testUser); len(limits) != 0 {
		t.Fatalf("limit should go with the category: %+v", limits)
	}
	if _, err := svc.Update(ctx, core.CategoryDefinition{ID: "nope", UserID: testUser, Name: "X"}); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExpenseServiceUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	food := mustCategory(t, store, "Comida")
	old := mustCategory(t, store, "Antiguo")
	closed := mustCategory(t, store, "Cerrado")
	closed.Active = false
	if _, err := store.UpdateCategory(ctx, closed); err != nil {
		t.Fatal(err)
	}
	categories := NewCategoryService(store, 0)
	svc := NewExpenseService(store, categories, nil, time.UTC)

	saved, err := svc.CreateExpense(ctx, core.Expense{UserID: testUser, CategoryID: old.ID, Date: "2025-02-10", Amount: 300})
	if err != nil {
		t.Fatal(err)
	}
	old.Active = false
	if _, err := categories.Update(ctx, old); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.CreateExpense(ctx, core.Expense{UserID: testUser, CategoryID: old.ID, Date: "2025-02-10", Amount: 100}); !errors.Is(err, core.ErrCategoryInactive) {
		t.Fatalf("expected inactive category error, got %v", err)
	}

	// Keeping a deactivated category on an existing expense is allowed.
	edit := saved
	edit.Amount = 450
	edit.Note = " corregido "
	updated, err := svc.UpdateExpense(ctx, edit)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Amount != 450 || updated.Note != "corregido" || !updated.CreatedAt.Equal(saved.CreatedAt) {
		t.Fatalf("unexpected update: %+v", updated)
	}

	tests := []struct {
		name  string
		e     core.Expense
		check func(error) bool
	}{
		{"moved to inactive category", core.Expense{ID: saved.ID, UserID: testUser, CategoryID: closed.ID, Date: "2025-02-10", Amount: 1}, func(err error) bool { return errors.Is(err, core.ErrCategoryInactive) }},
		{"moved to unknown category", core.Expense{ID: saved.ID, UserID: testUser, CategoryID: "nope", Date: "2025-02-10", Amount: 1}, core.IsNotFound},
		{"unknown expense", core.Expense{ID: "nope", UserID: testUser, Date: "2025-02-10", Amount: 1}, core.IsNotFound},
		{"zero amount", core.Expense{ID: saved.ID, UserID: testUser, Date: "2025-02-10", Amount: 0}, core.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.UpdateExpense(ctx, tt.e); !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	edit.CategoryID = food.ID
	if moved, err := svc.UpdateExpense(ctx, edit); err != nil || moved.CategoryID != food.ID {
		t.Fatalf("move to active category: %+v %v", moved, err)
	}

	if err := svc.DeleteExpense(ctx, testUser, saved.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteExpense(ctx, testUser, saved.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
