package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IvaDonGon/TusGastos/internal/core"
	"github.com/IvaDonGon/TusGastos/internal/ports"
)

var _ ports.Store = (*Store)(nil)

func TestCreateOccurrenceRejectsSecondInMonth(t *testing.T) {
	ctx := context.Background()
	s := New()
	occ := core.RecurringOccurrence{UserID: "u1", DefinitionID: "d1", DueDate: "2025-02-28", Amount: 10, State: core.StatePending}

	first, err := s.CreateOccurrence(ctx, occ)
	if err != nil || first.ID == "" {
		t.Fatalf("first create: %+v %v", first, err)
	}
	occ.DueDate = "2025-02-01"
	if _, err := s.CreateOccurrence(ctx, occ); !errors.Is(err, core.ErrOccurrenceExists) {
		t.Fatalf("expected ErrOccurrenceExists, got %v", err)
	}
	occ.DueDate = "2025-03-01"
	if _, err := s.CreateOccurrence(ctx, occ); err != nil {
		t.Fatalf("next month should be allowed: %v", err)
	}
}

func TestUpdateOccurrenceStateOnlyFromPending(t *testing.T) {
	ctx := context.Background()
	s := New()
	occ, _ := s.CreateOccurrence(ctx, core.RecurringOccurrence{UserID: "u1", DefinitionID: "d1", DueDate: "2025-02-10", Amount: 10, State: core.StatePending})

	at := time.Date(2025, 2, 11, 8, 0, 0, 0, time.UTC)
	if err := s.UpdateOccurrenceState(ctx, "u1", occ.ID, core.StateConfirmed, &at); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	got, _ := s.GetOccurrence(ctx, "u1", occ.ID)
	if got.State != core.StateConfirmed || got.ConfirmedAt == nil || !got.ConfirmedAt.Equal(at) {
		t.Fatalf("unexpected occurrence: %+v", got)
	}
	if err := s.UpdateOccurrenceState(ctx, "u1", occ.ID, core.StateOmitted, nil); !errors.Is(err, core.ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	if err := s.UpdateOccurrenceState(ctx, "u2", occ.ID, core.StateOmitted, nil); !core.IsNotFound(err) {
		t.Fatalf("other user should not see the occurrence, got %v", err)
	}
}

func TestFetchOccurrencesFiltersRangeAndState(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i, due := range []string{"2025-03-20", "2025-03-02", "2025-04-01"} {
		_, err := s.CreateOccurrence(ctx, core.RecurringOccurrence{
			UserID: "u1", DefinitionID: string(rune('a' + i)), DueDate: due, Amount: 1, State: core.StatePending,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	pending := core.StatePending
	got, err := s.FetchOccurrences(ctx, "u1", core.DateRange{Start: "2025-03-01", End: "2025-03-31"}, &pending)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].DueDate != "2025-03-02" || got[1].DueDate != "2025-03-20" {
		t.Fatalf("unexpected occurrences: %+v", got)
	}
}

func TestDeleteDefinitionKeepsOccurrences(t *testing.T) {
	ctx := context.Background()
	s := New()
	def, _ := s.CreateRecurringDefinition(ctx, core.RecurringDefinition{UserID: "u1", Name: "Luz", Amount: 100, DayOfMonth: 5, Active: true})
	occ, _ := s.CreateOccurrence(ctx, core.RecurringOccurrence{UserID: "u1", DefinitionID: def.ID, DueDate: "2025-03-05", Amount: 100, State: core.StatePending})

	if err := s.DeleteRecurringDefinition(ctx, "u1", def.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetOccurrence(ctx, "u1", occ.ID); err != nil {
		t.Fatalf("occurrence should survive definition delete: %v", err)
	}
	if _, err := s.GetRecurringDefinition(ctx, "u1", def.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLimitsAndSettings(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.UpsertCategoryLimit(ctx, "u1", "c1", 1000)
	_ = s.UpsertCategoryLimit(ctx, "u1", "c1", 2000)
	limits, _ := s.FetchCategoryLimits(ctx, "u1")
	if len(limits) != 1 || limits[0].MonthlyLimit != 2000 {
		t.Fatalf("upsert should replace the limit: %+v", limits)
	}
	_ = s.DeleteCategoryLimit(ctx, "u1", "c1")
	if limits, _ = s.FetchCategoryLimits(ctx, "u1"); len(limits) != 0 {
		t.Fatalf("expected no limits, got %+v", limits)
	}

	st, _ := s.GetSettings(ctx, "u1")
	if st != core.DefaultSettings("u1") {
		t.Fatalf("expected defaults, got %+v", st)
	}
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewFromFiles(dir, "u1")
	cats, _ := s.FetchCategories(ctx, "u1")
	if len(cats) == 0 {
		t.Fatalf("expected default categories when the seed file is missing")
	}

	content := "# header\nSalud\nViajes\nSalud\n\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s = NewFromFiles(dir, "u1")
	cats, _ = s.FetchCategories(ctx, "u1")
	if len(cats) != 2 || cats[0].Name != "Salud" || cats[1].Name != "Viajes" {
		t.Fatalf("unexpected categories: %+v", cats)
	}
	users, _ := s.ListUserIDs(ctx)
	if len(users) != 1 || users[0] != "u1" {
		t.Fatalf("unexpected users: %v", users)
	}
}

func TestCategoryAndExpenseEdits(t *testing.T) {
	ctx := context.Background()
	s := New()
	used, _ := s.CreateCategory(ctx, core.CategoryDefinition{UserID: "u1", Name: "Comida", Active: true})
	spare, _ := s.CreateCategory(ctx, core.CategoryDefinition{UserID: "u1", Name: "Regalos", Active: true})
	_ = s.UpsertCategoryLimit(ctx, "u1", spare.ID, 500)
	e, err := s.CreateExpense(ctx, core.Expense{UserID: "u1", CategoryID: used.ID, Date: "2025-02-01", Amount: 100})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteCategory(ctx, "u1", used.ID); !errors.Is(err, core.ErrCategoryInUse) {
		t.Fatalf("expected category in use, got %v", err)
	}
	if err := s.DeleteCategory(ctx, "u1", spare.ID); err != nil {
		t.Fatal(err)
	}
	if limits, _ := s.FetchCategoryLimits(ctx, "u1"); len(limits) != 0 {
		t.Fatalf("limit should go with the category: %+v", limits)
	}

	used.Active = false
	if _, err := s.UpdateCategory(ctx, used); err != nil {
		t.Fatal(err)
	}
	if cats, _ := s.FetchCategories(ctx, "u1"); len(cats) != 1 || cats[0].Active {
		t.Fatalf("unexpected categories: %+v", cats)
	}

	e.Amount = 300
	if _, err := s.UpdateExpense(ctx, e); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.GetExpense(ctx, "u1", e.ID); got.Amount != 300 || !got.CreatedAt.Equal(e.CreatedAt) {
		t.Fatalf("unexpected expense: %+v", got)
	}
	if _, err := s.GetExpense(ctx, "u2", e.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found across users, got %v", err)
	}
	if err := s.DeleteExpense(ctx, "u1", e.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteCategory(ctx, "u1", used.ID); err != nil {
		t.Fatalf("category without expenses should delete: %v", err)
	}
}
