package sheets

import (
	"context"
	"testing"
	"time"

	"github.com/IvaDonGon/TusGastos/internal/core"
	"github.com/IvaDonGon/TusGastos/internal/memory"
	"github.com/IvaDonGon/TusGastos/internal/services"
	sheetmem "github.com/IvaDonGon/TusGastos/internal/sheets/memory"
)

func TestSheetName(t *testing.T) {
	tests := []struct{ prefix, month, want string }{
		{"TusGastos", "2025-02", "TusGastos 2025-02"},
		{"  Casa ", "2024-12", "Casa 2024-12"},
		{"", "2025-01", "TusGastos 2025-01"},
	}
	for _, tt := range tests {
		if got := SheetName(tt.prefix, tt.month); got != tt.want {
			t.Errorf("SheetName(%q, %q) = %q, want %q", tt.prefix, tt.month, got, tt.want)
		}
	}
}

func TestBuildRows(t *testing.T) {
	r := MonthlyReport{
		Month:      "2025-02",
		Categories: []core.CategoryDefinition{{ID: "c1", Name: "Comida"}},
		Expenses: []core.Expense{
			{Date: "2025-02-09", CategoryID: "c1", Amount: 2500, Note: "pan"},
			{Date: "2025-02-01", Amount: 1000},
		},
		Definitions: []core.RecurringDefinition{{ID: "d1", Name: "Luz"}},
		Occurrences: []core.RecurringOccurrence{
			{ID: "o2", DefinitionID: "gone", DueDate: "2025-02-20", Amount: 500, State: core.StatePending},
			{ID: "o1", DefinitionID: "d1", DueDate: "2025-02-12", Amount: 30000, State: core.StateConfirmed},
		},
		Alerts: core.BudgetAlerts{Over: []core.BudgetAlertState{{CategoryName: "Comida", Spent: 2500, Limit: 2000, Status: core.BudgetOver}}},
	}

	rows := BuildRows(r)
	if rows[1][1] != int64(3500) {
		t.Fatalf("total = %v, want 3500", rows[1][1])
	}
	// Expenses start after the header at index 4, oldest first.
	if rows[5][0] != "2025-02-01" || rows[6][1] != "Comida" || rows[6][3] != "pan" {
		t.Fatalf("unexpected expense rows: %v %v", rows[5], rows[6])
	}
	if rows[10][1] != "Luz" || rows[11][1] != core.DefaultRecurringName || rows[11][3] != "pending" {
		t.Fatalf("unexpected occurrence rows: %v %v", rows[10], rows[11])
	}
	last := rows[len(rows)-1]
	if last[0] != "Comida" || last[3] != "over" {
		t.Fatalf("unexpected alert row: %v", last)
	}
}

func TestExporter(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cat, _ := store.CreateCategory(ctx, core.CategoryDefinition{UserID: "u1", Name: "Comida", Active: true})
	_ = store.UpsertCategoryLimit(ctx, "u1", cat.ID, 1000)
	_, _ = store.CreateExpense(ctx, core.Expense{UserID: "u1", CategoryID: cat.ID, Date: "2025-02-03", Amount: 1500})

	writer := sheetmem.New()
	x := NewExporter(store, services.NewBudgetService(store, nil), writer, "Informe")

	res, err := x.Export(ctx, "u1", time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if res.SheetName != "Informe 2025-02" {
		t.Fatalf("sheet = %q", res.SheetName)
	}
	rows, ok := writer.Sheet("Informe 2025-02")
	if !ok || len(rows) != res.Rows {
		t.Fatalf("sheet not written: %v", writer.Names())
	}
	if last := rows[len(rows)-1]; last[3] != "over" {
		t.Fatalf("expected an over alert row, got %v", last)
	}
}
