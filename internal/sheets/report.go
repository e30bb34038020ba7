package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/IvaDonGon/TusGastos/internal/core"
	applog "github.com/IvaDonGon/TusGastos/internal/log"
	"github.com/IvaDonGon/TusGastos/internal/ports"
	"github.com/IvaDonGon/TusGastos/internal/services"
)

const defaultPrefix = "TusGastos"

// MonthlyReport is the data written to one sheet.
type MonthlyReport struct {
	Month       string
	Expenses    []core.Expense
	Categories  []core.CategoryDefinition
	Occurrences []core.RecurringOccurrence
	Definitions []core.RecurringDefinition
	Alerts      core.BudgetAlerts
}

// SheetName is "<prefix> YYYY-MM".
func SheetName(prefix, month string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return fmt.Sprintf("%s %s", prefix, month)
}

// BuildRows lays the report out as three blocks: expenses, recurring
// occurrences and budget alerts. Amounts stay numeric so the sheet can sum them.
func BuildRows(r MonthlyReport) [][]any {
	catNames := make(map[string]string, len(r.Categories))
	for _, c := range r.Categories {
		catNames[c.ID] = c.Name
	}
	defNames := make(map[string]string, len(r.Definitions))
	for _, d := range r.Definitions {
		defNames[d.ID] = d.Name
	}

	expenses := append([]core.Expense(nil), r.Expenses...)
	sort.SliceStable(expenses, func(i, j int) bool { return expenses[i].Date < expenses[j].Date })

	rows := [][]any{
		{"Mes", r.Month},
		{"Total gastos", int64(core.SumAmounts(expenses))},
		{},
		{"Gastos"},
		{"Fecha", "Categoría", "Monto", "Nota"},
	}
	for _, e := range expenses {
		rows = append(rows, []any{e.Date, catNames[e.CategoryID], int64(e.Amount), e.Note})
	}

	occ := append([]core.RecurringOccurrence(nil), r.Occurrences...)
	core.SortByDueDate(occ)
	rows = append(rows, []any{}, []any{"Recurrentes"}, []any{"Vencimiento", "Nombre", "Monto", "Estado"})
	for _, o := range occ {
		name := defNames[o.DefinitionID]
		if name == "" {
			name = core.DefaultRecurringName
		}
		rows = append(rows, []any{o.DueDate, name, int64(o.Amount), string(o.State)})
	}

	rows = append(rows, []any{}, []any{"Alertas de presupuesto"}, []any{"Categoría", "Gastado", "Límite", "Estado"})
	for _, list := range [][]core.BudgetAlertState{r.Alerts.Over, r.Alerts.Near} {
		for _, a := range list {
			rows = append(rows, []any{a.CategoryName, int64(a.Spent), int64(a.Limit), string(a.Status)})
		}
	}
	return rows
}

// ExportStore is what the exporter reads.
type ExportStore interface {
	ports.ExpenseStore
	ports.CategoryStore
	ports.OccurrenceStore
	ports.RecurringReader
}

// Exporter gathers a month of data and hands it to a ReportWriter.
type Exporter struct {
	store  ExportStore
	budget *services.BudgetService
	writer ReportWriter
	prefix string
}

// ExportResult reports what was written.
type ExportResult struct {
	SheetName string
	Rows      int
}

func NewExporter(store ExportStore, budget *services.BudgetService, writer ReportWriter, prefix string) *Exporter {
	return &Exporter{store: store, budget: budget, writer: writer, prefix: prefix}
}

// Export writes ref's month for userID.
func (x *Exporter) Export(ctx context.Context, userID string, ref time.Time) (ExportResult, error) {
	month := core.CurrentMonthRange(ref)
	report := MonthlyReport{Month: core.MonthKey(ref)}

	var err error
	if report.Expenses, err = x.store.FetchExpensesInRange(ctx, userID, month, ""); err != nil {
		return ExportResult{}, fmt.Errorf("fetch expenses: %w", err)
	}
	if report.Categories, err = x.store.FetchCategories(ctx, userID); err != nil {
		return ExportResult{}, fmt.Errorf("fetch categories: %w", err)
	}
	if report.Occurrences, err = x.store.FetchOccurrences(ctx, userID, month, nil); err != nil {
		return ExportResult{}, fmt.Errorf("fetch occurrences: %w", err)
	}
	if report.Definitions, err = x.store.ListRecurringDefinitions(ctx, userID); err != nil {
		return ExportResult{}, fmt.Errorf("fetch definitions: %w", err)
	}
	if x.budget != nil {
		report.Alerts = x.budget.Evaluate(ctx, userID, ref)
	}

	name := SheetName(x.prefix, report.Month)
	rows := BuildRows(report)
	if err := x.writer.WriteReport(ctx, name, rows); err != nil {
		return ExportResult{}, fmt.Errorf("write sheet %q: %w", name, err)
	}

	slog.InfoContext(ctx, "Exported month",
		applog.FieldComponent, applog.ComponentSheets,
		applog.FieldOperation, applog.OpExport,
		applog.FieldUserID, userID,
		applog.FieldMonth, report.Month,
		"sheet", name,
		"rows", len(rows))
	return ExportResult{SheetName: name, Rows: len(rows)}, nil
}
