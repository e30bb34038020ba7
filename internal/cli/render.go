package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/IvaDonGon/TusGastos/internal/amqp"
	"github.com/IvaDonGon/TusGastos/internal/core"
	"github.com/IvaDonGon/TusGastos/internal/services"
)

var (
	colorBorder = lipgloss.Color("240")
	colorAccent = lipgloss.Color("#3AA99F")
	colorOrange = lipgloss.Color("#DA702C")
	colorRed    = lipgloss.Color("#D14D41")
	colorMuted  = lipgloss.Color("#6F6E69")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	overStyle   = cellStyle.Foreground(colorRed)
	nearStyle   = cellStyle.Foreground(colorOrange)
)

// RenderTitle renders a section heading.
func RenderTitle(title string) string {
	return titleStyle.Render(title)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// RenderAlerts renders over-limit categories first, then near-limit ones.
func RenderAlerts(month string, alerts core.BudgetAlerts) string {
	if alerts.Empty() {
		return RenderTitle("Alertas "+month) + "\n" + mutedStyle.Render("Sin alertas de presupuesto")
	}

	rows := make([][]string, 0, alerts.Count())
	for _, a := range alerts.Over {
		rows = append(rows, alertRow(a))
	}
	for _, a := range alerts.Near {
		rows = append(rows, alertRow(a))
	}
	over := len(alerts.Over)

	t := newTable("Estado", "Categoría", "Gastado", "Límite", "%").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row < over:
				return overStyle
			default:
				return nearStyle
			}
		})
	return RenderTitle("Alertas "+month) + "\n" + t.Render()
}

func alertRow(a core.BudgetAlertState) []string {
	label := "cerca"
	if a.Status == core.BudgetOver {
		label = "excedido"
	}
	return []string{label, a.CategoryName, a.Spent.String(), a.Limit.String(), strconv.FormatInt(a.PercentUsed(), 10) + "%"}
}

// RenderPending lists pending occurrences with their definition names.
func RenderPending(month string, items []services.PendingItem) string {
	if len(items) == 0 {
		return RenderTitle("Pendientes "+month) + "\n" + mutedStyle.Render("No hay pagos pendientes")
	}
	var total core.Amount
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		total += it.Amount
		rows = append(rows, []string{it.ID, it.Name, it.DueDate, it.Amount.String()})
	}
	t := newTable("ID", "Nombre", "Vence", "Monto").Rows(rows...)
	return RenderTitle("Pendientes "+month) + "\n" + t.Render() + "\n" +
		mutedStyle.Render(fmt.Sprintf("%d pendientes, total %s", len(items), total))
}

// RenderEnsure summarizes one ensure run.
func RenderEnsure(res services.EnsureResult) string {
	var b strings.Builder
	b.WriteString(RenderTitle("Recurrentes " + res.Month))
	fmt.Fprintf(&b, "\ncreadas: %d  existentes: %d  fallidas: %d\n", len(res.Created), res.Existing, len(res.Failed))
	if len(res.Created) > 0 {
		rows := make([][]string, 0, len(res.Created))
		for _, o := range res.Created {
			rows = append(rows, []string{o.ID, o.DefinitionID, o.DueDate, o.Amount.String()})
		}
		b.WriteString(newTable("ID", "Definición", "Vence", "Monto").Rows(rows...).Render())
		b.WriteString("\n")
	}
	for _, f := range res.Failed {
		fmt.Fprintf(&b, "%s %s: %v\n", overStyle.Render("error"), f.DefinitionID, f.Err)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderBulk summarizes a confirm-all run.
func RenderBulk(res services.BulkResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "confirmadas: %d", res.Count())
	for _, f := range res.Failed {
		fmt.Fprintf(&b, "\n%s %s: %v", overStyle.Render("error"), f.ID, f.Err)
	}
	return b.String()
}

// RenderLimits lists every category with its limit, if any.
func RenderLimits(views []services.LimitView) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		limit := "-"
		if v.Limit != nil {
			limit = v.Limit.String()
		}
		rows = append(rows, []string{v.Category.ID, v.Category.Name, limit})
	}
	return newTable("ID", "Categoría", "Límite").Rows(rows...).Render()
}

// RenderDashboard renders the month summary.
func RenderDashboard(sum core.DashboardSummary) string {
	var b strings.Builder
	b.WriteString(RenderTitle("Resumen " + sum.Date))
	arrow := "▼"
	if sum.Delta.Up {
		arrow = "▲"
	}
	fmt.Fprintf(&b, "\nmes: %s  anterior: %s  %s %s%%\n", sum.MonthlyTotal, sum.PreviousTotal, arrow, sum.Delta.Percent.String())
	fmt.Fprintf(&b, "hoy: %s  pendientes: %d\n", sum.TodayTotal, sum.PendingCount)

	week := make([][]string, 0, len(sum.Weekly))
	for _, d := range sum.Weekly {
		week = append(week, []string{d.Label, d.Date, d.Total.String()})
	}
	b.WriteString(newTable("Día", "Fecha", "Total").Rows(week...).Render())

	if len(sum.ByCategory) > 0 {
		cats := make([][]string, 0, len(sum.ByCategory))
		for _, c := range sum.ByCategory {
			name := c.Name
			if name == "" {
				name = mutedStyle.Render("sin categoría")
			}
			cats = append(cats, []string{name, c.Amount.String()})
		}
		b.WriteString("\n")
		b.WriteString(newTable("Categoría", "Total").Rows(cats...).Render())
	}
	return b.String()
}

// RenderEvent prints one consumed AMQP event on a single line.
func RenderEvent(ev amqp.Event) string {
	switch {
	case ev.BudgetAlert != nil:
		m := ev.BudgetAlert
		return fmt.Sprintf("%s %s %s over=%d near=%d", overStyle.Render(ev.RoutingKey), m.UserID, m.Month, len(m.Over), len(m.Near))
	case ev.OccurrencesCreated != nil:
		m := ev.OccurrencesCreated
		return fmt.Sprintf("%s %s %s created=%d", titleStyle.Render(ev.RoutingKey), m.UserID, m.Month, len(m.Occurrences))
	}
	return mutedStyle.Render(ev.RoutingKey)
}
