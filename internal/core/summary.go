package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Weekday labels, Monday first, as shown on the weekly chart.
var weekdayLabels = [7]string{"Lun", "Mar", "Mié", "Jue", "Vie", "Sáb", "Dom"}

const recentExpensesLimit = 5

type (
	// DayTotal is one bar of the weekly chart.
	DayTotal struct {
		Date  string `json:"date"`
		Label string `json:"label"`
		Total Amount `json:"total"`
	}

	// MonthDelta compares the current month to the previous one.
	MonthDelta struct {
		Amount  Amount          `json:"amount"`
		Percent decimal.Decimal `json:"percent"`
		Up      bool            `json:"up"`
	}

	// CategoryAmount is spending aggregated per category.
	CategoryAmount struct {
		CategoryID string `json:"category_id"`
		Name       string `json:"name"`
		Amount     Amount `json:"amount"`
	}

	DashboardSummary struct {
		Date          string           `json:"date"`
		Month         DateRange        `json:"month"`
		MonthlyTotal  Amount           `json:"monthly_total"`
		PreviousTotal Amount           `json:"previous_total"`
		Delta         MonthDelta       `json:"delta"`
		TodayTotal    Amount           `json:"today_total"`
		Weekly        []DayTotal       `json:"weekly"`
		ByCategory    []CategoryAmount `json:"by_category"`
		PendingCount  int              `json:"pending_count"`
		Recent        []Expense        `json:"recent"`
	}

	// DashboardInput is everything BuildDashboard needs, already fetched.
	DashboardInput struct {
		Ref           time.Time
		Month         []Expense
		PreviousMonth []Expense
		Week          []Expense
		Categories    []CategoryDefinition
		PendingCount  int
	}
)

// WeekdayLabel returns the Monday-first short label for t's weekday.
func WeekdayLabel(t time.Time) string {
	idx := int(t.Weekday()) - 1
	if idx < 0 {
		idx = 6
	}
	return weekdayLabels[idx]
}

// ComputeDelta mirrors how the dashboard reports change: no previous spending
// with current spending reads as +100%, both empty reads as 0%, otherwise the
// absolute relative change rounded to one decimal.
func ComputeDelta(curr, prev Amount) MonthDelta {
	d := MonthDelta{Amount: curr - prev, Percent: decimal.Zero}
	switch {
	case prev <= 0 && curr <= 0:
		return d
	case prev <= 0:
		d.Percent = decimal.NewFromInt(100)
		d.Up = true
		return d
	}
	change := decimal.NewFromInt(int64(curr - prev))
	pct := change.Div(decimal.NewFromInt(int64(prev))).Mul(decimal.NewFromInt(100))
	d.Up = pct.IsPositive()
	d.Percent = pct.Abs().Round(1)
	return d
}

// WeeklySeries buckets expenses into the seven days ending at end. Days without
// spending appear with a zero total.
func WeeklySeries(expenses []Expense, end time.Time) []DayTotal {
	totals := make(map[string]Amount)
	for _, e := range expenses {
		totals[e.Date] += e.Amount
	}
	y, m, d := end.Date()
	series := make([]DayTotal, 0, 7)
	for i := 6; i >= 0; i-- {
		day := time.Date(y, m, d-i, 0, 0, 0, 0, end.Location())
		key := LocalDateKey(day)
		series = append(series, DayTotal{Date: key, Label: WeekdayLabel(day), Total: totals[key]})
	}
	return series
}

// TotalsByCategory aggregates spending per category, largest first. Expenses
// without a known category are grouped under an empty ID.
func TotalsByCategory(expenses []Expense, categories []CategoryDefinition) []CategoryAmount {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	sums := make(map[string]Amount)
	for _, e := range expenses {
		sums[e.CategoryID] += e.Amount
	}
	out := make([]CategoryAmount, 0, len(sums))
	for id, amount := range sums {
		out = append(out, CategoryAmount{CategoryID: id, Name: names[id], Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// SortExpensesNewestFirst orders by date, then creation time, newest first.
func SortExpensesNewestFirst(expenses []Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		if expenses[i].Date != expenses[j].Date {
			return expenses[i].Date > expenses[j].Date
		}
		return expenses[i].CreatedAt.After(expenses[j].CreatedAt)
	})
}

// BuildDashboard assembles the home screen summary from pre-fetched data.
func BuildDashboard(in DashboardInput) DashboardSummary {
	today := LocalDateKey(in.Ref)
	month := CurrentMonthRange(in.Ref)

	var todayTotal Amount
	for _, e := range in.Month {
		if e.Date == today {
			todayTotal += e.Amount
		}
	}

	recent := append([]Expense(nil), in.Month...)
	SortExpensesNewestFirst(recent)
	if len(recent) > recentExpensesLimit {
		recent = recent[:recentExpensesLimit]
	}

	curr := SumAmounts(in.Month)
	prev := SumAmounts(in.PreviousMonth)
	return DashboardSummary{
		Date:          today,
		Month:         month,
		MonthlyTotal:  curr,
		PreviousTotal: prev,
		Delta:         ComputeDelta(curr, prev),
		TodayTotal:    todayTotal,
		Weekly:        WeeklySeries(in.Week, in.Ref),
		ByCategory:    TotalsByCategory(in.Month, in.Categories),
		PendingCount:  in.PendingCount,
		Recent:        recent,
	}
}
