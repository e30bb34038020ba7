package core

const (
	BudgetOK   BudgetStatus = "ok"
	BudgetNear BudgetStatus = "near"
	BudgetOver BudgetStatus = "over"
)

type (
	BudgetStatus string

	// BudgetAlertState is a category's month spending measured against its limit.
	BudgetAlertState struct {
		CategoryID   string       `json:"category_id"`
		CategoryName string       `json:"category_name"`
		IconName     string       `json:"icon_name,omitempty"`
		Spent        Amount       `json:"spent"`
		Limit        Amount       `json:"limit"`
		Status       BudgetStatus `json:"status"`
	}

	// BudgetAlerts holds the categories that need attention, over first.
	BudgetAlerts struct {
		Over []BudgetAlertState `json:"over"`
		Near []BudgetAlertState `json:"near"`
	}
)

// PercentUsed is the share of the limit already spent, rounded down.
func (s BudgetAlertState) PercentUsed() int64 {
	if s.Limit <= 0 {
		return 0
	}
	return int64(s.Spent) * 100 / int64(s.Limit)
}

// Remaining is what is left before the limit; negative once over.
func (s BudgetAlertState) Remaining() Amount {
	return s.Limit - s.Spent
}

// Empty reports whether no category is near or over.
func (a BudgetAlerts) Empty() bool {
	return len(a.Over) == 0 && len(a.Near) == 0
}

// Count is the total number of alerting categories.
func (a BudgetAlerts) Count() int {
	return len(a.Over) + len(a.Near)
}

// SpentByCategory sums expenses per category. Expenses without a category are skipped.
func SpentByCategory(expenses []Expense) map[string]Amount {
	spent := make(map[string]Amount)
	for _, e := range expenses {
		if e.CategoryID == "" {
			continue
		}
		spent[e.CategoryID] += e.Amount
	}
	return spent
}

// NormalizePercent falls back to the default threshold for values outside 1..100.
func NormalizePercent(p int) int {
	if p < 1 || p > 100 {
		return DefaultNotifyAtPercent
	}
	return p
}

// Classify compares spending to a limit. Both boundaries are inclusive, so
// spending exactly the limit is over. Integer math keeps the near threshold
// exact: spent*100 >= limit*percent.
func Classify(spent, limit Amount, notifyAtPercent int) BudgetStatus {
	if limit <= 0 {
		return BudgetOK
	}
	if spent >= limit {
		return BudgetOver
	}
	if int64(spent)*100 >= int64(limit)*int64(NormalizePercent(notifyAtPercent)) {
		return BudgetNear
	}
	return BudgetOK
}

// EvaluateBudget classifies every category that has a positive limit. Categories
// keep their input order inside each list. The function never fails: empty
// inputs simply produce no alerts.
func EvaluateBudget(categories []CategoryDefinition, limits []CategoryLimit, expenses []Expense, notifyAtPercent int) BudgetAlerts {
	limitByCategory := make(map[string]Amount, len(limits))
	for _, l := range limits {
		limitByCategory[l.CategoryID] = l.MonthlyLimit
	}
	spent := SpentByCategory(expenses)

	alerts := BudgetAlerts{Over: []BudgetAlertState{}, Near: []BudgetAlertState{}}
	for _, c := range categories {
		limit, ok := limitByCategory[c.ID]
		if !ok || limit <= 0 {
			continue
		}
		state := BudgetAlertState{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			IconName:     c.IconName,
			Spent:        spent[c.ID],
			Limit:        limit,
		}
		state.Status = Classify(state.Spent, limit, notifyAtPercent)
		switch state.Status {
		case BudgetOver:
			alerts.Over = append(alerts.Over, state)
		case BudgetNear:
			alerts.Near = append(alerts.Near, state)
		}
	}
	return alerts
}
