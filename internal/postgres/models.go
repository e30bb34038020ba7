package postgres

import (
	"time"

	"github.com/IvaDonGon/TusGastos/internal/core"
)

type recurringDefinitionRow struct {
	ID         string `gorm:"primaryKey;type:text"`
	UserID     string `gorm:"type:text;not null;index:idx_recurring_definitions_user"`
	Name       string `gorm:"type:text;not null"`
	Amount     int64  `gorm:"not null"`
	DayOfMonth int    `gorm:"not null"`
	Active     bool   `gorm:"not null"`
	CreatedAt  time.Time
}

func (recurringDefinitionRow) TableName() string { return "recurring_definitions" }

func (r recurringDefinitionRow) toCore() core.RecurringDefinition {
	return core.RecurringDefinition{
		ID: r.ID, UserID: r.UserID, Name: r.Name, Amount: core.Amount(r.Amount),
		DayOfMonth: r.DayOfMonth, Active: r.Active, CreatedAt: r.CreatedAt,
	}
}

func definitionRow(d core.RecurringDefinition) recurringDefinitionRow {
	return recurringDefinitionRow{
		ID: d.ID, UserID: d.UserID, Name: d.Name, Amount: int64(d.Amount),
		DayOfMonth: d.DayOfMonth, Active: d.Active, CreatedAt: d.CreatedAt,
	}
}

type recurringOccurrenceRow struct {
	ID           string `gorm:"primaryKey;type:text"`
	UserID       string `gorm:"type:text;not null;index:idx_recurring_occurrences_user_due,priority:1"`
	DefinitionID string `gorm:"type:text;not null;uniqueIndex:idx_recurring_occurrences_month,priority:1"`
	DueDate      string `gorm:"type:text;not null;index:idx_recurring_occurrences_user_due,priority:2"`
	MonthKey     string `gorm:"type:text;not null;uniqueIndex:idx_recurring_occurrences_month,priority:2"`
	Amount       int64  `gorm:"not null"`
	State        string `gorm:"type:text;not null;default:pending"`
	ConfirmedAt  *time.Time
	CreatedAt    time.Time
}

func (recurringOccurrenceRow) TableName() string { return "recurring_occurrences" }

func (r recurringOccurrenceRow) toCore() core.RecurringOccurrence {
	return core.RecurringOccurrence{
		ID: r.ID, UserID: r.UserID, DefinitionID: r.DefinitionID, DueDate: r.DueDate,
		Amount: core.Amount(r.Amount), State: core.OccurrenceState(r.State),
		ConfirmedAt: r.ConfirmedAt, CreatedAt: r.CreatedAt,
	}
}

type categoryRow struct {
	ID       string `gorm:"primaryKey;type:text"`
	UserID   string `gorm:"type:text;not null;index"`
	Name     string `gorm:"type:text;not null"`
	IconName string `gorm:"type:text;not null;default:''"`
	Active   bool   `gorm:"not null"`
}

func (categoryRow) TableName() string { return "categories" }

type categoryLimitRow struct {
	UserID       string `gorm:"primaryKey;type:text"`
	CategoryID   string `gorm:"primaryKey;type:text"`
	MonthlyLimit int64  `gorm:"not null"`
}

func (categoryLimitRow) TableName() string { return "category_limits" }

type expenseRow struct {
	ID         string `gorm:"primaryKey;type:text"`
	UserID     string `gorm:"type:text;not null;index:idx_expenses_user_date,priority:1"`
	CategoryID string `gorm:"type:text;not null;default:''"`
	Date       string `gorm:"type:text;not null;index:idx_expenses_user_date,priority:2"`
	Amount     int64  `gorm:"not null"`
	Note       string `gorm:"type:text;not null;default:''"`
	CreatedAt  time.Time
}

func (expenseRow) TableName() string { return "expenses" }

func (r expenseRow) toCore() core.Expense {
	return core.Expense{
		ID: r.ID, UserID: r.UserID, CategoryID: r.CategoryID, Date: r.Date,
		Amount: core.Amount(r.Amount), Note: r.Note, CreatedAt: r.CreatedAt,
	}
}

type userSettingsRow struct {
	UserID          string `gorm:"primaryKey;type:text"`
	LimitsEnabled   bool   `gorm:"not null"`
	NotifyAtPercent int    `gorm:"not null"`
}

func (userSettingsRow) TableName() string { return "user_settings" }

func allModels() []any {
	return []any{
		&recurringDefinitionRow{},
		&recurringOccurrenceRow{},
		&categoryRow{},
		&categoryLimitRow{},
		&expenseRow{},
		&userSettingsRow{},
	}
}
