package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IvaDonGon/TusGastos/internal/core"
	applog "github.com/IvaDonGon/TusGastos/internal/log"
	"github.com/IvaDonGon/TusGastos/internal/ports"
)

// ExpenseService records expenses and re-checks the month's budget after each one.
type ExpenseService struct {
	store      ports.ExpenseStore
	categories *CategoryService
	budget     *BudgetService
	loc        *time.Location
}

func NewExpenseService(store ports.ExpenseStore, categories *CategoryService, budget *BudgetService, loc *time.Location) *ExpenseService {
	if loc == nil {
		loc = time.Local
	}
	return &ExpenseService{
		store:      store,
		categories: categories,
		budget:     budget,
		loc:        loc,
	}
}

// CreateExpense validates and saves an expense. Budget alerts for the
// expense's month are published afterwards; failures there are only logged.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Note = strings.TrimSpace(e.Note)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.requireActiveCategory(ctx, e.UserID, e.CategoryID); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.notifyBudget(ctx, saved)
	return saved, nil
}

// UpdateExpense replaces an expense's category, date, amount and note.
// Moving it to another category requires that category to be active;
// keeping the current one is allowed even after it was deactivated.
func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Note = strings.TrimSpace(e.Note)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	current, err := s.store.GetExpense(ctx, e.UserID, e.ID)
	if err != nil {
		return core.Expense{}, err
	}
	if e.CategoryID != current.CategoryID {
		if err := s.requireActiveCategory(ctx, e.UserID, e.CategoryID); err != nil {
			return core.Expense{}, err
		}
	}
	e.CreatedAt = current.CreatedAt

	saved, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.notifyBudget(ctx, saved)
	return saved, nil
}

// DeleteExpense removes one expense.
func (s *ExpenseService) DeleteExpense(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func (s *ExpenseService) requireActiveCategory(ctx context.Context, userID, categoryID string) error {
	if categoryID == "" || s.categories == nil {
		return nil
	}
	c, err := s.categories.Get(ctx, userID, categoryID)
	if err != nil {
		return err
	}
	if !c.Active {
		return core.NewValidationError("category_id", core.ErrCategoryInactive, "category is inactive")
	}
	return nil
}

func (s *ExpenseService) notifyBudget(ctx context.Context, saved core.Expense) {
	if s.budget == nil || saved.CategoryID == "" {
		return
	}
	ref, err := core.ParseDateKey(saved.Date, s.loc)
	if err != nil {
		return
	}
	if _, err := s.budget.NotifyAlerts(ctx, saved.UserID, ref); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget alert after expense",
			applog.FieldComponent, applog.ComponentExpense,
			applog.FieldUserID, saved.UserID,
			applog.FieldCategoryID, saved.CategoryID,
			applog.FieldError, err)
	}
}

// ListExpenses returns expenses inside rng, newest first. categoryID may be empty.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID string, rng core.DateRange, categoryID string) ([]core.Expense, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	expenses, err := s.store.FetchExpensesInRange(ctx, userID, rng, categoryID)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	core.SortExpensesNewestFirst(expenses)
	return expenses, nil
}
