package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IvaDonGon/TusGastos/internal/core"
	applog "github.com/IvaDonGon/TusGastos/internal/log"
	"github.com/IvaDonGon/TusGastos/internal/ports"
)

// BudgetStore is what the budget evaluator reads and writes.
type BudgetStore interface {
	ports.CategoryStore
	ports.ExpenseStore
	ports.SettingsStore
}

// BudgetService evaluates category limits and manages them.
type BudgetService struct {
	store    BudgetStore
	notifier Notifier
}

// LimitView is a category with its optional monthly limit.
type LimitView struct {
	Category core.CategoryDefinition `json:"category"`
	Limit    *core.Amount            `json:"limit,omitempty"`
}

func NewBudgetService(store BudgetStore, notifier Notifier) *BudgetService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &BudgetService{store: store, notifier: notifier}
}

// Evaluate classifies every limited category for ref's month. Fetch failures
// are logged and treated as empty data, so the result degrades to fewer or no
// alerts instead of failing.
func (s *BudgetService) Evaluate(ctx context.Context, userID string, ref time.Time) core.BudgetAlerts {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		s.warn(ctx, "settings", userID, err)
		settings = core.DefaultSettings(userID)
	}
	if !settings.LimitsEnabled {
		return core.BudgetAlerts{Over: []core.BudgetAlertState{}, Near: []core.BudgetAlertState{}}
	}

	categories, err := s.store.FetchCategories(ctx, userID)
	if err != nil {
		s.warn(ctx, "categories", userID, err)
		categories = nil
	}
	limits, err := s.store.FetchCategoryLimits(ctx, userID)
	if err != nil {
		s.warn(ctx, "limits", userID, err)
		limits = nil
	}
	expenses, err := s.store.FetchExpensesInRange(ctx, userID, core.CurrentMonthRange(ref), "")
	if err != nil {
		s.warn(ctx, "expenses", userID, err)
		expenses = nil
	}

	alerts := core.EvaluateBudget(categories, limits, expenses, settings.NotifyAtPercent)
	for i := range alerts.Over {
		alerts.Over[i].IconName = resolveIcon(alerts.Over[i].CategoryName, alerts.Over[i].IconName)
	}
	for i := range alerts.Near {
		alerts.Near[i].IconName = resolveIcon(alerts.Near[i].CategoryName, alerts.Near[i].IconName)
	}
	return alerts
}

func (s *BudgetService) warn(ctx context.Context, what, userID string, err error) {
	slog.WarnContext(ctx, "Budget evaluation fetch failed, continuing with empty data",
		applog.FieldComponent, applog.ComponentBudget,
		applog.FieldUserID, userID,
		"source", what,
		applog.FieldError, err)
}

// NotifyAlerts evaluates ref's month and publishes an event when any category
// is near or over its limit.
func (s *BudgetService) NotifyAlerts(ctx context.Context, userID string, ref time.Time) (core.BudgetAlerts, error) {
	alerts := s.Evaluate(ctx, userID, ref)
	if alerts.Empty() {
		return alerts, nil
	}
	slog.InfoContext(ctx, "Budget alerts detected",
		applog.NewFields().
			WithComponent(applog.ComponentBudget).
			WithOperation(applog.OpEvaluate).
			WithUser(userID).
			WithMonth(core.MonthKey(ref)).
			WithAlertCounts(len(alerts.Over), len(alerts.Near)).
			ToSlice()...)
	if err := s.notifier.PublishBudgetAlert(ctx, userID, core.MonthKey(ref), alerts); err != nil {
		return alerts, fmt.Errorf("publish budget alert: %w", err)
	}
	return alerts, nil
}

// SetLimit upserts the category's monthly limit, or removes it when limit is nil.
func (s *BudgetService) SetLimit(ctx context.Context, userID, categoryID string, limit *int64) error {
	if limit != nil && *limit <= 0 {
		return core.NewValidationError("monthly_limit", core.ErrInvalidAmount, "limit must be greater than zero")
	}
	if err := s.requireCategory(ctx, userID, categoryID); err != nil {
		return err
	}
	if limit == nil {
		return s.store.DeleteCategoryLimit(ctx, userID, categoryID)
	}
	return s.store.UpsertCategoryLimit(ctx, userID, categoryID, core.Amount(*limit))
}

func (s *BudgetService) requireCategory(ctx context.Context, userID, categoryID string) error {
	categories, err := s.store.FetchCategories(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetch categories: %w", err)
	}
	for _, c := range categories {
		if c.ID == categoryID {
			return nil
		}
	}
	return &core.NotFoundError{Kind: "category", ID: categoryID}
}

// ListLimits returns every category of the user with its limit, if any.
func (s *BudgetService) ListLimits(ctx context.Context, userID string) ([]LimitView, error) {
	categories, err := s.store.FetchCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	limits, err := s.store.FetchCategoryLimits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch limits: %w", err)
	}
	byCategory := make(map[string]core.Amount, len(limits))
	for _, l := range limits {
		byCategory[l.CategoryID] = l.MonthlyLimit
	}

	views := make([]LimitView, 0, len(categories))
	for _, c := range categories {
		c.IconName = resolveIcon(c.Name, c.IconName)
		v := LimitView{Category: c}
		if l, ok := byCategory[c.ID]; ok {
			v.Limit = &l
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *BudgetService) Settings(ctx context.Context, userID string) (core.UserSettings, error) {
	return s.store.GetSettings(ctx, userID)
}

func (s *BudgetService) UpdateSettings(ctx context.Context, settings core.UserSettings) (core.UserSettings, error) {
	if err := settings.Validate(); err != nil {
		return core.UserSettings{}, err
	}
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return core.UserSettings{}, err
	}
	return settings, nil
}
