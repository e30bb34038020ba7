package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IvaDonGon/TusGastos/internal/core"
	"github.com/IvaDonGon/TusGastos/internal/ports"
)

// DashboardStore is what the home summary reads.
type DashboardStore interface {
	ports.ExpenseStore
	ports.OccurrenceStore
}

// DashboardService builds the home screen summary.
type DashboardService struct {
	store      DashboardStore
	categories *CategoryService
}

func NewDashboardService(store DashboardStore, categories *CategoryService) *DashboardService {
	return &DashboardService{store: store, categories: categories}
}

// Summary loads the current month, the previous month, the last seven days
// and pending occurrences in parallel, then aggregates them.
func (s *DashboardService) Summary(ctx context.Context, userID string, ref time.Time) (core.DashboardSummary, error) {
	var in core.DashboardInput
	in.Ref = ref

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Month, err = s.store.FetchExpensesInRange(gctx, userID, core.CurrentMonthRange(ref), "")
		if err != nil {
			return fmt.Errorf("fetch month expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		in.PreviousMonth, err = s.store.FetchExpensesInRange(gctx, userID, core.PreviousMonthRange(ref), "")
		if err != nil {
			return fmt.Errorf("fetch previous month expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		in.Week, err = s.store.FetchExpensesInRange(gctx, userID, core.Rolling7DayRange(ref), "")
		if err != nil {
			return fmt.Errorf("fetch weekly expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		state := core.StatePending
		month := core.CurrentMonthRange(ref)
		occ, err := s.store.FetchOccurrences(gctx, userID, month, &state)
		if err != nil {
			return fmt.Errorf("fetch pending occurrences: %w", err)
		}
		in.PendingCount = len(core.FilterPending(occ, month))
		return nil
	})
	g.Go(func() error {
		var err error
		in.Categories, err = s.categories.List(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.DashboardSummary{}, err
	}

	return core.BuildDashboard(in), nil
}
