package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IvaDonGon/TusGastos/internal/core"
	applog "github.com/IvaDonGon/TusGastos/internal/log"
	"github.com/IvaDonGon/TusGastos/internal/ports"
	"github.com/IvaDonGon/TusGastos/internal/services"
)

// Scheduler makes sure every user has this month's occurrences and gets
// budget alerts, once on start and then every interval.
type Scheduler struct {
	users       ports.UserLister
	occurrences *services.OccurrenceManager
	budget      *services.BudgetService
	interval    time.Duration
	concurrency int
	loc         *time.Location
	now         func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// RunSummary counts the work done by one pass.
type RunSummary struct {
	Users       int
	Created     int
	Alerts      int
	FailedUsers int
}

func NewScheduler(users ports.UserLister, occurrences *services.OccurrenceManager, budget *services.BudgetService, interval time.Duration, concurrency int, loc *time.Location) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		users:       users,
		occurrences: occurrences,
		budget:      budget,
		interval:    interval,
		concurrency: concurrency,
		loc:         loc,
		now:         time.Now,
	}
}

// WithClock replaces the clock used to pick the month.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// RunOnce processes every known user for the current month. One user's
// failure does not stop the others; all failures are joined in the error.
func (s *Scheduler) RunOnce(ctx context.Context) (RunSummary, error) {
	ref := s.now().In(s.loc)
	userIDs, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("list users: %w", err)
	}

	var (
		mu      sync.Mutex
		summary = RunSummary{Users: len(userIDs)}
		errs    []error
	)
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, userID := range userIDs {
		g.Go(func() error {
			created, alerts, err := s.processUser(ctx, userID, ref)
			mu.Lock()
			defer mu.Unlock()
			summary.Created += created
			summary.Alerts += alerts
			if err != nil {
				summary.FailedUsers++
				errs = append(errs, fmt.Errorf("user %s: %w", userID, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.InfoContext(ctx, "Scheduler pass complete",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldMonth, core.MonthKey(ref),
		"users", summary.Users,
		applog.FieldCreated, summary.Created,
		"alerts", summary.Alerts,
		"failed_users", summary.FailedUsers)

	return summary, errors.Join(errs...)
}

func (s *Scheduler) processUser(ctx context.Context, userID string, ref time.Time) (int, int, error) {
	res, ensureErr := s.occurrences.EnsureForUser(ctx, userID, ref)

	alerts := 0
	var alertErr error
	if s.budget != nil {
		a, err := s.budget.NotifyAlerts(ctx, userID, ref)
		alerts = a.Count()
		if err != nil {
			alertErr = err
		}
	}
	return len(res.Created), alerts, errors.Join(ensureErr, alertErr)
}

// Start runs a pass immediately and then every interval until Stop or ctx
// cancellation. It returns an error if the scheduler is already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", s.interval)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(runCtx, s.done)
	slog.InfoContext(ctx, "Scheduler started",
		applog.FieldComponent, applog.ComponentWorker, "interval", s.interval)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.runLogged(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *Scheduler) runLogged(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Scheduler pass failed",
			applog.FieldComponent, applog.ComponentWorker, applog.FieldError, err)
	}
}

// Stop cancels the loop and waits for the current pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
