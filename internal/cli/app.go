package cli

import (
	"context"
	"time"

	"github.com/IvaDonGon/TusGastos/internal/cache"
	"github.com/IvaDonGon/TusGastos/internal/config"
	apphttp "github.com/IvaDonGon/TusGastos/internal/http"
	applog "github.com/IvaDonGon/TusGastos/internal/log"
	"github.com/IvaDonGon/TusGastos/internal/ports"
	"github.com/IvaDonGon/TusGastos/internal/services"
	"github.com/IvaDonGon/TusGastos/internal/worker"
)

const cacheCleanupInterval = 10 * time.Minute

// App is the service graph every command builds on top of one store.
type App struct {
	Config   *config.Config
	Store    ports.Store
	Notifier services.Notifier
	Caches   *cache.Manager

	Occurrences *services.OccurrenceManager
	Definitions *services.DefinitionService
	Categories  *services.CategoryService
	Budget      *services.BudgetService
	Expenses    *services.ExpenseService
	Dashboard   *services.DashboardService
}

// NewApp wires the services. A nil notifier drops events.
func NewApp(cfg *config.Config, store ports.Store, notifier services.Notifier, logger *applog.Logger) *App {
	if notifier == nil {
		notifier = services.NopNotifier{}
	}
	loc := cfg.Location()

	categories := services.NewCategoryService(store, cfg.CacheTTL)
	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	caches.Register(categories.Cache())

	budget := services.NewBudgetService(store, notifier)
	return &App{
		Config:      cfg,
		Store:       store,
		Notifier:    notifier,
		Caches:      caches,
		Occurrences: services.NewOccurrenceManager(store, store, notifier).WithConcurrency(cfg.EnsureConcurrency),
		Definitions: services.NewDefinitionService(store),
		Categories:  categories,
		Budget:      budget,
		Expenses:    services.NewExpenseService(store, categories, budget, loc),
		Dashboard:   services.NewDashboardService(store, categories),
	}
}

// HTTPServer builds the API server on addr. Cache cleanup starts here and
// stops with the server.
func (a *App) HTTPServer(addr string, logger *applog.Logger) *apphttp.Server {
	a.Caches.StartCleanup(cacheCleanupInterval)

	var ready func(context.Context) error
	if p, ok := a.Store.(interface{ Ping(context.Context) error }); ok {
		ready = p.Ping
	}

	return apphttp.NewServer(addr, apphttp.Services{
		Occurrences: a.Occurrences,
		Definitions: a.Definitions,
		Categories:  a.Categories,
		Budget:      a.Budget,
		Expenses:    a.Expenses,
		Dashboard:   a.Dashboard,
	}, apphttp.Options{
		Auth: apphttp.AuthConfig{
			Secret:     []byte(a.Config.JWTSecret),
			Skip:       a.Config.AuthSkip,
			MockUserID: a.Config.AuthMockUserID,
		},
		RateLimitPerMinute: a.Config.RateLimitPerMinute,
		Location:           a.Config.Location(),
		Logger:             logger,
		Caches:             a.Caches,
		Ready:              ready,
	})
}

// Scheduler builds the monthly worker loop.
func (a *App) Scheduler() *worker.Scheduler {
	return worker.NewScheduler(a.Store, a.Occurrences, a.Budget,
		a.Config.SchedulerInterval, a.Config.EnsureConcurrency, a.Config.Location())
}

// Now returns the current time in the configured timezone.
func (a *App) Now() time.Time {
	return time.Now().In(a.Config.Location())
}
