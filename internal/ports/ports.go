// Package ports declares the storage collaborator the services depend on.
// Every back end in the repository implements Store.
package ports

import (
	"context"
	"time"

	"github.com/IvaDonGon/TusGastos/internal/core"
)

type (
	// RecurringReader loads recurring definitions.
	RecurringReader interface {
		FetchActiveRecurringDefinitions(ctx context.Context, userID string) ([]core.RecurringDefinition, error)
		ListRecurringDefinitions(ctx context.Context, userID string) ([]core.RecurringDefinition, error)
		GetRecurringDefinition(ctx context.Context, userID, id string) (core.RecurringDefinition, error)
	}

	// RecurringWriter manages recurring definitions. Deleting a definition
	// leaves its occurrences in place.
	RecurringWriter interface {
		CreateRecurringDefinition(ctx context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error)
		UpdateRecurringDefinition(ctx context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error)
		DeleteRecurringDefinition(ctx context.Context, userID, id string) error
	}

	// OccurrenceStore persists monthly occurrences.
	OccurrenceStore interface {
		// FetchOccurrences returns the user's occurrences due inside rng,
		// optionally restricted to one state.
		FetchOccurrences(ctx context.Context, userID string, rng core.DateRange, state *core.OccurrenceState) ([]core.RecurringOccurrence, error)
		GetOccurrence(ctx context.Context, userID, id string) (core.RecurringOccurrence, error)
		// CreateOccurrence stores a pending occurrence and assigns its ID. It
		// returns core.ErrOccurrenceExists when the definition already has one
		// for the month.
		CreateOccurrence(ctx context.Context, occ core.RecurringOccurrence) (core.RecurringOccurrence, error)
		// UpdateOccurrenceState only moves occurrences that are still pending.
		UpdateOccurrenceState(ctx context.Context, userID, id string, state core.OccurrenceState, at *time.Time) error
	}

	CategoryStore interface {
		FetchCategories(ctx context.Context, userID string) ([]core.CategoryDefinition, error)
		CreateCategory(ctx context.Context, c core.CategoryDefinition) (core.CategoryDefinition, error)
		// UpdateCategory rewrites name, icon and active flag.
		UpdateCategory(ctx context.Context, c core.CategoryDefinition) (core.CategoryDefinition, error)
		// DeleteCategory removes the category and its limit. It fails with
		// core.ErrCategoryInUse while any expense references it.
		DeleteCategory(ctx context.Context, userID, id string) error
		FetchCategoryLimits(ctx context.Context, userID string) ([]core.CategoryLimit, error)
		UpsertCategoryLimit(ctx context.Context, userID, categoryID string, limit core.Amount) error
		DeleteCategoryLimit(ctx context.Context, userID, categoryID string) error
	}

	ExpenseStore interface {
		// FetchExpensesInRange filters by category when categoryID is not empty.
		FetchExpensesInRange(ctx context.Context, userID string, rng core.DateRange, categoryID string) ([]core.Expense, error)
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		GetExpense(ctx context.Context, userID, id string) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, userID, id string) error
	}

	// SettingsStore returns core.DefaultSettings for users without a row.
	SettingsStore interface {
		GetSettings(ctx context.Context, userID string) (core.UserSettings, error)
		SaveSettings(ctx context.Context, s core.UserSettings) error
	}

	// UserLister enumerates users known to the store.
	UserLister interface {
		ListUserIDs(ctx context.Context) ([]string, error)
	}

	Store interface {
		RecurringReader
		RecurringWriter
		OccurrenceStore
		CategoryStore
		ExpenseStore
		SettingsStore
		UserLister
		Close() error
	}
)
