package services

import (
	"context"

	"github.com/IvaDonGon/TusGastos/internal/core"
)

// Notifier publishes domain events for consumers outside this process.
// Implementations must be safe for concurrent use.
type Notifier interface {
	PublishBudgetAlert(ctx context.Context, userID, month string, alerts core.BudgetAlerts) error
	PublishOccurrencesCreated(ctx context.Context, userID, month string, created []core.RecurringOccurrence) error
}

// NopNotifier drops every event. Used when AMQP is not configured.
type NopNotifier struct{}

func (NopNotifier) PublishBudgetAlert(context.Context, string, string, core.BudgetAlerts) error {
	return nil
}

func (NopNotifier) PublishOccurrencesCreated(context.Context, string, string, []core.RecurringOccurrence) error {
	return nil
}
