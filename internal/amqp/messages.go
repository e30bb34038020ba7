package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IvaDonGon/TusGastos/internal/core"
)

// Routing keys of the events published on the exchange.
const (
	RoutingBudgetAlert        = "budget.alert"
	RoutingOccurrencesCreated = "occurrences.created"
)

// BudgetAlertMessage tells a push service which categories are near or over
// their monthly limit.
type BudgetAlertMessage struct {
	UserID    string                  `json:"user_id"`
	Month     string                  `json:"month"`
	Over      []core.BudgetAlertState `json:"over"`
	Near      []core.BudgetAlertState `json:"near"`
	Timestamp time.Time               `json:"timestamp"`
}

// OccurrenceRef is the part of an occurrence a reminder needs.
type OccurrenceRef struct {
	ID           string      `json:"id"`
	DefinitionID string      `json:"definition_id"`
	DueDate      string      `json:"due_date"`
	Amount       core.Amount `json:"amount"`
}

// OccurrencesCreatedMessage announces new pending occurrences for a month.
type OccurrencesCreatedMessage struct {
	UserID      string          `json:"user_id"`
	Month       string          `json:"month"`
	Occurrences []OccurrenceRef `json:"occurrences"`
	Timestamp   time.Time       `json:"timestamp"`
}

func NewBudgetAlertMessage(userID, month string, alerts core.BudgetAlerts) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		UserID:    userID,
		Month:     month,
		Over:      alerts.Over,
		Near:      alerts.Near,
		Timestamp: time.Now(),
	}
}

func NewOccurrencesCreatedMessage(userID, month string, created []core.RecurringOccurrence) *OccurrencesCreatedMessage {
	refs := make([]OccurrenceRef, len(created))
	for i, o := range created {
		refs[i] = OccurrenceRef{ID: o.ID, DefinitionID: o.DefinitionID, DueDate: o.DueDate, Amount: o.Amount}
	}
	return &OccurrencesCreatedMessage{
		UserID:      userID,
		Month:       month,
		Occurrences: refs,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ToJSON converts the message to JSON bytes
func (m *OccurrencesCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Event is a decoded delivery. Exactly one payload field is set.
type Event struct {
	RoutingKey         string
	BudgetAlert        *BudgetAlertMessage
	OccurrencesCreated *OccurrencesCreatedMessage
}

// UserID returns the user the event belongs to.
func (e Event) UserID() string {
	switch {
	case e.BudgetAlert != nil:
		return e.BudgetAlert.UserID
	case e.OccurrencesCreated != nil:
		return e.OccurrencesCreated.UserID
	}
	return ""
}

// ParseEvent decodes body according to its routing key.
func ParseEvent(routingKey string, body []byte) (Event, error) {
	ev := Event{RoutingKey: routingKey}
	switch routingKey {
	case RoutingBudgetAlert:
		var msg BudgetAlertMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return Event{}, fmt.Errorf("decode budget alert: %w", err)
		}
		ev.BudgetAlert = &msg
	case RoutingOccurrencesCreated:
		var msg OccurrencesCreatedMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return Event{}, fmt.Errorf("decode occurrences created: %w", err)
		}
		ev.OccurrencesCreated = &msg
	default:
		return Event{}, fmt.Errorf("unknown routing key %q", routingKey)
	}
	return ev, nil
}
