package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	StatePending   OccurrenceState = "pending"
	StateConfirmed OccurrenceState = "confirmed"
	StateOmitted   OccurrenceState = "omitted"
)

const (
	// DefaultNotifyAtPercent is the early-warning threshold for users without settings.
	DefaultNotifyAtPercent = 80
	// DefaultRecurringName labels an occurrence whose definition can no longer be found.
	DefaultRecurringName = "Recurrente"

	maxNameLength = 120
	maxNoteLength = 500
)

type (
	OccurrenceState string

	// RecurringDefinition is a charge that repeats every month on DayOfMonth.
	RecurringDefinition struct {
		ID         string    `json:"id"`
		UserID     string    `json:"user_id"`
		Name       string    `json:"name"`
		Amount     Amount    `json:"amount"`
		DayOfMonth int       `json:"day_of_month"`
		Active     bool      `json:"active"`
		CreatedAt  time.Time `json:"created_at"`
	}

	// RecurringOccurrence is one month's instance of a definition. Amount is a
	// snapshot and is never re-synced with the definition.
	RecurringOccurrence struct {
		ID           string          `json:"id"`
		UserID       string          `json:"user_id"`
		DefinitionID string          `json:"definition_id"`
		DueDate      string          `json:"due_date"`
		Amount       Amount          `json:"amount"`
		State        OccurrenceState `json:"state"`
		ConfirmedAt  *time.Time      `json:"confirmed_at,omitempty"`
		CreatedAt    time.Time       `json:"created_at"`
	}

	CategoryDefinition struct {
		ID       string `json:"id"`
		UserID   string `json:"user_id"`
		Name     string `json:"name"`
		IconName string `json:"icon_name,omitempty"`
		Active   bool   `json:"active"`
	}

	// CategoryLimit is a monthly spending ceiling. A category without a row has no limit.
	CategoryLimit struct {
		UserID       string `json:"user_id"`
		CategoryID   string `json:"category_id"`
		MonthlyLimit Amount `json:"monthly_limit"`
	}

	Expense struct {
		ID         string    `json:"id"`
		UserID     string    `json:"user_id"`
		CategoryID string    `json:"category_id,omitempty"`
		Date       string    `json:"date"`
		Amount     Amount    `json:"amount"`
		Note       string    `json:"note,omitempty"`
		CreatedAt  time.Time `json:"created_at"`
	}

	UserSettings struct {
		UserID          string `json:"user_id"`
		LimitsEnabled   bool   `json:"limits_by_category_enabled"`
		NotifyAtPercent int    `json:"notify_at_percent"`
	}
)

// IsValid reports whether s is one of the three known states.
func (s OccurrenceState) IsValid() bool {
	switch s {
	case StatePending, StateConfirmed, StateOmitted:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s OccurrenceState) IsTerminal() bool {
	return s == StateConfirmed || s == StateOmitted
}

// ParseOccurrenceState accepts the canonical names case-insensitively.
func ParseOccurrenceState(s string) (OccurrenceState, error) {
	st := OccurrenceState(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", NewValidationError("state", ErrInvalidState, fmt.Sprintf("unknown state %q", s))
	}
	return st, nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewValidationError("name", ErrEmptyName, "name is required")
	}
	if len(name) > maxNameLength {
		return NewValidationError("name", ErrEmptyName, fmt.Sprintf("name too long (max %d characters)", maxNameLength))
	}
	return nil
}

func (d RecurringDefinition) Validate() error {
	if err := validateName(d.Name); err != nil {
		return err
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if d.DayOfMonth < 1 || d.DayOfMonth > 31 {
		return NewValidationError("day_of_month", ErrInvalidDay, fmt.Sprintf("day %d is outside 1..31", d.DayOfMonth))
	}
	return nil
}

func (o RecurringOccurrence) Validate() error {
	if strings.TrimSpace(o.DefinitionID) == "" {
		return NewValidationError("definition_id", ErrEmptyName, "definition id is required")
	}
	if !IsDateKey(o.DueDate) {
		return NewValidationError("due_date", ErrInvalidDateKey, fmt.Sprintf("%q is not YYYY-MM-DD", o.DueDate))
	}
	if err := o.Amount.Validate(); err != nil {
		return err
	}
	if !o.State.IsValid() {
		return NewValidationError("state", ErrInvalidState, fmt.Sprintf("unknown state %q", o.State))
	}
	return nil
}

// MonthKey is the YYYY-MM month the occurrence belongs to.
func (o RecurringOccurrence) MonthKey() string {
	if len(o.DueDate) < 7 {
		return ""
	}
	return o.DueDate[:7]
}

func (c CategoryDefinition) Validate() error {
	return validateName(c.Name)
}

func (e Expense) Validate() error {
	if !IsDateKey(e.Date) {
		return NewValidationError("date", ErrInvalidDateKey, fmt.Sprintf("%q is not YYYY-MM-DD", e.Date))
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(e.Note) > maxNoteLength {
		return NewValidationError("note", nil, fmt.Sprintf("note too long (max %d characters)", maxNoteLength))
	}
	return nil
}

func (s UserSettings) Validate() error {
	if s.NotifyAtPercent < 1 || s.NotifyAtPercent > 100 {
		return NewValidationError("notify_at_percent", ErrInvalidPercent, fmt.Sprintf("%d is outside 1..100", s.NotifyAtPercent))
	}
	return nil
}

// DefaultSettings are used for users who never saved their preferences.
func DefaultSettings(userID string) UserSettings {
	return UserSettings{UserID: userID, LimitsEnabled: true, NotifyAtPercent: DefaultNotifyAtPercent}
}
