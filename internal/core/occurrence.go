package core

import (
	"fmt"
	"sort"
	"time"
)

// DueDateForMonth places dayOfMonth inside ref's month, clamping to the last day
// of short months.
func DueDateForMonth(dayOfMonth int, ref time.Time) string {
	return LocalDateKey(ClampDayToMonth(ref, dayOfMonth))
}

// PlanOccurrences returns one pending draft for every active, valid definition
// that has no occurrence in ref's month yet. Definitions failing Validate are
// skipped; callers report them. Drafts carry no ID; existing occurrences are
// never modified, so calling it again after the drafts were stored yields
// nothing.
func PlanOccurrences(defs []RecurringDefinition, existing []RecurringOccurrence, ref time.Time) []RecurringOccurrence {
	month := MonthKey(ref)
	have := make(map[string]struct{}, len(existing))
	for _, o := range existing {
		if o.MonthKey() == month {
			have[o.DefinitionID] = struct{}{}
		}
	}

	var drafts []RecurringOccurrence
	for _, d := range defs {
		if !d.Active || d.Validate() != nil {
			continue
		}
		if _, ok := have[d.ID]; ok {
			continue
		}
		// Guards against duplicate definitions in the input.
		have[d.ID] = struct{}{}
		drafts = append(drafts, RecurringOccurrence{
			UserID:       d.UserID,
			DefinitionID: d.ID,
			DueDate:      DueDateForMonth(d.DayOfMonth, ref),
			Amount:       d.Amount,
			State:        StatePending,
		})
	}
	return drafts
}

// CanTransition reports whether an occurrence in state from may move to to.
func CanTransition(from, to OccurrenceState) bool {
	return from == StatePending && to.IsTerminal()
}

// Transition moves the occurrence to a terminal state. Only pending
// occurrences move; anything else is a ValidationError and leaves o unchanged.
func (o *RecurringOccurrence) Transition(to OccurrenceState, now time.Time) error {
	if !to.IsTerminal() {
		return NewValidationError("state", ErrInvalidState, fmt.Sprintf("cannot move to %q", to))
	}
	if !CanTransition(o.State, to) {
		return NewValidationError("state", ErrNotPending, fmt.Sprintf("occurrence %s is already %s", o.ID, o.State))
	}
	o.State = to
	if to == StateConfirmed {
		at := now
		o.ConfirmedAt = &at
	}
	return nil
}

func (o *RecurringOccurrence) Confirm(now time.Time) error {
	return o.Transition(StateConfirmed, now)
}

func (o *RecurringOccurrence) Omit() error {
	return o.Transition(StateOmitted, time.Time{})
}

// SortByDueDate orders occurrences earliest due first, ties broken by ID.
func SortByDueDate(occ []RecurringOccurrence) {
	sort.SliceStable(occ, func(i, j int) bool {
		if occ[i].DueDate != occ[j].DueDate {
			return occ[i].DueDate < occ[j].DueDate
		}
		return occ[i].ID < occ[j].ID
	})
}

// FilterPending keeps the pending occurrences whose due date lies in rng.
func FilterPending(occ []RecurringOccurrence, rng DateRange) []RecurringOccurrence {
	out := make([]RecurringOccurrence, 0, len(occ))
	for _, o := range occ {
		if o.State == StatePending && rng.Contains(o.DueDate) {
			out = append(out, o)
		}
	}
	return out
}
