package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IvaDonGon/TusGastos/internal/core"
	applog "github.com/IvaDonGon/TusGastos/internal/log"
	"github.com/IvaDonGon/TusGastos/internal/ports"
)

const defaultConcurrency = 4

// OccurrenceManager keeps one occurrence per active definition per month and
// drives the pending -> confirmed|omitted transitions.
type OccurrenceManager struct {
	definitions ports.RecurringReader
	occurrences ports.OccurrenceStore
	notifier    Notifier
	now         func() time.Time
	concurrency int
}

// DefinitionFailure records why one definition could not be materialized.
type DefinitionFailure struct {
	DefinitionID string `json:"definition_id"`
	Err          error  `json:"-"`
}

// EnsureResult summarizes one EnsureOccurrencesForMonth run.
type EnsureResult struct {
	Month    string                     `json:"month"`
	Created  []core.RecurringOccurrence `json:"created"`
	Existing int                        `json:"existing"`
	Failed   []DefinitionFailure        `json:"failed,omitempty"`
}

// ItemFailure is one id a bulk operation could not process.
type ItemFailure struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

// BulkResult is the outcome of ConfirmAll. Failures never stop other ids.
type BulkResult struct {
	Confirmed []string      `json:"confirmed"`
	Failed    []ItemFailure `json:"failed,omitempty"`
}

// Count returns how many occurrences were confirmed.
func (r BulkResult) Count() int { return len(r.Confirmed) }

// Err joins every per-id failure, or returns nil.
func (r BulkResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("occurrence %s: %w", f.ID, f.Err))
	}
	return errors.Join(errs...)
}

// PendingItem is a pending occurrence with its definition's display name.
type PendingItem struct {
	core.RecurringOccurrence
	Name string `json:"name"`
}

func NewOccurrenceManager(definitions ports.RecurringReader, occurrences ports.OccurrenceStore, notifier Notifier) *OccurrenceManager {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &OccurrenceManager{
		definitions: definitions,
		occurrences: occurrences,
		notifier:    notifier,
		now:         time.Now,
		concurrency: defaultConcurrency,
	}
}

// WithClock replaces the clock used for confirmation timestamps.
func (m *OccurrenceManager) WithClock(now func() time.Time) *OccurrenceManager {
	m.now = now
	return m
}

// WithConcurrency bounds parallel storage writes. Values below 1 are ignored.
func (m *OccurrenceManager) WithConcurrency(n int) *OccurrenceManager {
	if n > 0 {
		m.concurrency = n
	}
	return m
}

// EnsureForUser materializes the month's occurrences for every active definition.
func (m *OccurrenceManager) EnsureForUser(ctx context.Context, userID string, ref time.Time) (EnsureResult, error) {
	defs, err := m.definitions.FetchActiveRecurringDefinitions(ctx, userID)
	if err != nil {
		return EnsureResult{Month: core.MonthKey(ref)}, fmt.Errorf("fetch active definitions: %w", err)
	}
	return m.EnsureOccurrencesForMonth(ctx, userID, defs, ref)
}

// EnsureOccurrencesForMonth creates the missing occurrences of ref's month.
// Running it again, or concurrently, never produces a second occurrence for
// the same definition and month.
func (m *OccurrenceManager) EnsureOccurrencesForMonth(ctx context.Context, userID string, defs []core.RecurringDefinition, ref time.Time) (EnsureResult, error) {
	month := core.CurrentMonthRange(ref)
	result := EnsureResult{Month: core.MonthKey(ref)}

	existing, err := m.occurrences.FetchOccurrences(ctx, userID, month, nil)
	if err != nil {
		return result, fmt.Errorf("fetch month occurrences: %w", err)
	}

	valid, invalid := splitValid(defs)
	result.Failed = append(result.Failed, invalid...)

	drafts := core.PlanOccurrences(valid, existing, ref)
	result.Existing = countActive(valid) - len(drafts)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, draft := range drafts {
		g.Go(func() error {
			created, err := m.occurrences.CreateOccurrence(gctx, draft)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, core.ErrOccurrenceExists):
				result.Existing++
			case err != nil:
				result.Failed = append(result.Failed, DefinitionFailure{DefinitionID: draft.DefinitionID, Err: err})
			default:
				result.Created = append(result.Created, created)
			}
			// Per-definition failures are collected, never returned, so the
			// group context stays alive for the other writes.
			return nil
		})
	}
	_ = g.Wait()

	core.SortByDueDate(result.Created)
	sort.Slice(result.Failed, func(i, j int) bool {
		return result.Failed[i].DefinitionID < result.Failed[j].DefinitionID
	})

	slog.InfoContext(ctx, "Ensured monthly occurrences",
		applog.NewFields().
			WithComponent(applog.ComponentOccurrences).
			WithOperation(applog.OpEnsure).
			WithUser(userID).
			WithMonth(result.Month).
			WithEnsureCounts(len(result.Created), result.Existing, len(result.Failed)).
			ToSlice()...)

	if len(result.Created) > 0 {
		if err := m.notifier.PublishOccurrencesCreated(ctx, userID, result.Month, result.Created); err != nil {
			slog.WarnContext(ctx, "Failed to publish occurrences created event",
				applog.FieldUserID, userID, applog.FieldMonth, result.Month, applog.FieldError, err)
		}
	}

	if len(result.Failed) > 0 {
		errs := make([]error, 0, len(result.Failed))
		for _, f := range result.Failed {
			errs = append(errs, fmt.Errorf("definition %s: %w", f.DefinitionID, f.Err))
		}
		return result, errors.Join(errs...)
	}
	return result, nil
}

// splitValid separates active definitions that can be materialized from
// those that fail validation. A bad day of month is reported, never clamped.
func splitValid(defs []core.RecurringDefinition) ([]core.RecurringDefinition, []DefinitionFailure) {
	valid := make([]core.RecurringDefinition, 0, len(defs))
	var failed []DefinitionFailure
	seen := make(map[string]struct{})
	for _, d := range defs {
		if !d.Active {
			continue
		}
		if err := d.Validate(); err != nil {
			if _, dup := seen[d.ID]; !dup {
				seen[d.ID] = struct{}{}
				failed = append(failed, DefinitionFailure{DefinitionID: d.ID, Err: err})
			}
			continue
		}
		valid = append(valid, d)
	}
	return valid, failed
}

func countActive(defs []core.RecurringDefinition) int {
	seen := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		if d.Active {
			seen[d.ID] = struct{}{}
		}
	}
	return len(seen)
}

// Confirm marks a pending occurrence as paid.
func (m *OccurrenceManager) Confirm(ctx context.Context, userID, id string) (core.RecurringOccurrence, error) {
	return m.transition(ctx, userID, id, core.StateConfirmed)
}

// Omit skips a pending occurrence for its month.
func (m *OccurrenceManager) Omit(ctx context.Context, userID, id string) (core.RecurringOccurrence, error) {
	return m.transition(ctx, userID, id, core.StateOmitted)
}

func (m *OccurrenceManager) transition(ctx context.Context, userID, id string, to core.OccurrenceState) (core.RecurringOccurrence, error) {
	occ, err := m.occurrences.GetOccurrence(ctx, userID, id)
	if err != nil {
		return core.RecurringOccurrence{}, err
	}
	if err := occ.Transition(to, m.now()); err != nil {
		return core.RecurringOccurrence{}, err
	}
	if err := m.occurrences.UpdateOccurrenceState(ctx, userID, id, occ.State, occ.ConfirmedAt); err != nil {
		return core.RecurringOccurrence{}, err
	}

	slog.InfoContext(ctx, "Occurrence state changed",
		applog.FieldComponent, applog.ComponentOccurrences,
		applog.FieldUserID, userID,
		applog.FieldOccurrenceID, id,
		"state", occ.State)
	return occ, nil
}

// ConfirmAll confirms every id independently. The order of Confirmed follows ids.
func (m *OccurrenceManager) ConfirmAll(ctx context.Context, userID string, ids []string) BulkResult {
	errs := make([]error, len(ids))
	done := make([]bool, len(ids))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if _, err := m.Confirm(ctx, userID, id); err != nil {
				errs[i] = err
				return nil
			}
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	result := BulkResult{Confirmed: make([]string, 0, len(ids))}
	for i, id := range ids {
		if done[i] {
			result.Confirmed = append(result.Confirmed, id)
		} else {
			result.Failed = append(result.Failed, ItemFailure{ID: id, Err: errs[i]})
		}
	}
	return result
}

// ConfirmAllPending confirms the pending occurrences of ref's month.
func (m *OccurrenceManager) ConfirmAllPending(ctx context.Context, userID string, ref time.Time) (BulkResult, error) {
	pending, err := m.ListPendingForMonth(ctx, userID, core.CurrentMonthRange(ref))
	if err != nil {
		return BulkResult{}, err
	}
	ids := make([]string, len(pending))
	for i, o := range pending {
		ids[i] = o.ID
	}
	return m.ConfirmAll(ctx, userID, ids), nil
}

// ListPendingForMonth returns the pending occurrences due inside rng, earliest first.
func (m *OccurrenceManager) ListPendingForMonth(ctx context.Context, userID string, rng core.DateRange) ([]core.RecurringOccurrence, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	state := core.StatePending
	occ, err := m.occurrences.FetchOccurrences(ctx, userID, rng, &state)
	if err != nil {
		return nil, fmt.Errorf("fetch pending occurrences: %w", err)
	}
	pending := core.FilterPending(occ, rng)
	core.SortByDueDate(pending)
	return pending, nil
}

// ListPendingWithNames is ListPendingForMonth for ref's month, with each item
// labelled by its definition's name.
func (m *OccurrenceManager) ListPendingWithNames(ctx context.Context, userID string, ref time.Time) ([]PendingItem, error) {
	pending, err := m.ListPendingForMonth(ctx, userID, core.CurrentMonthRange(ref))
	if err != nil {
		return nil, err
	}

	names := map[string]string{}
	if defs, err := m.definitions.ListRecurringDefinitions(ctx, userID); err != nil {
		slog.WarnContext(ctx, "Failed to load definition names",
			applog.FieldUserID, userID, applog.FieldError, err)
	} else {
		for _, d := range defs {
			names[d.ID] = d.Name
		}
	}

	items := make([]PendingItem, len(pending))
	for i, o := range pending {
		name := names[o.DefinitionID]
		if name == "" {
			name = core.DefaultRecurringName
		}
		items[i] = PendingItem{RecurringOccurrence: o, Name: name}
	}
	return items, nil
}
