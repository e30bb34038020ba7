// Package memory is an in-process Store used for development and tests.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IvaDonGon/TusGastos/internal/core"
)

type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	definitions map[string]core.RecurringDefinition
	occurrences map[string]core.RecurringOccurrence
	categories  []core.CategoryDefinition
	limits      map[string]map[string]core.Amount // user -> category -> limit
	expenses    []core.Expense
	settings    map[string]core.UserSettings
}

func New() *Store {
	return &Store{
		now:         time.Now,
		definitions: make(map[string]core.RecurringDefinition),
		occurrences: make(map[string]core.RecurringOccurrence),
		limits:      make(map[string]map[string]core.Amount),
		settings:    make(map[string]core.UserSettings),
	}
}

// NewFromFiles seeds userID's categories from base/seed_categories.txt, one
// name per line. Blank lines and # comments are ignored.
func NewFromFiles(base, userID string) *Store {
	s := New()
	names := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(names) == 0 {
		names = []string{"Supermercado", "Comida", "Transporte", "Casa"}
	}
	for _, n := range names {
		s.categories = append(s.categories, core.CategoryDefinition{
			ID: uuid.NewString(), UserID: userID, Name: n, Active: true,
		})
	}
	return s
}

// WithClock replaces the clock used for CreatedAt stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) FetchActiveRecurringDefinitions(_ context.Context, userID string) ([]core.RecurringDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurringDefinition
	for _, d := range s.sortedDefinitions(userID) {
		if d.Active {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) ListRecurringDefinitions(_ context.Context, userID string) ([]core.RecurringDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedDefinitions(userID), nil
}

func (s *Store) sortedDefinitions(userID string) []core.RecurringDefinition {
	out := make([]core.RecurringDefinition, 0)
	for _, d := range s.definitions {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfMonth != out[j].DayOfMonth {
			return out[i].DayOfMonth < out[j].DayOfMonth
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) GetRecurringDefinition(_ context.Context, userID, id string) (core.RecurringDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.definitions[id]
	if !ok || d.UserID != userID {
		return core.RecurringDefinition{}, &core.NotFoundError{Kind: "recurring definition", ID: id}
	}
	return d, nil
}

func (s *Store) CreateRecurringDefinition(_ context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	if def.CreatedAt.IsZero() {
		def.CreatedAt = s.now()
	}
	s.definitions[def.ID] = def
	return def, nil
}

func (s *Store) UpdateRecurringDefinition(_ context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.definitions[def.ID]
	if !ok || cur.UserID != def.UserID {
		return core.RecurringDefinition{}, &core.NotFoundError{Kind: "recurring definition", ID: def.ID}
	}
	def.CreatedAt = cur.CreatedAt
	s.definitions[def.ID] = def
	return def, nil
}

func (s *Store) DeleteRecurringDefinition(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.definitions[id]
	if !ok || d.UserID != userID {
		return &core.NotFoundError{Kind: "recurring definition", ID: id}
	}
	delete(s.definitions, id)
	return nil
}

func (s *Store) FetchOccurrences(_ context.Context, userID string, rng core.DateRange, state *core.OccurrenceState) ([]core.RecurringOccurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RecurringOccurrence, 0)
	for _, o := range s.occurrences {
		if o.UserID != userID || !rng.Contains(o.DueDate) {
			continue
		}
		if state != nil && o.State != *state {
			continue
		}
		out = append(out, o)
	}
	core.SortByDueDate(out)
	return out, nil
}

func (s *Store) GetOccurrence(_ context.Context, userID, id string) (core.RecurringOccurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.occurrences[id]
	if !ok || o.UserID != userID {
		return core.RecurringOccurrence{}, &core.NotFoundError{Kind: "occurrence", ID: id}
	}
	return o, nil
}

func (s *Store) CreateOccurrence(_ context.Context, occ core.RecurringOccurrence) (core.RecurringOccurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	month := occ.MonthKey()
	for _, o := range s.occurrences {
		if o.DefinitionID == occ.DefinitionID && o.MonthKey() == month {
			return core.RecurringOccurrence{}, core.ErrOccurrenceExists
		}
	}
	if occ.ID == "" {
		occ.ID = uuid.NewString()
	}
	if occ.CreatedAt.IsZero() {
		occ.CreatedAt = s.now()
	}
	s.occurrences[occ.ID] = occ
	return occ, nil
}

func (s *Store) UpdateOccurrenceState(_ context.Context, userID, id string, state core.OccurrenceState, at *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.occurrences[id]
	if !ok || o.UserID != userID {
		return &core.NotFoundError{Kind: "occurrence", ID: id}
	}
	if o.State != core.StatePending {
		return core.NewValidationError("state", core.ErrNotPending, "occurrence "+id+" is already "+string(o.State))
	}
	o.State = state
	if at != nil {
		t := *at
		o.ConfirmedAt = &t
	}
	s.occurrences[id] = o
	return nil
}

func (s *Store) FetchCategories(_ context.Context, userID string) ([]core.CategoryDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.CategoryDefinition, 0)
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.CategoryDefinition) (core.CategoryDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.CategoryDefinition) (core.CategoryDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.categories {
		if cur.ID == c.ID && cur.UserID == c.UserID {
			s.categories[i] = c
			return c, nil
		}
	}
	return core.CategoryDefinition{}, &core.NotFoundError{Kind: "category", ID: c.ID}
}

func (s *Store) DeleteCategory(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, c := range s.categories {
		if c.ID == id && c.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return &core.NotFoundError{Kind: "category", ID: id}
	}
	for _, e := range s.expenses {
		if e.UserID == userID && e.CategoryID == id {
			return core.NewValidationError("category_id", core.ErrCategoryInUse, "category has expenses, deactivate it instead")
		}
	}
	s.categories = append(s.categories[:idx], s.categories[idx+1:]...)
	delete(s.limits[userID], id)
	return nil
}

func (s *Store) FetchCategoryLimits(_ context.Context, userID string) ([]core.CategoryLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.CategoryLimit, 0)
	for catID, limit := range s.limits[userID] {
		out = append(out, core.CategoryLimit{UserID: userID, CategoryID: catID, MonthlyLimit: limit})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

func (s *Store) UpsertCategoryLimit(_ context.Context, userID, categoryID string, limit core.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limits[userID] == nil {
		s.limits[userID] = make(map[string]core.Amount)
	}
	s.limits[userID][categoryID] = limit
	return nil
}

func (s *Store) DeleteCategoryLimit(_ context.Context, userID, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.limits[userID], categoryID)
	return nil
}

func (s *Store) FetchExpensesInRange(_ context.Context, userID string, rng core.DateRange, categoryID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0)
	for _, e := range s.expenses {
		if e.UserID != userID || !rng.Contains(e.Date) {
			continue
		}
		if categoryID != "" && e.CategoryID != categoryID {
			continue
		}
		out = append(out, e)
	}
	core.SortExpensesNewestFirst(out)
	return out, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) GetExpense(_ context.Context, userID, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.expenseIndex(userID, id); i >= 0 {
		return s.expenses[i], nil
	}
	return core.Expense{}, &core.NotFoundError{Kind: "expense", ID: id}
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(e.UserID, e.ID)
	if i < 0 {
		return core.Expense{}, &core.NotFoundError{Kind: "expense", ID: e.ID}
	}
	e.CreatedAt = s.expenses[i].CreatedAt
	s.expenses[i] = e
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(userID, id)
	if i < 0 {
		return &core.NotFoundError{Kind: "expense", ID: id}
	}
	s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
	return nil
}

func (s *Store) expenseIndex(userID, id string) int {
	for i, e := range s.expenses {
		if e.ID == id && e.UserID == userID {
			return i
		}
	}
	return -1
}

func (s *Store) GetSettings(_ context.Context, userID string) (core.UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.settings[userID]; ok {
		return st, nil
	}
	return core.DefaultSettings(userID), nil
}

func (s *Store) SaveSettings(_ context.Context, st core.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[st.UserID] = st
	return nil
}

func (s *Store) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, d := range s.definitions {
		ids = append(ids, d.UserID)
	}
	for _, c := range s.categories {
		ids = append(ids, c.UserID)
	}
	for _, e := range s.expenses {
		ids = append(ids, e.UserID)
	}
	for id := range s.settings {
		ids = append(ids, id)
	}
	out := dedupe(ids)
	sort.Strings(out)
	return out, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, keeping first-seen order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
