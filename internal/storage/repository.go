// Package storage is the SQLite implementation of the storage collaborator.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/IvaDonGon/TusGastos/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// DSN adds the connection pragmas every connection needs to a file path.
func DSN(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=foreign_keys(on)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; concurrent ensure calls queue on the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return core.WrapStorage("ping", r.db.PingContext(ctx))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Recurring definitions

const definitionColumns = `id, user_id, name, amount, day_of_month, active, created_at`

func scanDefinition(row rowScanner) (core.RecurringDefinition, error) {
	var (
		d       core.RecurringDefinition
		active  int
		created string
	)
	if err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Amount, &d.DayOfMonth, &active, &created); err != nil {
		return core.RecurringDefinition{}, err
	}
	d.Active = active == 1
	d.CreatedAt = parseTime(created)
	return d, nil
}

func (r *SQLiteRepository) queryDefinitions(ctx context.Context, op, query string, args ...any) ([]core.RecurringDefinition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapStorage(op, err)
	}
	defer rows.Close()

	out := make([]core.RecurringDefinition, 0)
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, core.WrapStorage(op, err)
		}
		out = append(out, d)
	}
	return out, core.WrapStorage(op, rows.Err())
}

func (r *SQLiteRepository) FetchActiveRecurringDefinitions(ctx context.Context, userID string) ([]core.RecurringDefinition, error) {
	return r.queryDefinitions(ctx, "fetch active definitions",
		`SELECT `+definitionColumns+` FROM recurring_definitions
		 WHERE user_id = ? AND active = 1 ORDER BY day_of_month, id`, userID)
}

func (r *SQLiteRepository) ListRecurringDefinitions(ctx context.Context, userID string) ([]core.RecurringDefinition, error) {
	return r.queryDefinitions(ctx, "list definitions",
		`SELECT `+definitionColumns+` FROM recurring_definitions
		 WHERE user_id = ? ORDER BY day_of_month, id`, userID)
}

func (r *SQLiteRepository) GetRecurringDefinition(ctx context.Context, userID, id string) (core.RecurringDefinition, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+definitionColumns+` FROM recurring_definitions WHERE id = ? AND user_id = ?`, id, userID)
	d, err := scanDefinition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringDefinition{}, &core.NotFoundError{Kind: "recurring definition", ID: id}
	}
	return d, core.WrapStorage("get definition", err)
}

func (r *SQLiteRepository) CreateRecurringDefinition(ctx context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error) {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	if def.CreatedAt.IsZero() {
		def.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_definitions (`+definitionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		def.ID, def.UserID, def.Name, int64(def.Amount), def.DayOfMonth, boolToInt(def.Active), formatTime(def.CreatedAt))
	if err != nil {
		return core.RecurringDefinition{}, core.WrapStorage("create definition", err)
	}
	slog.DebugContext(ctx, "Recurring definition saved", "id", def.ID, "user_id", def.UserID)
	return def, nil
}

func (r *SQLiteRepository) UpdateRecurringDefinition(ctx context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_definitions SET name = ?, amount = ?, day_of_month = ?, active = ?
		 WHERE id = ? AND user_id = ?`,
		def.Name, int64(def.Amount), def.DayOfMonth, boolToInt(def.Active), def.ID, def.UserID)
	if err != nil {
		return core.RecurringDefinition{}, core.WrapStorage("update definition", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.RecurringDefinition{}, &core.NotFoundError{Kind: "recurring definition", ID: def.ID}
	}
	return r.GetRecurringDefinition(ctx, def.UserID, def.ID)
}

func (r *SQLiteRepository) DeleteRecurringDefinition(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_definitions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return core.WrapStorage("delete definition", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Kind: "recurring definition", ID: id}
	}
	return nil
}

// Occurrences

const occurrenceColumns = `id, user_id, definition_id, due_date, amount, state, confirmed_at, created_at`

func scanOccurrence(row rowScanner) (core.RecurringOccurrence, error) {
	var (
		o         core.RecurringOccurrence
		state     string
		confirmed sql.NullString
		created   string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.DefinitionID, &o.DueDate, &o.Amount, &state, &confirmed, &created); err != nil {
		return core.RecurringOccurrence{}, err
	}
	o.State = core.OccurrenceState(state)
	if confirmed.Valid && confirmed.String != "" {
		t := parseTime(confirmed.String)
		o.ConfirmedAt = &t
	}
	o.CreatedAt = parseTime(created)
	return o, nil
}

func (r *SQLiteRepository) FetchOccurrences(ctx context.Context, userID string, rng core.DateRange, state *core.OccurrenceState) ([]core.RecurringOccurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM recurring_occurrences
		WHERE user_id = ? AND due_date >= ? AND due_date <= ?`
	args := []any{userID, rng.Start, rng.End}
	if state != nil {
		query += ` AND state = ?`
		args = append(args, string(*state))
	}
	query += ` ORDER BY due_date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapStorage("fetch occurrences", err)
	}
	defer rows.Close()

	out := make([]core.RecurringOccurrence, 0)
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, core.WrapStorage("fetch occurrences", err)
		}
		out = append(out, o)
	}
	return out, core.WrapStorage("fetch occurrences", rows.Err())
}

func (r *SQLiteRepository) GetOccurrence(ctx context.Context, userID, id string) (core.RecurringOccurrence, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+occurrenceColumns+` FROM recurring_occurrences WHERE id = ? AND user_id = ?`, id, userID)
	o, err := scanOccurrence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringOccurrence{}, &core.NotFoundError{Kind: "occurrence", ID: id}
	}
	return o, core.WrapStorage("get occurrence", err)
}

func (r *SQLiteRepository) CreateOccurrence(ctx context.Context, occ core.RecurringOccurrence) (core.RecurringOccurrence, error) {
	if occ.ID == "" {
		occ.ID = uuid.NewString()
	}
	if occ.CreatedAt.IsZero() {
		occ.CreatedAt = r.now()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_occurrences
		 (id, user_id, definition_id, due_date, month_key, amount, state, confirmed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?)
		 ON CONFLICT (definition_id, month_key) DO NOTHING`,
		occ.ID, occ.UserID, occ.DefinitionID, occ.DueDate, occ.MonthKey(), int64(occ.Amount),
		string(occ.State), formatTime(occ.CreatedAt))
	if err != nil {
		return core.RecurringOccurrence{}, core.WrapStorage("create occurrence", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.RecurringOccurrence{}, core.WrapStorage("create occurrence", err)
	}
	if n == 0 {
		return core.RecurringOccurrence{}, core.ErrOccurrenceExists
	}
	return occ, nil
}

func (r *SQLiteRepository) UpdateOccurrenceState(ctx context.Context, userID, id string, state core.OccurrenceState, at *time.Time) error {
	var confirmedAt any
	if at != nil {
		confirmedAt = formatTime(*at)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_occurrences SET state = ?, confirmed_at = ?
		 WHERE id = ? AND user_id = ? AND state = 'pending'`,
		string(state), confirmedAt, id, userID)
	if err != nil {
		return core.WrapStorage("update occurrence state", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	cur, err := r.GetOccurrence(ctx, userID, id)
	if err != nil {
		return err
	}
	return core.NewValidationError("state", core.ErrNotPending, fmt.Sprintf("occurrence %s is already %s", id, cur.State))
}

// Categories and limits

func (r *SQLiteRepository) FetchCategories(ctx context.Context, userID string) ([]core.CategoryDefinition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, icon_name, active FROM categories WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, core.WrapStorage("fetch categories", err)
	}
	defer rows.Close()

	out := make([]core.CategoryDefinition, 0)
	for rows.Next() {
		var (
			c      core.CategoryDefinition
			active int
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.IconName, &active); err != nil {
			return nil, core.WrapStorage("fetch categories", err)
		}
		c.Active = active == 1
		out = append(out, c)
	}
	return out, core.WrapStorage("fetch categories", rows.Err())
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.CategoryDefinition) (core.CategoryDefinition, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, icon_name, active) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.IconName, boolToInt(c.Active))
	if err != nil {
		return core.CategoryDefinition{}, core.WrapStorage("create category", err)
	}
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.CategoryDefinition) (core.CategoryDefinition, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, icon_name = ?, active = ? WHERE id = ? AND user_id = ?`,
		c.Name, c.IconName, boolToInt(c.Active), c.ID, c.UserID)
	if err != nil {
		return core.CategoryDefinition{}, core.WrapStorage("update category", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.CategoryDefinition{}, &core.NotFoundError{Kind: "category", ID: c.ID}
	}
	return c, nil
}

// DeleteCategory removes the category only while no expense references it,
// then drops its limit in the same transaction.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapStorage("delete category", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?
		 AND NOT EXISTS (SELECT 1 FROM expenses WHERE user_id = ? AND category_id = ?)`,
		id, userID, userID, id)
	if err != nil {
		return core.WrapStorage("delete category", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM categories WHERE id = ? AND user_id = ?`, id, userID).Scan(&exists)
		if err != nil {
			return core.WrapStorage("delete category", err)
		}
		if exists == 0 {
			return &core.NotFoundError{Kind: "category", ID: id}
		}
		return core.NewValidationError("category_id", core.ErrCategoryInUse, "category has expenses, deactivate it instead")
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM category_limits WHERE user_id = ? AND category_id = ?`, userID, id); err != nil {
		return core.WrapStorage("delete category", err)
	}
	return core.WrapStorage("delete category", tx.Commit())
}

func (r *SQLiteRepository) FetchCategoryLimits(ctx context.Context, userID string) ([]core.CategoryLimit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, category_id, monthly_limit FROM category_limits WHERE user_id = ? ORDER BY category_id`, userID)
	if err != nil {
		return nil, core.WrapStorage("fetch category limits", err)
	}
	defer rows.Close()

	out := make([]core.CategoryLimit, 0)
	for rows.Next() {
		var l core.CategoryLimit
		if err := rows.Scan(&l.UserID, &l.CategoryID, &l.MonthlyLimit); err != nil {
			return nil, core.WrapStorage("fetch category limits", err)
		}
		out = append(out, l)
	}
	return out, core.WrapStorage("fetch category limits", rows.Err())
}

func (r *SQLiteRepository) UpsertCategoryLimit(ctx context.Context, userID, categoryID string, limit core.Amount) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO category_limits (user_id, category_id, monthly_limit) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, category_id) DO UPDATE SET monthly_limit = excluded.monthly_limit`,
		userID, categoryID, int64(limit))
	return core.WrapStorage("upsert category limit", err)
}

func (r *SQLiteRepository) DeleteCategoryLimit(ctx context.Context, userID, categoryID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM category_limits WHERE user_id = ? AND category_id = ?`, userID, categoryID)
	return core.WrapStorage("delete category limit", err)
}

// Expenses

func (r *SQLiteRepository) FetchExpensesInRange(ctx context.Context, userID string, rng core.DateRange, categoryID string) ([]core.Expense, error) {
	query := `SELECT id, user_id, category_id, date, amount, note, created_at FROM expenses
		WHERE user_id = ? AND date >= ? AND date <= ?`
	args := []any{userID, rng.Start, rng.End}
	if categoryID != "" {
		query += ` AND category_id = ?`
		args = append(args, categoryID)
	}
	query += ` ORDER BY date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapStorage("fetch expenses", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0)
	for rows.Next() {
		var (
			e       core.Expense
			created string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Date, &e.Amount, &e.Note, &created); err != nil {
			return nil, core.WrapStorage("fetch expenses", err)
		}
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, core.WrapStorage("fetch expenses", rows.Err())
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, category_id, date, amount, note, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.CategoryID, e.Date, int64(e.Amount), e.Note, formatTime(e.CreatedAt))
	if err != nil {
		return core.Expense{}, core.WrapStorage("create expense", err)
	}
	slog.InfoContext(ctx, "Expense saved to SQLite", "id", e.ID, "amount", int64(e.Amount), "date", e.Date)
	return e, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id string) (core.Expense, error) {
	var (
		e       core.Expense
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, category_id, date, amount, note, created_at FROM expenses WHERE id = ? AND user_id = ?`,
		id, userID).Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Date, &e.Amount, &e.Note, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, &core.NotFoundError{Kind: "expense", ID: id}
	}
	if err != nil {
		return core.Expense{}, core.WrapStorage("get expense", err)
	}
	e.CreatedAt = parseTime(created)
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET category_id = ?, date = ?, amount = ?, note = ? WHERE id = ? AND user_id = ?`,
		e.CategoryID, e.Date, int64(e.Amount), e.Note, e.ID, e.UserID)
	if err != nil {
		return core.Expense{}, core.WrapStorage("update expense", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Expense{}, &core.NotFoundError{Kind: "expense", ID: e.ID}
	}
	return r.GetExpense(ctx, e.UserID, e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return core.WrapStorage("delete expense", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Kind: "expense", ID: id}
	}
	return nil
}

// Settings and users

func (r *SQLiteRepository) GetSettings(ctx context.Context, userID string) (core.UserSettings, error) {
	var (
		s       = core.UserSettings{UserID: userID}
		enabled int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT limits_enabled, notify_at_percent FROM user_settings WHERE user_id = ?`, userID).
		Scan(&enabled, &s.NotifyAtPercent)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultSettings(userID), nil
	}
	if err != nil {
		return core.UserSettings{}, core.WrapStorage("get settings", err)
	}
	s.LimitsEnabled = enabled == 1
	return s, nil
}

func (r *SQLiteRepository) SaveSettings(ctx context.Context, s core.UserSettings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, limits_enabled, notify_at_percent) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   limits_enabled = excluded.limits_enabled,
		   notify_at_percent = excluded.notify_at_percent`,
		s.UserID, boolToInt(s.LimitsEnabled), s.NotifyAtPercent)
	return core.WrapStorage("save settings", err)
}

func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM recurring_definitions
		UNION SELECT user_id FROM categories
		UNION SELECT user_id FROM expenses
		UNION SELECT user_id FROM user_settings
		ORDER BY user_id`)
	if err != nil {
		return nil, core.WrapStorage("list users", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, core.WrapStorage("list users", err)
		}
		ids = append(ids, id)
	}
	return ids, core.WrapStorage("list users", rows.Err())
}
