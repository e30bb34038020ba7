package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IvaDonGon/TusGastos/internal/core"
)

type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return core.WrapStorage("ping", err)
	}
	return core.WrapStorage("ping", sqlDB.PingContext(ctx))
}

func (r *Repository) FetchActiveRecurringDefinitions(ctx context.Context, userID string) ([]core.RecurringDefinition, error) {
	var rows []recurringDefinitionRow
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("day_of_month, id").
		Find(&rows).Error
	if err != nil {
		return nil, core.WrapStorage("fetch active definitions", err)
	}
	return definitionsToCore(rows), nil
}

func (r *Repository) ListRecurringDefinitions(ctx context.Context, userID string) ([]core.RecurringDefinition, error) {
	var rows []recurringDefinitionRow
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("day_of_month, id").Find(&rows).Error; err != nil {
		return nil, core.WrapStorage("list definitions", err)
	}
	return definitionsToCore(rows), nil
}

func definitionsToCore(rows []recurringDefinitionRow) []core.RecurringDefinition {
	out := make([]core.RecurringDefinition, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCore())
	}
	return out
}

func (r *Repository) GetRecurringDefinition(ctx context.Context, userID, id string) (core.RecurringDefinition, error) {
	var row recurringDefinitionRow
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.RecurringDefinition{}, &core.NotFoundError{Kind: "recurring definition", ID: id}
	}
	if err != nil {
		return core.RecurringDefinition{}, core.WrapStorage("get definition", err)
	}
	return row.toCore(), nil
}

func (r *Repository) CreateRecurringDefinition(ctx context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error) {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	if def.CreatedAt.IsZero() {
		def.CreatedAt = r.now()
	}
	row := definitionRow(def)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.RecurringDefinition{}, core.WrapStorage("create definition", err)
	}
	return row.toCore(), nil
}

func (r *Repository) UpdateRecurringDefinition(ctx context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error) {
	res := r.db.WithContext(ctx).
		Model(&recurringDefinitionRow{}).
		Where("id = ? AND user_id = ?", def.ID, def.UserID).
		Updates(map[string]any{
			"name":         def.Name,
			"amount":       int64(def.Amount),
			"day_of_month": def.DayOfMonth,
			"active":       def.Active,
		})
	if res.Error != nil {
		return core.RecurringDefinition{}, core.WrapStorage("update definition", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.RecurringDefinition{}, &core.NotFoundError{Kind: "recurring definition", ID: def.ID}
	}
	return r.GetRecurringDefinition(ctx, def.UserID, def.ID)
}

func (r *Repository) DeleteRecurringDefinition(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Delete(&recurringDefinitionRow{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return core.WrapStorage("delete definition", res.Error)
	}
	if res.RowsAffected == 0 {
		return &core.NotFoundError{Kind: "recurring definition", ID: id}
	}
	return nil
}

func (r *Repository) FetchOccurrences(ctx context.Context, userID string, rng core.DateRange, state *core.OccurrenceState) ([]core.RecurringOccurrence, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND due_date >= ? AND due_date <= ?", userID, rng.Start, rng.End)
	if state != nil {
		query = query.Where("state = ?", string(*state))
	}
	var rows []recurringOccurrenceRow
	if err := query.Order("due_date, id").Find(&rows).Error; err != nil {
		return nil, core.WrapStorage("fetch occurrences", err)
	}
	out := make([]core.RecurringOccurrence, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCore())
	}
	return out, nil
}

func (r *Repository) GetOccurrence(ctx context.Context, userID, id string) (core.RecurringOccurrence, error) {
	var row recurringOccurrenceRow
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.RecurringOccurrence{}, &core.NotFoundError{Kind: "occurrence", ID: id}
	}
	if err != nil {
		return core.RecurringOccurrence{}, core.WrapStorage("get occurrence", err)
	}
	return row.toCore(), nil
}

func (r *Repository) CreateOccurrence(ctx context.Context, occ core.RecurringOccurrence) (core.RecurringOccurrence, error) {
	if occ.ID == "" {
		occ.ID = uuid.NewString()
	}
	if occ.CreatedAt.IsZero() {
		occ.CreatedAt = r.now()
	}
	row := recurringOccurrenceRow{
		ID: occ.ID, UserID: occ.UserID, DefinitionID: occ.DefinitionID, DueDate: occ.DueDate,
		MonthKey: occ.MonthKey(), Amount: int64(occ.Amount), State: string(occ.State), CreatedAt: occ.CreatedAt,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "definition_id"}, {Name: "month_key"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return core.RecurringOccurrence{}, core.WrapStorage("create occurrence", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.RecurringOccurrence{}, core.ErrOccurrenceExists
	}
	return row.toCore(), nil
}

func (r *Repository) UpdateOccurrenceState(ctx context.Context, userID, id string, state core.OccurrenceState, at *time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&recurringOccurrenceRow{}).
		Where("id = ? AND user_id = ? AND state = ?", id, userID, string(core.StatePending)).
		Updates(map[string]any{"state": string(state), "confirmed_at": at})
	if res.Error != nil {
		return core.WrapStorage("update occurrence state", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	cur, err := r.GetOccurrence(ctx, userID, id)
	if err != nil {
		return err
	}
	return core.NewValidationError("state", core.ErrNotPending, fmt.Sprintf("occurrence %s is already %s", id, cur.State))
}

func (r *Repository) FetchCategories(ctx context.Context, userID string) ([]core.CategoryDefinition, error) {
	var rows []categoryRow
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name, id").Find(&rows).Error; err != nil {
		return nil, core.WrapStorage("fetch categories", err)
	}
	out := make([]core.CategoryDefinition, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.CategoryDefinition{
			ID: row.ID, UserID: row.UserID, Name: row.Name, IconName: row.IconName, Active: row.Active,
		})
	}
	return out, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c core.CategoryDefinition) (core.CategoryDefinition, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row := categoryRow{ID: c.ID, UserID: c.UserID, Name: c.Name, IconName: c.IconName, Active: c.Active}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.CategoryDefinition{}, core.WrapStorage("create category", err)
	}
	return c, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.CategoryDefinition) (core.CategoryDefinition, error) {
	res := r.db.WithContext(ctx).
		Model(&categoryRow{}).
		Where("id = ? AND user_id = ?", c.ID, c.UserID).
		Updates(map[string]any{
			"name":      c.Name,
			"icon_name": c.IconName,
			"active":    c.Active,
		})
	if res.Error != nil {
		return core.CategoryDefinition{}, core.WrapStorage("update category", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.CategoryDefinition{}, &core.NotFoundError{Kind: "category", ID: c.ID}
	}
	return c, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, userID, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var used int64
		if err := tx.Model(&expenseRow{}).
			Where("user_id = ? AND category_id = ?", userID, id).
			Count(&used).Error; err != nil {
			return err
		}
		var found int64
		if err := tx.Model(&categoryRow{}).
			Where("id = ? AND user_id = ?", id, userID).
			Count(&found).Error; err != nil {
			return err
		}
		if found == 0 {
			return &core.NotFoundError{Kind: "category", ID: id}
		}
		if used > 0 {
			return core.NewValidationError("category_id", core.ErrCategoryInUse, "category has expenses, deactivate it instead")
		}
		if err := tx.Delete(&categoryLimitRow{}, "user_id = ? AND category_id = ?", userID, id).Error; err != nil {
			return err
		}
		return tx.Delete(&categoryRow{}, "id = ? AND user_id = ?", id, userID).Error
	})
	return core.WrapStorage("delete category", err)
}

func (r *Repository) FetchCategoryLimits(ctx context.Context, userID string) ([]core.CategoryLimit, error) {
	var rows []categoryLimitRow
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("category_id").Find(&rows).Error; err != nil {
		return nil, core.WrapStorage("fetch category limits", err)
	}
	out := make([]core.CategoryLimit, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.CategoryLimit{UserID: row.UserID, CategoryID: row.CategoryID, MonthlyLimit: core.Amount(row.MonthlyLimit)})
	}
	return out, nil
}

func (r *Repository) UpsertCategoryLimit(ctx context.Context, userID, categoryID string, limit core.Amount) error {
	row := categoryLimitRow{UserID: userID, CategoryID: categoryID, MonthlyLimit: int64(limit)}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "category_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"monthly_limit"}),
		}).
		Create(&row).Error
	return core.WrapStorage("upsert category limit", err)
}

func (r *Repository) DeleteCategoryLimit(ctx context.Context, userID, categoryID string) error {
	err := r.db.WithContext(ctx).
		Delete(&categoryLimitRow{}, "user_id = ? AND category_id = ?", userID, categoryID).Error
	return core.WrapStorage("delete category limit", err)
}

func (r *Repository) FetchExpensesInRange(ctx context.Context, userID string, rng core.DateRange, categoryID string) ([]core.Expense, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, rng.Start, rng.End)
	if categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	var rows []expenseRow
	if err := query.Order("date desc, created_at desc").Find(&rows).Error; err != nil {
		return nil, core.WrapStorage("fetch expenses", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCore())
	}
	return out, nil
}

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	row := expenseRow{
		ID: e.ID, UserID: e.UserID, CategoryID: e.CategoryID, Date: e.Date,
		Amount: int64(e.Amount), Note: e.Note, CreatedAt: e.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.Expense{}, core.WrapStorage("create expense", err)
	}
	return row.toCore(), nil
}

func (r *Repository) GetExpense(ctx context.Context, userID, id string) (core.Expense, error) {
	var row expenseRow
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Expense{}, &core.NotFoundError{Kind: "expense", ID: id}
	}
	if err != nil {
		return core.Expense{}, core.WrapStorage("get expense", err)
	}
	return row.toCore(), nil
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res := r.db.WithContext(ctx).
		Model(&expenseRow{}).
		Where("id = ? AND user_id = ?", e.ID, e.UserID).
		Updates(map[string]any{
			"category_id": e.CategoryID,
			"date":        e.Date,
			"amount":      int64(e.Amount),
			"note":        e.Note,
		})
	if res.Error != nil {
		return core.Expense{}, core.WrapStorage("update expense", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.Expense{}, &core.NotFoundError{Kind: "expense", ID: e.ID}
	}
	return r.GetExpense(ctx, e.UserID, e.ID)
}

func (r *Repository) DeleteExpense(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Delete(&expenseRow{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return core.WrapStorage("delete expense", res.Error)
	}
	if res.RowsAffected == 0 {
		return &core.NotFoundError{Kind: "expense", ID: id}
	}
	return nil
}

func (r *Repository) GetSettings(ctx context.Context, userID string) (core.UserSettings, error) {
	var row userSettingsRow
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.DefaultSettings(userID), nil
	}
	if err != nil {
		return core.UserSettings{}, core.WrapStorage("get settings", err)
	}
	return core.UserSettings{UserID: row.UserID, LimitsEnabled: row.LimitsEnabled, NotifyAtPercent: row.NotifyAtPercent}, nil
}

func (r *Repository) SaveSettings(ctx context.Context, s core.UserSettings) error {
	row := userSettingsRow{UserID: s.UserID, LimitsEnabled: s.LimitsEnabled, NotifyAtPercent: s.NotifyAtPercent}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"limits_enabled", "notify_at_percent"}),
		}).
		Create(&row).Error
	return core.WrapStorage("save settings", err)
}

func (r *Repository) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Raw(`
		SELECT user_id FROM recurring_definitions
		UNION SELECT user_id FROM categories
		UNION SELECT user_id FROM expenses
		UNION SELECT user_id FROM user_settings
		ORDER BY user_id`).Scan(&ids).Error
	if err != nil {
		return nil, core.WrapStorage("list users", err)
	}
	return ids, nil
}
