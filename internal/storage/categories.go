package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"atlas/internal/core"
)

const categoryColumns = "id, user_id, name, type, icon, color, is_default, is_active, display_order, created_at"

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c         core.Category
		createdAt timestamp
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Icon, &c.Color,
		&c.IsDefault, &c.IsActive, &c.DisplayOrder, &createdAt)
	c.CreatedAt = createdAt.Time
	return c, err
}

// ListCategories returns the user's active categories, optionally of one
// type, ordered by type, display order and name.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64, typ core.CategoryType) ([]core.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM user_categories WHERE user_id = ? AND is_active = 1`
	args := []any{userID}
	if typ != "" {
		query += ` AND type = ?`
		args = append(args, typ)
	}
	query += ` ORDER BY type, display_order, name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM user_categories WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

// CreateCategory appends c after the last category of its type. A duplicate
// (user, name, type) yields core.ErrConflict.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	created, err := scanCategory(r.db.QueryRowContext(ctx,
		`INSERT INTO user_categories (user_id, name, type, icon, color, is_default, is_active, display_order, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, 1,
		         (SELECT COALESCE(MAX(display_order), 0) + 1 FROM user_categories WHERE user_id = ? AND type = ?),
		         ?)
		 RETURNING `+categoryColumns,
		c.UserID, c.Name, c.Type, c.Icon, c.Color, c.UserID, c.Type, r.stamp()))
	if isUniqueViolation(err) {
		return core.Category{}, core.ErrConflict
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	updated, err := scanCategory(r.db.QueryRowContext(ctx,
		`UPDATE user_categories SET name = ?, icon = ?, color = ?, display_order = ?
		 WHERE id = ? AND user_id = ?
		 RETURNING `+categoryColumns,
		c.Name, c.Icon, c.Color, c.DisplayOrder, c.ID, c.UserID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if isUniqueViolation(err) {
		return core.Category{}, core.ErrConflict
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return updated, nil
}

// DeactivateCategory hides the category from listings while keeping the row.
func (r *SQLiteRepository) DeactivateCategory(ctx context.Context, userID, id int64) error {
	return r.execOwned(ctx, "deactivate category",
		`UPDATE user_categories SET is_active = 0 WHERE id = ? AND user_id = ?`, id, userID)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id int64) error {
	return r.execOwned(ctx, "delete category",
		`DELETE FROM user_categories WHERE id = ? AND user_id = ?`, id, userID)
}

// execOwned runs a single-row statement and maps zero affected rows to
// core.ErrNotFound.
func (r *SQLiteRepository) execOwned(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func insertDefaultCategories(ctx context.Context, tx *sql.Tx, userID int64, createdAt string) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO user_categories (user_id, name, type, icon, color, is_default, is_active, display_order, created_at)
		 VALUES (?, ?, ?, ?, ?, 1, 1, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare default categories: %w", err)
	}
	defer stmt.Close()

	for _, c := range core.DefaultCategories() {
		if _, err := stmt.ExecContext(ctx, userID, c.Name, c.Type, c.Icon, c.Color, c.DisplayOrder, createdAt); err != nil {
			return fmt.Errorf("insert default category %q: %w", c.Name, err)
		}
	}
	return nil
}
