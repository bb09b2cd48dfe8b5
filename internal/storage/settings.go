package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"atlas/internal/core"
)

const settingsColumns = "user_id, total_savings, savings_goal, monthly_budget, savings_rate"

func scanSettings(row rowScanner) (core.Settings, error) {
	var s core.Settings
	err := row.Scan(&s.UserID, &s.TotalSavings, &s.SavingsGoal, &s.MonthlyBudget, &s.SavingsRate)
	return s, err
}

// GetSettings returns core.ErrNotFound when the user has no settings row yet.
func (r *SQLiteRepository) GetSettings(ctx context.Context, userID int64) (core.Settings, error) {
	s, err := scanSettings(r.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM user_settings WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settings{}, core.ErrNotFound
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

// UpsertSettings writes the full settings row for s.UserID.
func (r *SQLiteRepository) UpsertSettings(ctx context.Context, s core.Settings) (core.Settings, error) {
	saved, err := scanSettings(r.db.QueryRowContext(ctx,
		`INSERT INTO user_settings (`+settingsColumns+`)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		     total_savings = excluded.total_savings,
		     savings_goal = excluded.savings_goal,
		     monthly_budget = excluded.monthly_budget,
		     savings_rate = excluded.savings_rate
		 RETURNING `+settingsColumns,
		s.UserID, s.TotalSavings, s.SavingsGoal, s.MonthlyBudget, s.SavingsRate.String()))
	if err != nil {
		return core.Settings{}, fmt.Errorf("upsert settings: %w", err)
	}
	return saved, nil
}

func insertSettings(ctx context.Context, tx *sql.Tx, s core.Settings) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO user_settings (`+settingsColumns+`) VALUES (?, ?, ?, ?, ?)`,
		s.UserID, s.TotalSavings, s.SavingsGoal, s.MonthlyBudget, s.SavingsRate.String())
	if err != nil {
		return fmt.Errorf("insert default settings: %w", err)
	}
	return nil
}
