package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"atlas/internal/core"
)

var transactionColumns = []string{
	"id", "user_id", "type", "amount", "name", "category", "date",
	"due_day", "recurrence_type", "master_id", "current_installment",
	"total_installments", "end_date", "notes", "auto_debit",
	"created_at", "updated_at",
}

// columns renders the transaction column list, qualified by alias when set.
func columns(alias string) string {
	if alias == "" {
		return strings.Join(transactionColumns, ", ")
	}
	qualified := make([]string, len(transactionColumns))
	for i, c := range transactionColumns {
		qualified[i] = alias + "." + c
	}
	return strings.Join(qualified, ", ")
}

func scanTransaction(row rowScanner, extra ...any) (core.Transaction, error) {
	var (
		t                      core.Transaction
		dueDay, current, total sql.NullInt64
		recurrence, master     sql.NullString
		endDate                sql.NullString
		createdAt, updatedAt   timestamp
	)
	dest := []any{
		&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Name, &t.Category, &t.Date,
		&dueDay, &recurrence, &master, &current,
		&total, &endDate, &t.Notes, &t.AutoDebit,
		&createdAt, &updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return core.Transaction{}, err
	}

	t.DueDay = intPtr(dueDay)
	t.RecurrenceType = stringPtr(recurrence)
	t.MasterID = stringPtr(master)
	t.CurrentInstallment = intPtr(current)
	t.TotalInstallments = intPtr(total)
	if endDate.Valid && endDate.String != "" {
		var d core.Date
		if err := d.Scan(endDate.String); err != nil {
			return core.Transaction{}, err
		}
		t.EndDate = &d
	}
	t.CreatedAt = createdAt.Time
	t.UpdatedAt = updatedAt.Time
	return t, nil
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTransactions returns every row owned by userID, newest date first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	txs, err := r.queryTransactions(ctx,
		`SELECT `+columns("")+` FROM transactions
		 WHERE user_id = ?
		 ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// ListTransactionsByMonth filters on the calendar year and month of the
// stored date. due_day plays no part in it.
func (r *SQLiteRepository) ListTransactionsByMonth(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error) {
	txs, err := r.queryTransactions(ctx,
		`SELECT `+columns("")+` FROM transactions
		 WHERE user_id = ?
		   AND CAST(strftime('%Y', date) AS INTEGER) = ?
		   AND CAST(strftime('%m', date) AS INTEGER) = ?
		 ORDER BY date DESC, id DESC`, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %04d-%02d: %w", year, month, err)
	}
	return txs, nil
}

// ListSeries returns the rows of one series in installment order.
func (r *SQLiteRepository) ListSeries(ctx context.Context, userID int64, masterID string) ([]core.Transaction, error) {
	txs, err := r.queryTransactions(ctx,
		`SELECT `+columns("")+` FROM transactions
		 WHERE user_id = ? AND master_id = ?
		 ORDER BY COALESCE(current_installment, 0), date, id`, userID, masterID)
	if err != nil {
		return nil, fmt.Errorf("list series %q: %w", masterID, err)
	}
	return txs, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+columns("")+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := r.stamp()
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO transactions (
			user_id, type, amount, name, category, date, due_day, recurrence_type,
			master_id, current_installment, total_installments, end_date, notes,
			auto_debit, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+columns(""),
		t.UserID, t.Type, t.Amount, t.Name, t.Category, t.Date, nullInt(t.DueDay), nullString(t.RecurrenceType),
		nullString(t.MasterID), nullInt(t.CurrentInstallment), nullInt(t.TotalInstallments), endDateValue(t.EndDate), t.Notes,
		t.AutoDebit, now, now)

	created, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", created.ID,
		"user_id", created.UserID,
		"type", created.Type,
		"amount", created.Amount.String(),
		"date", created.Date.String())

	return created, nil
}

// UpdateTransaction overwrites the stored row with t. The row must belong to
// t.UserID.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE transactions SET
			type = ?, amount = ?, name = ?, category = ?, date = ?, due_day = ?,
			recurrence_type = ?, master_id = ?, current_installment = ?,
			total_installments = ?, end_date = ?, notes = ?, auto_debit = ?,
			updated_at = ?
		WHERE id = ? AND user_id = ?
		RETURNING `+columns(""),
		t.Type, t.Amount, t.Name, t.Category, t.Date, nullInt(t.DueDay),
		nullString(t.RecurrenceType), nullString(t.MasterID), nullInt(t.CurrentInstallment),
		nullInt(t.TotalInstallments), endDateValue(t.EndDate), t.Notes, t.AutoDebit,
		r.stamp(),
		t.ID, t.UserID)

	updated, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	return updated, nil
}

// DeleteTransaction removes an owned row together with its read
// acknowledgement, atomically.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete transaction %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete transaction %d: %w", id, err)
		}
		if n == 0 {
			return core.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM read_notifications WHERE user_id = ? AND transaction_id = ?`, userID, id); err != nil {
			return fmt.Errorf("delete read notification %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", userID)
	return nil
}

// CountTransactionsByCategory reports how many of the user's rows carry the
// category name.
func (r *SQLiteRepository) CountTransactionsByCategory(ctx context.Context, userID int64, category string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = ? AND category = ?`, userID, category).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions for category %q: %w", category, err)
	}
	return n, nil
}

func endDateValue(d *core.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
