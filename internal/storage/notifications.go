package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"atlas/internal/core"
)

// MarkRead acknowledges the reminder of one owned transaction. Marking an
// already acknowledged row is a no-op.
func (r *SQLiteRepository) MarkRead(ctx context.Context, userID, transactionID int64) error {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM transactions WHERE id = ? AND user_id = ?`, transactionID, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check transaction %d: %w", transactionID, err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO read_notifications (user_id, transaction_id, read_at)
		 SELECT user_id, id, ? FROM transactions WHERE id = ? AND user_id = ?
		 ON CONFLICT (user_id, transaction_id) DO NOTHING`,
		r.stamp(), transactionID, userID)
	if err != nil {
		return fmt.Errorf("mark notification %d read: %w", transactionID, err)
	}
	return nil
}

// MarkAllRead acknowledges every unread, non auto-debit expense of the user
// dated within [from, to], both ends inclusive, and returns how many rows it
// acknowledged. Concurrent calls race benignly on the primary key.
func (r *SQLiteRepository) MarkAllRead(ctx context.Context, userID int64, from, to core.Date) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO read_notifications (user_id, transaction_id, read_at)
		 SELECT t.user_id, t.id, ? FROM transactions t
		 WHERE t.user_id = ?
		   AND t.type = 'expense'
		   AND t.auto_debit = 0
		   AND t.date BETWEEN ? AND ?
		   AND NOT EXISTS (
		       SELECT 1 FROM read_notifications rn
		       WHERE rn.user_id = t.user_id AND rn.transaction_id = t.id
		   )
		 ON CONFLICT (user_id, transaction_id) DO NOTHING`,
		r.stamp(), userID, from, to)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	slog.InfoContext(ctx, "Notifications marked read",
		"user_id", userID, "from", from.String(), "to", to.String(), "count", n)
	return n, nil
}

// ListUpcoming returns the user's non auto-debit expenses dated within
// [from, to] in due order, each with its acknowledgement state.
func (r *SQLiteRepository) ListUpcoming(ctx context.Context, userID int64, from, to core.Date) ([]core.Reminder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columns("t")+`,
		        EXISTS (
		            SELECT 1 FROM read_notifications rn
		            WHERE rn.user_id = t.user_id AND rn.transaction_id = t.id
		        )
		 FROM transactions t
		 WHERE t.user_id = ?
		   AND t.type = 'expense'
		   AND t.auto_debit = 0
		   AND t.date BETWEEN ? AND ?
		 ORDER BY t.date, t.id`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list upcoming: %w", err)
	}
	defer rows.Close()

	out := []core.Reminder{}
	for rows.Next() {
		var read bool
		t, err := scanTransaction(rows, &read)
		if err != nil {
			return nil, fmt.Errorf("scan upcoming: %w", err)
		}
		out = append(out, core.Reminder{
			Transaction: t,
			DaysUntil:   from.DaysUntil(t.Date),
			Read:        read,
		})
	}
	return out, rows.Err()
}

// ListPendingReminders returns, across all users, the unacknowledged non
// auto-debit expenses dated within [from, to].
func (r *SQLiteRepository) ListPendingReminders(ctx context.Context, from, to core.Date) ([]core.Transaction, error) {
	txs, err := r.queryTransactions(ctx,
		`SELECT `+columns("t")+` FROM transactions t
		 WHERE t.type = 'expense'
		   AND t.auto_debit = 0
		   AND t.date BETWEEN ? AND ?
		   AND NOT EXISTS (
		       SELECT 1 FROM read_notifications rn
		       WHERE rn.user_id = t.user_id AND rn.transaction_id = t.id
		   )
		 ORDER BY t.date, t.user_id, t.id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list pending reminders: %w", err)
	}
	return txs, nil
}

// ReadTransactionIDs lists the acknowledged transaction ids of the user.
func (r *SQLiteRepository) ReadTransactionIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT transaction_id FROM read_notifications WHERE user_id = ? ORDER BY transaction_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list read notifications: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan read notification: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
