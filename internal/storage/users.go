package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"atlas/internal/core"
)

const userColumns = "id, phone, email, name, password_hash, is_admin, created_at"

func scanUser(row rowScanner) (core.User, error) {
	var (
		u         core.User
		createdAt timestamp
	)
	err := row.Scan(&u.ID, &u.Phone, &u.Email, &u.Name, &u.PasswordHash, &u.IsAdmin, &createdAt)
	u.CreatedAt = createdAt.Time
	return u, err
}

// CreateUser inserts the account together with its default settings and
// default categories in one transaction. A taken phone or email yields
// core.ErrConflict.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	var created core.User
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := r.stamp()
		var err error
		created, err = scanUser(tx.QueryRowContext(ctx,
			`INSERT INTO users (phone, email, name, password_hash, is_admin, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 RETURNING `+userColumns,
			u.Phone, u.Email, u.Name, u.PasswordHash, u.IsAdmin, now))
		if isUniqueViolation(err) {
			return core.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		if err := insertSettings(ctx, tx, core.DefaultSettings(created.ID)); err != nil {
			return err
		}
		return insertDefaultCategories(ctx, tx, created.ID, now)
	})
	if err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "User created", "user_id", created.ID, "is_admin", created.IsAdmin)
	return created, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	return r.getUser(ctx, "id", id)
}

func (r *SQLiteRepository) GetUserByPhone(ctx context.Context, phone string) (core.User, error) {
	return r.getUser(ctx, "phone", phone)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, "email", email)
}

// getUser looks a user up by one of the unique columns above.
func (r *SQLiteRepository) getUser(ctx context.Context, column string, value any) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by %s: %w", column, err)
	}
	return u, nil
}

// Stats counts users and ledger rows across the whole instance.
func (r *SQLiteRepository) Stats(ctx context.Context) (core.AdminStats, error) {
	var s core.AdminStats
	err := r.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM users), (SELECT COUNT(*) FROM transactions)`).
		Scan(&s.Users, &s.Transactions)
	if err != nil {
		return core.AdminStats{}, fmt.Errorf("count stats: %w", err)
	}
	return s, nil
}
