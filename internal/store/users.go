package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/odvoz/internal/model"
)

const userColumns = `id, name, email, phone, password_hash, role, approved, created_at`

// CreateUser creates a new requester or admin account.
func CreateUser(ctx context.Context, db DBTX, name, email, phone, passwordHash, role string) (*model.User, error) {
	id := newID()
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, phone, password_hash, role, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, name, model.NormalizeEmail(email), phone, passwordHash, role, now(),
	)
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db DBTX, id string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns a user by email address.
func GetUserByEmail(ctx context.Context, db DBTX, email string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, model.NormalizeEmail(email),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns all users, newest first.
func ListUsers(ctx context.Context, db DBTX) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ListAdminIDs returns the IDs of all admin accounts.
func ListAdminIDs(ctx context.Context, db DBTX) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id FROM users WHERE role = ? ORDER BY rowid`, model.RoleAdmin,
	)
	if err != nil {
		return nil, fmt.Errorf("listing admins: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning admin id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetUserApproved sets a user's approval flag. It reports whether the user exists.
func SetUserApproved(ctx context.Context, db DBTX, id string, approved bool) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET approved = ? WHERE id = ?`, approved, id,
	)
	if err != nil {
		return false, fmt.Errorf("updating user approval: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating user approval: %w", err)
	}
	return n > 0, nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db DBTX, id, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.Approved, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}
