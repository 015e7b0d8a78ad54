package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/odvoz/internal/model"
)

const receiverColumns = `id, name, email, phone, password_hash, approved, created_at`

// CreateReceiver registers a collection partner. New receivers start unapproved.
func CreateReceiver(ctx context.Context, db DBTX, name, email, phone, passwordHash string) (*model.Receiver, error) {
	id := newID()
	_, err := db.ExecContext(ctx,
		`INSERT INTO receivers (id, name, email, phone, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, model.NormalizeEmail(email), phone, passwordHash, now(),
	)
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("creating receiver: %w", err)
	}

	return GetReceiver(ctx, db, id)
}

// GetReceiver returns a receiver by ID.
func GetReceiver(ctx context.Context, db DBTX, id string) (*model.Receiver, error) {
	r, err := scanReceiver(db.QueryRowContext(ctx,
		`SELECT `+receiverColumns+` FROM receivers WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting receiver: %w", err)
	}
	return r, nil
}

// GetReceiverByEmail returns a receiver by email address.
func GetReceiverByEmail(ctx context.Context, db DBTX, email string) (*model.Receiver, error) {
	r, err := scanReceiver(db.QueryRowContext(ctx,
		`SELECT `+receiverColumns+` FROM receivers WHERE email = ?`, model.NormalizeEmail(email),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting receiver by email: %w", err)
	}
	return r, nil
}

// ListReceivers returns all receivers, newest first.
func ListReceivers(ctx context.Context, db DBTX) ([]model.Receiver, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+receiverColumns+` FROM receivers ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing receivers: %w", err)
	}
	defer rows.Close()

	var receivers []model.Receiver
	for rows.Next() {
		r, err := scanReceiver(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning receiver: %w", err)
		}
		receivers = append(receivers, *r)
	}
	return receivers, rows.Err()
}

// SetReceiverApproved sets a receiver's approval flag. It reports whether the
// receiver exists.
func SetReceiverApproved(ctx context.Context, db DBTX, id string, approved bool) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE receivers SET approved = ? WHERE id = ?`, approved, id,
	)
	if err != nil {
		return false, fmt.Errorf("updating receiver approval: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating receiver approval: %w", err)
	}
	return n > 0, nil
}

// UpdateReceiverPassword updates a receiver's password hash.
func UpdateReceiverPassword(ctx context.Context, db DBTX, id, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE receivers SET password_hash = ? WHERE id = ?`, passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating receiver password: %w", err)
	}
	return nil
}

func scanReceiver(row rowScanner) (*model.Receiver, error) {
	r := &model.Receiver{}
	if err := row.Scan(&r.ID, &r.Name, &r.Email, &r.Phone, &r.PasswordHash, &r.Approved, &r.CreatedAt); err != nil {
		return nil, err
	}
	return r, nil
}
