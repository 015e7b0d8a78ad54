package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/odvoz/internal/model"
)

// CreateFeedback stores a contact submission.
func CreateFeedback(ctx context.Context, db DBTX, name, email, phone, message string) (*model.Feedback, error) {
	id := newID()
	_, err := db.ExecContext(ctx,
		`INSERT INTO feedback (id, name, email, phone, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, model.NormalizeEmail(email), phone, message, now(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating feedback: %w", err)
	}
	return GetFeedback(ctx, db, id)
}

// GetFeedback returns a submission by ID.
func GetFeedback(ctx context.Context, db DBTX, id string) (*model.Feedback, error) {
	f := &model.Feedback{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, message, admin_response, created_at FROM feedback WHERE id = ?`, id,
	).Scan(&f.ID, &f.Name, &f.Email, &f.Phone, &f.Message, &f.AdminResponse, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting feedback: %w", err)
	}
	return f, nil
}

// ListFeedback returns submissions, newest first, optionally only those sent
// from email.
func ListFeedback(ctx context.Context, db DBTX, email string) ([]model.Feedback, error) {
	query := `SELECT id, name, email, phone, message, admin_response, created_at FROM feedback`
	var args []any
	if email != "" {
		query += ` WHERE email = ?`
		args = append(args, model.NormalizeEmail(email))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	defer rows.Close()

	var list []model.Feedback
	for rows.Next() {
		var f model.Feedback
		if err := rows.Scan(&f.ID, &f.Name, &f.Email, &f.Phone, &f.Message, &f.AdminResponse, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

// SetFeedbackResponse records the admin's answer to a submission.
func SetFeedbackResponse(ctx context.Context, db DBTX, id, response string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE feedback SET admin_response = ? WHERE id = ?`, response, id,
	)
	if err != nil {
		return fmt.Errorf("updating feedback response: %w", err)
	}
	return nil
}
