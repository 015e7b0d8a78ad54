package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/odvoz/internal/model"
)

// AppendNotification stores n, assigning its ID and creation time when unset.
func AppendNotification(ctx context.Context, db DBTX, n *model.Notification) error {
	if n.ID == "" {
		n.ID = newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, receiver_id, message, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, nullIfEmpty(n.UserID), nullIfEmpty(n.ReceiverID), n.Message, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending notification: %w", err)
	}
	return nil
}

// ListNotifications returns a mailbox's notifications, newest first. A
// non-positive limit returns all of them.
func ListNotifications(ctx context.Context, db DBTX, to model.Recipient, limit int) ([]model.Notification, error) {
	query := `SELECT id, user_id, receiver_id, message, is_read, created_at
	          FROM notifications WHERE ` + recipientColumn(to) + ` = ?
	          ORDER BY created_at DESC, rowid DESC`
	args := []any{to.ID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		var userID, receiverID sql.NullString
		if err := rows.Scan(&n.ID, &userID, &receiverID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		n.UserID = userID.String
		n.ReceiverID = receiverID.String
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead sets the read flag on a notification in the given
// mailbox. It reports whether such a notification exists.
func MarkNotificationRead(ctx context.Context, db DBTX, id string, to model.Recipient) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND `+recipientColumn(to)+` = ?`,
		id, to.ID,
	)
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	return n > 0, nil
}

func recipientColumn(to model.Recipient) string {
	if to.IsReceiver {
		return "receiver_id"
	}
	return "user_id"
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
