// Package notify delivers notifications to a persistent mailbox through an
// in-process queue. Delivery is at-most-once: a notification that cannot be
// queued or stored is logged and dropped.
package notify

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/erazemk/odvoz/internal/model"
	"github.com/erazemk/odvoz/internal/store"
)

// Sink persists notifications and serves mailbox reads.
type Sink interface {
	Append(ctx context.Context, n *model.Notification) error
	List(ctx context.Context, to model.Recipient, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id string, to model.Recipient) (bool, error)
}

// SQLSink keeps notifications in the application database.
type SQLSink struct {
	DB *sql.DB
}

func (s *SQLSink) Append(ctx context.Context, n *model.Notification) error {
	return store.AppendNotification(ctx, s.DB, n)
}

func (s *SQLSink) List(ctx context.Context, to model.Recipient, limit int) ([]model.Notification, error) {
	return store.ListNotifications(ctx, s.DB, to, limit)
}

func (s *SQLSink) MarkRead(ctx context.Context, id string, to model.Recipient) (bool, error) {
	return store.MarkNotificationRead(ctx, s.DB, id, to)
}

// Direct delivers each notification synchronously on the caller's goroutine.
// It keeps the at-most-once contract of Queue without buffering.
type Direct struct {
	Sink Sink
}

func (d Direct) Enqueue(n model.Notification) bool {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := d.Sink.Append(ctx, &n); err != nil {
		r := n.Recipient()
		slog.Error("failed to deliver notification",
			"recipient", r.ID, "receiver", r.IsReceiver, "error", err)
		return false
	}
	return true
}
