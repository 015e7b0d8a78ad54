// Package store persists accounts, pickup requests and their side records in
// SQLite. Lookups return (nil, nil) when the row does not exist.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so read-modify-write
// sequences can run inside a caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ErrEmailTaken is returned when an account email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// newID returns a fresh random identifier.
func newID() string {
	return uuid.NewString()
}

// now returns the current time without a monotonic reading, as stored.
func now() time.Time {
	return time.Now().UTC()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
