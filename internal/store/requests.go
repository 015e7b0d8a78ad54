package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erazemk/odvoz/internal/model"
)

const requestColumns = `id, user_id, user_email, full_name, category, recycle_item, model,
	device_condition, device_image_url, accessories, pickup_date, pickup_time, address,
	preferred_contact_number, alternate_contact_number, special_instructions,
	assigned_receiver, receiver_name, receiver_email, receiver_phone,
	status, collection_notes, collection_proof, created_at, updated_at`

// RequestFilter narrows a request listing. Empty fields do not filter.
type RequestFilter struct {
	OwnerID    string
	ReceiverID string
	Status     string
	Limit      int
	Offset     int
}

// CreateRequest inserts a new pickup request. ID and timestamps are assigned
// here; the remaining fields are stored as given.
func CreateRequest(ctx context.Context, db DBTX, r *model.PickupRequest) (*model.PickupRequest, error) {
	accessories, err := encodeAccessories(r.Accessories)
	if err != nil {
		return nil, err
	}

	id := newID()
	ts := now()
	_, err = db.ExecContext(ctx,
		`INSERT INTO pickup_requests (`+requestColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.UserID, r.UserEmail, r.FullName, r.Category, r.RecycleItem, r.Model,
		r.DeviceCondition, r.DeviceImageURL, accessories, r.PickupDate, r.PickupTime, r.Address,
		r.PreferredContactNumber, r.AlternateContactNumber, r.SpecialInstructions,
		r.AssignedReceiver, r.ReceiverName, r.ReceiverEmail, r.ReceiverPhone,
		r.Status, r.CollectionNotes, r.CollectionProof, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	return GetRequest(ctx, db, id)
}

// GetRequest returns a pickup request by ID.
func GetRequest(ctx context.Context, db DBTX, id string) (*model.PickupRequest, error) {
	r, err := scanRequest(db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM pickup_requests WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}
	return r, nil
}

// ListRequests returns requests matching f, newest first, together with the
// total number of matches ignoring Limit and Offset.
func ListRequests(ctx context.Context, db DBTX, f RequestFilter) ([]model.PickupRequest, int, error) {
	where, args := f.where()

	var total int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pickup_requests`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting requests: %w", err)
	}

	query := `SELECT ` + requestColumns + ` FROM pickup_requests` + where +
		` ORDER BY created_at DESC, rowid DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	requests, err := scanRequests(rows)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func (f RequestFilter) where() (string, []any) {
	var conds []string
	var args []any

	if f.OwnerID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.ReceiverID != "" {
		conds = append(conds, "assigned_receiver = ?")
		args = append(args, f.ReceiverID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// UpdateRequest writes all mutable fields of r back to the store.
func UpdateRequest(ctx context.Context, db DBTX, r *model.PickupRequest) error {
	accessories, err := encodeAccessories(r.Accessories)
	if err != nil {
		return err
	}

	r.UpdatedAt = now()
	_, err = db.ExecContext(ctx,
		`UPDATE pickup_requests SET
		     category = ?, recycle_item = ?, model = ?, device_condition = ?,
		     device_image_url = ?, accessories = ?, pickup_date = ?, pickup_time = ?,
		     address = ?, preferred_contact_number = ?, alternate_contact_number = ?,
		     special_instructions = ?, assigned_receiver = ?, receiver_name = ?,
		     receiver_email = ?, receiver_phone = ?, status = ?, collection_notes = ?,
		     collection_proof = ?, updated_at = ?
		 WHERE id = ?`,
		r.Category, r.RecycleItem, r.Model, r.DeviceCondition,
		r.DeviceImageURL, accessories, r.PickupDate, r.PickupTime,
		r.Address, r.PreferredContactNumber, r.AlternateContactNumber,
		r.SpecialInstructions, r.AssignedReceiver, r.ReceiverName,
		r.ReceiverEmail, r.ReceiverPhone, r.Status, r.CollectionNotes,
		r.CollectionProof, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("updating request: %w", err)
	}
	return nil
}

// SetAllRequestStatus sets status on every request not already in it and
// returns the requests that changed, as they are after the update. Moving
// requests back to pending also drops their receiver assignment.
func SetAllRequestStatus(ctx context.Context, db DBTX, status string) ([]model.PickupRequest, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM pickup_requests WHERE status <> ?
		 ORDER BY created_at DESC, rowid DESC`, status,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting requests for bulk update: %w", err)
	}
	changed, err := scanRequests(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	ts := now()
	query := `UPDATE pickup_requests SET status = ?, updated_at = ? WHERE status <> ?`
	args := []any{status, ts, status}
	unassign := status == model.StatusPending
	if unassign {
		query = `UPDATE pickup_requests SET status = ?, updated_at = ?,
		     assigned_receiver = ?, receiver_name = '', receiver_email = '', receiver_phone = ''
		 WHERE status <> ?`
		args = []any{status, ts, model.NotAssigned, status}
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("bulk updating request status: %w", err)
	}

	for i := range changed {
		changed[i].Status = status
		changed[i].UpdatedAt = ts
		if unassign {
			changed[i].AssignedReceiver = model.NotAssigned
			changed[i].ReceiverName = ""
			changed[i].ReceiverEmail = ""
			changed[i].ReceiverPhone = ""
		}
	}
	return changed, nil
}

// DeleteRequest removes a single request.
func DeleteRequest(ctx context.Context, db DBTX, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM pickup_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting request: %w", err)
	}
	return nil
}

// DeleteRequestsByOwner removes every request owned by ownerID and returns
// the number removed.
func DeleteRequestsByOwner(ctx context.Context, db DBTX, ownerID string) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM pickup_requests WHERE user_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("deleting requests: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting requests: %w", err)
	}
	return n, nil
}

func scanRequests(rows *sql.Rows) ([]model.PickupRequest, error) {
	var requests []model.PickupRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

func scanRequest(row rowScanner) (*model.PickupRequest, error) {
	r := &model.PickupRequest{}
	var accessories string
	err := row.Scan(&r.ID, &r.UserID, &r.UserEmail, &r.FullName, &r.Category, &r.RecycleItem, &r.Model,
		&r.DeviceCondition, &r.DeviceImageURL, &accessories, &r.PickupDate, &r.PickupTime, &r.Address,
		&r.PreferredContactNumber, &r.AlternateContactNumber, &r.SpecialInstructions,
		&r.AssignedReceiver, &r.ReceiverName, &r.ReceiverEmail, &r.ReceiverPhone,
		&r.Status, &r.CollectionNotes, &r.CollectionProof, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(accessories), &r.Accessories); err != nil {
		return nil, fmt.Errorf("decoding accessories: %w", err)
	}
	if r.Accessories == nil {
		r.Accessories = []string{}
	}
	return r, nil
}

func encodeAccessories(accessories []string) (string, error) {
	if accessories == nil {
		accessories = []string{}
	}
	data, err := json.Marshal(accessories)
	if err != nil {
		return "", fmt.Errorf("encoding accessories: %w", err)
	}
	return string(data), nil
}
