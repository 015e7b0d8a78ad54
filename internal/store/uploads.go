package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/odvoz/internal/model"
)

// CreateUpload stores an image blob and returns its metadata.
func CreateUpload(ctx context.Context, db DBTX, data []byte, mime, uploadedBy string) (*model.Upload, error) {
	u := &model.Upload{
		ID:         newID(),
		MIME:       mime,
		UploadedBy: uploadedBy,
		CreatedAt:  now(),
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO uploads (id, mime, data, uploaded_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.MIME, data, u.UploadedBy, u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating upload: %w", err)
	}
	return u, nil
}

// GetUpload returns an upload including its data.
func GetUpload(ctx context.Context, db DBTX, id string) (*model.Upload, error) {
	u := &model.Upload{}
	err := db.QueryRowContext(ctx,
		`SELECT id, mime, data, uploaded_by, created_at FROM uploads WHERE id = ?`, id,
	).Scan(&u.ID, &u.MIME, &u.Data, &u.UploadedBy, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting upload: %w", err)
	}
	return u, nil
}
