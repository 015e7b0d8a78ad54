package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/odvoz/internal/imaging"
	"github.com/erazemk/odvoz/internal/store"
)

// UploadsHandler stores device photos and collection proof.
type UploadsHandler struct {
	DB       *sql.DB
	MaxBytes int64
}

// Create handles POST /api/uploads with a multipart "file" field and
// returns the URL the stored image is served from.
func (h *UploadsHandler) Create(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.MaxBytes
	if maxBytes <= 0 {
		maxBytes = imaging.DefaultMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

	file, _, err := r.FormFile("file")
	if err != nil {
		jsonFieldError(w, "file", "file is required")
		return
	}
	defer file.Close()

	img, err := imaging.Normalize(file, maxBytes)
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		jsonFieldError(w, "file", err.Error())
		return
	}

	p, _ := GetPrincipal(r.Context())
	up, err := store.CreateUpload(r.Context(), h.DB, img.Data, img.MIME, p.ID)
	if err != nil {
		slog.Error("failed to store upload", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	slog.Info("image uploaded", "upload", up.ID, "by", p.ID, "bytes", len(img.Data))
	jsonResponse(w, http.StatusCreated, map[string]string{
		"id":  up.ID,
		"url": "/api/uploads/" + up.ID,
	})
}

// Get handles GET /api/uploads/{id}.
func (h *UploadsHandler) Get(w http.ResponseWriter, r *http.Request) {
	up, err := store.GetUpload(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get upload", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get upload")
		return
	}
	if up == nil {
		jsonError(w, http.StatusNotFound, "upload not found")
		return
	}

	w.Header().Set("Content-Type", up.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(up.Data)))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Write(up.Data)
}
