package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/odvoz/internal/pickup"
)

// RequestsHandler exposes the pickup request lifecycle.
type RequestsHandler struct {
	Service *pickup.Service
}

type bulkStatusRequest struct {
	Status string `json:"status"`
}

// Create handles POST /api/requests.
func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())
	if !p.CanCreateRequest() {
		jsonError(w, http.StatusForbidden, "only requesters can submit pickup requests")
		return
	}

	var req pickup.NewRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Service.Create(r.Context(), p, &req)
	if err != nil {
		serviceError(w, err, "create request")
		return
	}
	jsonResponse(w, http.StatusCreated, created)
}

// List handles GET /api/requests.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())
	q := pickup.Query{Status: r.URL.Query().Get("status")}

	for _, param := range []struct {
		name string
		dst  *int
	}{
		{"limit", &q.Limit},
		{"offset", &q.Offset},
	} {
		raw := r.URL.Query().Get(param.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			jsonFieldError(w, param.name, param.name+" must be a number")
			return
		}
		*param.dst = n
	}

	requests, total, err := h.Service.List(r.Context(), p, q)
	if err != nil {
		serviceError(w, err, "list requests")
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	jsonResponse(w, http.StatusOK, requests)
}

// Get handles GET /api/requests/{id}.
func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	req, err := h.Service.Get(r.Context(), p, r.PathValue("id"))
	if err != nil {
		serviceError(w, err, "get request")
		return
	}
	jsonResponse(w, http.StatusOK, req)
}

// Patch handles PATCH /api/requests/{id}.
func (h *RequestsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	var patch pickup.Patch
	if err := decodeJSON(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Service.Patch(r.Context(), p, r.PathValue("id"), &patch)
	if err != nil {
		serviceError(w, err, "update request")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// BulkStatus handles PATCH /api/requests.
func (h *RequestsHandler) BulkStatus(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())
	if !p.IsAdmin() {
		jsonError(w, http.StatusForbidden, "only admins can update all requests")
		return
	}

	var req bulkStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		jsonFieldError(w, "status", "status is required")
		return
	}

	n, err := h.Service.BulkSetStatus(r.Context(), p, req.Status)
	if err != nil {
		serviceError(w, err, "update requests")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"modified_count": n})
}

// DeleteAll handles DELETE /api/requests.
func (h *RequestsHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	n, err := h.Service.DeleteOwned(r.Context(), p)
	if err != nil {
		serviceError(w, err, "delete requests")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int64{"deleted_count": n})
}

// Delete handles DELETE /api/requests/{id}.
func (h *RequestsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := GetPrincipal(r.Context())

	if err := h.Service.DeleteOne(r.Context(), p, r.PathValue("id")); err != nil {
		serviceError(w, err, "delete request")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "request deleted"})
}
