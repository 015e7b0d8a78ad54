package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/odvoz/internal/model"
	"github.com/erazemk/odvoz/internal/notify"
	"github.com/erazemk/odvoz/internal/pickup"
)

// Options carries the collaborators and switches the router needs besides
// the database.
type Options struct {
	// Sink serves notification mailboxes. Defaults to the SQL sink on db.
	Sink notify.Sink
	// Notifier receives outgoing notifications. Defaults to synchronous
	// delivery into Sink.
	Notifier pickup.Notifier
	// TrustIdentityHeaders accepts x-user-id and x-user-role from callers
	// without a token.
	TrustIdentityHeaders bool
	// MaxUploadBytes caps image uploads.
	MaxUploadBytes int64
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, opts Options) http.Handler {
	mux := http.NewServeMux()

	sink := opts.Sink
	if sink == nil {
		sink = &notify.SQLSink{DB: db}
	}
	var notifier pickup.Notifier = notify.Direct{Sink: sink}
	if opts.Notifier != nil {
		notifier = opts.Notifier
	}

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	receiversHandler := &ReceiversHandler{DB: db}
	requestsHandler := &RequestsHandler{Service: &pickup.Service{DB: db, Notifier: notifier}}
	notificationsHandler := &NotificationsHandler{Sink: sink}
	feedbackHandler := &FeedbackHandler{DB: db, Notifier: notifier}
	uploadsHandler := &UploadsHandler{DB: db, MaxBytes: opts.MaxUploadBytes}

	authMW := AuthMiddleware(jwtSecret, db, opts.TrustIdentityHeaders)
	requireAdmin := RequireRole(model.RoleAdmin)

	// Public: login, signup, contact form.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/users", usersHandler.Signup)
	mux.HandleFunc("POST /api/receivers", receiversHandler.Signup)
	mux.HandleFunc("POST /api/feedback", feedbackHandler.Create)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Pickup requests: visibility and rights are decided per role by the service.
	mux.Handle("POST /api/requests", authMW(http.HandlerFunc(requestsHandler.Create)))
	mux.Handle("GET /api/requests", authMW(http.HandlerFunc(requestsHandler.List)))
	mux.Handle("PATCH /api/requests", authMW(http.HandlerFunc(requestsHandler.BulkStatus)))
	mux.Handle("DELETE /api/requests", authMW(http.HandlerFunc(requestsHandler.DeleteAll)))
	mux.Handle("GET /api/requests/{id}", authMW(http.HandlerFunc(requestsHandler.Get)))
	mux.Handle("PATCH /api/requests/{id}", authMW(http.HandlerFunc(requestsHandler.Patch)))
	mux.Handle("DELETE /api/requests/{id}", authMW(http.HandlerFunc(requestsHandler.Delete)))

	// Own mailbox.
	mux.Handle("GET /api/notifications", authMW(http.HandlerFunc(notificationsHandler.List)))
	mux.Handle("PUT /api/notifications/{id}/read", authMW(http.HandlerFunc(notificationsHandler.MarkRead)))

	// Images.
	mux.Handle("POST /api/uploads", authMW(http.HandlerFunc(uploadsHandler.Create)))
	mux.Handle("GET /api/uploads/{id}", authMW(http.HandlerFunc(uploadsHandler.Get)))

	// Administration.
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}/approval", authMW(requireAdmin(http.HandlerFunc(usersHandler.SetApproval))))
	mux.Handle("GET /api/receivers", authMW(requireAdmin(http.HandlerFunc(receiversHandler.List))))
	mux.Handle("PUT /api/receivers/{id}/approval", authMW(requireAdmin(http.HandlerFunc(receiversHandler.SetApproval))))
	mux.Handle("GET /api/feedback", authMW(requireAdmin(http.HandlerFunc(feedbackHandler.List))))
	mux.Handle("PUT /api/feedback/{id}/response", authMW(requireAdmin(http.HandlerFunc(feedbackHandler.Respond))))

	return mux
}
