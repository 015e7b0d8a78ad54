// Package pickup implements the pickup request lifecycle: submission,
// role-scoped queries, partial updates with status transitions, and the
// notifications each transition sends.
package pickup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/erazemk/odvoz/internal/auth"
	"github.com/erazemk/odvoz/internal/model"
	"github.com/erazemk/odvoz/internal/store"
)

// Listing page sizes.
const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Notifier accepts notifications for asynchronous delivery.
type Notifier interface {
	Enqueue(n model.Notification) bool
}

// Service applies lifecycle rules on top of the request store.
type Service struct {
	DB       *sql.DB
	Notifier Notifier
}

// Query selects a page of requests.
type Query struct {
	Status string
	Limit  int
	Offset int
}

// Create stores a new pending request owned by p and notifies the owner and
// every admin.
func (s *Service) Create(ctx context.Context, p auth.Principal, in *NewRequest) (*model.PickupRequest, error) {
	if !model.ValidRole(p.Role) {
		return nil, forbidden("unknown role")
	}
	if !p.CanCreateRequest() {
		return nil, forbidden("only requesters can submit pickup requests")
	}

	accessories, err := ValidateNew(p.Role, in)
	if err != nil {
		return nil, err
	}

	r := &model.PickupRequest{
		UserID:                 p.ID,
		UserEmail:              strings.TrimSpace(in.UserEmail),
		FullName:               strings.TrimSpace(in.FullName),
		Category:               strings.TrimSpace(in.Category),
		RecycleItem:            strings.TrimSpace(in.RecycleItem),
		Model:                  strings.TrimSpace(in.Model),
		DeviceCondition:        strings.TrimSpace(in.DeviceCondition),
		DeviceImageURL:         strings.TrimSpace(in.DeviceImageURL),
		Accessories:            accessories,
		PickupDate:             strings.TrimSpace(in.PickupDate),
		PickupTime:             strings.TrimSpace(in.PickupTime),
		Address:                strings.TrimSpace(in.Address),
		PreferredContactNumber: strings.TrimSpace(in.PreferredContactNumber),
		AlternateContactNumber: strings.TrimSpace(in.AlternateContactNumber),
		SpecialInstructions:    strings.TrimSpace(in.SpecialInstructions),
		AssignedReceiver:       model.NotAssigned,
		Status:                 model.StatusPending,
	}

	created, err := store.CreateRequest(ctx, s.DB, r)
	if err != nil {
		return nil, err
	}
	slog.Info("request created", "request", created.ID, "user", p.ID)

	s.notify(model.NotifyUser(created.UserID, msgSubmitted))

	admins, err := store.ListAdminIDs(ctx, s.DB)
	if err != nil {
		slog.Error("failed to list admins for notification", "request", created.ID, "error", err)
		return created, nil
	}
	msg := fmt.Sprintf(msgNewByFmt, submittedBy(created))
	for _, id := range admins {
		s.notify(model.NotifyUser(id, msg))
	}

	return created, nil
}

// List returns the page of requests visible to p, newest first, and the
// total number of visible requests.
func (s *Service) List(ctx context.Context, p auth.Principal, q Query) ([]model.PickupRequest, int, error) {
	ownerID, receiverID, ok := p.Scope()
	if !ok {
		return nil, 0, forbidden("unknown role")
	}

	f := store.RequestFilter{OwnerID: ownerID, ReceiverID: receiverID, Offset: q.Offset}

	switch {
	case q.Limit < 0:
		return nil, 0, invalid("limit", "must not be negative")
	case q.Limit == 0:
		f.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		f.Limit = MaxLimit
	default:
		f.Limit = q.Limit
	}
	if q.Offset < 0 {
		return nil, 0, invalid("offset", "must not be negative")
	}

	if q.Status != "" {
		status, ok := model.ParseStatus(q.Status)
		if !ok {
			return nil, 0, invalid("status", "unknown status %q", q.Status)
		}
		f.Status = status
	}

	requests, total, err := store.ListRequests(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if requests == nil {
		requests = []model.PickupRequest{}
	}
	return requests, total, nil
}

// Get returns a single request visible to p.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (*model.PickupRequest, error) {
	if !model.ValidRole(p.Role) {
		return nil, forbidden("unknown role")
	}

	r, err := store.GetRequest(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNotFound
	}
	if !p.CanAccess(r) {
		return nil, forbidden("you do not have access to this request")
	}
	return r, nil
}

// Patch applies a partial update on behalf of p. The read, the checks and
// the write run in one transaction; notifications are sent after commit.
func (s *Service) Patch(ctx context.Context, p auth.Principal, id string, in *Patch) (*model.PickupRequest, error) {
	if !model.ValidRole(p.Role) {
		return nil, forbidden("unknown role")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	r, err := store.GetRequest(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNotFound
	}
	if !p.CanAccess(r) {
		return nil, forbidden("you do not have access to this request")
	}

	from := r.Status
	events, err := applyPatch(ctx, tx, p, r, in)
	if err != nil {
		return nil, err
	}

	if err := store.UpdateRequest(ctx, tx, r); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing request update: %w", err)
	}

	if r.Status != from {
		slog.Info("request status changed",
			"request", r.ID, "from", from, "to", r.Status, "by", p.ID, "role", p.Role)
	} else {
		slog.Info("request updated", "request", r.ID, "by", p.ID, "role", p.Role)
	}
	for _, n := range events {
		s.notify(n)
	}
	return r, nil
}

// applyPatch checks p's rights over each field group in the patch and
// applies it to r. It returns the notifications the change implies.
func applyPatch(ctx context.Context, tx store.DBTX, p auth.Principal, r *model.PickupRequest, in *Patch) ([]model.Notification, error) {
	target := r.Status
	if in.Status != nil {
		status, ok := model.ParseStatus(strings.TrimSpace(*in.Status))
		if !ok {
			return nil, invalid("status", "unknown status %q", *in.Status)
		}
		target = status
	}

	if in.hasDetails() {
		switch {
		case p.IsReceiver():
			return nil, forbidden("receivers may only update status and collection details")
		case p.IsUser() && r.Status != model.StatusPending:
			return nil, forbidden("request can no longer be edited")
		}
		accessories, err := in.validateDetails()
		if err != nil {
			return nil, err
		}
		in.applyDetails(r, accessories)
	}

	if in.hasCollection() {
		if p.IsUser() {
			return nil, forbidden("requesters cannot record collection details")
		}
		set(&r.CollectionNotes, in.CollectionNotes)
		if in.CollectionProof != nil {
			r.CollectionProof = *in.CollectionProof
		}
	}

	approving := target == model.StatusApproved && r.Status != model.StatusApproved
	if in.AssignedReceiver != nil && strings.TrimSpace(*in.AssignedReceiver) != r.AssignedReceiver {
		if !p.IsAdmin() {
			return nil, forbidden("only admins assign receivers")
		}
		if !approving {
			return nil, invalid("assigned_receiver", "a receiver is assigned when the request is approved")
		}
	}

	if target == r.Status {
		return nil, nil
	}
	if p.IsUser() {
		return nil, forbidden("requesters cannot change the request status")
	}

	if approving {
		if !p.IsAdmin() {
			return nil, forbidden("only admins approve requests")
		}
		if err := approve(ctx, tx, r, in.AssignedReceiver); err != nil {
			return nil, err
		}
		return statusNotifications(r), nil
	}

	if model.IsTerminal(r.Status) {
		return nil, invalid("status", "request is already %s and can no longer change", r.Status)
	}
	if !model.CanTransition(r.Status, target) {
		return nil, invalid("status", "cannot change status from %s to %s", r.Status, target)
	}
	r.Status = target
	return statusNotifications(r), nil
}

// approve assigns the receiver named by receiverID to a pending request and
// copies the receiver's contact details onto it.
func approve(ctx context.Context, tx store.DBTX, r *model.PickupRequest, receiverID *string) error {
	if r.Status != model.StatusPending {
		return invalid("status", "cannot change status from %s to %s", r.Status, model.StatusApproved)
	}
	if r.IsAssigned() {
		return invalid("assigned_receiver", "request already has a receiver")
	}

	var id string
	if receiverID != nil {
		id = strings.TrimSpace(*receiverID)
	}
	if id == "" || id == model.NotAssigned {
		return invalid("assigned_receiver", "a receiver must be selected to approve a request")
	}

	rcv, err := store.GetReceiver(ctx, tx, id)
	if err != nil {
		return err
	}
	if rcv == nil || !rcv.Approved {
		return invalid("assigned_receiver", "receiver does not exist or is not approved")
	}

	r.Status = model.StatusApproved
	r.AssignedReceiver = rcv.ID
	r.ReceiverName = rcv.Name
	r.ReceiverEmail = rcv.Email
	r.ReceiverPhone = rcv.Phone
	return nil
}

// BulkSetStatus moves every request to status regardless of the transition
// table and returns how many changed.
func (s *Service) BulkSetStatus(ctx context.Context, p auth.Principal, status string) (int, error) {
	if !p.IsAdmin() {
		return 0, forbidden("only admins can update all requests")
	}
	canonical, ok := model.ParseStatus(strings.TrimSpace(status))
	if !ok {
		return 0, invalid("status", "unknown status %q", status)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	changed, err := store.SetAllRequestStatus(ctx, tx, canonical)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing bulk status update: %w", err)
	}

	slog.Info("bulk status update", "status", canonical, "modified", len(changed), "by", p.ID)
	for i := range changed {
		for _, n := range statusNotifications(&changed[i]) {
			s.notify(n)
		}
	}
	return len(changed), nil
}

// DeleteOwned removes every request owned by p. Deleting when nothing is
// left is not an error.
func (s *Service) DeleteOwned(ctx context.Context, p auth.Principal) (int64, error) {
	if !p.IsUser() {
		return 0, forbidden("only requesters can delete their requests")
	}

	n, err := store.DeleteRequestsByOwner(ctx, s.DB, p.ID)
	if err != nil {
		return 0, err
	}
	slog.Info("requests deleted", "user", p.ID, "count", n)
	return n, nil
}

// DeleteOne removes a single request owned by p.
func (s *Service) DeleteOne(ctx context.Context, p auth.Principal, id string) error {
	if !p.IsUser() {
		return forbidden("only requesters can delete their requests")
	}

	r, err := store.GetRequest(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if r == nil {
		return ErrNotFound
	}
	if !p.CanDelete(r) {
		return forbidden("you can only delete your own requests")
	}

	if err := store.DeleteRequest(ctx, s.DB, id); err != nil {
		return err
	}
	slog.Info("request deleted", "request", id, "user", p.ID)
	return nil
}

func (s *Service) notify(n model.Notification) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Enqueue(n)
}
