package auth

import "github.com/erazemk/odvoz/internal/model"

// Principal is an authenticated subject acting with a role.
type Principal struct {
	ID   string
	Role string
}

// IsAdmin reports whether the principal is an administrator.
func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

// IsReceiver reports whether the principal is a collection partner.
func (p Principal) IsReceiver() bool { return p.Role == model.RoleReceiver }

// IsUser reports whether the principal is a requester.
func (p Principal) IsUser() bool { return p.Role == model.RoleUser }

// CanCreateRequest reports whether the principal may submit pickup requests.
// Only requesters can; the request becomes theirs.
func (p Principal) CanCreateRequest() bool {
	return p.IsUser()
}

// CanAccess reports whether the principal may read or update r: owners see
// their own requests, receivers the ones assigned to them, admins all.
func (p Principal) CanAccess(r *model.PickupRequest) bool {
	switch p.Role {
	case model.RoleAdmin:
		return true
	case model.RoleUser:
		return r.UserID == p.ID
	case model.RoleReceiver:
		return r.AssignedReceiver == p.ID
	}
	return false
}

// CanDelete reports whether the principal may delete r. Only the owning
// requester may.
func (p Principal) CanDelete(r *model.PickupRequest) bool {
	return p.IsUser() && r.UserID == p.ID
}

// Scope returns the request filter for list queries: the owner ID for users,
// the assignee ID for receivers, and nothing for admins. ok is false for
// unknown roles.
func (p Principal) Scope() (ownerID, receiverID string, ok bool) {
	switch p.Role {
	case model.RoleAdmin:
		return "", "", true
	case model.RoleUser:
		return p.ID, "", true
	case model.RoleReceiver:
		return "", p.ID, true
	}
	return "", "", false
}

// Mailbox returns the notification mailbox owned by the principal.
func (p Principal) Mailbox() model.Recipient {
	return model.RecipientFor(p.ID, p.Role)
}
