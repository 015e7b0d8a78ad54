package model

import "time"

// PickupRequest is a requester's submission describing an e-waste item and
// the desired pickup logistics.
type PickupRequest struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	UserEmail string `json:"user_email"`
	FullName  string `json:"full_name"`

	Category        string   `json:"category"`
	RecycleItem     string   `json:"recycle_item"`
	Model           string   `json:"model"`
	DeviceCondition string   `json:"device_condition"`
	DeviceImageURL  string   `json:"device_image_url"`
	Accessories     []string `json:"accessories"`

	PickupDate             string `json:"pickup_date"`
	PickupTime             string `json:"pickup_time"`
	Address                string `json:"address"`
	PreferredContactNumber string `json:"preferred_contact_number"`
	AlternateContactNumber string `json:"alternate_contact_number"`
	SpecialInstructions    string `json:"special_instructions"`

	AssignedReceiver string `json:"assigned_receiver"`
	ReceiverName     string `json:"receiver_name"`
	ReceiverEmail    string `json:"receiver_email"`
	ReceiverPhone    string `json:"receiver_phone"`

	Status          string    `json:"status"`
	CollectionNotes string    `json:"collection_notes"`
	CollectionProof string    `json:"collection_proof"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NotAssigned marks a request without a receiver.
const NotAssigned = "not-assigned"

// Request statuses.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusCollected = "collected"
	StatusRecycled  = "recycled"
)

// statusAliases maps every accepted input name to its canonical status.
// The legacy names come from older clients that used two naming schemes
// for the pickup and recycler hand-off steps.
var statusAliases = map[string]string{
	StatusPending:          StatusPending,
	StatusApproved:         StatusApproved,
	StatusCollected:        StatusCollected,
	StatusRecycled:         StatusRecycled,
	"received":             StatusCollected,
	"received_by_receiver": StatusCollected,
	"received by recycler": StatusRecycled,
	"reached_recycler":     StatusRecycled,
}

// ParseStatus returns the canonical status for name, accepting legacy names.
func ParseStatus(name string) (string, bool) {
	s, ok := statusAliases[name]
	return s, ok
}

// IsTerminal reports whether no further transitions leave status.
func IsTerminal(status string) bool {
	return status == StatusRecycled
}

// nextStatus is the single forward step allowed from each status.
var nextStatus = map[string]string{
	StatusPending:   StatusApproved,
	StatusApproved:  StatusCollected,
	StatusCollected: StatusRecycled,
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to string) bool {
	next, ok := nextStatus[from]
	return ok && next == to
}

// IsAssigned reports whether the request has a receiver.
func (r *PickupRequest) IsAssigned() bool {
	return r.AssignedReceiver != "" && r.AssignedReceiver != NotAssigned
}
