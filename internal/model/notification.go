package model

import "time"

// Notification is a one-way message to a user or a receiver. Exactly one of
// UserID and ReceiverID is set.
type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	ReceiverID string    `json:"receiver_id,omitempty"`
	Message    string    `json:"message"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recipient identifies the owner of a notification mailbox.
type Recipient struct {
	ID         string
	IsReceiver bool
}

// RecipientFor returns the mailbox a subject with the given role reads from.
// Admins and users share the user mailbox.
func RecipientFor(id, role string) Recipient {
	return Recipient{ID: id, IsReceiver: role == RoleReceiver}
}

// Recipient returns the mailbox the notification belongs to.
func (n *Notification) Recipient() Recipient {
	if n.ReceiverID != "" {
		return Recipient{ID: n.ReceiverID, IsReceiver: true}
	}
	return Recipient{ID: n.UserID}
}

// NotifyUser builds a notification for a user mailbox.
func NotifyUser(userID, message string) Notification {
	return Notification{UserID: userID, Message: message}
}

// NotifyReceiver builds a notification for a receiver mailbox.
func NotifyReceiver(receiverID, message string) Notification {
	return Notification{ReceiverID: receiverID, Message: message}
}
