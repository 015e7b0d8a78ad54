package pickup

import (
	"fmt"

	"github.com/erazemk/odvoz/internal/model"
)

const (
	msgSubmitted = "Your request has been successfully submitted."
	msgNewByFmt  = "New e-waste request submitted by %s."
)

// statusMessages holds the owner and receiver messages sent when a request
// enters a status.
var statusMessages = map[string]struct{ owner, receiver string }{
	model.StatusApproved: {
		owner:    "Your e-waste pickup request has been approved and a receiver has been assigned. They will contact you soon.",
		receiver: "You have been assigned a new e-waste pickup task. Please pick up and deliver to the recycler center as soon as possible.",
	},
	model.StatusCollected: {
		owner:    "Your e-waste has been picked up successfully. Thank you for your contribution.",
		receiver: "Pickup recorded. Please deliver the e-waste to the recycler center.",
	},
	model.StatusRecycled: {
		owner:    "Your e-waste has reached our recycler center safely. We appreciate your support for a cleaner environment.",
		receiver: "Your e-waste pickup task was completed successfully.",
	},
}

// statusNotifications returns the notifications for r having entered its
// current status: one for the owner and, when assigned, one for the receiver.
func statusNotifications(r *model.PickupRequest) []model.Notification {
	msgs, ok := statusMessages[r.Status]
	// Bulk updates can approve a request nobody was assigned to.
	if !ok || (r.Status == model.StatusApproved && !r.IsAssigned()) {
		generic := fmt.Sprintf("Pickup request status changed to %s.", r.Status)
		msgs.owner, msgs.receiver = generic, generic
	}

	out := []model.Notification{model.NotifyUser(r.UserID, msgs.owner)}
	if r.IsAssigned() {
		out = append(out, model.NotifyReceiver(r.AssignedReceiver, msgs.receiver))
	}
	return out
}

// submittedBy names the requester in admin notifications.
func submittedBy(r *model.PickupRequest) string {
	switch {
	case r.FullName != "":
		return r.FullName
	case r.UserEmail != "":
		return r.UserEmail
	}
	return "a user"
}
