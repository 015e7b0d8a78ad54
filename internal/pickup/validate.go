package pickup

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/erazemk/odvoz/internal/model"
)

// NewRequest is the body of a pickup request submission.
type NewRequest struct {
	UserEmail string `json:"user_email"`
	FullName  string `json:"full_name"`

	Category        string          `json:"category"`
	RecycleItem     string          `json:"recycle_item"`
	Model           string          `json:"model"`
	DeviceCondition string          `json:"device_condition"`
	DeviceImageURL  string          `json:"device_image_url"`
	Accessories     json.RawMessage `json:"accessories"`

	PickupDate             string `json:"pickup_date"`
	PickupTime             string `json:"pickup_time"`
	Address                string `json:"address"`
	PreferredContactNumber string `json:"preferred_contact_number"`
	AlternateContactNumber string `json:"alternate_contact_number"`
	SpecialInstructions    string `json:"special_instructions"`

	ReceiverName  string `json:"receiver_name"`
	ReceiverEmail string `json:"receiver_email"`
	ReceiverPhone string `json:"receiver_phone"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	UserEmail *string `json:"user_email"`
	FullName  *string `json:"full_name"`

	Category        *string         `json:"category"`
	RecycleItem     *string         `json:"recycle_item"`
	Model           *string         `json:"model"`
	DeviceCondition *string         `json:"device_condition"`
	DeviceImageURL  *string         `json:"device_image_url"`
	Accessories     json.RawMessage `json:"accessories"`

	PickupDate             *string `json:"pickup_date"`
	PickupTime             *string `json:"pickup_time"`
	Address                *string `json:"address"`
	PreferredContactNumber *string `json:"preferred_contact_number"`
	AlternateContactNumber *string `json:"alternate_contact_number"`
	SpecialInstructions    *string `json:"special_instructions"`

	Status           *string `json:"status"`
	AssignedReceiver *string `json:"assigned_receiver"`
	CollectionNotes  *string `json:"collection_notes"`
	CollectionProof  *string `json:"collection_proof"`
}

// ValidateNew checks a submission made by a subject with the given role and
// returns the decoded accessories list.
func ValidateNew(role string, in *NewRequest) ([]string, error) {
	required := []struct {
		field string
		value string
	}{
		{"user_email", in.UserEmail},
		{"recycle_item", in.RecycleItem},
		{"pickup_date", in.PickupDate},
		{"pickup_time", in.PickupTime},
		{"device_condition", in.DeviceCondition},
		{"full_name", in.FullName},
	}
	if role == model.RoleReceiver {
		required = append(required, []struct {
			field string
			value string
		}{
			{"receiver_email", in.ReceiverEmail},
			{"receiver_phone", in.ReceiverPhone},
			{"receiver_name", in.ReceiverName},
		}...)
	}

	for _, f := range required {
		if blank(f.value) {
			return nil, invalid(f.field, "is required")
		}
	}

	return parseAccessories(in.Accessories)
}

// hasDetails reports whether the patch touches item, schedule or contact
// fields.
func (p *Patch) hasDetails() bool {
	return p.UserEmail != nil || p.FullName != nil ||
		p.Category != nil || p.RecycleItem != nil || p.Model != nil ||
		p.DeviceCondition != nil || p.DeviceImageURL != nil || p.Accessories != nil ||
		p.PickupDate != nil || p.PickupTime != nil || p.Address != nil ||
		p.PreferredContactNumber != nil || p.AlternateContactNumber != nil ||
		p.SpecialInstructions != nil
}

func (p *Patch) hasCollection() bool {
	return p.CollectionNotes != nil || p.CollectionProof != nil
}

// validateDetails checks the detail fields of a patch and returns the
// decoded accessories when they are present.
func (p *Patch) validateDetails() ([]string, error) {
	if p.Model != nil && blank(*p.Model) {
		return nil, invalid("model", "must not be blank")
	}
	for _, f := range []struct {
		field string
		value *string
	}{
		{"user_email", p.UserEmail},
		{"full_name", p.FullName},
		{"recycle_item", p.RecycleItem},
		{"pickup_date", p.PickupDate},
		{"pickup_time", p.PickupTime},
		{"device_condition", p.DeviceCondition},
	} {
		if f.value != nil && blank(*f.value) {
			return nil, invalid(f.field, "must not be blank")
		}
	}

	if p.Accessories == nil {
		return nil, nil
	}
	return parseAccessories(p.Accessories)
}

// applyDetails copies the detail fields of the patch onto r.
func (p *Patch) applyDetails(r *model.PickupRequest, accessories []string) {
	set(&r.UserEmail, p.UserEmail)
	set(&r.FullName, p.FullName)
	set(&r.Category, p.Category)
	set(&r.RecycleItem, p.RecycleItem)
	set(&r.Model, p.Model)
	set(&r.DeviceCondition, p.DeviceCondition)
	set(&r.DeviceImageURL, p.DeviceImageURL)
	set(&r.PickupDate, p.PickupDate)
	set(&r.PickupTime, p.PickupTime)
	set(&r.Address, p.Address)
	set(&r.PreferredContactNumber, p.PreferredContactNumber)
	set(&r.AlternateContactNumber, p.AlternateContactNumber)
	set(&r.SpecialInstructions, p.SpecialInstructions)
	if p.Accessories != nil {
		r.Accessories = accessories
	}
}

// parseAccessories decodes a JSON array of strings. Absent or null input
// yields an empty list.
func parseAccessories(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []string{}, nil
	}

	var list []string
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, invalid("accessories", "must be a list of strings")
	}
	return list, nil
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
