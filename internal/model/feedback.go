package model

import "time"

// Feedback is a contact form submission answered by an admin.
type Feedback struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Message       string    `json:"message"`
	AdminResponse string    `json:"admin_response"`
	CreatedAt     time.Time `json:"created_at"`
}

// Upload is a stored image referenced from requests by URL.
type Upload struct {
	ID         string    `json:"id"`
	MIME       string    `json:"mime"`
	Data       []byte    `json:"-"`
	UploadedBy string    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}
