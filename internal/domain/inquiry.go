package domain

import (
	"time"
)

// InquiryStatus tracks delivery of a contact form submission to the relay.
type InquiryStatus string

const (
	InquiryPending InquiryStatus = "pending"
	InquiryRelayed InquiryStatus = "relayed"
	InquiryFailed  InquiryStatus = "failed"
)

// Inquiry is a contact form submission.
type Inquiry struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone,omitempty"`
	Company   string        `json:"company,omitempty"`
	Service   string        `json:"service,omitempty"`
	Message   string        `json:"message"`
	Status    InquiryStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// IsDelivered returns true once the relay accepted the inquiry.
func (i *Inquiry) IsDelivered() bool {
	return i.Status == InquiryRelayed
}
