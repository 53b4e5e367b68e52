package booking

import (
	"errors"
	"strings"
)

var (
	// ErrMissingSlot is returned when no slot was supplied.
	ErrMissingSlot = errors.New("slot is required")

	// ErrMissingName is returned when no client name was supplied.
	ErrMissingName = errors.New("client name is required")

	// ErrMissingFields is returned when a form submission lacks required fields.
	ErrMissingFields = errors.New("missing required booking information")

	// ErrTokenReused is returned when an idempotency token that already
	// committed a booking is presented for a different slot.
	ErrTokenReused = errors.New("idempotency token already used for another booking")
)

// Request carries everything needed to book one slot.
type Request struct {
	Slot    string `json:"slot"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Note    string `json:"note"`

	// IdempotencyToken makes retries safe. When empty a key is derived
	// from the slot, email and attempt hour.
	IdempotencyToken string `json:"idempotency_token"`
}

// Validate checks the minimal fields for a chat-initiated booking.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Slot) == "" {
		return ErrMissingSlot
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	return nil
}

// ValidateForm checks the full widget form, which requires every contact
// field the ledger schema carries.
func (r *Request) ValidateForm() error {
	if strings.TrimSpace(r.Slot) == "" ||
		strings.TrimSpace(r.Name) == "" ||
		strings.TrimSpace(r.Email) == "" ||
		strings.TrimSpace(r.Phone) == "" ||
		strings.TrimSpace(r.Company) == "" {
		return ErrMissingFields
	}
	return nil
}
