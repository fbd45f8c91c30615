package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the account identity. HasPaid mirrors the Stripe subscription state.
type User struct {
	ID               uuid.UUID `json:"id"`
	Username         string    `json:"username"`
	HasPaid          bool      `json:"hasPaid"`
	StripeCustomerID string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`

	// Internal only - never returned in JSON
	PasswordHash string `json:"-"`
}
