package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus mirrors Stripe's subscription status strings.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionUnpaid   SubscriptionStatus = "unpaid"
)

// Grants reports whether the status unlocks paid content.
func (s SubscriptionStatus) Grants() bool {
	return s == SubscriptionActive || s == SubscriptionTrialing
}

type UserSubscription struct {
	ID                   uuid.UUID          `json:"id"`
	UserID               uuid.UUID          `json:"userId"`
	StripeSubscriptionID string             `json:"-"`
	StripeCustomerID     string             `json:"-"`
	Status               SubscriptionStatus `json:"status"`
	CancelAtPeriodEnd    bool               `json:"cancelAtPeriodEnd"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

// PaymentTransaction is an append-only audit row.
type PaymentTransaction struct {
	ID             uuid.UUID  `json:"id"`
	UserID         *uuid.UUID `json:"userId,omitempty"`
	StripeEventID  string     `json:"-"`
	StripeObjectID string     `json:"-"`
	EventType      string     `json:"eventType"`
	AmountCents    int64      `json:"amountCents"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
}
