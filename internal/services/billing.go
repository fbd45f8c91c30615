package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

// BillingStore is implemented by repository.BillingRepository.
type BillingStore interface {
	LinkCustomer(ctx context.Context, userID uuid.UUID, customerID string, paid bool) error
	UpsertSubscription(ctx context.Context, sub models.UserSubscription) error
	RecordTransaction(ctx context.Context, t models.PaymentTransaction) (bool, error)
}

// CustomerLookup resolves a Stripe customer to a local user.
type CustomerLookup interface {
	ByStripeCustomer(ctx context.Context, customerID string) (models.User, error)
}

// Ledger is implemented by EventLedger.
type Ledger interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// BillingService mirrors Stripe state into Postgres from webhook deliveries.
type BillingService struct {
	store  BillingStore
	users  CustomerLookup
	ledger Ledger
	secret string
	log    *logger.Logger
}

func NewBillingService(store BillingStore, users CustomerLookup, ledger Ledger, webhookSecret string, log *logger.Logger) *BillingService {
	return &BillingService{store: store, users: users, ledger: ledger, secret: webhookSecret, log: log}
}

// HandleWebhook verifies and applies one delivery. duplicate is true when the
// event was already processed; the caller should still answer 200.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) (duplicate bool, err error) {
	if s.secret == "" {
		return false, apierr.New(http.StatusServiceUnavailable, "billing_disabled", errors.New("stripe webhook secret not configured"))
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return false, apierr.New(http.StatusBadRequest, "invalid_signature", fmt.Errorf("%w: %v", apierr.ErrValidation, err))
	}

	claimed, err := s.ledger.Claim(ctx, "stripe:"+event.ID)
	if err != nil {
		return false, err
	}
	if !claimed {
		s.log.Info("stripe event already processed", "event_id", event.ID, "type", string(event.Type))
		return true, nil
	}

	if err := s.apply(ctx, event); err != nil {
		// Let Stripe redeliver.
		if relErr := s.ledger.Release(ctx, "stripe:"+event.ID); relErr != nil {
			s.log.Error("release stripe event claim failed", "event_id", event.ID, "error", relErr)
		}
		return false, err
	}
	return false, nil
}

func (s *BillingService) apply(ctx context.Context, event stripe.Event) error {
	if event.Data == nil {
		return nil
	}
	typ := string(event.Type)
	switch {
	case typ == "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return s.checkoutCompleted(ctx, event, cs)

	case strings.HasPrefix(typ, "customer.subscription."):
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return s.subscriptionChanged(ctx, event, sub)

	case typ == "invoice.payment_succeeded" || typ == "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return s.invoicePayment(ctx, event, inv)
	}

	s.log.Debug("ignoring stripe event", "type", typ)
	return nil
}

func (s *BillingService) checkoutCompleted(ctx context.Context, event stripe.Event, cs stripe.CheckoutSession) error {
	userID, err := uuid.Parse(cs.ClientReferenceID)
	if err != nil {
		s.log.Warn("checkout session without user reference", "event_id", event.ID)
		return nil
	}
	customerID := ""
	if cs.Customer != nil {
		customerID = cs.Customer.ID
	}
	if err := s.store.LinkCustomer(ctx, userID, customerID, true); err != nil {
		return err
	}
	if cs.Subscription != nil && cs.Subscription.ID != "" {
		err := s.store.UpsertSubscription(ctx, models.UserSubscription{
			UserID:               userID,
			StripeSubscriptionID: cs.Subscription.ID,
			StripeCustomerID:     customerID,
			Status:               models.SubscriptionActive,
		})
		if err != nil {
			return err
		}
	}
	_, err = s.store.RecordTransaction(ctx, models.PaymentTransaction{
		UserID:         &userID,
		StripeEventID:  event.ID,
		StripeObjectID: cs.ID,
		EventType:      string(event.Type),
		AmountCents:    cs.AmountTotal,
		Currency:       string(cs.Currency),
		Status:         "completed",
	})
	return err
}

func (s *BillingService) subscriptionChanged(ctx context.Context, event stripe.Event, sub stripe.Subscription) error {
	if sub.Customer == nil {
		return nil
	}
	u, err := s.users.ByStripeCustomer(ctx, sub.Customer.ID)
	if errors.Is(err, apierr.ErrNotFound) {
		s.log.Warn("subscription for unknown customer", "event_id", event.ID, "customer", sub.Customer.ID)
		return nil
	}
	if err != nil {
		return err
	}

	status := models.SubscriptionStatus(sub.Status)
	if string(event.Type) == "customer.subscription.deleted" {
		status = models.SubscriptionCanceled
	}
	return s.store.UpsertSubscription(ctx, models.UserSubscription{
		UserID:               u.ID,
		StripeSubscriptionID: sub.ID,
		StripeCustomerID:     sub.Customer.ID,
		Status:               status,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	})
}

func (s *BillingService) invoicePayment(ctx context.Context, event stripe.Event, inv stripe.Invoice) error {
	t := models.PaymentTransaction{
		StripeEventID:  event.ID,
		StripeObjectID: inv.ID,
		EventType:      string(event.Type),
		Currency:       string(inv.Currency),
	}
	if string(event.Type) == "invoice.payment_succeeded" {
		t.AmountCents, t.Status = inv.AmountPaid, "succeeded"
	} else {
		t.AmountCents, t.Status = inv.AmountDue, "failed"
	}
	if inv.Customer != nil {
		u, err := s.users.ByStripeCustomer(ctx, inv.Customer.ID)
		switch {
		case err == nil:
			t.UserID = &u.ID
		case !errors.Is(err, apierr.ErrNotFound):
			return err
		}
	}
	_, err := s.store.RecordTransaction(ctx, t)
	return err
}
