package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

type BillingRepository struct {
	db *sql.DB
}

func NewBillingRepository(db *sql.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// LinkCustomer records the Stripe customer on the user and sets has_paid.
func (r *BillingRepository) LinkCustomer(ctx context.Context, userID uuid.UUID, customerID string, paid bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET stripe_customer_id = COALESCE(NULLIF($2, ''), stripe_customer_id),
			has_paid = $3,
			updated_at = NOW()
		WHERE id = $1
	`, userID, customerID, paid)
	return err
}

// UpsertSubscription mirrors a Stripe subscription and keeps users.has_paid in
// step with it, in one transaction.
func (r *BillingRepository) UpsertSubscription(ctx context.Context, sub models.UserSubscription) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_subscriptions (id, user_id, stripe_subscription_id, stripe_customer_id, status, cancel_at_period_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (stripe_subscription_id) DO UPDATE
		SET status = EXCLUDED.status,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			updated_at = NOW()
	`, sub.ID, sub.UserID, sub.StripeSubscriptionID, sub.StripeCustomerID, string(sub.Status), sub.CancelAtPeriodEnd)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users SET has_paid = $2, updated_at = NOW() WHERE id = $1
	`, sub.UserID, sub.Status.Grants())
	if err != nil {
		return err
	}
	return tx.Commit()
}

// RecordTransaction appends an audit row. It reports false when the Stripe
// event was already recorded.
func (r *BillingRepository) RecordTransaction(ctx context.Context, t models.PaymentTransaction) (bool, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_transactions (id, user_id, stripe_event_id, stripe_object_id, event_type, amount_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (stripe_event_id) DO NOTHING
	`, t.ID, t.UserID, t.StripeEventID, t.StripeObjectID, t.EventType, t.AmountCents, t.Currency, t.Status)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
