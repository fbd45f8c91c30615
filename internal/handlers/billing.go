package handlers

import (
	"io"
	"net/http"
)

// Stripe caps webhook payloads well below this.
const maxWebhookBytes = 65536

// StripeWebhook verifies and applies a Stripe delivery. Redeliveries of an
// already processed event are acknowledged with 200 so Stripe stops retrying.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Webhook payload too large")
		return
	}
	duplicate, err := h.Billing.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, envelope{"received": true, "duplicate": duplicate})
}
