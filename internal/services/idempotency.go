package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// IdempotencyKeyPrefix namespaces processed-event markers.
	IdempotencyKeyPrefix = "idem:"
	// DefaultIdempotencyTTL covers Stripe's retry window (3 days) with margin.
	DefaultIdempotencyTTL = 4 * 24 * time.Hour
)

// EventLedger records which external events have been handled so redelivered
// webhooks are acknowledged without being applied twice.
type EventLedger struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewEventLedger(rdb *redis.Client) *EventLedger {
	return &EventLedger{rdb: rdb, ttl: DefaultIdempotencyTTL}
}

// Claim marks key as in progress. It returns false if another delivery already
// claimed it.
func (l *EventLedger) Claim(ctx context.Context, key string) (bool, error) {
	return l.rdb.SetNX(ctx, IdempotencyKeyPrefix+key, "1", l.ttl).Result()
}

// Release forgets a claim so a failed delivery can be retried.
func (l *EventLedger) Release(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, IdempotencyKeyPrefix+key).Err()
}
