package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// ConnectPostgres opens the pool, pings it and creates missing tables.
func ConnectPostgres(ctx context.Context, postgresURI string) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	if err = InitPostgresTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username VARCHAR(20) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			has_paid BOOLEAN NOT NULL DEFAULT FALSE,
			stripe_customer_id VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// One row per (user, week). Counters are derived from user_progress.
		`CREATE TABLE IF NOT EXISTS anxiety_modules (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			week_number INTEGER NOT NULL CHECK (week_number BETWEEN 1 AND 6),
			activities_total INTEGER NOT NULL,
			activities_completed INTEGER NOT NULL DEFAULT 0,
			estimated_minutes INTEGER NOT NULL,
			minutes_completed INTEGER NOT NULL DEFAULT 0,
			is_locked BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at TIMESTAMPTZ,
			last_accessed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			user_progress JSONB NOT NULL DEFAULT '{}'::jsonb,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(user_id, week_number),
			CHECK (activities_completed >= 0 AND activities_completed <= activities_total),
			CHECK (minutes_completed >= 0 AND minutes_completed <= estimated_minutes)
		)`,

		// Onboarding rows use week_number 0.
		`CREATE TABLE IF NOT EXISTS assessments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			week_number INTEGER NOT NULL CHECK (week_number BETWEEN 0 AND 6),
			responses JSONB NOT NULL,
			risk_score INTEGER NOT NULL CHECK (risk_score BETWEEN 0 AND 15),
			risk_level VARCHAR(20) NOT NULL,
			needs_escalation BOOLEAN NOT NULL,
			incomplete_fields TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(user_id, week_number)
		)`,

		`CREATE TABLE IF NOT EXISTS guide_progress (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			guide_type VARCHAR(40) NOT NULL,
			data JSONB NOT NULL DEFAULT '{}'::jsonb,
			version BIGINT NOT NULL DEFAULT 1,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, guide_type)
		)`,

		`CREATE TABLE IF NOT EXISTS user_subscriptions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			stripe_subscription_id VARCHAR(255) NOT NULL UNIQUE,
			stripe_customer_id VARCHAR(255) NOT NULL,
			status VARCHAR(40) NOT NULL,
			cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS payment_transactions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID REFERENCES users(id) ON DELETE SET NULL,
			stripe_event_id VARCHAR(255) NOT NULL UNIQUE,
			stripe_object_id VARCHAR(255) NOT NULL,
			event_type VARCHAR(80) NOT NULL,
			amount_cents BIGINT NOT NULL DEFAULT 0,
			currency VARCHAR(10) NOT NULL DEFAULT '',
			status VARCHAR(40) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users(LOWER(username))`,
		`CREATE INDEX IF NOT EXISTS idx_users_stripe_customer ON users(stripe_customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_anxiety_modules_user_id ON anxiety_modules(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_assessments_user_id ON assessments(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_subscriptions_user_id ON user_subscriptions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_transactions_user_id ON payment_transactions(user_id)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}
