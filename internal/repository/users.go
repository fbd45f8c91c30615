package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, password_hash, has_paid, COALESCE(stripe_customer_id, ''), created_at, updated_at`

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.HasPaid, &u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts a user. A taken username (case-insensitive) is apierr.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, username, passwordHash string) (models.User, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`, username).Scan(&exists); err != nil {
		return models.User{}, err
	}
	if exists {
		return models.User{}, fmt.Errorf("username taken: %w", apierr.ErrConflict)
	}

	u, err := scanUser(r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns, uuid.New(), username, passwordHash))
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return models.User{}, fmt.Errorf("username taken: %w", apierr.ErrConflict)
	}
	return u, err
}

func (r *UserRepository) ByUsername(ctx context.Context, username string) (models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(username) = $1`, strings.ToLower(username)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %q: %w", username, apierr.ErrNotFound)
	}
	return u, err
}

func (r *UserRepository) ByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %s: %w", id, apierr.ErrNotFound)
	}
	return u, err
}

func (r *UserRepository) ByStripeCustomer(ctx context.Context, customerID string) (models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE stripe_customer_id = $1`, customerID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("stripe customer: %w", apierr.ErrNotFound)
	}
	return u, err
}
