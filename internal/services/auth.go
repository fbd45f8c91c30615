package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
	"github.com/AnshRaj112/calmsteps-backend/pkg/utils"
)

// UserStore is implemented by repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (models.User, error)
	ByUsername(ctx context.Context, username string) (models.User, error)
	ByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

// Sessions is implemented by SessionStore.
type Sessions interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Validate(ctx context.Context, token string) (uuid.UUID, bool, error)
	Invalidate(ctx context.Context, token string) error
}

var errBadCredentials = fmt.Errorf("invalid username or password: %w", apierr.ErrUnauthorized)

// dummyHash keeps sign-in timing similar whether or not the username exists.
var dummyHash = mustHash("calmsteps-timing-equaliser")

func mustHash(password string) string {
	h, err := utils.HashPassword(password)
	if err != nil {
		panic(fmt.Sprintf("hash timing-equaliser password: %v", err))
	}
	return h
}

type AuthService struct {
	users    UserStore
	sessions Sessions
	log      *logger.Logger
}

func NewAuthService(users UserStore, sessions Sessions, log *logger.Logger) *AuthService {
	return &AuthService{users: users, sessions: sessions, log: log}
}

// SignUp creates the account and signs it in.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (models.User, string, error) {
	if err := utils.ValidateUsername(username); err != nil {
		return models.User{}, "", apierr.Validation("%s", err.Error())
	}
	if err := utils.ValidatePassword(password); err != nil {
		return models.User{}, "", apierr.Validation("%s", err.Error())
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return models.User{}, "", err
	}
	u, err := s.users.Create(ctx, utils.NormalizeUsername(username), hash)
	if err != nil {
		return models.User{}, "", err
	}
	token, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return models.User{}, "", err
	}
	s.log.Info("user signed up", "user_id", u.ID.String())
	return u, token, nil
}

func (s *AuthService) SignIn(ctx context.Context, username, password string) (models.User, string, error) {
	u, err := s.users.ByUsername(ctx, utils.NormalizeUsername(username))
	if errors.Is(err, apierr.ErrNotFound) {
		utils.VerifyPassword(password, dummyHash)
		return models.User{}, "", errBadCredentials
	}
	if err != nil {
		return models.User{}, "", err
	}
	ok, err := utils.VerifyPassword(password, u.PasswordHash)
	if err != nil || !ok {
		return models.User{}, "", errBadCredentials
	}
	token, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return models.User{}, "", err
	}
	return u, token, nil
}

func (s *AuthService) SignOut(ctx context.Context, token string) error {
	return s.sessions.Invalidate(ctx, token)
}

// Authenticate resolves a bearer token to a user id.
func (s *AuthService) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	userID, ok, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid or expired session: %w", apierr.ErrUnauthorized)
	}
	return userID, nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.users.ByID(ctx, userID)
}
