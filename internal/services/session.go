package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// SessionStore keeps bearer tokens in Redis. A user has at most one live
// session; signing in again replaces it and restarts the 7-day timer.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Create issues a new token for userID, invalidating any previous one.
func (s *SessionStore) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	if err := s.InvalidateUser(ctx, userID); err != nil {
		return "", err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(tokenBytes)

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+token, userID.String(), SessionDuration)
	pipe.Set(ctx, UserSessionKeyPrefix+userID.String(), token, SessionDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

// Validate returns the user bound to token. ok is false for unknown or
// expired tokens; err is set only when Redis itself fails.
func (s *SessionStore) Validate(ctx context.Context, token string) (uuid.UUID, bool, error) {
	if token == "" {
		return uuid.Nil, false, nil
	}
	userIDStr, err := s.rdb.Get(ctx, SessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt session value: %w", err)
	}
	return userID, true, nil
}

// Refresh extends both keys by SessionDuration from now.
func (s *SessionStore) Refresh(ctx context.Context, token string) error {
	userID, ok, err := s.Validate(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("session not found")
	}
	pipe := s.rdb.TxPipeline()
	pipe.Expire(ctx, SessionKeyPrefix+token, SessionDuration)
	pipe.Expire(ctx, UserSessionKeyPrefix+userID.String(), SessionDuration)
	_, err = pipe.Exec(ctx)
	return err
}

// Invalidate removes a session (sign-out).
func (s *SessionStore) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sessionKey := SessionKeyPrefix + token
	userIDStr, err := s.rdb.Get(ctx, sessionKey).Result()
	if err == nil && userIDStr != "" {
		s.rdb.Del(ctx, UserSessionKeyPrefix+userIDStr)
	}
	return s.rdb.Del(ctx, sessionKey).Err()
}

// InvalidateUser drops whatever session the user currently holds.
func (s *SessionStore) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	userSessionKey := UserSessionKeyPrefix + userID.String()
	token, err := s.rdb.Get(ctx, userSessionKey).Result()
	if err == nil && token != "" {
		s.rdb.Del(ctx, SessionKeyPrefix+token)
	}
	return s.rdb.Del(ctx, userSessionKey).Err()
}
