// Package auth issues opaque session tokens backed by Redis and resolves
// them into an explicit (callerID, role) pair for each request.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aie-platform/innovation-backend/internal/apperr"
	"github.com/aie-platform/innovation-backend/internal/policy"
)

const (
	sessionKeyPrefix = "session:"
	// SessionTTL matches the original 7-day cookie lifetime; Get slides it.
	SessionTTL = 7 * 24 * time.Hour
)

// Session is the identity attached to a token.
type Session struct {
	UserID   int64       `json:"user_id"`
	Username string      `json:"username"`
	Role     policy.Role `json:"role"`
}

// SessionStore keeps sessions in Redis.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

// Create issues a new token for the session.
func (s *SessionStore) Create(ctx context.Context, sess Session) (string, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	token := uuid.New().String()
	if err := s.client.Set(ctx, sessionKey(token), data, SessionTTL).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Get resolves a token and slides its expiry.
func (s *SessionStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	// Sliding expiration; a failed refresh is not fatal.
	_ = s.client.Expire(ctx, sessionKey(token), SessionTTL).Err()

	return &sess, nil
}

// Delete invalidates a token. Deleting an unknown token is not an error.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKey(token)).Err()
}
