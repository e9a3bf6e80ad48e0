// Package identity resolves bearer tokens to callers. Tokens live in
// Redis with a sliding TTL so revocation takes effect across instances
// without a shared database round trip.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-retail/meridian/internal/shared"
)

const tokenKeyPrefix = "identity:token:"

// ErrTokenNotFound marks an unknown or expired token.
var ErrTokenNotFound = errors.New("identity: token not found")

// Store issues and resolves opaque bearer tokens.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs a token store with the given lifetime.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

// Issue mints a token for the caller and stores its identity payload.
func (s *Store) Issue(ctx context.Context, caller *shared.Caller) (string, error) {
	if caller == nil || caller.ID <= 0 {
		return "", fmt.Errorf("identity: issue: caller required")
	}
	payload, err := json.Marshal(caller)
	if err != nil {
		return "", fmt.Errorf("identity: issue: %w", err)
	}
	token := uuid.NewString()
	if err := s.client.Set(ctx, tokenKeyPrefix+token, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("identity: issue: %w", err)
	}
	return token, nil
}

// Resolve looks a token up and refreshes its TTL. Unknown tokens return
// ErrTokenNotFound; transport failures surface as-is.
func (s *Store) Resolve(ctx context.Context, token string) (*shared.Caller, error) {
	if token == "" {
		return nil, ErrTokenNotFound
	}
	key := tokenKeyPrefix + token
	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("identity: resolve: %w", err)
	}
	var caller shared.Caller
	if err := json.Unmarshal(payload, &caller); err != nil {
		return nil, fmt.Errorf("identity: resolve: %w", err)
	}
	// Sliding expiry: activity keeps the token alive.
	_ = s.client.Expire(ctx, key, s.ttl).Err()
	return &caller, nil
}

// Revoke deletes a token. Revoking an unknown token is a no-op.
func (s *Store) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, tokenKeyPrefix+token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("identity: revoke: %w", err)
	}
	return nil
}

// TTL exposes the configured token lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}
