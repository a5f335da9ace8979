package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenStore keeps bearer tokens in Redis. Each token maps to the verified
// actor it was issued for and expires with the configured TTL.
type TokenStore struct {
	client *redis.Client
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

// ErrTokenInvalid indicates a missing, expired or revoked token.
var ErrTokenInvalid = errors.New("auth: token invalid or expired")

type tokenPayload struct {
	Scope  Scope  `json:"scope"`
	UserID int64  `json:"user_id"`
	OrgID  int64  `json:"org_id"`
	Role   string `json:"role"`
}

func tokenKey(token string) string {
	return "auth:token:" + token
}

// Issue stores a fresh token for the actor.
func (ts *TokenStore) Issue(ctx context.Context, actor Actor, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	payload, err := json.Marshal(tokenPayload{
		Scope:  actor.Scope,
		UserID: actor.UserID,
		OrgID:  actor.OrgID,
		Role:   actor.Role,
	})
	if err != nil {
		return "", err
	}
	if err := ts.client.Set(ctx, tokenKey(token), payload, ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store token: %w", err)
	}
	return token, nil
}

// Resolve loads the actor behind a token.
func (ts *TokenStore) Resolve(ctx context.Context, token string) (Actor, error) {
	if token == "" {
		return Actor{}, ErrTokenInvalid
	}
	raw, err := ts.client.Get(ctx, tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Actor{}, ErrTokenInvalid
		}
		return Actor{}, err
	}
	var payload tokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Actor{}, ErrTokenInvalid
	}
	return Actor{
		Scope:  payload.Scope,
		UserID: payload.UserID,
		OrgID:  payload.OrgID,
		Role:   payload.Role,
	}, nil
}

// Revoke deletes a token.
func (ts *TokenStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return ts.client.Del(ctx, tokenKey(token)).Err()
}
