package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kcgate/kcgate/pkg/auth"
)

// keyPrefix namespaces session keys in a shared Redis.
const keyPrefix = "kcgate:session:"

// sessionRecord is the wire form of a stored identity. Identity's own JSON
// form redacts the token, so the record carries every field explicitly.
type sessionRecord struct {
	Subject   string   `json:"subject"`
	Username  string   `json:"username,omitempty"`
	Name      string   `json:"name,omitempty"`
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	Groups    []string `json:"groups,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
	Token     string   `json:"token,omitempty"`
	TokenType string   `json:"token_type,omitempty"`
}

func recordFromIdentity(identity *auth.Identity) sessionRecord {
	return sessionRecord{
		Subject:   identity.Subject,
		Username:  identity.Username,
		Name:      identity.Name,
		Email:     identity.Email,
		Roles:     identity.Roles,
		Groups:    identity.Groups,
		Scopes:    identity.Scopes,
		Token:     identity.Token,
		TokenType: identity.TokenType,
	}
}

func (r sessionRecord) identity() *auth.Identity {
	return &auth.Identity{
		Subject:   r.Subject,
		Username:  r.Username,
		Name:      r.Name,
		Email:     r.Email,
		Roles:     r.Roles,
		Groups:    r.Groups,
		Scopes:    r.Scopes,
		Token:     r.Token,
		TokenType: r.TokenType,
	}
}

// redisStore keeps sessions in Redis with the TTL applied natively per
// key, so expiry needs no sweeper and survives gateway restarts.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the Redis at the given URL
// (redis://host:port/db) and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &redisStore{client: client, ttl: ttl}, nil
}

func (s *redisStore) Put(ctx context.Context, id string, identity *auth.Identity) error {
	buf, err := json.Marshal(recordFromIdentity(identity))
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+id, buf, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, id string) (*auth.Identity, error) {
	buf, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var record sessionRecord
	if err := json.Unmarshal(buf, &record); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return record.identity(), nil
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
