package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nvelasco/fasegate/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "fasegate:session:"

// RedisStore persists sessions in redis with a TTL, for deployments running
// more than one API instance behind a balancer. Redis handles expiry; no
// sweeper is needed.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a session store over the given redis URL.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Create(ctx context.Context, sess *models.PanelSession) error {
	return s.write(ctx, sess)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.PanelSession, error) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var sess models.PanelSession
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *models.PanelSession) error {
	now := time.Now().UTC()
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(DefaultTTL)

	return s.write(ctx, sess)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) write(ctx context.Context, sess *models.PanelSession) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if err := s.client.Set(ctx, redisKeyPrefix+sess.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}
