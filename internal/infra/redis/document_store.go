package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mcq-quiz-service/internal/domain"
)

// DocumentStore keeps JSON documents as plain Redis strings under a prefix:
// SET quiz:doc:{key} {json}. A non-zero ttl bounds how long an abandoned
// document survives; results and questions normally run with ttl 0.
type DocumentStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewDocumentStore(client *redis.Client, prefix string, ttl time.Duration) *DocumentStore {
	if prefix == "" {
		prefix = "quiz:doc:"
	}
	return &DocumentStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *DocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (s *DocumentStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *DocumentStore) key(key string) string {
	return s.prefix + key
}
