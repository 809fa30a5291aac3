package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const defaultKeyPrefix = "vmpower"

// RedisStore keeps the token and the last response under two Redis keys.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects lazily to the Redis server described by url
// (redis://[:password@]host:port/db).
func NewRedisStore(url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: redis.NewClient(opts), prefix: prefix}, nil
}

func (s *RedisStore) tokenKey() string    { return s.prefix + ":token" }
func (s *RedisStore) responseKey() string { return s.prefix + ":response" }

func (s *RedisStore) GetToken(ctx context.Context) (Token, error) {
	data, err := s.get(ctx, s.tokenKey())
	if err != nil {
		return Token{}, err
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return Token{}, fmt.Errorf("failed to decode cached token: %w", err)
	}
	return token, nil
}

func (s *RedisStore) PutToken(ctx context.Context, token Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.tokenKey(), data, 0).Err()
}

func (s *RedisStore) GetResponse(ctx context.Context) ([]byte, error) {
	return s.get(ctx, s.responseKey())
}

// PutResponse stores body indented like the file backend does.
func (s *RedisStore) PutResponse(ctx context.Context, body []byte) error {
	return s.client.Set(ctx, s.responseKey(), indentResponse(body), 0).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}
