package baseline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/yorozuya-cybersecurity/yoro-audit/pkg/utils"
)

// ErrNotFound is returned by a Store that holds no baseline yet.
var ErrNotFound = errors.New("baseline not found")

// Store persists a serialized baseline document.
type Store interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, data []byte) error
	Location() string
}

// FileStore keeps the baseline in a local JSON file.
type FileStore struct {
	Path string
}

func (s FileStore) Get(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s FileStore) Put(_ context.Context, data []byte) error {
	return utils.WriteFile(s.Path, data)
}

func (s FileStore) Location() string { return s.Path }

// RedisStore keeps the baseline under a single Redis key so that several CI
// runners can share it.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// OpenRedisStore connects to a redis:// URL.
func OpenRedisStore(url, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStore(redis.NewClient(opts), key), nil
}

func (s *RedisStore) Get(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return data, nil
}

func (s *RedisStore) Put(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Location() string { return "redis key " + s.key }

func (s *RedisStore) Close() error { return s.client.Close() }
