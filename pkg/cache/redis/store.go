package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Store persists the translation table as a single Redis hash.
type Store struct {
	client *goredis.Client
	key    string
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, addr, password string, db int, key string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &Store{client: client, key: key}, nil
}

// Load reads the whole hash.
func (s *Store) Load(ctx context.Context) (map[string]string, error) {
	entries, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("cache load: %w", err)
	}
	return entries, nil
}

// Save atomically replaces the hash with entries.
func (s *Store) Save(ctx context.Context, entries map[string]string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(entries) > 0 {
			pipe.HSet(ctx, s.key, entries)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache save: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}
