// Package redisstore keeps the session record in a Redis hash, for clients
// that share one login across several machines or CI jobs.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-portal-client/sessions"
)

var _ sessions.Store = (*Store)(nil)

type Store struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires the hash ttl after the last Save. Zero keeps it forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

func New(client redis.Cmdable, key string, options ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("[redisstore.New] client is required")
	}
	if key == "" {
		return nil, errors.New("[redisstore.New] key is required")
	}
	s := &Store{client: client, key: key}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Store) Load(ctx context.Context) (sessions.Record, error) {
	entries, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return sessions.Record{}, fmt.Errorf("failed to load session: %w", err)
	}
	return sessions.RecordFromEntries(entries), nil
}

// Save replaces the hash in a MULTI/EXEC block so readers never see a mix
// of old and new keys.
func (s *Store) Save(ctx context.Context, record sessions.Record) error {
	entries := record.Entries()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(entries) == 0 {
			return nil
		}
		values := make([]any, 0, len(entries)*2)
		for k, v := range entries {
			values = append(values, k, v)
		}
		pipe.HSet(ctx, s.key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
