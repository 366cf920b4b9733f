package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStatusTTL bounds how long a status record outlives its last write.
// A service that has not been polled for a week starts a fresh history.
const DefaultStatusTTL = 7 * 24 * time.Hour

var (
	// ErrNotFound is returned when a key does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidKey is returned for setting keys outside the allowed charset
	ErrInvalidKey = errors.New("invalid key")
)

// Store handles Redis operations for status history and settings
type Store struct {
	client    *redis.Client
	statusTTL time.Duration
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client:    client,
		statusTTL: DefaultStatusTTL,
	}
}

// Ping reports whether Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
