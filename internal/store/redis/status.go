package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/pelican/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SaveStatusRecords stores the status history in Redis (bulk operation)
func (s *Store) SaveStatusRecords(ctx context.Context, records map[string]domain.StatusRecord) error {
	if len(records) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for name, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal status record %s: %w", name, err)
		}
		pipe.Set(ctx, StatusKey(name), data, s.statusTTL)
		pipe.SAdd(ctx, AllStatusKey(), name)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save status records: %w", err)
	}
	return nil
}

// GetStatusRecord retrieves one service's status record
func (s *Store) GetStatusRecord(ctx context.Context, name string) (domain.StatusRecord, error) {
	var rec domain.StatusRecord

	data, err := s.client.Get(ctx, StatusKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return rec, fmt.Errorf("%w: status record %s", ErrNotFound, name)
		}
		return rec, fmt.Errorf("failed to get status record: %w", err)
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to unmarshal status record: %w", err)
	}
	return rec, nil
}

// GetStatusHistory retrieves every stored status record.
// Names whose record expired are pruned from the index.
func (s *Store) GetStatusHistory(ctx context.Context) (map[string]domain.StatusRecord, error) {
	names, err := s.client.SMembers(ctx, AllStatusKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get status names: %w", err)
	}

	history := make(map[string]domain.StatusRecord, len(names))
	var stale []any
	for _, name := range names {
		rec, err := s.GetStatusRecord(ctx, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				stale = append(stale, name)
			}
			// Skip records that couldn't be retrieved
			continue
		}
		history[name] = rec
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, AllStatusKey(), stale...).Err(); err != nil {
			return history, fmt.Errorf("failed to prune status index: %w", err)
		}
	}
	return history, nil
}

// DeleteStatusRecord removes a service's status record
func (s *Store) DeleteStatusRecord(ctx context.Context, name string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, StatusKey(name))
	pipe.SRem(ctx, AllStatusKey(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete status record: %w", err)
	}
	return nil
}
