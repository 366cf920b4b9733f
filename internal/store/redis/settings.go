package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// GetSetting retrieves a stored setting value
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	if err := ValidateSettingKey(key); err != nil {
		return "", err
	}
	val, err := s.client.Get(ctx, SettingKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%w: setting %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return val, nil
}

// SetSetting stores a setting value without expiry
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if err := ValidateSettingKey(key); err != nil {
		return err
	}
	if err := s.client.Set(ctx, SettingKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

// DeleteSetting removes a setting
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if err := ValidateSettingKey(key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, SettingKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return nil
}

// ListSettings returns every stored setting
func (s *Store) ListSettings(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	iter := s.client.Scan(ctx, 0, KeyPrefixSetting+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := s.client.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to read setting %s: %w", key, err)
		}
		out[key[len(KeyPrefixSetting):]] = val
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return out, nil
}
