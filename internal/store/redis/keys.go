package redis

import (
	"fmt"
	"strings"
)

const (
	// KeyPrefixStatus is the prefix for per-service status records
	KeyPrefixStatus = "pelican:status:"
	// KeyPrefixSetting is the prefix for user settings
	KeyPrefixSetting = "pelican:setting:"
	// KeyAllStatus is the key for the set of service names with a status record
	KeyAllStatus = "pelican:statuses"
)

// StatusKey returns the Redis key for a service's status record
func StatusKey(name string) string {
	return KeyPrefixStatus + name
}

// SettingKey returns the Redis key for a setting
func SettingKey(key string) string {
	return KeyPrefixSetting + key
}

// AllStatusKey returns the key for the set of service names with a status record
func AllStatusKey() string {
	return KeyAllStatus
}

// ValidateSettingKey rejects keys that could escape the settings namespace.
func ValidateSettingKey(key string) error {
	if key == "" || len(key) > 128 {
		return fmt.Errorf("%w: length must be 1-128", ErrInvalidKey)
	}
	if strings.ContainsAny(key, "*?[]: \t\r\n") {
		return fmt.Errorf("%w: %q contains reserved characters", ErrInvalidKey, key)
	}
	return nil
}
