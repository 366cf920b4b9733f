package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	ServiceFile  string // path to services.yaml, created with the default services when missing
	WatchService bool   // true => reload services.yaml when it changes on disk
	MusicDir     string // music library root (optional, empty = scan endpoint disabled)

	// Service checks
	CheckTimeout     time.Duration // per-request timeout of a check (default: 10s)
	CheckUserAgent   string        // User-Agent sent with each check
	CheckConcurrency int           // max parallel requests per batch (default: 8)
	PollMin          time.Duration // shortest wait between polls (default: 7m)
	PollMax          time.Duration // longest wait between polls (default: 15m)
	GCInterval       time.Duration // interval to drop status history of removed services (default: 1h)

	// Redis (optional, empty address = no persistence)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password when Redis is enabled
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict API access to specific Host headers (ex: "localhost:8420")
	AllowedCIDRS []string // optional, restrict API access to specific networks (e.g. "127.0.0.1/32, 10.0.0.0/8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers
	RateLimit    int      // API requests per minute per client IP (0 = unlimited)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("PELICAN_LISTEN_PORT", "127.0.0.1:8420"),
		ShutdownTimeout: mustDuration("PELICAN_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("PELICAN_LOG_LEVEL", "info"),
		PrettyLog: mustBool("PELICAN_PRETTY_LOG", true),

		// Sources
		ServiceFile:  getenv("PELICAN_SERVICE_FILE", "services.yaml"),
		WatchService: mustBool("PELICAN_WATCH_SERVICE_FILE", true),
		MusicDir:     getenv("PELICAN_MUSIC_DIR", ""),

		// Service checks
		CheckTimeout:     mustDuration("PELICAN_CHECK_TIMEOUT", 10*time.Second),
		CheckUserAgent:   getenv("PELICAN_CHECK_USER_AGENT", "Pelican-Command-Center/1.0.0"),
		CheckConcurrency: getenvInt("PELICAN_CHECK_CONCURRENCY", 8),
		PollMin:          mustDuration("PELICAN_POLL_MIN", 7*time.Minute),
		PollMax:          mustDuration("PELICAN_POLL_MAX", 15*time.Minute),
		GCInterval:       mustDuration("PELICAN_GC_INTERVAL", time.Hour),

		// Redis settings
		RedisAddr:             getenv("PELICAN_REDIS_ADDR", ""),
		RedisUser:             getenv("PELICAN_REDIS_USERNAME", ""),
		RedisPasswordRequired: mustBool("PELICAN_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("PELICAN_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("PELICAN_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("PELICAN_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("PELICAN_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("PELICAN_TRUST_PROXY", false),
		RateLimit:    getenvInt("PELICAN_RATE_LIMIT", 120),
	}

	cfg.validate()

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func (c *Config) validate() {
	if c.PollMin <= 0 {
		panic(fmt.Sprintf("❌ FATAL: PELICAN_POLL_MIN must be > 0, got %v", c.PollMin))
	}
	if c.PollMax < c.PollMin {
		panic(fmt.Sprintf("❌ FATAL: PELICAN_POLL_MAX (%v) must be >= PELICAN_POLL_MIN (%v)", c.PollMax, c.PollMin))
	}
	if c.CheckTimeout <= 0 {
		panic(fmt.Sprintf("❌ FATAL: PELICAN_CHECK_TIMEOUT must be > 0, got %v", c.CheckTimeout))
	}
	if c.ServiceFile == "" {
		panic("❌ FATAL: PELICAN_SERVICE_FILE must not be empty")
	}
	if c.RedisEnabled() && c.RedisPasswordRequired && c.RedisPassword == "" {
		panic("❌ FATAL: PELICAN_REDIS_PASSWORD is required when PELICAN_REDIS_PASSWORD_REQUIRED=true")
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
