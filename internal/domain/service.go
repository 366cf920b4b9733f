package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrInvalidService is returned when a descriptor is missing its name or has an unusable URL.
	ErrInvalidService = errors.New("invalid service")
	// ErrServiceExists is returned when a service with the same name or url is already configured.
	ErrServiceExists = errors.New("service already exists")
	// ErrServiceNotFound is returned when removing a service that is not configured.
	ErrServiceNotFound = errors.New("service not found")
)

// ServiceDescriptor describes one user-configured endpoint to monitor.
//
// Name is the unique key: status history is tracked per Name, so renaming
// a service starts a fresh history.
type ServiceDescriptor struct {
	Name        string `json:"name" yaml:"name"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Validate checks that the descriptor can be polled.
func (s ServiceDescriptor) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidService)
	}
	if strings.TrimSpace(s.URL) == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidService)
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidService, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidService, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url has no host", ErrInvalidService)
	}
	return nil
}

// Status is the health classification of a service for one poll.
type Status string

const (
	StatusOnline   Status = "online"
	StatusDegraded Status = "degraded"
	StatusOffline  Status = "offline"
)

// ClassifyStatusCode maps a received HTTP status code to a Status.
// Only 2xx is online. Redirects are not followed, so 3xx counts as degraded.
func ClassifyStatusCode(code int) Status {
	if code >= 200 && code < 300 {
		return StatusOnline
	}
	return StatusDegraded
}

// StatusRecord is the continuity record kept per service name.
//
// Since only moves when Status changes; LastCheck moves on every poll.
type StatusRecord struct {
	Status    Status    `json:"status"`
	Since     time.Time `json:"since"`
	LastCheck time.Time `json:"last_check"`
}

// Observe applies one poll outcome taken at now and reports whether it was a transition.
func (r *StatusRecord) Observe(status Status, now time.Time) bool {
	changed := r.Status != status
	if changed {
		r.Status = status
		r.Since = now
	}
	r.LastCheck = now
	return changed
}

// CheckResult is the point-in-time report for one service in one batch.
type CheckResult struct {
	Name         string `json:"name"`
	Status       Status `json:"status"`
	ResponseTime *int64 `json:"responseTime"` // ms, nil when the request failed
	StatusCode   int    `json:"statusCode,omitempty"`
	Uptime       *int64 `json:"uptime,omitempty"`   // seconds, online/degraded only
	Downtime     *int64 `json:"downtime,omitempty"` // seconds, offline only
	Error        string `json:"error,omitempty"`
	URL          string `json:"url"`
}
