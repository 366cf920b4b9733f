package domain

import (
	"errors"
	"testing"
	"time"
)

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want Status
	}{
		{200, StatusOnline},
		{204, StatusOnline},
		{299, StatusOnline},
		{199, StatusDegraded},
		{301, StatusDegraded},
		{404, StatusDegraded},
		{503, StatusDegraded},
	}

	for _, tt := range tests {
		if got := ClassifyStatusCode(tt.code); got != tt.want {
			t.Errorf("ClassifyStatusCode(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestStatusRecordObserve(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := &StatusRecord{Status: StatusOnline, Since: t0, LastCheck: t0}

	// Same status: since must not move
	if rec.Observe(StatusOnline, t0.Add(time.Minute)) {
		t.Error("Observe() reported a transition for an unchanged status")
	}
	if !rec.Since.Equal(t0) {
		t.Errorf("Since = %v, want %v", rec.Since, t0)
	}
	if !rec.LastCheck.Equal(t0.Add(time.Minute)) {
		t.Errorf("LastCheck = %v, want %v", rec.LastCheck, t0.Add(time.Minute))
	}

	// Transition: since moves to the poll time
	t2 := t0.Add(2 * time.Minute)
	if !rec.Observe(StatusOffline, t2) {
		t.Error("Observe() did not report a transition")
	}
	if !rec.Since.Equal(t2) || !rec.LastCheck.Equal(t2) {
		t.Errorf("after transition Since=%v LastCheck=%v, want both %v", rec.Since, rec.LastCheck, t2)
	}
}

func TestServiceDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    ServiceDescriptor
		wantErr bool
	}{
		{"valid https", ServiceDescriptor{Name: "api", URL: "https://api.example.com/health"}, false},
		{"valid http", ServiceDescriptor{Name: "local", URL: "http://127.0.0.1:8080"}, false},
		{"missing name", ServiceDescriptor{URL: "https://api.example.com"}, true},
		{"blank name", ServiceDescriptor{Name: "  ", URL: "https://api.example.com"}, true},
		{"missing url", ServiceDescriptor{Name: "api"}, true},
		{"ftp scheme", ServiceDescriptor{Name: "api", URL: "ftp://example.com"}, true},
		{"no host", ServiceDescriptor{Name: "api", URL: "https://"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidService) {
					t.Errorf("Validate() = %v, want ErrInvalidService", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}
