package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/pelican/internal/domain"
)

// setupMiniRedis creates a store backed by an in-process Redis.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewStore(client)
}

func TestStatusRecords_RoundTrip(t *testing.T) {
	_, store := setupMiniRedis(t)
	ctx := context.Background()

	since := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	want := map[string]domain.StatusRecord{
		"api":  {Status: domain.StatusOnline, Since: since, LastCheck: since.Add(10 * time.Minute)},
		"blog": {Status: domain.StatusOffline, Since: since.Add(time.Minute), LastCheck: since.Add(10 * time.Minute)},
	}

	if err := store.SaveStatusRecords(ctx, want); err != nil {
		t.Fatalf("SaveStatusRecords() error: %v", err)
	}

	got, err := store.GetStatusHistory(ctx)
	if err != nil {
		t.Fatalf("GetStatusHistory() error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusRecords_TTL(t *testing.T) {
	mr, store := setupMiniRedis(t)
	ctx := context.Background()

	rec := domain.StatusRecord{Status: domain.StatusOnline, Since: time.Now().UTC(), LastCheck: time.Now().UTC()}
	if err := store.SaveStatusRecords(ctx, map[string]domain.StatusRecord{"api": rec}); err != nil {
		t.Fatalf("SaveStatusRecords() error: %v", err)
	}

	if ttl := mr.TTL(StatusKey("api")); ttl != DefaultStatusTTL {
		t.Errorf("TTL = %v, want %v", ttl, DefaultStatusTTL)
	}

	mr.FastForward(DefaultStatusTTL + time.Second)

	got, err := store.GetStatusHistory(ctx)
	if err != nil {
		t.Fatalf("GetStatusHistory() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected expired record to be gone, got %v", got)
	}
	if members, _ := mr.Members(AllStatusKey()); len(members) != 0 {
		t.Errorf("expected index pruned, got %v", members)
	}
}

func TestDeleteStatusRecord(t *testing.T) {
	_, store := setupMiniRedis(t)
	ctx := context.Background()

	rec := domain.StatusRecord{Status: domain.StatusDegraded}
	if err := store.SaveStatusRecords(ctx, map[string]domain.StatusRecord{"a": rec, "b": rec}); err != nil {
		t.Fatalf("SaveStatusRecords() error: %v", err)
	}

	if err := store.DeleteStatusRecord(ctx, "a"); err != nil {
		t.Fatalf("DeleteStatusRecord() error: %v", err)
	}

	if _, err := store.GetStatusRecord(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetStatusRecord() after delete = %v, want ErrNotFound", err)
	}
	got, err := store.GetStatusHistory(ctx)
	if err != nil {
		t.Fatalf("GetStatusHistory() error: %v", err)
	}
	if _, ok := got["b"]; !ok || len(got) != 1 {
		t.Errorf("unexpected history after delete: %v", got)
	}
}

func TestSettings(t *testing.T) {
	_, store := setupMiniRedis(t)
	ctx := context.Background()

	if _, err := store.GetSetting(ctx, "volume"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSetting() on empty store = %v, want ErrNotFound", err)
	}

	if err := store.SetSetting(ctx, "volume", "0.8"); err != nil {
		t.Fatalf("SetSetting() error: %v", err)
	}
	if err := store.SetSetting(ctx, "theme", "dark"); err != nil {
		t.Fatalf("SetSetting() error: %v", err)
	}

	val, err := store.GetSetting(ctx, "volume")
	if err != nil {
		t.Fatalf("GetSetting() error: %v", err)
	}
	if val != "0.8" {
		t.Errorf("GetSetting() = %q, want %q", val, "0.8")
	}

	all, err := store.ListSettings(ctx)
	if err != nil {
		t.Fatalf("ListSettings() error: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"volume": "0.8", "theme": "dark"}, all); diff != "" {
		t.Errorf("ListSettings() mismatch (-want +got):\n%s", diff)
	}

	if err := store.DeleteSetting(ctx, "volume"); err != nil {
		t.Fatalf("DeleteSetting() error: %v", err)
	}
	if _, err := store.GetSetting(ctx, "volume"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSetting() after delete = %v, want ErrNotFound", err)
	}
}

func TestValidateSettingKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"volume", false},
		{"music.last_track", false},
		{"", true},
		{"a*", true},
		{"ns:key", true},
		{"has space", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateSettingKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSettingKey(%q) = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidKey) {
				t.Errorf("expected ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestPing(t *testing.T) {
	mr, store := setupMiniRedis(t)

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}

	mr.Close()
	if err := store.Ping(context.Background()); err == nil {
		t.Error("Ping() after close = nil, want error")
	}
}
