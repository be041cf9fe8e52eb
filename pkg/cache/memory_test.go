package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(&Options{DefaultTTL: time.Minute, MaxEntries: 100})
	defer c.Close()

	ctx := context.Background()
	value := []byte("test-value")

	if err := c.Set(ctx, "k", value, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value[0] = 'X'

	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "test-value" {
		t.Errorf("Get() = %s, stored value must be a copy", got)
	}

	got[0] = 'Y'
	again, _ := c.Get(ctx, "k")
	if string(again) != "test-value" {
		t.Errorf("Get() returned shared slice: %s", again)
	}
}

func TestMemoryCache_Overwrite(t *testing.T) {
	c := NewMemoryCache(nil)
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "k", []byte("v1"), 0)
	c.Set(ctx, "k", []byte("v2"), 0)

	got, _ := c.Get(ctx, "k")
	if string(got) != "v2" {
		t.Errorf("Get() = %s, want v2", got)
	}
	stats, _ := c.Stats(ctx)
	if stats.TotalKeys != 1 {
		t.Errorf("TotalKeys = %d, want 1", stats.TotalKeys)
	}
}

func TestMemoryCache_GetNotFound(t *testing.T) {
	c := NewMemoryCache(nil)
	defer c.Close()

	if _, err := c.Get(context.Background(), "nonexistent"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

// present проверяет ключ через Get
func present(t *testing.T, c Cache, key string) bool {
	t.Helper()
	_, err := c.Get(context.Background(), key)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get(%s) error = %v", key, err)
	}
	return err == nil
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache(nil)
	defer c.Close()

	ctx := context.Background()
	if present(t, c, "k") {
		t.Error("key should not exist yet")
	}

	c.Set(ctx, "k", []byte("value"), 0)
	if !present(t, c, "k") {
		t.Error("key should exist after Set")
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound after delete, got %v", err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("deleting a missing key should succeed, got %v", err)
	}
}

func TestMemoryCache_TTL(t *testing.T) {
	c := NewMemoryCache(&Options{CleanupInterval: 20 * time.Millisecond})
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "short", []byte("value"), 50*time.Millisecond)
	c.Set(ctx, "forever", []byte("value"), 0)

	if _, err := c.Get(ctx, "short"); err != nil {
		t.Fatalf("expected key to exist: %v", err)
	}

	time.Sleep(120 * time.Millisecond)

	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound after TTL, got %v", err)
	}
	if _, err := c.Get(ctx, "forever"); err != nil {
		t.Errorf("key without TTL expired: %v", err)
	}
}

func TestMemoryCache_DeleteByPattern(t *testing.T) {
	c := NewMemoryCache(nil)
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "solve:a:0:0", []byte("1"), 0)
	c.Set(ctx, "solve:a:3:0", []byte("2"), 0)
	c.Set(ctx, "solve:b:0:0", []byte("3"), 0)
	c.Set(ctx, "other:key", []byte("4"), 0)

	n, err := c.DeleteByPattern(ctx, "solve:a:*")
	if err != nil {
		t.Fatalf("DeleteByPattern() error = %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}
	for _, k := range []string{"solve:b:0:0", "other:key"} {
		if !present(t, c, k) {
			t.Errorf("%s should still exist", k)
		}
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	c := NewMemoryCache(nil)
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "solve:1", []byte("value1"), 0)
	c.Set(ctx, "run:2", []byte("value2"), 0)

	c.Get(ctx, "solve:1")
	c.Get(ctx, "solve:1")
	c.Get(ctx, "nonexistent")

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalKeys != 2 || stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.MemoryBytes != 12 {
		t.Errorf("MemoryBytes = %d, want 12", stats.MemoryBytes)
	}
	if stats.KeysByPrefix["solve"] != 1 || stats.KeysByPrefix["run"] != 1 {
		t.Errorf("KeysByPrefix = %v", stats.KeysByPrefix)
	}
	if stats.Backend != BackendMemory {
		t.Errorf("Backend = %s", stats.Backend)
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	c := NewMemoryCache(&Options{MaxEntries: 3})
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "key1", []byte("value1"), 0)
	c.Set(ctx, "key2", []byte("value2"), 0)
	c.Set(ctx, "key3", []byte("value3"), 0)

	// key1 становится последним использованным
	c.Get(ctx, "key1")

	c.Set(ctx, "key4", []byte("value4"), 0)

	if _, err := c.Get(ctx, "key2"); !errors.Is(err, ErrKeyNotFound) {
		t.Error("expected key2 to be evicted")
	}
	for _, k := range []string{"key1", "key3", "key4"} {
		if _, err := c.Get(ctx, k); err != nil {
			t.Errorf("expected %s to still exist", k)
		}
	}
}

func TestMemoryCache_Close(t *testing.T) {
	c := NewMemoryCache(nil)

	ctx := context.Background()
	c.Set(ctx, "key", []byte("value"), 0)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := c.Get(ctx, "key"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("expected ErrCacheClosed, got %v", err)
	}
	if err := c.Set(ctx, "key", nil, 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("expected ErrCacheClosed from Set, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("double close should not error: %v", err)
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		key     string
		want    bool
	}{
		{"star matches anything", "*", "anything", true},
		{"prefix", "solve:*", "solve:abc:0:0", true},
		{"prefix mismatch", "solve:*", "run:abc", false},
		{"suffix", "*:0:0", "solve:abc:0:0", true},
		{"suffix mismatch", "*:0:0", "solve:abc:3:0", false},
		{"exact", "solve:abc", "solve:abc", true},
		{"exact mismatch", "solve:abc", "solve:abd", false},
		{"middle wildcard", "solve:*:0", "solve:abc:7:0", true},
		{"empty middle", "solve:*:0", "solve::0", true},
		{"key too short", "prefix*suffix", "presuf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchPattern(tt.pattern, tt.key); got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.key, got, tt.want)
			}
		})
	}
}

func TestExtractPrefix(t *testing.T) {
	tests := map[string]string{
		"solve:key": "solve",
		"key":       "other",
		":key":      "other",
		"a:b:c":     "a",
	}
	for key, want := range tests {
		if got := extractPrefix(key); got != want {
			t.Errorf("extractPrefix(%q) = %q, want %q", key, got, want)
		}
	}
}
