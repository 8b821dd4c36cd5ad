package cache

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis on DB 15 and skips the test
// when none is running. The integration suite starts its own container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	// Ping to check connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	// Flush test DB before each test
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewManager(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client)
	if manager == nil {
		t.Fatal("NewManager returned nil")
	}
	if manager.redis != client {
		t.Error("Manager redis client not set correctly")
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil)
}

func TestManager_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{
		Method: "GET",
		URL:    "https://api.example.com/orders",
	}

	entry := &CacheEntry{
		Data:       []byte(`{"test": "data"}`),
		StatusCode: 200,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		URL:        "https://api.example.com/orders",
		Expires:    time.Now().Add(5 * time.Minute),
		CachedAt:   time.Now(),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if string(retrieved.Data) != string(entry.Data) {
		t.Errorf("Data mismatch: got %s, want %s", retrieved.Data, entry.Data)
	}
	if retrieved.StatusCode != entry.StatusCode {
		t.Errorf("StatusCode mismatch: got %d, want %d", retrieved.StatusCode, entry.StatusCode)
	}
	if retrieved.URL != entry.URL {
		t.Errorf("URL mismatch: got %s, want %s", retrieved.URL, entry.URL)
	}
	if retrieved.Headers.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type mismatch: got %s", retrieved.Headers.Get("Content-Type"))
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{
		Method: "GET",
		URL:    "https://api.example.com/nonexistent",
	}

	_, err := manager.Get(ctx, key)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestManager_Get_ExpiredEntry(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{
		Method: "GET",
		URL:    "https://api.example.com/orders",
	}

	entry := &CacheEntry{
		Data:    []byte(`{"test": "data"}`),
		Expires: time.Now().Add(-1 * time.Hour),
	}

	// Set should not cache expired entries
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	_, err := manager.Get(ctx, key)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
	}
}

func TestManager_Get_CorruptedEntry(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{
		Method: "GET",
		URL:    "https://api.example.com/broken",
	}

	if err := client.Set(ctx, key.String(), "not-json", time.Minute).Err(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, err := manager.Get(ctx, key)
	if !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{
		Method: "GET",
		URL:    "https://api.example.com/orders",
	}

	entry := &CacheEntry{
		Data:    []byte(`{"test": "data"}`),
		Expires: time.Now().Add(5 * time.Minute),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := manager.Get(ctx, key); err != nil {
		t.Fatalf("Get after Set failed: %v", err)
	}

	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := manager.Get(ctx, key)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{
		Method: "GET",
		URL:    "https://api.example.com/orders",
	}

	err := manager.Set(ctx, key, nil)
	if err == nil {
		t.Error("Set with nil entry should return error")
	}
}

func TestManager_SeparatesIdentities(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	keyFor := func(token string) CacheKey {
		key, err := KeyFromRequest("GET", "https://api.example.com/me", http.Header{"Authorization": []string{"Bearer " + token}})
		if err != nil {
			t.Fatalf("KeyFromRequest failed: %v", err)
		}
		return key
	}

	entry := NewEntry(200, http.Header{}, "https://api.example.com/me", []byte(`{"user":"alice"}`), time.Minute)
	if err := manager.Set(ctx, keyFor("alice"), entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := manager.Get(ctx, keyFor("alice")); err != nil {
		t.Errorf("Get for alice failed: %v", err)
	}
	if _, err := manager.Get(ctx, keyFor("bob")); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get for bob = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Vary(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	keyFor := func(lang string) CacheKey {
		key, err := KeyFromRequest("GET", "https://api.example.com/products", http.Header{"Accept-Language": []string{lang}})
		if err != nil {
			t.Fatalf("KeyFromRequest failed: %v", err)
		}
		return key
	}
	headers := http.Header{"Vary": []string{"Accept-Language"}}

	en := NewEntry(200, headers, "https://api.example.com/products", []byte(`["chair"]`), time.Minute)
	de := NewEntry(200, headers, "https://api.example.com/products", []byte(`["Stuhl"]`), time.Minute)
	if err := manager.Set(ctx, keyFor("en"), en); err != nil {
		t.Fatalf("Set en failed: %v", err)
	}
	if _, err := manager.Get(ctx, keyFor("de")); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get de before Set = %v, want ErrCacheMiss", err)
	}
	if err := manager.Set(ctx, keyFor("de"), de); err != nil {
		t.Fatalf("Set de failed: %v", err)
	}

	for lang, want := range map[string]string{"en": `["chair"]`, "de": `["Stuhl"]`} {
		got, err := manager.Get(ctx, keyFor(lang))
		if err != nil {
			t.Fatalf("Get %s failed: %v", lang, err)
		}
		if string(got.Data) != want {
			t.Errorf("Get %s = %s, want %s", lang, got.Data, want)
		}
	}

	if err := manager.Delete(ctx, keyFor("en")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Get(ctx, keyFor("en")); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get en after Delete = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Set_VaryStarNotStored(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{Method: "GET", URL: "https://api.example.com/feed"}
	entry := NewEntry(200, http.Header{"Vary": []string{"*"}}, key.URL, []byte(`[]`), time.Minute)

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if n, _ := client.Exists(ctx, key.String()).Result(); n != 0 {
		t.Error("response with Vary: * should not be stored")
	}
}
