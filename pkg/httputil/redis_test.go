package httputil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Set ESMSTAT_TEST_REDIS=redis://localhost:6379/15 to run against a server.
func newTestRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	url := os.Getenv("ESMSTAT_TEST_REDIS")
	if url == "" {
		t.Skip("ESMSTAT_TEST_REDIS not set")
	}
	c, err := NewRedisCache(context.Background(), url, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisCache() failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c.Namespace("test:" + uuid.NewString() + ":")
}

func TestRedisCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := newTestRedisCache(t)

	var v map[string]string
	ok, err := c.Get(ctx, "react", &v)
	if ok || err != nil {
		t.Fatalf("Get() before Set = %v, %v; want false, nil", ok, err)
	}

	if err := c.Set(ctx, "react", map[string]string{"latest": "19.0.0"}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	ok, err = c.Get(ctx, "react", &v)
	if !ok || err != nil {
		t.Fatalf("Get() = %v, %v; want true, nil", ok, err)
	}
	if v["latest"] != "19.0.0" {
		t.Errorf("got %v, want latest=19.0.0", v)
	}
}

func TestNewRedisCache_BadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "not a url", time.Minute); err == nil {
		t.Error("expected error for invalid url")
	}
}
