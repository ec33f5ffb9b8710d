package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCachePath(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "cache")
	t.Setenv("ESMSTAT_CACHE_DIR", dir)

	out, err := execute(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if strings.TrimSpace(out) != dir {
		t.Errorf("cache path = %q, want %q", out, dir)
	}
}

func TestCacheClear(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "cache")
	t.Setenv("ESMSTAT_CACHE_DIR", dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a", "b"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out, err := execute(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 2 cached entries") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = execute(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Cache is empty") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestCacheClearNonFileBackend(t *testing.T) {
	isolate(t)
	t.Setenv("ESMSTAT_CACHE_BACKEND", "none")

	out, err := execute(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "nothing to clear") {
		t.Errorf("unexpected output %q", out)
	}
}
