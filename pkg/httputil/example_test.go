package httputil_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/esmstat/pkg/httputil"
)

func ExampleFileCache() {
	ctx := context.Background()
	dir := filepath.Join(os.TempDir(), "esmstat-example")
	cache, err := httputil.NewFileCache(dir, 24*time.Hour)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer os.RemoveAll(dir)

	npm := cache.Namespace("npm:")
	data := map[string]string{"name": "react", "latest": "19.0.0"}
	if err := npm.Set(ctx, "react", data); err != nil {
		fmt.Println("Error:", err)
		return
	}

	var result map[string]string
	if ok, err := npm.Get(ctx, "react", &result); ok && err == nil {
		fmt.Println("Name:", result["name"])
		fmt.Println("Latest:", result["latest"])
	}
	// Output:
	// Name: react
	// Latest: 19.0.0
}

func ExampleFileCache_miss() {
	dir := filepath.Join(os.TempDir(), "esmstat-example-miss")
	cache, _ := httputil.NewFileCache(dir, time.Hour)
	defer os.RemoveAll(dir)

	var result string
	ok, err := cache.Get(context.Background(), "nonexistent", &result)
	fmt.Println("Found:", ok)
	fmt.Println("Error:", err)
	// Output:
	// Found: false
	// Error: <nil>
}
