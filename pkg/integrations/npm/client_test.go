package npm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/esmstat/pkg/classify"
	errs "github.com/matzehuels/esmstat/pkg/errors"
	"github.com/matzehuels/esmstat/pkg/httputil"
	"github.com/matzehuels/esmstat/pkg/integrations"
)

const reactDoc = `{
	"name": "react",
	"dist-tags": {"latest": "19.0.0", "next": "20.0.0-rc"},
	"description": "React is a JavaScript library for building user interfaces.",
	"repository": {"type": "git", "url": "git+https://github.com/facebook/react.git"},
	"versions": {
		"18.0.0": {"main": "index.js"},
		"19.0.0": {
			"name": "react",
			"version": "19.0.0",
			"main": "index.js",
			"exports": {".": {"react-server": "./react.react-server.js", "default": "./index.js"}},
			"repository": {"type": "git", "url": "git+https://github.com/facebook/react.git"}
		},
		"20.0.0-rc": {"type": "module"}
	}
}`

func newRegistry(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cache, err := httputil.NewFileCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewFileCache() error: %v", err)
	}
	client := NewClient(cache, server.URL, "secret")
	client.SetHTTPClient(server.Client())
	return server, client
}

func TestFetchPackument(t *testing.T) {
	var auth, accept, uri string
	_, client := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		accept = r.Header.Get("Accept")
		uri = r.RequestURI
		w.Write([]byte(reactDoc))
	})

	p, err := client.FetchPackument(context.Background(), "react", false)
	if err != nil {
		t.Fatalf("FetchPackument() error: %v", err)
	}

	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q, want bearer token", auth)
	}
	if accept != "application/json" {
		t.Errorf("Accept = %q, want application/json", accept)
	}
	if uri != "/react" {
		t.Errorf("request URI = %q, want /react", uri)
	}
	if len(p.Versions) != 1 {
		t.Errorf("got %d versions, want only latest", len(p.Versions))
	}
	m, ok := p.LatestManifest()
	if !ok {
		t.Fatal("latest manifest missing")
	}
	if m.Version != "19.0.0" {
		t.Errorf("latest version = %q, want 19.0.0", m.Version)
	}
	if p.Repository.URL != "https://github.com/facebook/react" {
		t.Errorf("repository = %q, want normalized URL", p.Repository.URL)
	}
	if m.Repository.URL != "https://github.com/facebook/react" {
		t.Errorf("manifest repository = %q, want normalized URL", m.Repository.URL)
	}

	res := classify.New(nil).Classify(p)
	if res.Style != classify.StyleCJS {
		t.Errorf("style = %q, want cjs", res.Style)
	}
}

func TestFetchPackumentScopedName(t *testing.T) {
	var uri string
	_, client := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		uri = r.RequestURI
		w.Write([]byte(`{"name":"@babel/core","dist-tags":{"latest":"7.0.0"},"versions":{"7.0.0":{"main":"lib/index.js"}}}`))
	})

	if _, err := client.FetchPackument(context.Background(), "@babel/core", false); err != nil {
		t.Fatalf("FetchPackument() error: %v", err)
	}
	if uri != "/@babel%2fcore" {
		t.Errorf("request URI = %q, want /@babel%%2fcore", uri)
	}
}

func TestFetchPackumentCache(t *testing.T) {
	var hits atomic.Int32
	_, client := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(reactDoc))
	})
	ctx := context.Background()

	for range 2 {
		if _, err := client.FetchPackument(ctx, "react", false); err != nil {
			t.Fatalf("FetchPackument() error: %v", err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("registry hits = %d, want 1 (second fetch cached)", got)
	}

	p, err := client.FetchPackument(ctx, "react", true)
	if err != nil {
		t.Fatalf("FetchPackument(refresh) error: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("registry hits = %d, want 2 after refresh", got)
	}
	if p.Latest() != "19.0.0" {
		t.Errorf("latest = %q", p.Latest())
	}
}

func TestFetchPackumentCachedRoundTripClassifiesSame(t *testing.T) {
	_, client := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"x","dist-tags":{"latest":"1.0.0"},"versions":{"1.0.0":{"exports":{"./b":{"import":"./b.mjs"},".":[null,"./a.cjs"]}}}}`))
	})
	ctx := context.Background()
	c := classify.New(nil)

	fresh, err := client.FetchPackument(ctx, "x", false)
	if err != nil {
		t.Fatalf("FetchPackument() error: %v", err)
	}
	cached, err := client.FetchPackument(ctx, "x", false)
	if err != nil {
		t.Fatalf("FetchPackument() error: %v", err)
	}

	a, b := c.Classify(fresh), c.Classify(cached)
	if a.Style != classify.StyleDual || b.Style != a.Style {
		t.Errorf("styles = %q, %q; want dual twice", a.Style, b.Style)
	}
}

func TestFetchPackumentErrors(t *testing.T) {
	tests := []struct {
		name   string
		pkg    string
		status int
		want   error
	}{
		{"not found", "missing-pkg", http.StatusNotFound, integrations.ErrNotFound},
		{"unauthorized", "private-pkg", http.StatusUnauthorized, integrations.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.FetchPackument(context.Background(), tt.pkg, false)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var regErr *RegistryError
			if !errors.As(err, &regErr) || regErr.Package != tt.pkg {
				t.Errorf("error should be RegistryError for %q, got %v", tt.pkg, err)
			}
		})
	}
}

func TestFetchPackumentInvalidName(t *testing.T) {
	var hits atomic.Int32
	_, client := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	_, err := client.FetchPackument(context.Background(), "bad name!", false)
	if !errs.Is(err, errs.ErrCodeInvalidPackage) {
		t.Errorf("error = %v, want INVALID_PACKAGE", err)
	}
	if hits.Load() != 0 {
		t.Error("invalid names must not reach the registry")
	}
}

func TestFetchPackumentMissingLatest(t *testing.T) {
	_, client := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"x","dist-tags":{"latest":"2.0.0"},"versions":{"1.0.0":{}}}`))
	})

	p, err := client.FetchPackument(context.Background(), "x", false)
	if err != nil {
		t.Fatalf("FetchPackument() error: %v", err)
	}
	res := classify.New(nil).Classify(p)
	if !res.Skipped || res.Reason != classify.ReasonMissingVersion {
		t.Errorf("result = %+v, want skipped with missing version", res)
	}
}

func TestEscapeName(t *testing.T) {
	tests := map[string]string{
		"react":       "react",
		"@babel/core": "@babel%2fcore",
		"@types/node": "@types%2fnode",
		"lodash.get":  "lodash.get",
	}
	for in, want := range tests {
		if got := EscapeName(in); got != want {
			t.Errorf("EscapeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(nil, "", "")
	if c.BaseURL() != DefaultRegistry {
		t.Errorf("BaseURL = %q, want %q", c.BaseURL(), DefaultRegistry)
	}
	c = NewClient(nil, "https://npm.example.com/", "")
	if c.BaseURL() != "https://npm.example.com" {
		t.Errorf("BaseURL = %q, trailing slash should be trimmed", c.BaseURL())
	}
}
