package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/esmstat/pkg/buildinfo"
	"github.com/matzehuels/esmstat/pkg/classify"
	errs "github.com/matzehuels/esmstat/pkg/errors"
	"github.com/matzehuels/esmstat/pkg/integrations"
	"github.com/matzehuels/esmstat/pkg/snapshot"
)

type fakeRegistry map[string]string

func (f fakeRegistry) FetchPackument(_ context.Context, name string, _ bool) (*classify.Packument, error) {
	if err := errs.ValidateNpmPackageName(name); err != nil {
		return nil, err
	}
	doc, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("%w: npm package %s", integrations.ErrNotFound, name)
	}
	if doc == "down" {
		return nil, fmt.Errorf("%w: status 503", integrations.ErrNetwork)
	}
	var p classify.Packument
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := snapshot.NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &snapshot.Snapshot{Date: "2024-01-01", Styles: map[string]classify.Style{
		"a": classify.StyleESM, "b": classify.StyleCJS, "@types/a": classify.StyleCJS,
	}}))
	require.NoError(t, store.Save(ctx, &snapshot.Snapshot{Date: "2024-01-02", Styles: map[string]classify.Style{
		"a": classify.StyleDual,
	}}))

	registry := fakeRegistry{
		"@scope/pkg": `{"name":"@scope/pkg","dist-tags":{"latest":"1.0.0"},"versions":{"1.0.0":{"exports":{".":{"import":"./a.mjs","require":"./a.cjs"}}}}}`,
		"old":        `{"name":"old","versions":{}}`,
		"flaky":      "down",
	}
	srv := New(":0", store, registry, classify.New(nil), log.New(io.Discard))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)

	var health HealthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, buildinfo.Version, health.Build.Version)
}

func TestSnapshots(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/snapshots")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"dates":["2024-01-01","2024-01-02"]}`, body)

	resp, body = get(t, ts.URL+"/snapshots/2024-01-01")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap SnapshotResponse
	require.NoError(t, json.Unmarshal([]byte(body), &snap))
	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, 1, snap.Counts[classify.StyleESM])
	assert.Len(t, snap.Styles, 3)
}

func TestSnapshotErrors(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/snapshots/2023-12-31")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, `"code":"NOT_FOUND"`)

	resp, body = get(t, ts.URL+"/snapshots/yesterday")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, `"code":"INVALID_SNAPSHOT"`)
	assert.Contains(t, body, `"error":"snapshot date \"yesterday\" is not YYYY-MM-DD"`)
}

func TestChartAndCSV(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/chart.svg")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "<svg "))
	assert.Contains(t, body, ">2024-01-02</text>")

	resp, body = get(t, ts.URL+"/report.csv")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "date,total,esm,dual,faux,cjs\n2024-01-01,2,1,0,0,1\n2024-01-02,1,0,1,0,0\n", body)
}

func TestClassify(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/classify/@scope/pkg")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"name":"@scope/pkg","style":"dual"}`, body)

	resp, body = get(t, ts.URL+"/classify/old")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"name":"old","skipped":true,"reason":"no latest version"}`, body)
}

func TestClassifyErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/classify/missing", http.StatusNotFound, "NOT_FOUND"},
		{"/classify/Bad%20Name", http.StatusBadRequest, "INVALID_PACKAGE"},
		{"/classify/flaky", http.StatusBadGateway, "NETWORK_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, ts.URL+tt.path)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, body, `"code":"`+tt.code+`"`)
		})
	}
}

func TestClassifyDisabled(t *testing.T) {
	store, err := snapshot.NewFileStore(t.TempDir())
	require.NoError(t, err)
	ts := httptest.NewServer(New(":0", store, nil, nil, log.New(io.Discard)))
	defer ts.Close()

	resp, _ := get(t, ts.URL+"/classify/react")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}
