package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/esmstat/pkg/classify"
	errs "github.com/matzehuels/esmstat/pkg/errors"
	"github.com/matzehuels/esmstat/pkg/snapshot"
)

// isolate runs the test in an empty directory with no user config,
// credentials or cache leaking in.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("NPM_TOKEN", "")
	t.Setenv("ESMSTAT_REGISTRY_TOKEN", "")
	return dir
}

// execute runs the CLI with args and returns everything printed to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	prevOut, prevErr := stdout, stderr
	stdout, stderr = &out, io.Discard
	t.Cleanup(func() { stdout, stderr = prevOut, prevErr })

	var logs bytes.Buffer
	c := New(&logs, LogInfo)
	root := c.RootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandRegistersCommands(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"crawl", "classify", "classify-file", "report", "serve", "schedule", "cache", "completion"} {
		assert.Contains(t, names, want)
	}
}

func TestCrawlRequiresToken(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("top.txt", []byte("react\n"), 0o644))

	_, err := execute(t, "crawl", "--packages", "top.txt", "--no-progress")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrCodeMissingToken))
}

func TestCrawlRejectsBadDate(t *testing.T) {
	isolate(t)
	t.Setenv("NPM_TOKEN", "secret")

	_, err := execute(t, "crawl", "--packages", "top.txt", "--date", "tomorrow")
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidSnapshot))
}

func TestCrawlAndReport(t *testing.T) {
	dir := isolate(t)

	docs := map[string]string{
		"/esm-pkg":  `{"name":"esm-pkg","dist-tags":{"latest":"1.0.0"},"versions":{"1.0.0":{"type":"module"}}}`,
		"/cjs-pkg":  `{"name":"cjs-pkg","dist-tags":{"latest":"2.0.0"},"versions":{"2.0.0":{"main":"index.js"}}}`,
		"/dual-pkg": `{"name":"dual-pkg","dist-tags":{"latest":"1.0.0"},"versions":{"1.0.0":{"exports":{".":{"import":"./a.mjs","require":"./a.cjs"}}}}}`,
	}
	var (
		mu   sync.Mutex
		auth []string
	)
	registry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = append(auth, r.Header.Get("Authorization"))
		mu.Unlock()
		doc, ok := docs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	}))
	defer registry.Close()

	t.Setenv("NPM_TOKEN", "secret")
	t.Setenv("ESMSTAT_REGISTRY_URL", registry.URL)
	t.Setenv("ESMSTAT_CACHE_BACKEND", "none")
	require.NoError(t, os.WriteFile("top.txt", []byte("esm-pkg\ncjs-pkg\ndual-pkg\ngone\n"), 0o644))

	out, err := execute(t, "crawl", "--packages", "top.txt", "--date", "2024-05-01", "--batch-size", "2", "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, out, "Crawled 4 packages")

	require.NotEmpty(t, auth)
	for _, h := range auth {
		assert.Equal(t, "Bearer secret", h)
	}

	data, err := os.ReadFile(filepath.Join(dir, "data", "2024-05-01.json"))
	require.NoError(t, err)
	var styles map[string]classify.Style
	require.NoError(t, json.Unmarshal(data, &styles))
	assert.Equal(t, map[string]classify.Style{
		"esm-pkg":  classify.StyleESM,
		"cjs-pkg":  classify.StyleCJS,
		"dual-pkg": classify.StyleDual,
	}, styles)

	out, err = execute(t, "report", "--svg", "chart.svg", "--csv", "table.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "Rendered 1 snapshots")

	csv, err := os.ReadFile("table.csv")
	require.NoError(t, err)
	assert.Equal(t, "date,total,esm,dual,faux,cjs\n2024-05-01,3,1,1,0,1\n", string(csv))

	svg, err := os.ReadFile("chart.svg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(svg), "<svg "))
}

func TestReportEmptyStore(t *testing.T) {
	isolate(t)

	_, err := execute(t, "report")
	require.NoError(t, err)

	csv, err := os.ReadFile("index.csv")
	require.NoError(t, err)
	assert.Equal(t, "date,total,esm,dual,faux,cjs\n", string(csv))
}

func TestReportSQLiteStore(t *testing.T) {
	isolate(t)
	t.Setenv("ESMSTAT_STORE_SQLITE_PATH", "snap.db")

	ctx := context.Background()
	store, err := snapshot.OpenSQLite(ctx, "snap.db")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, &snapshot.Snapshot{Date: "2024-01-01", Styles: map[string]classify.Style{"a": classify.StyleFaux}}))
	require.NoError(t, store.Close())

	_, err = execute(t, "report", "--store", "sqlite")
	require.NoError(t, err)

	csv, err := os.ReadFile("index.csv")
	require.NoError(t, err)
	assert.Equal(t, "date,total,esm,dual,faux,cjs\n2024-01-01,1,0,0,1,0\n", string(csv))
}

func TestClassifyFile(t *testing.T) {
	isolate(t)
	doc := `{"name":"faux-pkg","dist-tags":{"latest":"1.0.0"},"versions":{"1.0.0":{"module":"./es/index.js","main":"./index.js"}}}`
	require.NoError(t, os.WriteFile("pkg.json", []byte(doc), 0o644))

	out, err := execute(t, "classify-file", "--json", "pkg.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"faux-pkg","style":"faux"}`, out)

	out, err = execute(t, "classify-file", "pkg.json")
	require.NoError(t, err)
	assert.Contains(t, out, "faux-pkg")
	assert.Contains(t, out, "faux")
}

func TestClassifyFileSpam(t *testing.T) {
	isolate(t)
	doc := `{"name":"x","dist-tags":{"latest":"0.0.1-security"},"versions":{"0.0.1-security":{}},"repository":"npm/security-holder"}`
	require.NoError(t, os.WriteFile("pkg.json", []byte(doc), 0o644))

	out, err := execute(t, "classify-file", "--json", "pkg.json")
	require.NoError(t, err)

	var got classify.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Skipped)
	assert.Equal(t, classify.ReasonSecurityHolder, got.Reason)
}

func TestClassifyFilePackageJSON(t *testing.T) {
	isolate(t)
	require.NoError(t, os.MkdirAll("proj", 0o755))
	path := filepath.Join("proj", "package.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"proj","version":"1.0.0","exports":{"import":"./a.mjs","require":"./a.cjs"}}`), 0o644))

	out, err := execute(t, "classify-file", "--json", path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"proj","style":"dual"}`, out)
}

func TestClassifyFileMissing(t *testing.T) {
	isolate(t)
	_, err := execute(t, "classify-file", "nope.json")
	assert.Error(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	isolate(t)
	t.Setenv("ESMSTAT_STORE_BACKEND", "postgres")

	_, err := execute(t, "report")
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidConfig))
}

func TestFlagCompletions(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()

	tests := []struct {
		cmd, flag string
		want      []string
	}{
		{"crawl", "store", []string{"file", "sqlite", "mongo"}},
		{"crawl", "backoff", []string{"flat", "exponential"}},
		{"crawl", "date", []string{"latest"}},
		{"report", "store", []string{"file", "sqlite", "mongo"}},
		{"schedule", "cron", []string{"0 0 * * *"}},
	}
	for _, tt := range tests {
		t.Run(tt.cmd+" "+tt.flag, func(t *testing.T) {
			cmd, _, err := root.Find([]string{tt.cmd})
			require.NoError(t, err)
			complete, ok := cmd.GetFlagCompletionFunc(tt.flag)
			require.True(t, ok)
			got, directive := complete(cmd, nil, "")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
		})
	}
}

func TestCompletionScript(t *testing.T) {
	out, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "esmstat")
}
