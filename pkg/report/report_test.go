package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/esmstat/pkg/classify"
	"github.com/matzehuels/esmstat/pkg/snapshot"
)

func newStore(t *testing.T, snaps ...*snapshot.Snapshot) snapshot.Store {
	t.Helper()
	store, err := snapshot.NewFileStore(t.TempDir())
	require.NoError(t, err)
	for _, s := range snaps {
		require.NoError(t, store.Save(context.Background(), s))
	}
	return store
}

func snap(date string, styles map[string]classify.Style) *snapshot.Snapshot {
	return &snapshot.Snapshot{Date: date, Styles: styles}
}

func TestCount(t *testing.T) {
	row := Count(snap("2024-01-01", map[string]classify.Style{
		"a":           classify.StyleESM,
		"b":           classify.StyleCJS,
		"c":           classify.StyleCJS,
		"d":           classify.StyleFaux,
		"@types/node": classify.StyleCJS,
		"@scope/e":    classify.StyleDual,
		"weird":       classify.Style("umd"),
	}))

	assert.Equal(t, "2024-01-01", row.Date)
	assert.Equal(t, 5, row.Total)
	assert.Equal(t, map[classify.Style]int{
		classify.StyleESM:  1,
		classify.StyleDual: 1,
		classify.StyleFaux: 1,
		classify.StyleCJS:  2,
	}, row.Counts)
	assert.InDelta(t, 0.4, row.Share(classify.StyleCJS), 1e-9)
}

func TestAggregate(t *testing.T) {
	store := newStore(t,
		snap("2024-01-02", map[string]classify.Style{"a": classify.StyleESM, "@types/a": classify.StyleCJS}),
		snap("2024-01-01", map[string]classify.Style{"a": classify.StyleCJS, "b": classify.StyleCJS}),
		snap("latest", map[string]classify.Style{}),
	)

	rows, err := Aggregate(context.Background(), store)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "2024-01-01", rows[0].Date)
	assert.Equal(t, "2024-01-02", rows[1].Date)
	assert.Equal(t, "latest", rows[2].Date)
	for _, row := range rows {
		sum := 0
		for _, st := range classify.Styles {
			sum += row.Count(st)
		}
		assert.Equal(t, row.Total, sum, row.Date)
	}
	assert.Equal(t, 1, rows[1].Total)
	assert.Zero(t, rows[2].Total)
}

type brokenStore struct{ snapshot.Store }

func (brokenStore) List(context.Context) ([]string, error) { return []string{"2024-01-01"}, nil }
func (brokenStore) Load(context.Context, string) (*snapshot.Snapshot, error) {
	return nil, errors.New("gone")
}

func TestAggregateLoadError(t *testing.T) {
	_, err := Aggregate(context.Background(), brokenStore{})
	assert.ErrorContains(t, err, "2024-01-01")
}

func TestWriteCSV(t *testing.T) {
	rows := []Row{
		Count(snap("2024-01-01", map[string]classify.Style{"a": classify.StyleESM, "b": classify.StyleCJS})),
		Count(snap("2024-01-02", map[string]classify.Style{"a": classify.StyleDual, "b": classify.StyleFaux, "c": classify.StyleCJS})),
		Count(snap("latest", nil)),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	want := "date,total,esm,dual,faux,cjs\n" +
		"2024-01-01,2,1,0,0,1\n" +
		"2024-01-02,3,0,1,1,1\n" +
		"latest,0,0,0,0,0\n"
	assert.Equal(t, want, buf.String())

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, len(rows)+1)
}

func TestRenderSVGGeometry(t *testing.T) {
	row := Count(snap("2024-01-01", map[string]classify.Style{
		"a": classify.StyleESM,
		"b": classify.StyleCJS,
		"c": classify.StyleCJS,
		"d": classify.StyleCJS,
	}))

	svg := string(RenderSVG([]Row{row}))

	assert.True(t, strings.HasPrefix(svg, `<svg viewBox="0 0 1216 160" xmlns="http://www.w3.org/2000/svg">`))
	assert.True(t, strings.HasSuffix(svg, "</svg>\n"))
	assert.Contains(t, svg, "<title>ESM vs. CJS on npm</title>")
	assert.Contains(t, svg, `<rect class="b" height="160" width="1216" x="0" y="0"/>`)

	assert.Contains(t, svg, `<rect class="esm" height="32" width="240" x="32" y="32"/>`)
	assert.Contains(t, svg, `<rect class="dual" height="32" width="0" x="272" y="32"/>`)
	assert.Contains(t, svg, `<rect class="cjs" height="32" width="720" x="272" y="32"/>`)
	assert.Contains(t, svg, `<text text-anchor="middle" transform="translate(152, 48)">25.0%</text>`)
	assert.Contains(t, svg, `<text text-anchor="middle" transform="translate(272, 48) rotate(-45)">0.0%</text>`)
	assert.Contains(t, svg, `<text text-anchor="middle" transform="translate(632, 48)">75.0%</text>`)
	assert.Contains(t, svg, `<text x="1024" y="48">2024-01-01</text>`)

	// Legend sits one gutter below the last bar.
	assert.Contains(t, svg, `<rect class="esm" height="32" width="96" x="32" y="96"/>`)
	assert.Contains(t, svg, `<rect class="cjs" height="32" width="96" x="416" y="96"/>`)
	assert.Contains(t, svg, `<text text-anchor="middle" transform="translate(464, 112)">cjs</text>`)
}

func TestRenderSVGWellFormed(t *testing.T) {
	rows := []Row{
		Count(snap("2024-01-01", map[string]classify.Style{"a": classify.StyleESM, "b": classify.StyleDual, "c": classify.StyleFaux})),
		Count(snap("latest", nil)),
	}

	svg := RenderSVG(rows, WithTitle("Modules & <friends>"))

	dec := xml.NewDecoder(bytes.NewReader(svg))
	for {
		_, err := dec.Token()
		if err != nil {
			require.ErrorContains(t, err, "EOF")
			break
		}
	}
	assert.Contains(t, string(svg), "<title>Modules &amp; &lt;friends&gt;</title>")
	assert.Equal(t, 2+1, strings.Count(string(svg), `<rect class="esm"`))
	assert.Contains(t, string(svg), `viewBox="0 0 1216 224"`)
	assert.NotContains(t, string(svg), "NaN")
}

func TestRenderSVGEmpty(t *testing.T) {
	svg := string(RenderSVG(nil))
	assert.Contains(t, svg, `viewBox="0 0 1216 96"`)
	assert.Equal(t, 1, strings.Count(svg, `<rect class="esm"`))
}
