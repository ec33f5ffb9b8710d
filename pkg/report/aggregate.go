package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/matzehuels/esmstat/pkg/classify"
	"github.com/matzehuels/esmstat/pkg/snapshot"
)

// typesScope holds type-definition packages, which are never counted.
const typesScope = "@types/"

// Row holds the style counts of one snapshot.
type Row struct {
	Date   string
	Total  int
	Counts map[classify.Style]int
}

// Count returns the number of packages with style s.
func (r Row) Count(s classify.Style) int { return r.Counts[s] }

// Share returns the fraction of counted packages with style s, or 0 for an
// empty row.
func (r Row) Share(s classify.Style) float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Counts[s]) / float64(r.Total)
}

// Count tallies the styles of one snapshot.
func Count(s *snapshot.Snapshot) Row {
	row := Row{Date: s.Date, Counts: make(map[classify.Style]int, len(classify.Styles))}
	for _, st := range classify.Styles {
		row.Counts[st] = 0
	}
	for name, st := range s.Styles {
		if strings.HasPrefix(name, typesScope) || !st.Valid() {
			continue
		}
		row.Counts[st]++
		row.Total++
	}
	return row
}

// Aggregate counts every snapshot in store, ordered by date.
func Aggregate(ctx context.Context, store snapshot.Store) ([]Row, error) {
	dates, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	rows := make([]Row, 0, len(dates))
	for _, date := range dates {
		snap, err := store.Load(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", date, err)
		}
		rows = append(rows, Count(snap))
	}
	return rows, nil
}
