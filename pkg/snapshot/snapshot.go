// Package snapshot persists the outcome of a crawl run: one mapping from
// package name to module style per date.
//
// Three [Store] backends are provided. [FileStore] writes one JSON file per
// date, the format the report reads by default. [SQLiteStore] and
// [MongoStore] keep the same data in a database for hosts that crawl on a
// schedule and serve reports over HTTP.
package snapshot

import (
	"context"
	"errors"
	"maps"
	"regexp"
	"slices"
	"time"

	"github.com/matzehuels/esmstat/pkg/classify"
	errs "github.com/matzehuels/esmstat/pkg/errors"
)

// Latest is the name of the rolling snapshot that is not tied to a date.
const Latest = errs.SnapshotLatest

// ErrNotFound is returned by Load for a date with no snapshot.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot maps package names to their style on Date. Skipped and failed
// packages are absent.
type Snapshot struct {
	Date   string
	Styles map[string]classify.Style
}

// New returns an empty snapshot for date.
func New(date string) *Snapshot {
	return &Snapshot{Date: date, Styles: make(map[string]classify.Style)}
}

// Names returns the package names in sorted order.
func (s *Snapshot) Names() []string {
	return slices.Sorted(maps.Keys(s.Styles))
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	return &Snapshot{Date: s.Date, Styles: maps.Clone(s.Styles)}
}

// DateOf formats t as a UTC calendar date (YYYY-MM-DD).
func DateOf(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

var datasetPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// IsDataset reports whether name identifies a snapshot: it starts with a
// YYYY-MM-DD date or equals "latest".
func IsDataset(name string) bool {
	return name == Latest || datasetPattern.MatchString(name)
}

// Store persists snapshots by date. List returns dates in ascending order.
type Store interface {
	Save(ctx context.Context, s *Snapshot) error
	Load(ctx context.Context, date string) (*Snapshot, error)
	List(ctx context.Context) ([]string, error)
	Close() error
}

func validate(s *Snapshot) error {
	if s == nil {
		return errs.New(errs.ErrCodeInvalidSnapshot, "nil snapshot")
	}
	if !IsDataset(s.Date) {
		return errs.New(errs.ErrCodeInvalidSnapshot, "invalid snapshot date %q", s.Date)
	}
	return nil
}
