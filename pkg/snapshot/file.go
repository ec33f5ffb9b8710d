package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/esmstat/pkg/classify"
	errs "github.com/matzehuels/esmstat/pkg/errors"
)

const fileExt = ".json"

// FileStore keeps each snapshot in <dir>/<date>.json as a two-space
// indented object with sorted keys and a trailing newline.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the snapshot directory.
func (f *FileStore) Dir() string { return f.dir }

// Path returns the file that holds date.
func (f *FileStore) Path(date string) string {
	return filepath.Join(f.dir, date+fileExt)
}

// Save writes the snapshot, replacing any previous file for the same date.
// The file is written to a temporary name first and renamed into place.
func (f *FileStore) Save(_ context.Context, s *Snapshot) error {
	if err := validate(s); err != nil {
		return err
	}
	styles := s.Styles
	if styles == nil {
		styles = map[string]classify.Style{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(styles); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, "."+s.Date+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path(s.Date))
}

// Load reads the snapshot for date. Entries whose value is not a string
// decode as an empty style.
func (f *FileStore) Load(_ context.Context, date string) (*Snapshot, error) {
	data, err := os.ReadFile(f.Path(date))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, date)
	}
	if err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidSnapshot, err, "decode snapshot %s", date)
	}
	s := New(date)
	for name, v := range raw {
		var style string
		_ = json.Unmarshal(v, &style)
		s.Styles[name] = classify.Style(style)
	}
	return s, nil
}

// List returns the dates of all snapshot files. Other files are ignored.
func (f *FileStore) List(context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var dates []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		base := strings.TrimSuffix(e.Name(), fileExt)
		if IsDataset(base) {
			dates = append(dates, base)
		}
	}
	slices.Sort(dates)
	return dates, nil
}

// Close is a no-op.
func (f *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
