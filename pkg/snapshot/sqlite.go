package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/matzehuels/esmstat/pkg/classify"
)

// SQLiteStore keeps snapshots in a single SQLite database, one row per
// package per date.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &SQLiteStore{conn: conn, path: path}
	if err := s.initializeSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize snapshot schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initializeSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			date TEXT PRIMARY KEY,
			saved_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		);
		CREATE TABLE IF NOT EXISTS styles (
			date TEXT NOT NULL REFERENCES snapshots(date) ON DELETE CASCADE,
			name TEXT NOT NULL,
			style TEXT NOT NULL,
			PRIMARY KEY (date, name)
		);
		CREATE INDEX IF NOT EXISTS idx_styles_style ON styles(date, style);
	`
	_, err := s.conn.ExecContext(ctx, schema)
	return err
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

// Save replaces all rows for the snapshot date in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := validate(snap); err != nil {
		return err
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM styles WHERE date = ?`, snap.Date); err != nil {
		return fmt.Errorf("clear snapshot %s: %w", snap.Date, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (date) VALUES (?)
		 ON CONFLICT(date) DO UPDATE SET saved_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
		snap.Date); err != nil {
		return fmt.Errorf("record snapshot %s: %w", snap.Date, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO styles (date, name, style) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, name := range snap.Names() {
		if _, err := stmt.ExecContext(ctx, snap.Date, name, string(snap.Styles[name])); err != nil {
			return fmt.Errorf("insert %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// Load returns the snapshot for date.
func (s *SQLiteStore) Load(ctx context.Context, date string) (*Snapshot, error) {
	var exists int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE date = ?`, date).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, date)
	}

	rows, err := s.conn.QueryContext(ctx, `SELECT name, style FROM styles WHERE date = ?`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := New(date)
	for rows.Next() {
		var name, style string
		if err := rows.Scan(&name, &style); err != nil {
			return nil, err
		}
		snap.Styles[name] = classify.Style(style)
	}
	return snap, rows.Err()
}

// List returns all snapshot dates in ascending order.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT date FROM snapshots ORDER BY date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
