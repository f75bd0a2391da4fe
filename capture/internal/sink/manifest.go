package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/readercap/capture/record"
)

// ManifestSchema is the SQLite layout of a capture manifest. One database
// may hold many runs; rows are keyed by run id.
const ManifestSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	ended_at    INTEGER,
	reason      TEXT,
	pages       INTEGER DEFAULT 0,
	turns       INTEGER DEFAULT 0,
	streak      INTEGER DEFAULT 0,
	resources   INTEGER DEFAULT 0,
	skipped     INTEGER DEFAULT 0,
	error       TEXT
);

CREATE TABLE IF NOT EXISTS markups (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	page        INTEGER NOT NULL,
	frame       INTEGER NOT NULL,
	url         TEXT,
	path        TEXT,
	sha256      TEXT,
	size        INTEGER,
	captured_at INTEGER NOT NULL,
	PRIMARY KEY (run_id, page, frame)
);

CREATE TABLE IF NOT EXISTS image_refs (
	run_id TEXT NOT NULL,
	page   INTEGER NOT NULL,
	frame  INTEGER NOT NULL,
	pos    INTEGER NOT NULL,
	src    TEXT NOT NULL,
	PRIMARY KEY (run_id, page, frame, pos)
);

CREATE TABLE IF NOT EXISTS resources (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	seq         INTEGER NOT NULL,
	url         TEXT NOT NULL,
	name        TEXT,
	path        TEXT,
	mime_type   TEXT,
	size        INTEGER,
	sha256      TEXT,
	captured_at INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_resources_url ON resources(url);
`

// Manifest records what a run stored in an SQLite database.
type Manifest struct {
	db    *sql.DB
	runID string
	owned bool
}

// OpenManifest opens (or creates) the manifest database at path and
// registers the run described by start.
func OpenManifest(ctx context.Context, path string, start record.Summary) (*Manifest, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("manifest: mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("manifest: open: %w", err)
	}
	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("manifest: %s: %w", p, err)
		}
	}
	m, err := NewManifest(ctx, db, start)
	if err != nil {
		db.Close()
		return nil, err
	}
	m.owned = true
	return m, nil
}

// NewManifest uses an already open database. The caller keeps ownership
// of db; Close does not close it.
func NewManifest(ctx context.Context, db *sql.DB, start record.Summary) (*Manifest, error) {
	// One writer: the observer and the loop both write, and SQLite
	// serialises writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, ManifestSchema); err != nil {
		return nil, fmt.Errorf("manifest: schema: %w", err)
	}
	startedAt := start.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO runs (id, url, started_at) VALUES (?, ?, ?)`,
		start.RunID, start.URL, startedAt.UnixMilli()); err != nil {
		return nil, fmt.Errorf("manifest: insert run: %w", err)
	}
	return &Manifest{db: db, runID: start.RunID}, nil
}

func (m *Manifest) PutMarkup(ctx context.Context, mk *record.Markup) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("manifest: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO markups (run_id, page, frame, url, path, sha256, size, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.runID, mk.Page, mk.Frame, mk.URL, mk.Path, mk.SHA256, len(mk.HTML), stamp(mk.Timestamp)); err != nil {
		return fmt.Errorf("manifest: markup %s: %w", mk.Key(), err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM image_refs WHERE run_id = ? AND page = ? AND frame = ?`,
		m.runID, mk.Page, mk.Frame); err != nil {
		return fmt.Errorf("manifest: clear refs: %w", err)
	}
	for i, src := range mk.ImageRefs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO image_refs (run_id, page, frame, pos, src) VALUES (?, ?, ?, ?, ?)`,
			m.runID, mk.Page, mk.Frame, i, src); err != nil {
			return fmt.Errorf("manifest: ref: %w", err)
		}
	}
	return tx.Commit()
}

func (m *Manifest) PutResource(ctx context.Context, r *record.Resource) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO resources (run_id, seq, url, name, path, mime_type, size, sha256, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.runID, r.Seq, r.URL, r.Name, r.Path, r.MIMEType, len(r.Data), r.SHA256, stamp(r.Timestamp))
	if err != nil {
		return fmt.Errorf("manifest: resource %d: %w", r.Seq, err)
	}
	return nil
}

func (m *Manifest) PutSummary(ctx context.Context, s record.Summary) error {
	endedAt := s.EndedAt
	if endedAt.IsZero() {
		endedAt = time.Now()
	}
	_, err := m.db.ExecContext(ctx, `
		UPDATE runs SET ended_at = ?, reason = ?, pages = ?, turns = ?, streak = ?,
		                resources = ?, skipped = ?, error = ?
		WHERE id = ?`,
		endedAt.UnixMilli(), s.Reason.String(), s.Pages, s.Turns, s.Streak,
		s.Resources, s.Skipped, s.Error, m.runID)
	if err != nil {
		return fmt.Errorf("manifest: summary: %w", err)
	}
	return nil
}

// ResourcePaths returns the stored paths of this run's resources in
// discovery order.
func (m *Manifest) ResourcePaths(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT path FROM resources WHERE run_id = ? ORDER BY seq`, m.runID)
	if err != nil {
		return nil, fmt.Errorf("manifest: query resources: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (m *Manifest) Close() error {
	if m.owned {
		return m.db.Close()
	}
	return nil
}

func stamp(ms int64) int64 {
	if ms == 0 {
		return time.Now().UnixMilli()
	}
	return ms
}
