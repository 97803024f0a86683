// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const manifestFile = "manifest.db"

// CacheEntry describes one cached PDF.
type CacheEntry struct {
	ArxivID   string    `json:"arxiv_id" yaml:"arxiv_id"`
	Path      string    `json:"path" yaml:"path"`
	SourceURL string    `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	Size      int64     `json:"size" yaml:"size"`
	SHA256    string    `json:"sha256" yaml:"sha256"`
	PageCount int       `json:"page_count" yaml:"page_count"`
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// Manifest indexes the PDF cache in a SQLite database stored alongside the
// cached files. The PDF files remain the source of truth; the manifest
// records where each one came from.
type Manifest struct {
	db *sql.DB
}

// OpenManifest opens or creates the manifest database in dir.
func OpenManifest(dir string) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, manifestFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	// One writer at a time; concurrent pipelines queue on the pool.
	db.SetMaxOpenConns(1)

	m := &Manifest{db: db}
	if err := m.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating manifest schema: %w", err)
	}
	return m, nil
}

// Close releases the database connection.
func (m *Manifest) Close() error {
	return m.db.Close()
}

func (m *Manifest) createSchema() error {
	_, err := m.db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		arxiv_id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		source_url TEXT,
		size INTEGER,
		sha256 TEXT,
		page_count INTEGER,
		fetched_at TEXT
	)`)
	return err
}

// Put records a freshly downloaded document, replacing any previous row.
func (m *Manifest) Put(ctx context.Context, e CacheEntry) error {
	_, err := m.db.ExecContext(ctx, `INSERT OR REPLACE INTO documents
		(arxiv_id, path, source_url, size, sha256, page_count, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ArxivID, e.Path, e.SourceURL, e.Size, e.SHA256, e.PageCount, e.FetchedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording %s in manifest: %w", e.ArxivID, err)
	}
	return nil
}

// Ensure records a document only if no row exists yet. It covers files
// that were placed in the cache directory by hand or by an older run.
func (m *Manifest) Ensure(ctx context.Context, e CacheEntry) error {
	_, err := m.db.ExecContext(ctx, `INSERT OR IGNORE INTO documents
		(arxiv_id, path, source_url, size, sha256, page_count, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ArxivID, e.Path, e.SourceURL, e.Size, e.SHA256, e.PageCount, e.FetchedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording %s in manifest: %w", e.ArxivID, err)
	}
	return nil
}

// Lookup returns the entry for arxivID. The boolean is false when absent.
func (m *Manifest) Lookup(ctx context.Context, arxivID string) (CacheEntry, bool, error) {
	row := m.db.QueryRowContext(ctx, `SELECT arxiv_id, path, source_url, size, sha256, page_count, fetched_at
		FROM documents WHERE arxiv_id = ?`, arxivID)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, fmt.Errorf("looking up %s: %w", arxivID, err)
	}
	return e, true, nil
}

// List returns every entry ordered by identifier.
func (m *Manifest) List(ctx context.Context) ([]CacheEntry, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT arxiv_id, path, source_url, size, sha256, page_count, fetched_at
		FROM documents ORDER BY arxiv_id`)
	if err != nil {
		return nil, fmt.Errorf("listing manifest: %w", err)
	}
	defer rows.Close()

	var entries []CacheEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning manifest row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (CacheEntry, error) {
	var (
		e         CacheEntry
		sourceURL sql.NullString
		sha       sql.NullString
		size      sql.NullInt64
		pages     sql.NullInt64
		fetchedAt sql.NullString
	)
	if err := s.Scan(&e.ArxivID, &e.Path, &sourceURL, &size, &sha, &pages, &fetchedAt); err != nil {
		return CacheEntry{}, err
	}
	e.SourceURL = sourceURL.String
	e.SHA256 = sha.String
	e.Size = size.Int64
	e.PageCount = int(pages.Int64)
	if fetchedAt.Valid {
		if t, err := time.Parse(time.RFC3339, fetchedAt.String); err == nil {
			e.FetchedAt = t
		}
	}
	return e, nil
}
