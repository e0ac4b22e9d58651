// Package cache persists extracted pattern records between runs, keyed by
// file content so an edit always invalidates the entry.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/simonhull/norms/pkg/logger"
	"github.com/simonhull/norms/pkg/pattern"
)

// FileName is the database file created inside the cache directory
const FileName = "records.db"

// Key identifies one extraction result
type Key struct {
	Path     string
	Hash     string // sha256 of the file content
	Role     string
	Language string
	Version  string // extractor version; a bump invalidates every entry
}

// KeyFor builds the key of content extracted for role in lang
func KeyFor(path string, content []byte, role, lang, version string) Key {
	sum := sha256.Sum256(content)
	return Key{
		Path:     path,
		Hash:     hex.EncodeToString(sum[:]),
		Role:     role,
		Language: lang,
		Version:  version,
	}
}

// Cache is a SQLite-backed record store
type Cache struct {
	db     *sql.DB
	logger logger.Logger
}

// Open creates or opens the cache database inside dir
func Open(dir string, log logger.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return OpenPath(filepath.Join(dir, FileName), log)
}

// OpenPath opens the cache database at an explicit path
func OpenPath(path string, log logger.Logger) (*Cache, error) {
	if log == nil {
		log = logger.Default()
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	// Workers write concurrently; sqlite serializes writers anyway.
	db.SetMaxOpenConns(1)

	c := &Cache{db: db, logger: log}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database connection
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS records (
			path     TEXT NOT NULL,
			hash     TEXT NOT NULL,
			role     TEXT NOT NULL,
			language TEXT NOT NULL,
			version  TEXT NOT NULL,
			record   TEXT NOT NULL,
			PRIMARY KEY (path, hash, role, language, version)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_path ON records(path);`,
	}
	for _, q := range queries {
		if _, err := c.db.Exec(q); err != nil {
			return fmt.Errorf("creating cache schema: %w", err)
		}
	}
	return nil
}

// Get returns the cached record for key. A miss is not an error.
func (c *Cache) Get(ctx context.Context, key Key) (pattern.Record, bool, error) {
	var raw string
	err := c.db.QueryRowContext(ctx,
		`SELECT record FROM records WHERE path = ? AND hash = ? AND role = ? AND language = ? AND version = ?`,
		key.Path, key.Hash, key.Role, key.Language, key.Version,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return pattern.Record{}, false, nil
	}
	if err != nil {
		return pattern.Record{}, false, fmt.Errorf("reading cached record for %s: %w", key.Path, err)
	}

	var rec pattern.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		c.logger.Warn("Discarding corrupt cache entry", logger.F("path", key.Path), logger.F("error", err.Error()))
		return pattern.Record{}, false, nil
	}
	return rec, true, nil
}

// Put stores rec under key. Older entries for the same path and role are
// replaced so the table tracks the current content only.
func (c *Cache) Put(ctx context.Context, key Key, rec pattern.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record for %s: %w", key.Path, err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE path = ? AND role = ? AND language = ?`,
		key.Path, key.Role, key.Language); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO records (path, hash, role, language, version, record) VALUES (?, ?, ?, ?, ?, ?)`,
		key.Path, key.Hash, key.Role, key.Language, key.Version, string(data)); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return tx.Commit()
}

// Len returns the number of cached records
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}

// Clear removes every cached record
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}
