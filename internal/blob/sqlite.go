package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS blobs (
	pathname    TEXT PRIMARY KEY,
	content     BLOB NOT NULL,
	size        INTEGER NOT NULL,
	uploaded_at INTEGER NOT NULL
)`

// SQLiteStore persists blobs in a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	loc locator
	now func() time.Time
}

// NewSQLiteStore opens (and creates if needed) the database file at path.
func NewSQLiteStore(ctx context.Context, path, baseURL string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent puts.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:  db,
		loc: newLocator(baseURL),
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, pathname string, content []byte) (Blob, error) {
	uploadedAt := s.now().Truncate(time.Millisecond)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (pathname, content, size, uploaded_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(pathname) DO UPDATE SET
			content = excluded.content,
			size = excluded.size,
			uploaded_at = excluded.uploaded_at`,
		pathname, content, len(content), uploadedAt.UnixMilli(),
	)
	if err != nil {
		return Blob{}, fmt.Errorf("failed to put blob %s: %w", pathname, err)
	}

	return Blob{
		URL:        s.loc.url(pathname),
		Pathname:   pathname,
		Size:       int64(len(content)),
		UploadedAt: uploadedAt,
	}, nil
}

func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]Blob, error) {
	// substr keeps the match case-sensitive, unlike LIKE.
	rows, err := s.db.QueryContext(ctx, `
		SELECT pathname, size, uploaded_at FROM blobs
		WHERE substr(pathname, 1, length(?1)) = ?1
		ORDER BY pathname`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	defer rows.Close()

	var out []Blob
	for rows.Next() {
		var (
			b  Blob
			ms int64
		)
		if err := rows.Scan(&b.Pathname, &b.Size, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan blob: %w", err)
		}
		b.URL = s.loc.url(b.Pathname)
		b.UploadedAt = time.UnixMilli(ms).UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	p, ok := s.loc.pathname(url)
	if !ok {
		return nil, ErrNotFound
	}

	var content []byte
	err := s.db.QueryRowContext(ctx, `SELECT content FROM blobs WHERE pathname = ?`, p).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blob %s: %w", p, err)
	}
	return content, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, url string) error {
	p, ok := s.loc.pathname(url)
	if !ok {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE pathname = ?`, p); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", p, err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
