package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS wedding_blobs (
	pathname    TEXT PRIMARY KEY,
	content     BYTEA NOT NULL,
	size        BIGINT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps blobs in one table. The store owns its pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	loc  locator
	now  func() time.Time
}

// NewPostgresStore connects, verifies connectivity and ensures the table exists.
func NewPostgresStore(ctx context.Context, databaseURL, baseURL string) (*PostgresStore, error) {
	pcfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{
		pool: pool,
		loc:  newLocator(baseURL),
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *PostgresStore) Put(ctx context.Context, pathname string, content []byte) (Blob, error) {
	uploadedAt := s.now().Truncate(time.Microsecond)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO wedding_blobs (pathname, content, size, uploaded_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (pathname) DO UPDATE SET
			content = EXCLUDED.content,
			size = EXCLUDED.size,
			uploaded_at = EXCLUDED.uploaded_at`,
		pathname, content, int64(len(content)), uploadedAt,
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

func (s *PostgresStore) List(ctx context.Context, prefix string) ([]Blob, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pathname, size, uploaded_at FROM wedding_blobs
		WHERE starts_with(pathname, $1)
		ORDER BY pathname`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	defer rows.Close()

	var out []Blob
	for rows.Next() {
		var b Blob
		if err := rows.Scan(&b.Pathname, &b.Size, &b.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan blob: %w", err)
		}
		b.URL = s.loc.url(b.Pathname)
		b.UploadedAt = b.UploadedAt.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	p, ok := s.loc.pathname(url)
	if !ok {
		return nil, ErrNotFound
	}

	var content []byte
	err := s.pool.QueryRow(ctx, `SELECT content FROM wedding_blobs WHERE pathname = $1`, p).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blob %s: %w", p, err)
	}
	return content, nil
}

func (s *PostgresStore) Delete(ctx context.Context, url string) error {
	p, ok := s.loc.pathname(url)
	if !ok {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM wedding_blobs WHERE pathname = $1`, p); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", p, err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
