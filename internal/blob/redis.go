package blob

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisKeyPrefix namespaces blob keys inside a shared Redis database.
const DefaultRedisKeyPrefix = "wedding:blob:"

// RedisStore keeps each blob in a hash {content, size, uploaded_at}. Listing uses SCAN,
// so it is O(keyspace) like the prefix scans of a real object store.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	loc       locator
	now       func() time.Time
}

// NewRedisStore accepts either a redis:// URL or a bare host:port address.
func NewRedisStore(ctx context.Context, redisURL, baseURL string) (*RedisStore, error) {
	var opts *redis.Options
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return &RedisStore{
		client:    client,
		keyPrefix: DefaultRedisKeyPrefix,
		loc:       newLocator(baseURL),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithKeyPrefix isolates a store (tests use a random prefix per run).
func (s *RedisStore) WithKeyPrefix(prefix string) *RedisStore {
	s.keyPrefix = prefix
	return s
}

func (s *RedisStore) key(pathname string) string {
	return s.keyPrefix + pathname
}

func (s *RedisStore) Put(ctx context.Context, pathname string, content []byte) (Blob, error) {
	uploadedAt := s.now().Truncate(time.Millisecond)

	err := s.client.HSet(ctx, s.key(pathname),
		"content", content,
		"size", len(content),
		"uploaded_at", uploadedAt.UnixMilli(),
	).Err()
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

func (s *RedisStore) List(ctx context.Context, prefix string) ([]Blob, error) {
	match := s.key(escapeGlob(prefix)) + "*"

	var keys []string
	iter := s.client.Scan(ctx, 0, match, 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan blobs: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	metas := make([]*redis.SliceCmd, len(keys))
	for i, k := range keys {
		metas[i] = pipe.HMGet(ctx, k, "uploaded_at", "size")
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read blob metadata: %w", err)
	}

	out := make([]Blob, 0, len(keys))
	for i, k := range keys {
		vals := metas[i].Val()
		if len(vals) != 2 || vals[0] == nil {
			// Deleted between SCAN and HMGET.
			continue
		}
		ms, err := strconv.ParseInt(fmt.Sprint(vals[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid uploaded_at on %s: %w", k, err)
		}
		size, _ := strconv.ParseInt(fmt.Sprint(vals[1]), 10, 64)

		p := strings.TrimPrefix(k, s.keyPrefix)
		out = append(out, Blob{
			URL:        s.loc.url(p),
			Pathname:   p,
			Size:       size,
			UploadedAt: time.UnixMilli(ms).UTC(),
		})
	}
	sortByPathname(out)
	return out, nil
}

func (s *RedisStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	p, ok := s.loc.pathname(url)
	if !ok {
		return nil, ErrNotFound
	}

	content, err := s.client.HGet(ctx, s.key(p), "content").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blob %s: %w", p, err)
	}
	return content, nil
}

func (s *RedisStore) Delete(ctx context.Context, url string) error {
	p, ok := s.loc.pathname(url)
	if !ok {
		return nil
	}
	if err := s.client.Del(ctx, s.key(p)).Err(); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", p, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// escapeGlob quotes the characters SCAN MATCH treats as wildcards.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
