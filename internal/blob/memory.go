package blob

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	content    []byte
	uploadedAt time.Time
}

// MemoryStore keeps blobs in process memory. It is used for local development
// and tests; nothing survives a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryEntry
	loc   locator
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string]memoryEntry),
		loc:   newLocator(baseURL),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the upload timestamp source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Put(ctx context.Context, pathname string, content []byte) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return Blob{}, err
	}

	buf := make([]byte, len(content))
	copy(buf, content)
	uploadedAt := s.now()

	s.mu.Lock()
	s.blobs[pathname] = memoryEntry{content: buf, uploadedAt: uploadedAt}
	s.mu.Unlock()

	return Blob{
		URL:        s.loc.url(pathname),
		Pathname:   pathname,
		Size:       int64(len(buf)),
		UploadedAt: uploadedAt,
	}, nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) ([]Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Blob, 0, len(s.blobs))
	for p, e := range s.blobs {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		out = append(out, Blob{
			URL:        s.loc.url(p),
			Pathname:   p,
			Size:       int64(len(e.content)),
			UploadedAt: e.uploadedAt,
		})
	}
	sortByPathname(out)
	return out, nil
}

func (s *MemoryStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, ok := s.loc.pathname(url)
	if !ok {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	e, ok := s.blobs[p]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	buf := make([]byte, len(e.content))
	copy(buf, e.content)
	return buf, nil
}

func (s *MemoryStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, ok := s.loc.pathname(url)
	if !ok {
		return nil
	}

	s.mu.Lock()
	delete(s.blobs, p)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
