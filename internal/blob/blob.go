// Package blob is the object storage boundary: named JSON documents addressed by
// pathname, listed by prefix and fetched or deleted by URL.
//
// Backends never provide transactions or atomic renames. Callers that need
// "update" semantics delete and put, and live with the window in between.
package blob

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned by Fetch when no blob exists for the URL.
var ErrNotFound = errors.New("blob not found")

// Blob describes a stored object. Content is fetched separately by URL.
type Blob struct {
	URL        string    `json:"url"`
	Pathname   string    `json:"pathname"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Store is implemented by every backend.
//
// Put overwrites an existing blob with the same pathname. Delete is idempotent.
// List returns blobs ordered by pathname.
type Store interface {
	Put(ctx context.Context, pathname string, content []byte) (Blob, error)
	List(ctx context.Context, prefix string) ([]Blob, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
	Delete(ctx context.Context, url string) error
	Close() error
}

// Pinger is implemented by backends that can report connectivity for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DefaultBaseURL prefixes URLs handed out by the self-hosted backends.
const DefaultBaseURL = "blob://local"

// locator maps pathnames to URLs for backends that do not have real URLs.
type locator struct {
	base string
}

func newLocator(base string) locator {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return locator{base: base}
}

func (l locator) url(pathname string) string {
	return l.base + "/" + pathname
}

func (l locator) pathname(url string) (string, bool) {
	p, ok := strings.CutPrefix(url, l.base+"/")
	if !ok || p == "" {
		return "", false
	}
	return p, true
}

func sortByPathname(blobs []Blob) {
	sort.Slice(blobs, func(i, j int) bool { return blobs[i].Pathname < blobs[j].Pathname })
}
