package blob

import (
	"context"
	"errors"
	"time"

	"wedding-invitation/internal/metrics"
)

// instrumented records operation counts and latency for any Store.
type instrumented struct {
	next Store
	m    *metrics.Metrics
}

// Instrument wraps s so every call is observed on m. A nil m returns s unchanged.
func Instrument(s Store, m *metrics.Metrics) Store {
	if m == nil {
		return s
	}
	return &instrumented{next: s, m: m}
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	s.m.BlobOps.WithLabelValues(op, result).Inc()
	s.m.BlobDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *instrumented) Put(ctx context.Context, pathname string, content []byte) (b Blob, err error) {
	defer func(start time.Time) { s.observe("put", start, err) }(time.Now())
	return s.next.Put(ctx, pathname, content)
}

func (s *instrumented) List(ctx context.Context, prefix string) (out []Blob, err error) {
	defer func(start time.Time) { s.observe("list", start, err) }(time.Now())
	return s.next.List(ctx, prefix)
}

func (s *instrumented) Fetch(ctx context.Context, url string) (body []byte, err error) {
	defer func(start time.Time) { s.observe("fetch", start, err) }(time.Now())
	return s.next.Fetch(ctx, url)
}

func (s *instrumented) Delete(ctx context.Context, url string) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	return s.next.Delete(ctx, url)
}

func (s *instrumented) Ping(ctx context.Context) error {
	if p, ok := s.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *instrumented) Close() error {
	return s.next.Close()
}
