package storage

import (
	"time"

	"wedding-invitation/internal/metrics"
)

// IDStrategy selects how new guest ids are generated.
type IDStrategy string

const (
	// IDSequential scans existing guests and takes max+1 (guest-0001, guest-0002, ...).
	// It is racy: two concurrent creates may pick the same id.
	IDSequential IDStrategy = "sequential"
	// IDULID uses guest-<ULID>, which cannot collide but is not human-friendly.
	IDULID IDStrategy = "ulid"
)

// DefaultFetchConcurrency bounds parallel blob fetches within one listing.
const DefaultFetchConcurrency = 8

type options struct {
	now         func() time.Time
	concurrency int
	idStrategy  IDStrategy
	metrics     *metrics.Metrics
}

// Option configures the repositories.
type Option func(*options)

// WithClock overrides time.Now (tests pin it).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithFetchConcurrency bounds the per-listing fan-out; n <= 0 keeps the default.
func WithFetchConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithIDStrategy picks the guest id generator.
func WithIDStrategy(s IDStrategy) Option {
	return func(o *options) {
		if s != "" {
			o.idStrategy = s
		}
	}
}

// WithMetrics records dropped listing entries.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func newOptions(opts []Option) options {
	o := options{
		now:         func() time.Time { return time.Now().UTC() },
		concurrency: DefaultFetchConcurrency,
		idStrategy:  IDSequential,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// stamp returns the current time at millisecond precision, the resolution
// of the JavaScript timestamps already in storage.
func (o options) stamp() time.Time {
	return o.now().UTC().Truncate(time.Millisecond)
}

func (o options) dropped(collection string) {
	if o.metrics != nil {
		o.metrics.Dropped.WithLabelValues(collection).Inc()
	}
}
