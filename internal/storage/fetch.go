package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"wedding-invitation/internal/blob"
)

type fetched[T any] struct {
	blob  blob.Blob
	value T
}

// fetchAll downloads and decodes every blob concurrently. A blob that cannot be
// fetched or decoded is logged and left out; it never fails the whole listing.
// Only cancellation of ctx is reported as an error.
func fetchAll[T any](ctx context.Context, store blob.Store, blobs []blob.Blob, o options, collection string, log zerolog.Logger) ([]fetched[T], error) {
	results := make([]*fetched[T], len(blobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, b := range blobs {
		g.Go(func() error {
			v, err := fetchJSON[T](gctx, store, b.URL)
			if err != nil {
				log.Warn().Err(err).Str("pathname", b.Pathname).Msg("Skipping unreadable blob")
				o.dropped(collection)
				return nil
			}
			results[i] = &fetched[T]{blob: b, value: v}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]fetched[T], 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func fetchJSON[T any](ctx context.Context, store blob.Store, url string) (T, error) {
	var v T
	body, err := store.Fetch(ctx, url)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return v, nil
}

// encode matches the two-space indented JSON the site has always written.
func encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}
	return data, nil
}
