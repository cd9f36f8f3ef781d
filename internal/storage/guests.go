package storage

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"wedding-invitation/internal/blob"
	"wedding-invitation/internal/models"
)

// GuestRepository stores one blob per guest under the guest- prefix.
type GuestRepository struct {
	store blob.Store
	log   zerolog.Logger
	opts  options
}

// NewGuestRepository creates a guest repository on top of store
func NewGuestRepository(store blob.Store, log zerolog.Logger, opts ...Option) *GuestRepository {
	return &GuestRepository{
		store: store,
		log:   log.With().Str("repository", "guests").Logger(),
		opts:  newOptions(opts),
	}
}

// ListGuests returns every readable guest, newest first.
func (r *GuestRepository) ListGuests(ctx context.Context) ([]models.GuestEntry, error) {
	blobs, err := r.store.List(ctx, guestPrefix)
	if err != nil {
		return nil, StoreError{Op: "list guests", Err: err}
	}

	items, err := fetchAll[models.Guest](ctx, r.store, blobs, r.opts, "guests", r.log)
	if err != nil {
		return nil, StoreError{Op: "fetch guests", Err: err}
	}

	guests := make([]models.GuestEntry, 0, len(items))
	for _, it := range items {
		guests = append(guests, models.GuestEntry{
			Guest:      it.value,
			BlobURL:    it.blob.URL,
			UploadedAt: it.blob.UploadedAt,
		})
	}
	slices.SortStableFunc(guests, func(a, b models.GuestEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return guests, nil
}

// GetGuest loads a single guest by id
func (r *GuestRepository) GetGuest(ctx context.Context, id string) (models.Guest, error) {
	g, _, err := r.find(ctx, NormalizeGuestID(id))
	return g, err
}

// CreateGuest adds a guest with the next sequential id. Side defaults to female.
func (r *GuestRepository) CreateGuest(ctx context.Context, name string, side models.Side) (models.Guest, blob.Blob, error) {
	name, side, err := validateGuest(name, side)
	if err != nil {
		return models.Guest{}, blob.Blob{}, err
	}

	id := r.nextGuestID(ctx)
	now := r.opts.stamp()
	guest := models.Guest{
		ID:        id,
		Name:      name,
		Side:      side.OrDefault(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	b, err := r.write(ctx, guest)
	if err != nil {
		return models.Guest{}, blob.Blob{}, err
	}

	r.log.Info().Str("guest_id", id).Msg("Guest created")
	return guest, b, nil
}

// UpdateGuest replaces name and side of an existing guest.
//
// The old blob is deleted before the new one is written; a failure in between
// loses the record.
func (r *GuestRepository) UpdateGuest(ctx context.Context, id, name string, side models.Side) (models.Guest, blob.Blob, error) {
	name, side, err := validateGuest(name, side)
	if err != nil {
		return models.Guest{}, blob.Blob{}, err
	}

	id = NormalizeGuestID(id)
	existing, old, err := r.find(ctx, id)
	if err != nil {
		return models.Guest{}, blob.Blob{}, err
	}

	updated := existing
	updated.ID = id
	updated.Name = name
	if side != "" {
		updated.Side = side
	} else {
		updated.Side = existing.Side.OrDefault()
	}

	now := r.opts.stamp()
	if now.Before(existing.UpdatedAt) {
		now = existing.UpdatedAt
	}
	if now.Before(existing.CreatedAt) {
		now = existing.CreatedAt
	}
	updated.UpdatedAt = now

	if err := r.store.Delete(ctx, old.URL); err != nil {
		return models.Guest{}, blob.Blob{}, StoreError{Op: "delete guest", Err: err}
	}

	b, err := r.write(ctx, updated)
	if err != nil {
		r.log.Error().Err(err).Str("guest_id", id).Msg("Guest lost between delete and rewrite")
		return models.Guest{}, blob.Blob{}, err
	}

	r.log.Info().Str("guest_id", id).Msg("Guest updated")
	return updated, b, nil
}

// DeleteGuest removes the guest blob. RSVPs referencing the guest are kept.
func (r *GuestRepository) DeleteGuest(ctx context.Context, id string) error {
	id = NormalizeGuestID(id)
	b, err := r.locate(ctx, id)
	if err != nil {
		return err
	}

	if err := r.store.Delete(ctx, b.URL); err != nil {
		return StoreError{Op: "delete guest", Err: err}
	}

	r.log.Info().Str("guest_id", id).Msg("Guest deleted")
	return nil
}

func (r *GuestRepository) locate(ctx context.Context, id string) (blob.Blob, error) {
	if id == "" {
		return blob.Blob{}, NotFoundError{Resource: "guest"}
	}

	for _, key := range []string{guestKey(id), legacyGuestKey(id)} {
		blobs, err := r.store.List(ctx, key)
		if err != nil {
			return blob.Blob{}, StoreError{Op: "look up guest", Err: err}
		}
		if i := slices.IndexFunc(blobs, func(b blob.Blob) bool { return b.Pathname == key }); i >= 0 {
			return blobs[i], nil
		}
	}
	return blob.Blob{}, NotFoundError{Resource: "guest", ID: id}
}

func (r *GuestRepository) find(ctx context.Context, id string) (models.Guest, blob.Blob, error) {
	b, err := r.locate(ctx, id)
	if err != nil {
		return models.Guest{}, blob.Blob{}, err
	}

	g, err := fetchJSON[models.Guest](ctx, r.store, b.URL)
	if errors.Is(err, blob.ErrNotFound) {
		return models.Guest{}, blob.Blob{}, NotFoundError{Resource: "guest", ID: id}
	}
	if err != nil {
		return models.Guest{}, blob.Blob{}, StoreError{Op: "fetch guest", Err: err}
	}
	return g, b, nil
}

func (r *GuestRepository) write(ctx context.Context, g models.Guest) (blob.Blob, error) {
	data, err := encode(g)
	if err != nil {
		return blob.Blob{}, StoreError{Op: "encode guest", Err: err}
	}
	b, err := r.store.Put(ctx, guestKey(g.ID), data)
	if err != nil {
		return blob.Blob{}, StoreError{Op: "save guest", Err: err}
	}
	return b, nil
}

func validateGuest(name string, side models.Side) (string, models.Side, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", ValidationError{Field: "name", Msg: "Guest name is required"}
	}
	if side != "" && !side.Valid() {
		return "", "", ValidationError{Field: "side", Msg: "Side must be either male or female"}
	}
	return name, side, nil
}
