// Package storage uses a blob store as a small document database: one JSON
// blob per record, filenames as keys and prefix listing as the only query.
//
// Nothing here is transactional. Updates delete and re-create, sequential ids
// are computed by scanning, and concurrent writers race with last-write-wins.
package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"wedding-invitation/internal/blob"
	"wedding-invitation/internal/models"
)

// Storage bundles the repositories that share one blob store
type Storage struct {
	Guests      *GuestRepository
	RSVPs       *RSVPRepository
	Config      *ConfigStore
	Invitations *InvitationLedger

	store blob.Store
}

// NewStorage creates all repositories on top of store
func NewStorage(store blob.Store, log zerolog.Logger, opts ...Option) *Storage {
	return &Storage{
		Guests:      NewGuestRepository(store, log, opts...),
		RSVPs:       NewRSVPRepository(store, log, opts...),
		Config:      NewConfigStore(store, log, opts...),
		Invitations: NewInvitationLedger(store, log, opts...),
		store:       store,
	}
}

// Stats lists guests and RSVPs in parallel and summarises them
func (s *Storage) Stats(ctx context.Context) (models.Stats, error) {
	var (
		guests []models.GuestEntry
		rsvps  []models.RSVPEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		guests, err = s.Guests.ListGuests(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rsvps, err = s.RSVPs.ListRSVPs(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Stats{}, err
	}

	return models.Summarize(guests, rsvps), nil
}

// Ping checks the backend when it supports it
func (s *Storage) Ping(ctx context.Context) error {
	p, ok := s.store.(blob.Pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping blob store: %w", err)
	}
	return nil
}

// Close releases the underlying blob store
func (s *Storage) Close() error {
	return s.store.Close()
}
