package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"wedding-invitation/internal/blob"
	"wedding-invitation/internal/models"
)

// ConfigFilename is the only blob the config store owns.
const ConfigFilename = "wedding-config.json"

// ConfigStore holds the event configuration as a single document.
type ConfigStore struct {
	store blob.Store
	log   zerolog.Logger
	opts  options
}

// NewConfigStore creates a config store on top of store
func NewConfigStore(store blob.Store, log zerolog.Logger, opts ...Option) *ConfigStore {
	return &ConfigStore{
		store: store,
		log:   log.With().Str("repository", "config").Logger(),
		opts:  newOptions(opts),
	}
}

// Get returns the stored configuration document, or the default one when
// nothing has been saved yet. The default is never written back.
func (s *ConfigStore) Get(ctx context.Context) (json.RawMessage, error) {
	blobs, err := s.store.List(ctx, ConfigFilename)
	if err != nil {
		return nil, StoreError{Op: "look up config", Err: err}
	}
	if len(blobs) == 0 {
		return s.defaultDoc()
	}

	doc, err := fetchJSON[json.RawMessage](ctx, s.store, blobs[0].URL)
	if errors.Is(err, blob.ErrNotFound) {
		return s.defaultDoc()
	}
	if err != nil {
		return nil, StoreError{Op: "fetch config", Err: err}
	}
	return doc, nil
}

// Set replaces the whole configuration with doc, byte for byte. Keys the
// Event type does not describe are kept. The previous document is deleted
// first and cannot be recovered.
func (s *ConfigStore) Set(ctx context.Context, doc json.RawMessage) (blob.Blob, error) {
	if !json.Valid(doc) {
		return blob.Blob{}, ValidationError{Msg: "Invalid JSON body"}
	}

	blobs, err := s.store.List(ctx, ConfigFilename)
	if err != nil {
		return blob.Blob{}, StoreError{Op: "look up config", Err: err}
	}
	if len(blobs) > 0 {
		if err := s.store.Delete(ctx, blobs[0].URL); err != nil {
			return blob.Blob{}, StoreError{Op: "delete config", Err: err}
		}
	}

	b, err := s.store.Put(ctx, ConfigFilename, doc)
	if err != nil {
		return blob.Blob{}, StoreError{Op: "save config", Err: err}
	}

	var known models.EventConfig
	_ = json.Unmarshal(doc, &known)
	s.log.Info().Int("events", len(known.Events)).Int("bytes", len(doc)).Msg("Configuration updated")
	return b, nil
}

func (s *ConfigStore) defaultDoc() (json.RawMessage, error) {
	data, err := encode(models.DefaultEventConfig())
	if err != nil {
		return nil, StoreError{Op: "encode config", Err: err}
	}
	return data, nil
}
