package blob

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendVercel   = "vercel"
)

// Backends lists every supported backend name.
var Backends = []string{BackendMemory, BackendSQLite, BackendPostgres, BackendRedis, BackendMongo, BackendVercel}

// Config selects and parameterizes a backend.
type Config struct {
	Backend string
	BaseURL string

	SQLitePath    string
	PostgresURL   string
	RedisURL      string
	MongoURI      string
	MongoDatabase string

	VercelToken  string
	VercelAPIURL string
}

// Open constructs the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendMemory:
		s = NewMemoryStore(cfg.BaseURL)
	case BackendSQLite:
		s, err = NewSQLiteStore(ctx, cfg.SQLitePath, cfg.BaseURL)
	case BackendPostgres:
		s, err = NewPostgresStore(ctx, cfg.PostgresURL, cfg.BaseURL)
	case BackendRedis:
		s, err = NewRedisStore(ctx, cfg.RedisURL, cfg.BaseURL)
	case BackendMongo:
		s, err = NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.BaseURL)
	case BackendVercel:
		s, err = NewVercelStore(cfg.VercelToken, cfg.VercelAPIURL, nil)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s blob store: %w", cfg.Backend, err)
	}
	return s, nil
}
