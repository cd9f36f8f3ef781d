package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"wedding-invitation/internal/blob"
	"wedding-invitation/internal/storage"
	"wedding-invitation/internal/whatsapp"
)

// Config holds the application configuration
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogPretty       bool
	CORSOrigins     string
	BodyLimit       int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	MetricsEnabled  bool

	BlobBackend   string
	BlobBaseURL   string
	SQLitePath    string
	DatabaseURL   string
	RedisURL      string
	MongoURI      string
	MongoDatabase string
	VercelToken   string
	VercelAPIURL  string

	GuestIDStrategy  string
	FetchConcurrency int
	PublicBaseURL    string

	WhatsAppEnabled      bool
	WhatsAppDataDir      string
	WhatsAppNotifyNumber string
	WhatsAppCountryCode  string

	WeddingDate     string
	WeddingLocation string
	BrideName       string
	GroomName       string
}

// LoadDotEnv reads .env files into the environment. A missing file is not an
// error; anything else is returned for the caller to log.
func LoadDotEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load .env: %w", err)
}

// LoadConfig loads configuration from environment variables or defaults
func LoadConfig() *Config {
	return &Config{
		HTTPAddr:        getEnv("WEDDING_HTTP_ADDR", ":3000"),
		LogLevel:        getEnv("WEDDING_LOG_LEVEL", "info"),
		LogPretty:       getEnvBool("WEDDING_LOG_PRETTY", false),
		CORSOrigins:     getEnv("WEDDING_CORS_ORIGINS", "*"),
		BodyLimit:       getEnvInt("WEDDING_BODY_LIMIT", 1<<20),
		ReadTimeout:     getEnvDuration("WEDDING_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("WEDDING_WRITE_TIMEOUT", 15*time.Second),
		ShutdownTimeout: getEnvDuration("WEDDING_SHUTDOWN_TIMEOUT", 10*time.Second),
		RequestTimeout:  getEnvDuration("WEDDING_REQUEST_TIMEOUT", 10*time.Second),
		MetricsEnabled:  getEnvBool("WEDDING_METRICS_ENABLED", true),

		BlobBackend:   getEnv("WEDDING_BLOB_BACKEND", blob.BackendSQLite),
		BlobBaseURL:   getEnv("WEDDING_BLOB_BASE_URL", blob.DefaultBaseURL),
		SQLitePath:    getEnv("WEDDING_SQLITE_PATH", "data/blobs.db"),
		DatabaseURL:   getEnv("WEDDING_DATABASE_URL", ""),
		RedisURL:      getEnv("WEDDING_REDIS_URL", ""),
		MongoURI:      getEnv("WEDDING_MONGO_URI", ""),
		MongoDatabase: getEnv("WEDDING_MONGO_DATABASE", "wedding"),
		VercelToken:   getEnv("BLOB_READ_WRITE_TOKEN", ""),
		VercelAPIURL:  getEnv("WEDDING_VERCEL_BLOB_API_URL", blob.DefaultVercelAPIURL),

		GuestIDStrategy:  getEnv("WEDDING_GUEST_ID_STRATEGY", string(storage.IDSequential)),
		FetchConcurrency: getEnvInt("WEDDING_FETCH_CONCURRENCY", storage.DefaultFetchConcurrency),
		PublicBaseURL:    getEnv("WEDDING_PUBLIC_BASE_URL", "http://localhost:3000"),

		WhatsAppEnabled:      getEnvBool("WHATSAPP_ENABLED", false),
		WhatsAppDataDir:      getEnv("WHATSAPP_DATA_DIR", "data"),
		WhatsAppNotifyNumber: getEnv("WHATSAPP_NOTIFY_NUMBER", ""),
		WhatsAppCountryCode:  getEnv("WHATSAPP_COUNTRY_CODE", "62"),

		WeddingDate:     getEnv("WEDDING_DATE", "Saturday, January 1, 2025"),
		WeddingLocation: getEnv("WEDDING_LOCATION", "Venue TBD"),
		BrideName:       getEnv("BRIDE_NAME", "Bride"),
		GroomName:       getEnv("GROOM_NAME", "Groom"),
	}
}

// Validate reports settings that would make startup fail later
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(blob.Backends, c.BlobBackend) {
		errs = append(errs, fmt.Errorf("WEDDING_BLOB_BACKEND must be one of %s, got %q",
			strings.Join(blob.Backends, ", "), c.BlobBackend))
	}

	switch c.BlobBackend {
	case blob.BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("WEDDING_SQLITE_PATH is required for the sqlite backend"))
		}
	case blob.BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("WEDDING_DATABASE_URL is required for the postgres backend"))
		}
	case blob.BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("WEDDING_REDIS_URL is required for the redis backend"))
		}
	case blob.BackendMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("WEDDING_MONGO_URI is required for the mongo backend"))
		}
	case blob.BackendVercel:
		if c.VercelToken == "" {
			errs = append(errs, errors.New("BLOB_READ_WRITE_TOKEN is required for the vercel backend"))
		}
	}

	switch storage.IDStrategy(c.GuestIDStrategy) {
	case storage.IDSequential, storage.IDULID:
	default:
		errs = append(errs, fmt.Errorf("WEDDING_GUEST_ID_STRATEGY must be %q or %q, got %q",
			storage.IDSequential, storage.IDULID, c.GuestIDStrategy))
	}

	if c.WhatsAppEnabled && c.WhatsAppDataDir == "" {
		errs = append(errs, errors.New("WHATSAPP_DATA_DIR is required when WhatsApp is enabled"))
	}

	return errors.Join(errs...)
}

// BlobConfig maps the settings onto blob.Open
func (c *Config) BlobConfig() blob.Config {
	return blob.Config{
		Backend:       c.BlobBackend,
		BaseURL:       c.BlobBaseURL,
		SQLitePath:    c.SQLitePath,
		PostgresURL:   c.DatabaseURL,
		RedisURL:      c.RedisURL,
		MongoURI:      c.MongoURI,
		MongoDatabase: c.MongoDatabase,
		VercelToken:   c.VercelToken,
		VercelAPIURL:  c.VercelAPIURL,
	}
}

// StorageOptions maps the settings onto the repository options
func (c *Config) StorageOptions() []storage.Option {
	return []storage.Option{
		storage.WithIDStrategy(storage.IDStrategy(c.GuestIDStrategy)),
		storage.WithFetchConcurrency(c.FetchConcurrency),
	}
}

// WhatsAppConfig maps the settings onto the WhatsApp service
func (c *Config) WhatsAppConfig() whatsapp.Config {
	return whatsapp.Config{
		DataDir:      c.WhatsAppDataDir,
		CountryCode:  c.WhatsAppCountryCode,
		NotifyNumber: c.WhatsAppNotifyNumber,
		Wedding: whatsapp.Wedding{
			Date:      c.WeddingDate,
			Location:  c.WeddingLocation,
			BrideName: c.BrideName,
			GroomName: c.GroomName,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
