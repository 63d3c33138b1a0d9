// Package platform loads configuration and wires the session store, API
// client and backend into one value with a single close path.
package platform

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/txn2/gamebuddy/pkg/backend"
	"github.com/txn2/gamebuddy/pkg/query"
	"github.com/txn2/gamebuddy/pkg/views"
)

// Session storage kinds.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageRedis    = "redis"
)

// Defaults.
const (
	DefaultBaseURL      = "http://localhost:8000"
	DefaultNamespace    = "default"
	DefaultRedisAddr    = "localhost:6379"
	DefaultMaxOpenConns = 5
	defaultSessionFile  = "~/.config/gamebuddy/session.yaml"
)

// Config holds the complete client configuration.
type Config struct {
	APIVersion string        `yaml:"apiVersion"`
	API        APIConfig     `yaml:"api"`
	Session    SessionConfig `yaml:"session"`
	Catalog    CatalogConfig `yaml:"catalog"`
	Reviews    ReviewsConfig `yaml:"reviews"`
	Log        LogConfig     `yaml:"log"`
}

// APIConfig configures the REST backend connection.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"` // 0 means no timeout
	UserAgent string        `yaml:"user_agent"`
}

// SessionConfig selects where the session is persisted.
type SessionConfig struct {
	Storage   string             `yaml:"storage"` // memory, file, postgres, sqlite, redis
	Namespace string             `yaml:"namespace"`
	File      FileStorageConfig  `yaml:"file"`
	Database  DatabaseConfig     `yaml:"database"`
	Redis     RedisStorageConfig `yaml:"redis"`
}

// FileStorageConfig configures the YAML session file.
type FileStorageConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig configures the SQL session store.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	Migrate      *bool  `yaml:"migrate"` // default: true
}

// ShouldMigrate reports whether migrations run on open.
func (c DatabaseConfig) ShouldMigrate() bool {
	return c.Migrate == nil || *c.Migrate
}

// RedisStorageConfig configures the Redis session store.
type RedisStorageConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CatalogConfig configures the game list.
type CatalogConfig struct {
	PageSize int `yaml:"page_size"`
}

// ReviewsConfig configures review lists.
type ReviewsConfig struct {
	PageSize int    `yaml:"page_size"`
	Ordering string `yaml:"ordering"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig loads configuration from a file.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args or the environment
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML config bytes.
func ParseConfig(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	version := PeekVersion(data)
	if err := checkVersion(version); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.APIVersion = version

	applyDefaults(&cfg)
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.APIVersion == "" {
		cfg.APIVersion = CurrentConfigVersion
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}
	if cfg.Session.Storage == "" {
		cfg.Session.Storage = StorageFile
	}
	if cfg.Session.Namespace == "" {
		cfg.Session.Namespace = DefaultNamespace
	}
	if cfg.Session.File.Path == "" {
		cfg.Session.File.Path = defaultSessionFile
	}
	if cfg.Session.Database.MaxOpenConns == 0 {
		cfg.Session.Database.MaxOpenConns = DefaultMaxOpenConns
	}
	if cfg.Session.Redis.Addr == "" {
		cfg.Session.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Catalog.PageSize == 0 {
		cfg.Catalog.PageSize = query.DefaultPageSize
	}
	if cfg.Reviews.PageSize == 0 {
		cfg.Reviews.PageSize = views.DefaultReviewPageSize
	}
	if cfg.Reviews.Ordering == "" {
		cfg.Reviews.Ordering = backend.DefaultReviewOrdering
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "api.base_url must be an absolute http or https URL")
	}
	if c.API.Timeout < 0 {
		errs = append(errs, "api.timeout must not be negative")
	}

	switch c.Session.Storage {
	case StorageMemory, StorageFile:
	case StoragePostgres, StorageSQLite:
		if c.Session.Database.DSN == "" {
			errs = append(errs, fmt.Sprintf("session.database.dsn is required for %s storage", c.Session.Storage))
		}
	case StorageRedis:
		if c.Session.Redis.Addr == "" {
			errs = append(errs, "session.redis.addr is required for redis storage")
		}
	default:
		errs = append(errs, fmt.Sprintf("session.storage %q is not one of memory, file, postgres, sqlite, redis", c.Session.Storage))
	}

	if c.Catalog.PageSize <= 0 {
		errs = append(errs, "catalog.page_size must be positive")
	}
	if c.Reviews.PageSize <= 0 {
		errs = append(errs, "reviews.page_size must be positive")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q is not one of text, json", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// SessionFilePath returns the session file path with a leading ~ expanded.
func (c *Config) SessionFilePath() (string, error) {
	p := c.Session.File.Path
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
