// Package config loads the daemon configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Keksclan/gamecatalog/catalog"
	"github.com/Keksclan/gamecatalog/rawg"
)

// ErrMissingAPIKey is returned by Load when RAWG_API_KEY is unset or blank.
var ErrMissingAPIKey = errors.New("config: RAWG_API_KEY is required")

// Config holds all daemon configuration.
type Config struct {
	RAWG    RAWGConfig
	Cache   CacheConfig
	Retry   RetryConfig
	Breaker BreakerConfig
	Catalog CatalogConfig
	Server  ServerConfig
	Log     LogConfig

	TracingEnabled bool `env:"TRACING_ENABLED" envDefault:"false"`
}

// RAWGConfig configures the outbound catalog API client.
type RAWGConfig struct {
	APIKey  string        `env:"RAWG_API_KEY"`
	BaseURL string        `env:"RAWG_BASE_URL" envDefault:"https://api.rawg.io/api"`
	Timeout time.Duration `env:"RAWG_TIMEOUT" envDefault:"10s"`
	// RateLimit is in requests per second; 0 disables client-side limiting.
	RateLimit float64 `env:"RAWG_RATE_LIMIT" envDefault:"0"`
	RateBurst int     `env:"RAWG_RATE_BURST" envDefault:"5"`
}

type CacheConfig struct {
	TTL        time.Duration `env:"CACHE_TTL" envDefault:"60s"`
	MaxEntries int64         `env:"CACHE_MAX_ENTRIES" envDefault:"10000"`
	// RedisAddr enables the shared second tier when set.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

type RetryConfig struct {
	MaxAttempts int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"4"`
	Backoff     time.Duration `env:"RETRY_BACKOFF" envDefault:"1s"`
}

type BreakerConfig struct {
	Failures    int           `env:"BREAKER_FAILURES" envDefault:"5"`
	OpenTimeout time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
}

type CatalogConfig struct {
	Categories     []string `env:"CATALOG_CATEGORIES" envDefault:"popular,upcoming,aaa,cracked,uncracked" envSeparator:","`
	SearchPageSize int      `env:"SEARCH_PAGE_SIZE" envDefault:"20"`
}

// ServerConfig configures the inbound gRPC and HTTP listeners.
type ServerConfig struct {
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":9090"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	// RPCRateLimit is in calls per second across all methods; 0 disables it.
	RPCRateLimit float64 `env:"RPC_RATE_LIMIT" envDefault:"0"`
	RPCRateBurst int     `env:"RPC_RATE_BURST" envDefault:"50"`
	// SearchPerMinute caps the Search method separately; 0 disables it.
	SearchPerMinute int           `env:"RPC_SEARCH_PER_MINUTE" envDefault:"0"`
	RPCTimeout      time.Duration `env:"RPC_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from environ instead of the process
// environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the struct tags cannot express.
func (c *Config) Validate() error {
	c.RAWG.APIKey = strings.TrimSpace(c.RAWG.APIKey)
	if c.RAWG.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("config: CACHE_TTL must be positive, got %s", c.Cache.TTL)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("config: CACHE_MAX_ENTRIES must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("config: RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Catalog.SearchPageSize < 1 || c.Catalog.SearchPageSize > rawg.MaxPageSize {
		return fmt.Errorf("config: SEARCH_PAGE_SIZE must be within 1..%d, got %d", rawg.MaxPageSize, c.Catalog.SearchPageSize)
	}
	names := c.Catalog.Categories[:0]
	for _, n := range c.Catalog.Categories {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	c.Catalog.Categories = names
	if _, err := catalog.BuildCategories(time.Now(), nil, names...); err != nil {
		return fmt.Errorf("config: CATALOG_CATEGORIES: %w", err)
	}
	return nil
}
