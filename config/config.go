// Package config centralises runtime configuration for the blog client.
// Precedence is defaults, then an optional YAML file, then environment
// variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// CacheSettings tunes the entity cache refetch and freshness behaviour.
type CacheSettings struct {
	// RefetchAttempts caps background refetch retries per invalidation.
	RefetchAttempts int `yaml:"refetchAttempts" env:"BLOG_CACHE_REFETCH_ATTEMPTS"`
	// FreshFor is how long a cached read is served without revalidation.
	FreshFor time.Duration `yaml:"freshFor" env:"BLOG_CACHE_FRESH_FOR"`
	// CategoriesFreshFor is the longer freshness window for the category list.
	CategoriesFreshFor time.Duration `yaml:"categoriesFreshFor" env:"BLOG_CACHE_CATEGORIES_FRESH_FOR"`
}

// IdentitySettings locates the durable client-side key/value store.
type IdentitySettings struct {
	// Path of the JSON file backing identity and session persistence.
	// Empty selects an in-memory store that does not survive restarts.
	Path string `yaml:"path" env:"BLOG_IDENTITY_PATH"`
}

// TelemetrySettings configures the optional OTLP metric exporter.
type TelemetrySettings struct {
	OTLPEndpoint string `yaml:"otlpEndpoint" env:"BLOG_OTLP_ENDPOINT"`
	ServiceName  string `yaml:"serviceName" env:"BLOG_SERVICE_NAME"`
}

// Settings is the full client configuration tree.
type Settings struct {
	// BaseURL is the API root, e.g. http://localhost:8080/api.
	BaseURL string `yaml:"baseUrl" env:"BLOG_API_BASE_URL"`
	// HTTPTimeout bounds each request; expiry behaves like a network failure.
	HTTPTimeout time.Duration `yaml:"httpTimeout" env:"BLOG_HTTP_TIMEOUT"`
	// RequestRate throttles outgoing requests per second. Zero disables.
	RequestRate float64 `yaml:"requestRate" env:"BLOG_REQUEST_RATE"`
	// RequestBurst is the throttle burst allowance.
	RequestBurst int `yaml:"requestBurst" env:"BLOG_REQUEST_BURST"`

	Cache     CacheSettings     `yaml:"cache"`
	Identity  IdentitySettings  `yaml:"identity"`
	Telemetry TelemetrySettings `yaml:"telemetry"`
}

// Default returns the default client configuration.
func Default() Settings {
	return Settings{
		BaseURL:      "http://localhost:8080/api",
		HTTPTimeout:  10 * time.Second,
		RequestRate:  0,
		RequestBurst: 1,
		Cache: CacheSettings{
			RefetchAttempts:    3,
			FreshFor:           30 * time.Second,
			CategoriesFreshFor: 10 * time.Minute,
		},
		Identity:  IdentitySettings{Path: ""},
		Telemetry: TelemetrySettings{ServiceName: "blogkit"},
	}
}

// Load resolves the effective settings: defaults, overlaid by the YAML file at
// path when it exists, overlaid by environment variables. The boolean reports
// whether a file was read.
func Load(path string) (Settings, bool, error) {
	settings := Default()
	loaded := false

	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return Settings{}, false, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &settings); err != nil {
				return Settings{}, false, fmt.Errorf("parse config file: %w", err)
			}
			loaded = true
		}
	}

	if err := env.Parse(&settings); err != nil {
		return Settings{}, false, fmt.Errorf("parse config env: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, false, err
	}
	return settings, loaded, nil
}

// Validate checks invariants the rest of the client relies on.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.BaseURL) == "" {
		return fmt.Errorf("config: baseUrl required")
	}
	if s.HTTPTimeout < 0 {
		return fmt.Errorf("config: httpTimeout must not be negative")
	}
	if s.Cache.RefetchAttempts < 1 {
		return fmt.Errorf("config: cache.refetchAttempts must be >=1")
	}
	return nil
}
