package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string
	SQLitePath  string
	LogLevel    string
	LogPath     string

	Scheduler SchedulerConfig
	Snapshots SnapshotConfig

	DetailFetchLimit int

	Providers map[string]*ProviderConfig
	Searches  []SavedSearch
}

type SchedulerConfig struct {
	Cron     string
	Interval time.Duration
}

type SnapshotConfig struct {
	Bucket          string
	Region          string
	Endpoint        string // for DO Spaces, R2, etc.
	AccessKeyID     string
	SecretAccessKey string
}

func (c SnapshotConfig) Enabled() bool {
	return c.Bucket != ""
}

// ProviderConfig is the per-site configuration every adapter is built
// from: endpoints, identity, pacing and the static lookup tables the
// adapter needs to translate generic criteria into site-specific
// queries.
type ProviderConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"` // http, browser, api
	BaseURL     string `yaml:"base_url"`
	SearchURL   string `yaml:"search_url"`
	DetailURL   string `yaml:"detail_url"`
	UserAgent   string `yaml:"user_agent"`
	RateLimitMS int    `yaml:"rate_limit_ms"`
	ProxyURL    string `yaml:"proxy_url"`
	Headless    bool   `yaml:"headless"`

	// Locations maps human-readable names to the provider's own
	// location identifiers. Unknown names pass through unchanged.
	Locations map[string]string `yaml:"locations"`

	// PropertyTypes maps the generic vocabulary ("houses", "flats")
	// to the provider's enumeration values.
	PropertyTypes map[string]string `yaml:"property_types"`

	Endpoints map[string]string `yaml:"endpoints"`
}

// MinDelay is the enforced spacing between two outbound requests of
// one adapter instance. Defaults to one second.
func (p *ProviderConfig) MinDelay() time.Duration {
	if p.RateLimitMS <= 0 {
		return time.Second
	}
	return time.Duration(p.RateLimitMS) * time.Millisecond
}

// SavedSearch is a criteria set the daemon re-runs on schedule.
type SavedSearch struct {
	Name         string  `yaml:"name"`
	Location     string  `yaml:"location"`
	PriceMin     float64 `yaml:"price_min"`
	PriceMax     float64 `yaml:"price_max"`
	BedroomsMin  int     `yaml:"bedrooms_min"`
	BedroomsMax  int     `yaml:"bedrooms_max"`
	PropertyType string  `yaml:"property_type"`
	MaxResults   int     `yaml:"max_results"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "proplens.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogPath:     getEnv("LOG_PATH", "proplens.log"),
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SEARCH_CRON"),
		},
		Snapshots: SnapshotConfig{
			Bucket:          os.Getenv("SNAPSHOT_S3_BUCKET"),
			Region:          getEnv("SNAPSHOT_S3_REGION", "eu-west-2"),
			Endpoint:        os.Getenv("SNAPSHOT_S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("SNAPSHOT_S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("SNAPSHOT_S3_SECRET_ACCESS_KEY"),
		},
		DetailFetchLimit: getEnvInt("DETAIL_FETCH_LIMIT", 0),
		Providers:        make(map[string]*ProviderConfig),
	}

	if interval := os.Getenv("SEARCH_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid SEARCH_INTERVAL %q: %w", interval, err)
		}
		cfg.Scheduler.Interval = d
	}

	providersDir := getEnv("PROVIDERS_DIR", "config/providers")
	if err := cfg.loadProviders(providersDir); err != nil {
		return nil, err
	}

	searchesPath := getEnv("SEARCHES_PATH", "config/searches.yaml")
	if err := cfg.loadSearches(searchesPath); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadProviders(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var provider ProviderConfig
		if err := yaml.Unmarshal(data, &provider); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if provider.ID == "" {
			return fmt.Errorf("provider config %s has no id", path)
		}

		c.Providers[provider.ID] = &provider
	}

	return nil
}

func (c *Config) loadSearches(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var searches []SavedSearch
	if err := yaml.Unmarshal(data, &searches); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	c.Searches = searches
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
