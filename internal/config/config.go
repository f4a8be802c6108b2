// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/hoops-harvester/internal/resume"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverLocal    = "local"
	DriverGCS      = "gcs"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Sync     SyncConfig     `mapstructure:"sync"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Status   StatusConfig   `mapstructure:"status"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SourceConfig describes the stats site being harvested.
type SourceConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	UserAgent     string `mapstructure:"user_agent"`
	RespectRobots bool   `mapstructure:"respect_robots"`
}

// SyncConfig governs a sync run.
type SyncConfig struct {
	Seasons          []string `mapstructure:"seasons"`
	Resume           bool     `mapstructure:"resume"`
	MaxInFlight      int      `mapstructure:"max_in_flight"`
	ResumeMissPolicy string   `mapstructure:"resume_miss_policy"`
}

// HTTPConfig configures HTTP client timeout and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// ThrottleConfig sets the per-host request budget. Zero disables throttling.
type ThrottleConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// StorageConfig selects the player/stat store.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ArchiveConfig controls raw page archiving.
type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Driver    string `mapstructure:"driver"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for progress notifications. An empty topic disables them.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// StatusConfig controls the status HTTP server. An empty address disables it.
type StatusConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith builds a Config using v, which may already carry bound flags.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", "https://www.basketball-reference.com")
	v.SetDefault("source.user_agent", "hoops-harvester/0.1")
	v.SetDefault("source.respect_robots", true)
	v.SetDefault("sync.seasons", []string{})
	v.SetDefault("sync.resume", false)
	v.SetDefault("sync.max_in_flight", 1)
	v.SetDefault("sync.resume_miss_policy", string(resume.MissFail))
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 5000)
	v.SetDefault("throttle.requests_per_second", 0.5)
	v.SetDefault("throttle.burst", 1)
	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.driver", DriverLocal)
	v.SetDefault("archive.base_dir", "data/pages")
	v.SetDefault("archive.prefix", "raw")
	v.SetDefault("status.listen_addr", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	u, err := url.Parse(c.Source.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("source.base_url must be an absolute url")
	}
	if len(c.Sync.Seasons) == 0 {
		return fmt.Errorf("sync.seasons must list at least one season")
	}
	if c.Sync.MaxInFlight <= 0 {
		return fmt.Errorf("sync.max_in_flight must be > 0")
	}
	if _, err := resume.ParseMissPolicy(c.Sync.ResumeMissPolicy); err != nil {
		return fmt.Errorf("sync.resume_miss_policy: %w", err)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.BackoffMaxMs < c.HTTP.BackoffInitialMs {
		return fmt.Errorf("http.backoff_max_ms must be >= http.backoff_initial_ms")
	}
	if c.Throttle.RequestsPerSecond < 0 {
		return fmt.Errorf("throttle.requests_per_second must be >= 0")
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when storage.driver is postgres")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.DB.MinConns > c.DB.MaxConns && c.DB.MaxConns > 0 {
		return fmt.Errorf("db.min_conns must be <= db.max_conns")
	}
	if c.Archive.Enabled {
		switch c.Archive.Driver {
		case DriverLocal:
			if c.Archive.BaseDir == "" {
				return fmt.Errorf("archive.base_dir must be set for the local archive")
			}
		case DriverGCS:
			if c.Archive.GCSBucket == "" {
				return fmt.Errorf("archive.gcs_bucket must be set for the gcs archive")
			}
		default:
			return fmt.Errorf("unknown archive.driver %q", c.Archive.Driver)
		}
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// RequestTimeout converts the HTTP timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// MissPolicy returns the parsed resume miss policy. Validate guarantees it parses.
func (c Config) MissPolicy() resume.MissPolicy {
	p, err := resume.ParseMissPolicy(c.Sync.ResumeMissPolicy)
	if err != nil {
		return resume.MissFail
	}
	return p
}
