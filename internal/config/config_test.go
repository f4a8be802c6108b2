package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/hoops-harvester/internal/resume"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
source:
  base_url: https://stats.example.com
  user_agent: test-agent
  respect_robots: false
sync:
  seasons: ["2021", "2022"]
  resume: true
  max_in_flight: 3
  resume_miss_policy: rescan
http:
  timeout_seconds: 45
  max_retries: 4
  backoff_initial_ms: 100
  backoff_max_ms: 500
throttle:
  requests_per_second: 2
  burst: 3
storage:
  driver: postgres
db:
  dsn: postgres://localhost/hoops
  max_conns: 8
  min_conns: 2
archive:
  enabled: true
  driver: gcs
  gcs_bucket: pages
  prefix: html
pubsub:
  project_id: proj
  topic_name: sync-progress
status:
  listen_addr: ":9090"
logging:
  development: false
  level: debug
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source.BaseURL != "https://stats.example.com" || cfg.Source.RespectRobots {
		t.Fatalf("expected source overrides to apply: %+v", cfg.Source)
	}
	if len(cfg.Sync.Seasons) != 2 || cfg.Sync.Seasons[1] != "2022" || !cfg.Sync.Resume {
		t.Fatalf("expected sync overrides to apply: %+v", cfg.Sync)
	}
	if cfg.MissPolicy() != resume.MissRescan {
		t.Fatalf("expected rescan policy, got %q", cfg.MissPolicy())
	}
	if cfg.Throttle.RequestsPerSecond != 2 || cfg.Throttle.Burst != 3 {
		t.Fatalf("expected throttle overrides to apply: %+v", cfg.Throttle)
	}
	if cfg.DB.MaxConns != 8 || cfg.DB.MinConns != 2 {
		t.Fatalf("expected db overrides to apply: %+v", cfg.DB)
	}
	if !cfg.Archive.Enabled || cfg.Archive.Driver != DriverGCS || cfg.Archive.GCSBucket != "pages" {
		t.Fatalf("expected archive overrides to apply: %+v", cfg.Archive)
	}
	if cfg.Status.ListenAddr != ":9090" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected status and logging overrides to apply")
	}
	if got := cfg.RequestTimeout(); got != 45*time.Second {
		t.Fatalf("expected request timeout 45s, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("sync.seasons", []string{"2024"})
	cfg, err := LoadWith(v, "")
	if err != nil {
		t.Fatalf("LoadWith() error = %v", err)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Fatalf("expected memory driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Sync.MaxInFlight != 1 {
		t.Fatalf("expected max_in_flight 1, got %d", cfg.Sync.MaxInFlight)
	}
	if cfg.MissPolicy() != resume.MissFail {
		t.Fatalf("expected fail policy, got %q", cfg.MissPolicy())
	}
	if !cfg.Source.RespectRobots || cfg.Archive.Enabled {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HARVESTER_SYNC_SEASONS", "2019,2020")
	t.Setenv("HARVESTER_SYNC_MAX_IN_FLIGHT", "2")
	t.Setenv("HARVESTER_STORAGE_DRIVER", "postgres")
	t.Setenv("HARVESTER_DB_DSN", "postgres://env/hoops")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Sync.Seasons) != 2 || cfg.Sync.Seasons[0] != "2019" {
		t.Fatalf("expected seasons from env, got %v", cfg.Sync.Seasons)
	}
	if cfg.Sync.MaxInFlight != 2 || cfg.DB.DSN != "postgres://env/hoops" {
		t.Fatalf("expected env overrides to apply: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Source:  SourceConfig{BaseURL: "https://stats.example.com"},
		Sync:    SyncConfig{Seasons: []string{"2024"}, MaxInFlight: 1},
		HTTP:    HTTPConfig{TimeoutSeconds: 10},
		Storage: StorageConfig{Driver: DriverMemory},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{name: "relative base url", mutate: func(c *Config) { c.Source.BaseURL = "/players" }, want: "source.base_url"},
		{name: "no seasons", mutate: func(c *Config) { c.Sync.Seasons = nil }, want: "sync.seasons"},
		{name: "invalid in flight", mutate: func(c *Config) { c.Sync.MaxInFlight = 0 }, want: "sync.max_in_flight"},
		{name: "unknown miss policy", mutate: func(c *Config) { c.Sync.ResumeMissPolicy = "skip" }, want: "sync.resume_miss_policy"},
		{name: "invalid timeout", mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, want: "http.timeout_seconds"},
		{name: "negative retries", mutate: func(c *Config) { c.HTTP.MaxRetries = -1 }, want: "http.max_retries"},
		{name: "inverted backoff", mutate: func(c *Config) { c.HTTP.BackoffInitialMs = 500 }, want: "http.backoff_max_ms"},
		{name: "negative rate", mutate: func(c *Config) { c.Throttle.RequestsPerSecond = -1 }, want: "throttle.requests_per_second"},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "sqlite" }, want: "storage.driver"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.Driver = DriverPostgres }, want: "db.dsn"},
		{name: "inverted pool", mutate: func(c *Config) { c.DB.MaxConns, c.DB.MinConns = 1, 2 }, want: "db.min_conns"},
		{
			name:   "local archive without dir",
			mutate: func(c *Config) { c.Archive = ArchiveConfig{Enabled: true, Driver: DriverLocal} },
			want:   "archive.base_dir",
		},
		{
			name:   "gcs archive without bucket",
			mutate: func(c *Config) { c.Archive = ArchiveConfig{Enabled: true, Driver: DriverGCS} },
			want:   "archive.gcs_bucket",
		},
		{
			name:   "unknown archive driver",
			mutate: func(c *Config) { c.Archive = ArchiveConfig{Enabled: true, Driver: "s3"} },
			want:   "archive.driver",
		},
		{name: "topic without project", mutate: func(c *Config) { c.PubSub.TopicName = "progress" }, want: "pubsub.project_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			cfg.Sync.Seasons = append([]string(nil), base.Sync.Seasons...)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
