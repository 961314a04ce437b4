package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"laundrmate/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvAPIURL overrides api.base_url.
const EnvAPIURL = "LAUNDRMATE_API_URL"

type Config struct {
	App        AppConfig        `yaml:"app"`
	API        APIConfig        `yaml:"api"`
	Redis      RedisConfig      `yaml:"redis"`
	Session    SessionConfig    `yaml:"session"`
	Lifecycle  LifecycleConfig  `yaml:"lifecycle"`
	Sync       SyncConfig       `yaml:"sync"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type APIConfig struct {
	BaseURL    string             `yaml:"base_url"`
	AuthScheme string             `yaml:"auth_scheme"`
	Timeout    time.Duration      `yaml:"timeout"`
	CacheTTL   time.Duration      `yaml:"cache_ttl"`
	RateLimit  APIRateLimitConfig `yaml:"rate_limit"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type SessionConfig struct {
	// Backend is one of memory, redis, sqlite, failover.
	Backend string        `yaml:"backend"`
	Path    string        `yaml:"path"`
	Key     string        `yaml:"key"`
	TTL     time.Duration `yaml:"ttl"`
}

type LifecycleConfig struct {
	AllowReopen         *bool `yaml:"allow_reopen"`
	SerializePerBooking *bool `yaml:"serialize_per_booking"`
}

type SyncConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Retry        RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

// Load reads the optional .env file and the YAML config at configPath.
// A missing config file yields the defaults.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var config Config

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		// Environment variables may be referenced as ${VAR} inside the YAML.
		expandedData := []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(expandedData, &config); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		config.API.BaseURL = v
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api base url %q is not an absolute url", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api base url scheme %q is not supported", u.Scheme)
	}

	switch c.Session.Backend {
	case "memory", "sqlite":
	case "redis", "failover":
		if c.Redis.Address == "" {
			return fmt.Errorf("session backend %q requires redis.address", c.Session.Backend)
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}

	if c.API.RateLimit.RPS < 0 {
		return errors.New("api.rate_limit.rps must not be negative")
	}

	return nil
}

// ReopenAllowed reports whether owners may move bookings back to pending.
func (c *Config) ReopenAllowed() bool {
	return c.Lifecycle.AllowReopen == nil || *c.Lifecycle.AllowReopen
}

// SerializePerBooking reports whether the per-booking in-flight guard is on.
func (c *Config) SerializePerBooking() bool {
	return c.Lifecycle.SerializePerBooking == nil || *c.Lifecycle.SerializePerBooking
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "laundrmate"
	}
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}

	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = models.DefaultAPIBaseURL
	}
	if c.API.AuthScheme == "" {
		c.API.AuthScheme = "Bearer"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = models.DefaultRequestTimeout * time.Second
	}
	if c.API.CacheTTL == 0 {
		c.API.CacheTTL = models.LaundriesCacheTTL * time.Second
	}
	if c.API.RateLimit.RPS > 0 && c.API.RateLimit.Burst <= 0 {
		c.API.RateLimit.Burst = 5
	}

	if c.Session.Backend == "" {
		c.Session.Backend = "sqlite"
	}
	if c.Session.Path == "" {
		c.Session.Path = defaultSessionPath()
	}
	if c.Session.Key == "" {
		c.Session.Key = models.DefaultSessionKey
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = models.DefaultSessionTTL * time.Second
	}

	if c.Sync.PollInterval == 0 {
		c.Sync.PollInterval = models.DefaultPollInterval * time.Second
	}
	if c.Sync.Retry.MaxRetries == 0 {
		c.Sync.Retry.MaxRetries = 5
	}
	if c.Sync.Retry.InitialDelay == 0 {
		c.Sync.Retry.InitialDelay = 2 * time.Second
	}
	if c.Sync.Retry.MaxDelay == 0 {
		c.Sync.Retry.MaxDelay = time.Minute
	}
	if c.Sync.Retry.BackoffFactor == 0 {
		c.Sync.Retry.BackoffFactor = 2
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "laundrmate/session.db"
	}
	return dir + "/laundrmate/session.db"
}
