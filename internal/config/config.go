// Package config assembles service settings from an optional YAML file and
// EIMPACT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bher20/eimpactmanager/internal/advisor"
	"github.com/bher20/eimpactmanager/internal/alerting"
	"github.com/bher20/eimpactmanager/internal/cache"
	"github.com/bher20/eimpactmanager/internal/cron"
	"github.com/bher20/eimpactmanager/internal/logging"
	"github.com/bher20/eimpactmanager/internal/storage"
)

// EnvConfigFile names the YAML file read before the environment.
const EnvConfigFile = "EIMPACT_CONFIG"

type AuthConfig struct {
	Enabled       bool   `yaml:"enabled"`
	AdminUser     string `yaml:"admin_user"`
	AdminPassword string `yaml:"admin_password"`
}

type Config struct {
	HTTPAddr    string        `yaml:"http_addr"`
	FactorsFile string        `yaml:"factors_file"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`

	// RecommendationLimit caps the rules engine output.
	RecommendationLimit int `yaml:"recommendation_limit"`

	Storage  storage.Config  `yaml:"storage"`
	Auth     AuthConfig      `yaml:"auth"`
	Log      logging.Config  `yaml:"log"`
	Snapshot cron.Config     `yaml:"snapshot"`
	Alerting alerting.Config `yaml:"alerting"`
	Advisor  advisor.Config  `yaml:"advisor"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		HTTPAddr:            ":8000",
		CacheTTL:            cache.DefaultTTLSeconds * time.Second,
		RecommendationLimit: 8,
		Storage: storage.Config{
			Driver: "sqlite",
			DSN:    "eimpactmanager.db",
		},
		Auth: AuthConfig{AdminUser: "admin"},
		Log:  logging.Config{Level: "info", Format: "console"},
		Snapshot: cron.Config{
			Interval:    cron.DefaultInterval,
			Parallelism: 4,
		},
		Advisor: advisor.Config{Title: "eImpactManager"},
	}
}

// FromEnv returns the defaults overlaid with the file named by EIMPACT_CONFIG
// (if any) and then the environment.
func FromEnv() (Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Load is FromEnv with an explicit file path, which wins over EIMPACT_CONFIG.
func Load(path string) (Config, error) {
	if path == "" {
		return FromEnv()
	}
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := parseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("EIMPACT_HTTP_ADDR", &c.HTTPAddr)
	str("EIMPACT_FACTORS_FILE", &c.FactorsFile)
	integer("EIMPACT_RECOMMENDATION_LIMIT", &c.RecommendationLimit)
	if v, ok := lookup(cache.EnvTTLSeconds); ok && v != "" {
		ttl, err := cache.ParseTTL(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cache.EnvTTLSeconds, err))
		} else {
			c.CacheTTL = ttl
		}
	}

	str("EIMPACT_DB_DRIVER", &c.Storage.Driver)
	str("EIMPACT_DB_DSN", &c.Storage.DSN)
	boolean("EIMPACT_AUTO_MIGRATE", &c.Storage.AutoMigrate)

	boolean("EIMPACT_AUTH_ENABLED", &c.Auth.Enabled)
	str("EIMPACT_ADMIN_USER", &c.Auth.AdminUser)
	str("EIMPACT_ADMIN_PASSWORD", &c.Auth.AdminPassword)

	str("EIMPACT_LOG_LEVEL", &c.Log.Level)
	str("EIMPACT_LOG_FORMAT", &c.Log.Format)
	str("EIMPACT_LOG_FILE", &c.Log.File)

	str("EIMPACT_SNAPSHOT_INTERVAL", &c.Snapshot.Interval)
	integer("EIMPACT_SNAPSHOT_PARALLELISM", &c.Snapshot.Parallelism)

	str("EIMPACT_ALERT_WEBHOOK_URL", &c.Alerting.WebhookURL)
	str("EIMPACT_ALERT_WEBHOOK_TYPE", &c.Alerting.WebhookType)
	integer("EIMPACT_ALERT_MIN_FAILURES", &c.Alerting.MinFailures)

	str("EIMPACT_AI_API_KEY", &c.Advisor.APIKey)
	str("EIMPACT_AI_BASE_URL", &c.Advisor.BaseURL)
	str("EIMPACT_AI_MODEL", &c.Advisor.Model)

	return errors.Join(errs...)
}

// parseBool accepts the usual strconv forms plus yes/no.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	secs := int(c.CacheTTL / time.Second)
	if secs < cache.MinTTLSeconds || secs > cache.MaxTTLSeconds {
		errs = append(errs, fmt.Errorf("cache_ttl: %w: got %d", cache.ErrInvalidTTL, secs))
	}
	if c.RecommendationLimit <= 0 {
		errs = append(errs, errors.New("recommendation_limit must be positive"))
	}
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres", "postgrespool":
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.Storage.Driver))
	}
	if !cron.ValidSchedule(c.Snapshot.Interval) {
		errs = append(errs, fmt.Errorf("invalid snapshot interval %q", c.Snapshot.Interval))
	}
	if c.Auth.Enabled && c.Auth.AdminUser == "" {
		errs = append(errs, errors.New("auth.admin_user is required when auth is enabled"))
	}
	return errors.Join(errs...)
}
