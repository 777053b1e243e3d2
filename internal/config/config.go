// Package config loads run configuration from a YAML file, a .env file and
// EXAM_EVENTS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/pfrederiksen/exam-events/internal/exam"
	"github.com/pfrederiksen/exam-events/internal/extract"
	"github.com/pfrederiksen/exam-events/internal/logger"
	"github.com/pfrederiksen/exam-events/internal/scraper"
	"github.com/pfrederiksen/exam-events/internal/storage"
)

// EnvPrefix prefixes every environment override, e.g. EXAM_EVENTS_DATABASE_DSN.
const EnvPrefix = "EXAM_EVENTS"

// Config is the complete run configuration
type Config struct {
	Database   storage.Config   `mapstructure:"database"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Run        RunConfig        `mapstructure:"run"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        logger.Config    `mapstructure:"log"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	// Sources replaces the built-in registry when non-empty
	Sources []scraper.Source `mapstructure:"sources"`
}

// ExtractionConfig tunes date extraction
type ExtractionConfig struct {
	// YearFloor discards dates before this year. Zero means the current year.
	YearFloor           int      `mapstructure:"year_floor"`
	ContextWindow       int      `mapstructure:"context_window"`
	ExamKeywords        []string `mapstructure:"exam_keywords"`
	ApplicationKeywords []string `mapstructure:"application_keywords"`
	StartKeywords       []string `mapstructure:"start_keywords"`
}

// FetchConfig configures page fetching
type FetchConfig struct {
	scraper.FetcherOptions `mapstructure:",squash"`
	MaxDetailPages         int `mapstructure:"max_detail_pages"`
}

// CacheConfig enables the Redis page cache when RedisURL is set
type CacheConfig struct {
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RunConfig bounds one orchestrator run
type RunConfig struct {
	Workers        int           `mapstructure:"workers"`
	AdapterTimeout time.Duration `mapstructure:"adapter_timeout"`
}

// ScheduleConfig drives the serve command
type ScheduleConfig struct {
	Cron          string `mapstructure:"cron"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// MetricsConfig sets the metrics listen address
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// NotifyConfig controls announcements of new exams
type NotifyConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Channel is twitter or telegram
	Channel  string   `mapstructure:"channel"`
	DryRun   bool     `mapstructure:"dry_run"`
	MaxPosts int      `mapstructure:"max_posts"`
	Bodies   []string `mapstructure:"bodies"`
}

const (
	ChannelTwitter  = "twitter"
	ChannelTelegram = "telegram"
)

// Load reads configuration. An explicit path must exist; without one the
// default search paths are tried and a missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "exam-events"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	ex := extract.DefaultOptions()
	fetch := scraper.DefaultFetcherOptions()

	v.SetDefault("database.driver", storage.DriverSQLite)
	v.SetDefault("database.dsn", storage.DefaultDSN)

	v.SetDefault("extraction.year_floor", 0)
	v.SetDefault("extraction.context_window", ex.Window)
	v.SetDefault("extraction.exam_keywords", ex.ExamKeywords)
	v.SetDefault("extraction.application_keywords", ex.ApplicationKeywords)
	v.SetDefault("extraction.start_keywords", ex.StartKeywords)

	v.SetDefault("fetch.timeout", fetch.Timeout)
	v.SetDefault("fetch.insecure_tls", fetch.InsecureTLS)
	v.SetDefault("fetch.rate_per_host", fetch.RatePerHost)
	v.SetDefault("fetch.burst", fetch.Burst)
	v.SetDefault("fetch.max_detail_pages", 40)

	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", scraper.DefaultCacheTTL)

	v.SetDefault("run.workers", 4)
	v.SetDefault("run.adapter_timeout", 2*time.Minute)

	v.SetDefault("schedule.cron", "0 */6 * * *")
	v.SetDefault("schedule.retention_days", 90)

	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.output_paths", []string{"stderr"})

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.channel", ChannelTwitter)
	v.SetDefault("notify.dry_run", true)
	v.SetDefault("notify.max_posts", 10)
	v.SetDefault("notify.bodies", []string{})
}

// Validate rejects configurations a run cannot use
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case storage.DriverSQLite, storage.DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.Run.Workers <= 0 {
		return fmt.Errorf("run.workers must be positive, got %d", c.Run.Workers)
	}
	if c.Run.AdapterTimeout <= 0 {
		return fmt.Errorf("run.adapter_timeout must be positive, got %s", c.Run.AdapterTimeout)
	}
	if c.Extraction.ContextWindow <= 0 {
		return fmt.Errorf("extraction.context_window must be positive, got %d", c.Extraction.ContextWindow)
	}
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron %q: %w", c.Schedule.Cron, err)
	}
	if c.Schedule.RetentionDays < 0 {
		return fmt.Errorf("schedule.retention_days cannot be negative")
	}
	switch c.Notify.Channel {
	case ChannelTwitter, ChannelTelegram:
	default:
		return fmt.Errorf("unsupported notify.channel %q (must be %s or %s)", c.Notify.Channel, ChannelTwitter, ChannelTelegram)
	}
	if _, err := c.NotifyBodies(); err != nil {
		return err
	}
	for _, src := range c.Sources {
		if err := src.Validate(); err != nil {
			return fmt.Errorf("invalid source: %w", err)
		}
	}
	return nil
}

// ExtractOptions builds extractor options, keeping built-in keyword tables for empty lists
func (c *Config) ExtractOptions() extract.Options {
	opts := extract.DefaultOptions()
	opts.YearFloor = c.Extraction.YearFloor
	if c.Extraction.ContextWindow > 0 {
		opts.Window = c.Extraction.ContextWindow
	}
	if len(c.Extraction.ExamKeywords) > 0 {
		opts.ExamKeywords = c.Extraction.ExamKeywords
	}
	if len(c.Extraction.ApplicationKeywords) > 0 {
		opts.ApplicationKeywords = c.Extraction.ApplicationKeywords
	}
	if len(c.Extraction.StartKeywords) > 0 {
		opts.StartKeywords = c.Extraction.StartKeywords
	}
	return opts
}

// SourceList returns the configured sources, or the built-in registry.
// fetch.max_detail_pages applies to sources that do not set their own limit.
func (c *Config) SourceList() []scraper.Source {
	sources := c.Sources
	if len(sources) == 0 {
		sources = scraper.DefaultSources()
	}
	out := make([]scraper.Source, len(sources))
	for i, src := range sources {
		if src.MaxDetailPages <= 0 {
			src.MaxDetailPages = c.Fetch.MaxDetailPages
		}
		out[i] = src
	}
	return out
}

// NotifyBodies parses notify.bodies. An empty list means every body.
func (c *Config) NotifyBodies() ([]exam.Body, error) {
	var bodies []exam.Body
	for _, s := range c.Notify.Bodies {
		if strings.TrimSpace(s) == "" {
			continue
		}
		b, err := exam.ParseBody(s)
		if err != nil {
			return nil, fmt.Errorf("notify.bodies: %w", err)
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}
