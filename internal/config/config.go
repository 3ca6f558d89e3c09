// Package config loads and validates application configuration from a
// YAML file, a .env file, and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/jonesrussell/bookwatch/internal/crawler"
	"github.com/jonesrussell/bookwatch/internal/fetcher"
	"github.com/jonesrussell/bookwatch/internal/logger"
	"github.com/jonesrussell/bookwatch/internal/report"
	"github.com/jonesrussell/bookwatch/internal/storage"
)

// envPrefix namespaces environment variable overrides, e.g.
// BOOKWATCH_DATABASE_PASSWORD overrides database.password.
const envPrefix = "BOOKWATCH"

// Config is the full application configuration.
type Config struct {
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Database  storage.Config  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Reports   ReportsConfig   `mapstructure:"reports"`
	Log       LogConfig       `mapstructure:"log"`
}

// CrawlerConfig configures the crawl source and fetch behavior.
type CrawlerConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	PageURLTemplate string        `mapstructure:"page_url_template"`
	MaxPages        int           `mapstructure:"max_pages"`
	Resume          bool          `mapstructure:"resume"`
	Concurrency     int           `mapstructure:"concurrency"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	BackoffBase     time.Duration `mapstructure:"backoff_base"`
	BackoffMax      time.Duration `mapstructure:"backoff_max"`
	UserAgent       string        `mapstructure:"user_agent"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Address string `mapstructure:"address"`
	APIKey  string `mapstructure:"api_key"`
}

// SchedulerConfig configures periodic crawls.
type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// AlertsConfig configures the email alert channel.
type AlertsConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// ReportsConfig configures file reports.
type ReportsConfig struct {
	Dir     string `mapstructure:"dir"`
	Console bool   `mapstructure:"console"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// Load reads configuration from the given file path (empty uses the
// default search path), layered under .env and environment variables.
func Load(path string) (*Config, error) {
	// A missing .env is fine; explicit settings belong in the config file.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values for every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.base_url", "https://books.toscrape.com/catalogue/page-1.html")
	v.SetDefault("crawler.page_url_template", "https://books.toscrape.com/catalogue/page-%d.html")
	v.SetDefault("crawler.max_pages", crawler.DefaultMaxPages)
	v.SetDefault("crawler.resume", false)
	v.SetDefault("crawler.concurrency", fetcher.DefaultConcurrency)
	v.SetDefault("crawler.max_retries", fetcher.DefaultMaxRetries)
	v.SetDefault("crawler.request_timeout", fetcher.DefaultRequestTimeout)
	v.SetDefault("crawler.backoff_base", fetcher.DefaultBackoffBase)
	v.SetDefault("crawler.backoff_max", fetcher.DefaultBackoffMax)
	v.SetDefault("crawler.user_agent", fetcher.DefaultUserAgent)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "bookwatch")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "bookwatch")
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.api_key", "")

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.interval", time.Hour)

	v.SetDefault("alerts.enabled", false)
	v.SetDefault("alerts.smtp_port", 587)

	v.SetDefault("reports.dir", "reports")
	v.SetDefault("reports.console", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", false)
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if c.Crawler.BaseURL == "" {
		return errors.New("crawler.base_url is required")
	}
	if c.Crawler.PageURLTemplate != "" &&
		strings.Count(c.Crawler.PageURLTemplate, "%d") != 1 {
		return errors.New("crawler.page_url_template must contain exactly one %d")
	}
	if c.Crawler.Concurrency < 0 {
		return errors.New("crawler.concurrency must not be negative")
	}
	if c.Crawler.MaxPages < 0 {
		return errors.New("crawler.max_pages must not be negative")
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval < time.Minute {
		return errors.New("scheduler.interval must be at least one minute")
	}
	if c.Alerts.Enabled {
		if c.Alerts.SMTPHost == "" {
			return errors.New("alerts.smtp_host is required when alerts are enabled")
		}
		if c.Alerts.From == "" || len(c.Alerts.To) == 0 {
			return errors.New("alerts.from and alerts.to are required when alerts are enabled")
		}
	}
	return nil
}

// CrawlerSettings returns the crawl run configuration.
func (c *Config) CrawlerSettings() crawler.Config {
	return crawler.Config{
		StartURL:        c.Crawler.BaseURL,
		PageURLTemplate: c.Crawler.PageURLTemplate,
		MaxPages:        c.Crawler.MaxPages,
		Resume:          c.Crawler.Resume,
	}
}

// FetcherSettings returns the fetcher configuration.
func (c *Config) FetcherSettings() fetcher.Config {
	return fetcher.Config{
		Concurrency:    c.Crawler.Concurrency,
		MaxRetries:     c.Crawler.MaxRetries,
		RequestTimeout: c.Crawler.RequestTimeout,
		BackoffBase:    c.Crawler.BackoffBase,
		BackoffMax:     c.Crawler.BackoffMax,
		UserAgent:      c.Crawler.UserAgent,
	}
}

// ReportSettings returns the report sink configuration.
func (c *Config) ReportSettings() report.Config {
	return report.Config{
		Dir:     c.Reports.Dir,
		Console: c.Reports.Console,
		Email: report.EmailConfig{
			Enabled:  c.Alerts.Enabled,
			SMTPHost: c.Alerts.SMTPHost,
			SMTPPort: c.Alerts.SMTPPort,
			Username: c.Alerts.Username,
			Password: c.Alerts.Password,
			From:     c.Alerts.From,
			To:       c.Alerts.To,
		},
	}
}

// LoggerSettings returns the logger configuration.
func (c *Config) LoggerSettings() logger.Config {
	return logger.Config{
		Level:       c.Log.Level,
		Encoding:    c.Log.Encoding,
		Development: c.Log.Development,
	}
}
