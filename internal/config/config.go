package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Content
	ContentDir           string        `yaml:"content_dir"`
	WatchContent         bool          `yaml:"watch_content"`
	WatchDebounce        time.Duration `yaml:"watch_debounce"`
	LoadConcurrency      int           `yaml:"load_concurrency"`
	WordsPerMinute       int           `yaml:"words_per_minute"`
	PDFFallbackPdftotext bool          `yaml:"pdf_fallback_pdftotext"`

	// Reading sessions
	SessionTTL          time.Duration `yaml:"session_ttl"`
	MaxSessions         int           `yaml:"max_sessions"`
	SessionCleanup      time.Duration `yaml:"session_cleanup"`
	VisibilityThreshold float64       `yaml:"visibility_threshold"`

	// Pages
	DefaultTheme string `yaml:"default_theme"`
	Site         Site   `yaml:"site"`

	// Request stats
	StatsWindow time.Duration `yaml:"stats_window"`

	// HTTP server
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`

	Logging Logging `yaml:"logging"`
}

// Site is the branding shown in page chrome.
type Site struct {
	Title   string `yaml:"title"`
	Author  string `yaml:"author"`
	Tagline string `yaml:"tagline"`
}

// Load reads the optional YAML file at path, applies environment overrides
// and fills in defaults. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)

	c.ContentDir = envOr("CONTENT_DIR", c.ContentDir)
	c.WatchContent = envBool("WATCH_CONTENT", c.WatchContent)
	c.WatchDebounce = envDuration("WATCH_DEBOUNCE", c.WatchDebounce)
	c.LoadConcurrency = envInt("LOAD_CONCURRENCY", c.LoadConcurrency)
	c.WordsPerMinute = envInt("WORDS_PER_MINUTE", c.WordsPerMinute)
	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)

	c.SessionTTL = envDuration("SESSION_TTL", c.SessionTTL)
	c.MaxSessions = envInt("MAX_SESSIONS", c.MaxSessions)
	c.SessionCleanup = envDuration("SESSION_CLEANUP", c.SessionCleanup)
	c.VisibilityThreshold = envFloat("VISIBILITY_THRESHOLD", c.VisibilityThreshold)

	c.DefaultTheme = envOr("DEFAULT_THEME", c.DefaultTheme)
	c.Site.Title = envOr("SITE_TITLE", c.Site.Title)
	c.Site.Author = envOr("SITE_AUTHOR", c.Site.Author)
	c.Site.Tagline = envOr("SITE_TAGLINE", c.Site.Tagline)

	c.StatsWindow = envDuration("STATS_WINDOW", c.StatsWindow)

	c.ReadTimeout = envDuration("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = envDuration("WRITE_TIMEOUT", c.WriteTimeout)
	c.IdleTimeout = envDuration("IDLE_TIMEOUT", c.IdleTimeout)
	c.ShutdownTimeout = envDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.MaxBodyBytes = envInt64("MAX_BODY_BYTES", c.MaxBodyBytes)

	c.Logging.Level = envOr("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = envOr("LOG_FORMAT", c.Logging.Format)
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.WatchDebounce <= 0 {
		c.WatchDebounce = 500 * time.Millisecond
	}
	if c.LoadConcurrency <= 0 {
		c.LoadConcurrency = 4
	}
	if c.WordsPerMinute <= 0 {
		c.WordsPerMinute = 238
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 30 * time.Minute
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = 1000
	}
	if c.SessionCleanup <= 0 {
		c.SessionCleanup = time.Minute
	}
	if c.VisibilityThreshold == 0 {
		c.VisibilityThreshold = 0.3
	}
	if c.DefaultTheme == "" {
		c.DefaultTheme = "light"
	}
	if c.Site.Title == "" {
		c.Site.Title = "marginalia"
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = time.Hour
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20 // 1MB
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs error
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("port %q is not a valid TCP port", c.Port))
	}
	if c.VisibilityThreshold <= 0 || c.VisibilityThreshold > 1 {
		errs = multierr.Append(errs, fmt.Errorf("visibility_threshold must be in (0,1], got %v", c.VisibilityThreshold))
	}
	if c.DefaultTheme != "light" && c.DefaultTheme != "dark" {
		errs = multierr.Append(errs, fmt.Errorf("default_theme must be light or dark, got %q", c.DefaultTheme))
	}
	if c.ContentDir != "" {
		if fi, err := os.Stat(c.ContentDir); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("content_dir: %w", err))
		} else if !fi.IsDir() {
			errs = multierr.Append(errs, fmt.Errorf("content_dir %s is not a directory", c.ContentDir))
		}
	}
	if c.WatchContent && c.ContentDir == "" {
		errs = multierr.Append(errs, errors.New("watch_content requires content_dir"))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
