package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	// Embedded zone database so Timezone resolves on minimal hosts.
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"calengine/internal/subscription"
)

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "Asia/Shanghai"
	defaultLocale       = "zh"
	defaultLogLevel     = "info"
	defaultStore        = "./var/calendar.ics"
	defaultCacheDir     = "./var/ics-cache"
	defaultRefreshCron  = "*/15 * * * *"
	defaultHorizonHours = 24
)

// SubscriptionConfig describes a single remote feed.
type SubscriptionConfig struct {
	// ID is an internal identifier used for de-dup and logging. Feeds whose
	// ID contains "holiday" get holiday classification.
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	// URL is http(s):// or webcal://.
	URL      string `yaml:"url" json:"url"`
	Color    string `yaml:"color,omitempty" json:"color,omitempty"`
	Category string `yaml:"category,omitempty" json:"category,omitempty"`
	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	// Refresh is a Go duration such as "6h"; empty means daily.
	Refresh string `yaml:"refresh,omitempty" json:"refresh,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address of the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone floating date-times are interpreted in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Locale selects the language of descriptions: "zh" or "en".
	Locale string `yaml:"locale" json:"locale"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// Store is the .ics file holding local events.
	Store string `yaml:"store" json:"store"`

	// CacheDir holds the HTTP cache of subscription feeds.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// ProdID overrides the PRODID of exported calendars.
	ProdID string `yaml:"prodid,omitempty" json:"prodid,omitempty"`

	// RefreshCron is a standard 5-field cron schedule (e.g. "*/15 * * * *")
	// on which subscriptions are checked for refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// ReminderHorizonHours is how far ahead reminders are scheduled.
	ReminderHorizonHours int `yaml:"reminder_horizon_hours" json:"reminder_horizon_hours"`

	Subscriptions []SubscriptionConfig `yaml:"subscriptions" json:"subscriptions"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:               defaultListen,
		Timezone:             defaultTimezone,
		Locale:               defaultLocale,
		LogLevel:             defaultLogLevel,
		Store:                defaultStore,
		CacheDir:             defaultCacheDir,
		RefreshCron:          defaultRefreshCron,
		ReminderHorizonHours: defaultHorizonHours,
		Subscriptions:        []SubscriptionConfig{},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch strings.ToLower(c.Locale) {
	case "zh", "en":
		c.Locale = strings.ToLower(c.Locale)
	default:
		c.Locale = defaultLocale
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Store == "" {
		c.Store = defaultStore
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.ReminderHorizonHours <= 0 {
		c.ReminderHorizonHours = defaultHorizonHours
	}
	if c.Subscriptions == nil {
		c.Subscriptions = []SubscriptionConfig{}
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		errs = append(errs, fmt.Errorf("refresh %q: %w", c.RefreshCron, err))
	}
	seen := make(map[string]bool, len(c.Subscriptions))
	for i, s := range c.Subscriptions {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("subscriptions[%d]: id is empty", i))
		} else if seen[s.ID] {
			errs = append(errs, fmt.Errorf("subscriptions[%d]: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = true
		if err := subscription.ValidateURL(s.URL); err != nil {
			errs = append(errs, fmt.Errorf("subscriptions[%d]: %w", i, err))
		}
		if s.Refresh != "" {
			if d, err := time.ParseDuration(s.Refresh); err != nil || d <= 0 {
				errs = append(errs, fmt.Errorf("subscriptions[%d]: refresh %q is not a positive duration", i, s.Refresh))
			}
		}
	}
	return errors.Join(errs...)
}

// Location loads the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Horizon is ReminderHorizonHours as a duration.
func (c *Config) Horizon() time.Duration {
	return time.Duration(c.ReminderHorizonHours) * time.Hour
}

// SubscriptionList converts the configured feeds into subscriptions.
// created stamps CreatedAt.
func (c *Config) SubscriptionList(created time.Time) []subscription.Subscription {
	out := make([]subscription.Subscription, 0, len(c.Subscriptions))
	for _, s := range c.Subscriptions {
		refresh, _ := time.ParseDuration(s.Refresh)
		out = append(out, subscription.New(subscription.Params{
			ID:       s.ID,
			Name:     s.Name,
			URL:      s.URL,
			Category: subscription.Category(s.Category),
			Color:    s.Color,
			Disabled: s.Enabled != nil && !*s.Enabled,
			Refresh:  refresh,
		}, created))
	}
	return out
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file in the same
// directory and a rename. The final file has 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calengine-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
