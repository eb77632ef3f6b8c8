// Package config loads and persists application configuration. Credentials
// come from the environment; everything else lives in a TOML file in the
// user config directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variable names for credentials.
const (
	TokenEnv   = "YTRACKER_TOKEN"
	OrgIDEnv   = "YTRACKER_ORG_ID"
	OrgTypeEnv = "YTRACKER_ORG_TYPE"
)

// Organization types accepted by the Tracker API.
const (
	OrgTypeYandex360 = "y360"
	OrgTypeCloud     = "cloud"
)

// Defaults applied when the config file is absent or a field is unset.
const (
	DefaultPageSize           = 100
	DefaultCacheTTLSeconds    = 300
	DefaultTimeoutSeconds     = 30
	DefaultWorkdayHours       = 8
	DefaultNotifyIntervalSecs = 1800
	DefaultCooldownMillis     = 500
	DefaultLogLevel           = "warning"
	defaultConfigFileName     = "config.toml"
	defaultLogFileName        = "ytracker-tui.log"
	defaultConfigDirName      = "ytracker-tui"
	minWorkdayHours           = 1
	maxWorkdayHours           = 24
)

// Config is the resolved runtime configuration.
type Config struct {
	// Credentials (environment only, never written to disk).
	Token   string
	OrgID   string
	OrgType string

	// Persisted settings.
	Endpoint        string
	PageSize        int
	CacheTTL        time.Duration
	Timeout         time.Duration
	WorkdayHours    int
	NotifyInterval  time.Duration
	RequestCooldown time.Duration
	LogLevel        string
	LogFile         string
	Theme           string
}

// fileConfig is the on-disk TOML shape.
type fileConfig struct {
	Endpoint           string `toml:"endpoint,omitempty"`
	PageSize           int    `toml:"page_size"`
	CacheTTLSeconds    int    `toml:"cache_ttl_seconds"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	WorkdayHours       int    `toml:"workday_hours"`
	NotifyIntervalSecs int    `toml:"timer_notify_interval_seconds"`
	RequestCooldownMs  int    `toml:"request_cooldown_ms"`
	LogLevel           string `toml:"log_level"`
	LogFile            string `toml:"log_file,omitempty"`
	Theme              string `toml:"theme,omitempty"`
}

// Path returns the location of the config file, honoring YTRACKER_CONFIG.
func Path() (string, error) {
	if override := os.Getenv("YTRACKER_CONFIG"); override != "" {
		return override, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, defaultConfigDirName, defaultConfigFileName), nil
}

// Load reads credentials from the environment and settings from the config
// file. A missing file is not an error; defaults apply.
func Load() (Config, error) {
	token := os.Getenv(TokenEnv)
	if token == "" {
		return Config{}, fmt.Errorf("missing %s environment variable", TokenEnv)
	}

	cfg := Config{
		Token:   token,
		OrgID:   os.Getenv(OrgIDEnv),
		OrgType: normalizeOrgType(os.Getenv(OrgTypeEnv)),
	}

	path, err := Path()
	if err != nil {
		return Config{}, err
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg.applyFile(fc)
	cfg.normalize()
	return cfg, nil
}

// Save writes the persistable settings back to the config file. The caller
// is responsible for broadcasting the change to components that cache
// configuration.
func (c *Config) Save() error {
	c.normalize()

	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	fc := fileConfig{
		Endpoint:           c.Endpoint,
		PageSize:           c.PageSize,
		CacheTTLSeconds:    int(c.CacheTTL / time.Second),
		TimeoutSeconds:     int(c.Timeout / time.Second),
		WorkdayHours:       c.WorkdayHours,
		NotifyIntervalSecs: int(c.NotifyInterval / time.Second),
		RequestCooldownMs:  int(c.RequestCooldown / time.Millisecond),
		LogLevel:           c.LogLevel,
		LogFile:            c.LogFile,
		Theme:              c.Theme,
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write config file %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(fc); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

func (c *Config) applyFile(fc fileConfig) {
	c.Endpoint = fc.Endpoint
	c.PageSize = fc.PageSize
	c.CacheTTL = time.Duration(fc.CacheTTLSeconds) * time.Second
	c.Timeout = time.Duration(fc.TimeoutSeconds) * time.Second
	c.WorkdayHours = fc.WorkdayHours
	c.NotifyInterval = time.Duration(fc.NotifyIntervalSecs) * time.Second
	c.RequestCooldown = time.Duration(fc.RequestCooldownMs) * time.Millisecond
	c.LogLevel = fc.LogLevel
	c.LogFile = fc.LogFile
	c.Theme = fc.Theme
}

// normalize clamps out-of-range values to sane defaults.
func (c *Config) normalize() {
	if c.PageSize <= 0 || c.PageSize > 1000 {
		c.PageSize = DefaultPageSize
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTLSeconds * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeoutSeconds * time.Second
	}
	if c.WorkdayHours < minWorkdayHours || c.WorkdayHours > maxWorkdayHours {
		c.WorkdayHours = DefaultWorkdayHours
	}
	if c.NotifyInterval < 0 {
		c.NotifyInterval = DefaultNotifyIntervalSecs * time.Second
	}
	if c.RequestCooldown <= 0 {
		c.RequestCooldown = DefaultCooldownMillis * time.Millisecond
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFile == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			c.LogFile = filepath.Join(dir, defaultConfigDirName, defaultLogFileName)
		}
	}
	c.OrgType = normalizeOrgType(c.OrgType)
}

func normalizeOrgType(value string) string {
	switch value {
	case OrgTypeCloud, "cloud_org", "cloudorg":
		return OrgTypeCloud
	default:
		return OrgTypeYandex360
	}
}
