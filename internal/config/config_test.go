package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingToken(t *testing.T) {
	t.Setenv(TokenEnv, "")
	if _, err := Load(); err == nil {
		t.Fatal("Load() without token expected error")
	}
}

func TestLoadDefaultsWhenFileAbsent(t *testing.T) {
	t.Setenv(TokenEnv, "secret")
	t.Setenv(OrgIDEnv, "org-123")
	t.Setenv(OrgTypeEnv, "")
	t.Setenv("YTRACKER_CONFIG", filepath.Join(t.TempDir(), "config.toml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Token != "secret" || cfg.OrgID != "org-123" {
		t.Errorf("credentials = %q/%q", cfg.Token, cfg.OrgID)
	}
	if cfg.OrgType != OrgTypeYandex360 {
		t.Errorf("OrgType = %q, want default %q", cfg.OrgType, OrgTypeYandex360)
	}
	if cfg.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", cfg.PageSize, DefaultPageSize)
	}
	if cfg.CacheTTL != DefaultCacheTTLSeconds*time.Second {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.WorkdayHours != DefaultWorkdayHours {
		t.Errorf("WorkdayHours = %d", cfg.WorkdayHours)
	}
	if cfg.RequestCooldown != DefaultCooldownMillis*time.Millisecond {
		t.Errorf("RequestCooldown = %v", cfg.RequestCooldown)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
page_size = 50
cache_ttl_seconds = 120
timeout_seconds = 10
workday_hours = 6
timer_notify_interval_seconds = 600
request_cooldown_ms = 250
log_level = "debug"
theme = "dark"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(TokenEnv, "secret")
	t.Setenv(OrgTypeEnv, "cloud")
	t.Setenv("YTRACKER_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PageSize != 50 {
		t.Errorf("PageSize = %d, want 50", cfg.PageSize)
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Errorf("CacheTTL = %v, want 2m", cfg.CacheTTL)
	}
	if cfg.WorkdayHours != 6 {
		t.Errorf("WorkdayHours = %d, want 6", cfg.WorkdayHours)
	}
	if cfg.NotifyInterval != 10*time.Minute {
		t.Errorf("NotifyInterval = %v, want 10m", cfg.NotifyInterval)
	}
	if cfg.RequestCooldown != 250*time.Millisecond {
		t.Errorf("RequestCooldown = %v, want 250ms", cfg.RequestCooldown)
	}
	if cfg.LogLevel != "debug" || cfg.Theme != "dark" {
		t.Errorf("LogLevel/Theme = %q/%q", cfg.LogLevel, cfg.Theme)
	}
	if cfg.OrgType != OrgTypeCloud {
		t.Errorf("OrgType = %q, want %q", cfg.OrgType, OrgTypeCloud)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("page_size = ["), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(TokenEnv, "secret")
	t.Setenv("YTRACKER_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("Load() with malformed file expected error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	t.Setenv(TokenEnv, "secret")
	t.Setenv(OrgTypeEnv, "")
	t.Setenv("YTRACKER_CONFIG", path)

	cfg := Config{
		Token:          "secret",
		PageSize:       75,
		CacheTTL:       90 * time.Second,
		Timeout:        15 * time.Second,
		WorkdayHours:   7,
		NotifyInterval: 20 * time.Minute,
		LogLevel:       "info",
		Theme:          "light",
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.PageSize != 75 || loaded.CacheTTL != 90*time.Second ||
		loaded.WorkdayHours != 7 || loaded.NotifyInterval != 20*time.Minute ||
		loaded.LogLevel != "info" || loaded.Theme != "light" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestNormalizeClampsValues(t *testing.T) {
	cfg := Config{
		PageSize:     -5,
		WorkdayHours: 40,
	}
	cfg.normalize()
	if cfg.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %d, want clamped to %d", cfg.PageSize, DefaultPageSize)
	}
	if cfg.WorkdayHours != DefaultWorkdayHours {
		t.Errorf("WorkdayHours = %d, want clamped to %d", cfg.WorkdayHours, DefaultWorkdayHours)
	}
	if cfg.CacheTTL != DefaultCacheTTLSeconds*time.Second {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.OrgType != OrgTypeYandex360 {
		t.Errorf("OrgType = %q", cfg.OrgType)
	}
}

func TestOrgTypeAliases(t *testing.T) {
	for _, alias := range []string{"cloud", "cloud_org", "cloudorg"} {
		if got := normalizeOrgType(alias); got != OrgTypeCloud {
			t.Errorf("normalizeOrgType(%q) = %q, want %q", alias, got, OrgTypeCloud)
		}
	}
	for _, other := range []string{"", "y360", "anything"} {
		if got := normalizeOrgType(other); got != OrgTypeYandex360 {
			t.Errorf("normalizeOrgType(%q) = %q, want %q", other, got, OrgTypeYandex360)
		}
	}
}
