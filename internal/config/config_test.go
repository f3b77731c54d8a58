package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "telegram_leads.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 2, cfg.Scrape.MinDelaySecs)
	assert.Equal(t, 5, cfg.Scrape.MaxDelaySecs)
	assert.Equal(t, 0, cfg.Scrape.MaxRequests)
	assert.Equal(t, 5, cfg.Scrape.SkipRatingsAt)
	assert.Equal(t, 5, cfg.Scrape.SkipSearchAt)
	assert.Equal(t, 3, cfg.Scrape.SkipDirectAt)
	assert.True(t, cfg.Scrape.SafeMode)
	assert.Equal(t, 30, cfg.Scrape.TimeoutSecs)
	assert.Empty(t, cfg.Site.Mirror)
	assert.InDelta(t, 0.5, cfg.Site.RequestsPerSecond, 0.001)
	assert.Equal(t, "https://html.duckduckgo.com/html/", cfg.Search.BaseURL)
	assert.Equal(t, 5, cfg.Search.BroadThreshold)
	assert.False(t, cfg.Safety.Strict)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/leads
scrape:
  max_requests: 40
  safe_mode: false
site:
  mirror: eu
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/leads", cfg.Store.DatabaseURL)
	assert.Equal(t, 40, cfg.Scrape.MaxRequests)
	assert.False(t, cfg.Scrape.SafeMode)
	assert.Equal(t, "eu", cfg.Site.Mirror)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 2, cfg.Scrape.MinDelaySecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADSCOUT_STORE_DRIVER", "postgres")
	t.Setenv("LEADSCOUT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("LEADSCOUT_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadSlugOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slugs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("defi: crypto\nrealestate: business\n"), 0644))

	slugs, err := LoadSlugOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"defi": "crypto", "realestate": "business"}, slugs)
}

func TestLoadSlugOverridesEmptyPath(t *testing.T) {
	slugs, err := LoadSlugOverrides("")
	require.NoError(t, err)
	assert.Nil(t, slugs)
}

func TestLoadBlocklistTerms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocklist.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- pyramid\n- ponzi\n"), 0644))

	terms, err := LoadBlocklistTerms(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"pyramid", "ponzi"}, terms)
}

func TestLoadBlocklistTermsMissingFile(t *testing.T) {
	_, err := LoadBlocklistTerms(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Scrape.MinDelaySecs = 2
	cfg.Scrape.MaxDelaySecs = 5
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateScrape(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("scrape"))

	cfg.Scrape.MaxDelaySecs = 1
	err := cfg.Validate("scrape")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "0 <= min <= max")

	cfg.Scrape.MaxDelaySecs = 5
	cfg.Scrape.MaxRequests = -1
	err = cfg.Validate("scrape")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_requests")
}

func TestValidatePostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("scrape")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/leads"
	assert.NoError(t, cfg.Validate("scrape"))
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "oracle"

	err := cfg.Validate("leads")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
