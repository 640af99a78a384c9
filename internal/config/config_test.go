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

	assert.Equal(t, "https://api.pipedrive.com/v1", cfg.Pipedrive.BaseURL)
	assert.Equal(t, 243, cfg.Pipedrive.FilterID)
	assert.Equal(t, "vf___venda_feita", cfg.Pipedrive.ActivityType)
	assert.False(t, cfg.Pipedrive.PushProducts)
	assert.Equal(t, "file", cfg.Ledger.Driver)
	assert.Equal(t, "already_synced.txt", cfg.Ledger.Path)
	assert.False(t, cfg.Ledger.CommitPerSale)
	assert.Equal(t, "last-wins", cfg.Sync.CollisionPolicy)
	assert.Equal(t, 1000, cfg.Sync.MaxPages)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
source:
  database_url: postgres://localhost/cabure
ledger:
  driver: sqlite
  path: ledger.db
sync:
  collision_policy: first-wins
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/cabure", cfg.Source.DatabaseURL)
	assert.Equal(t, "sqlite", cfg.Ledger.Driver)
	assert.Equal(t, "ledger.db", cfg.Ledger.Path)
	assert.Equal(t, "first-wins", cfg.Sync.CollisionPolicy)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 243, cfg.Pipedrive.FilterID)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
ledger:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("DEALSYNC_LEDGER_DRIVER", "file")
	t.Setenv("DEALSYNC_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "file", cfg.Ledger.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("DEALSYNC_SYNC_MAX_PAGES", "50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Sync.MaxPages)
}

func validConfig() *Config {
	return &Config{
		Source:    SourceConfig{DatabaseURL: "postgres://localhost/cabure"},
		Pipedrive: PipedriveConfig{APIToken: "token", FilterID: 243},
		Ledger:    LedgerConfig{Driver: "file", Path: "already_synced.txt"},
		Sync:      SyncConfig{CollisionPolicy: "last-wins", MaxPages: 1000},
	}
}

func TestValidateOK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateMissingFields(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.database_url is required")
	assert.Contains(t, err.Error(), "pipedrive.api_token is required")
	assert.Contains(t, err.Error(), "ledger.driver must be file or sqlite")
}

func TestValidateBadPolicy(t *testing.T) {
	cfg := validConfig()
	cfg.Sync.CollisionPolicy = "coin-flip"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision_policy")
}

func TestValidateBadMaxPages(t *testing.T) {
	cfg := validConfig()
	cfg.Sync.MaxPages = 0
	assert.Error(t, cfg.Validate())
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
