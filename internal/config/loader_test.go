package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))
	return configFile
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	assert.NotNil(t, loader)
	assert.NotNil(t, loader.v)
}

func TestLoaderLoad(t *testing.T) {
	t.Run("loads config from file", func(t *testing.T) {
		configFile := writeConfig(t, `
registry:
  url: https://assets.example.com/dashboards
  timeout: 3s
release:
  mode: explicit:0.5.0-beta.5
  fallback: 0.4.2
dashboard:
  name: Family Chores
  entry_id: 01J8ENTRY
  users:
    - name: Alice
      user_id: u1
  templates:
    user: user-minimal-v1
render:
  workers: 2
dependencies:
  present:
    - custom:auto-entities
cache:
  dir: /custom/cache
`)

		cfg, err := NewLoader().Load(configFile)

		require.NoError(t, err)
		assert.Equal(t, "https://assets.example.com/dashboards", cfg.Registry.URL)
		assert.Equal(t, 3*time.Second, cfg.Registry.Timeout)
		assert.Equal(t, "explicit:0.5.0-beta.5", cfg.Release.Mode)
		assert.Equal(t, "0.4.2", cfg.Release.Fallback)
		assert.Equal(t, "Family Chores", cfg.Dashboard.Name)
		assert.Equal(t, "01J8ENTRY", cfg.Dashboard.EntryID)
		assert.Equal(t, []UserConfig{{Name: "Alice", UserID: "u1"}}, cfg.Dashboard.Users)
		assert.Equal(t, "user-minimal-v1", cfg.Dashboard.Templates["user"])
		assert.Equal(t, 2, cfg.Render.Workers)
		assert.Equal(t, []string{"custom:auto-entities"}, cfg.Dependencies.Present)
		assert.Equal(t, "/custom/cache", cfg.Cache.Dir)

		// Unset keys keep their defaults.
		assert.Equal(t, "en", cfg.Dashboard.Language)
		assert.Equal(t, "kcd", cfg.Dashboard.Prefix)
	})

	t.Run("returns defaults for missing file", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "nonexistent.yaml")

		cfg, err := NewLoader().Load(configFile)

		require.NoError(t, err)
		assert.Empty(t, cfg.Registry.URL)
		assert.Equal(t, DefaultReleaseMode, cfg.Release.Mode)
		assert.Equal(t, DefaultTimeout, cfg.Registry.Timeout)
	})

	t.Run("loads from environment variables", func(t *testing.T) {
		t.Setenv("DASHCTL_REGISTRY_URL", "https://env.example.com")
		t.Setenv("DASHCTL_RELEASE_MODE", "latest-stable")
		t.Setenv("DASHCTL_RENDER_WORKERS", "8")

		cfg, err := NewLoader().Load(writeConfig(t, ""))

		require.NoError(t, err)
		assert.Equal(t, "https://env.example.com", cfg.Registry.URL)
		assert.Equal(t, "latest-stable", cfg.Release.Mode)
		assert.Equal(t, 8, cfg.Render.Workers)
	})

	t.Run("env vars override file values", func(t *testing.T) {
		t.Setenv("DASHCTL_DASHBOARD_LANGUAGE", "es")

		cfg, err := NewLoader().Load(writeConfig(t, "dashboard:\n  language: de\n"))

		require.NoError(t, err)
		assert.Equal(t, "es", cfg.Dashboard.Language)
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		_, err := NewLoader().Load(writeConfig(t, "registry: [unterminated"))
		assert.Error(t, err)
	})
}

func TestLoaderFileValue(t *testing.T) {
	t.Setenv("DASHCTL_REGISTRY_URL", "https://env.example.com")

	loader := NewLoader()
	_, err := loader.Load(writeConfig(t, "registry:\n  url: https://file.example.com\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", loader.FileValue("registry.url"))
	assert.Empty(t, loader.FileValue("release.mode"))
}

func TestEnvVar(t *testing.T) {
	assert.Equal(t, "DASHCTL_REGISTRY_URL", EnvVar("registry.url"))
	assert.Equal(t, "DASHCTL_DASHBOARD_ENTRY_ID", EnvVar("dashboard.entry_id"))
	assert.Equal(t, "DASHCTL_CONFIG", EnvVar("config"))
}

func TestConfigFileExists(t *testing.T) {
	t.Run("returns true for existing file", func(t *testing.T) {
		exists, err := ConfigFileExists(writeConfig(t, ""))
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("returns false for missing file", func(t *testing.T) {
		exists, err := ConfigFileExists(filepath.Join(t.TempDir(), "nonexistent.yaml"))
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestValidateFile(t *testing.T) {
	_, err := ValidateFile(writeConfig(t, "render:\n  workers: 500\n"))
	assert.Error(t, err)

	cfg, err := ValidateFile(writeConfig(t, "dashboard:\n  name: Chores\n"))
	require.NoError(t, err)
	assert.Equal(t, "Chores", cfg.Dashboard.Name)
}
