package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choreops/dashctl/internal/config"
)

// tempHome points HOME at a fresh directory and clears dashctl env overrides.
func tempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"config", "registry.url", "release.mode", "cache.dir", "audit.path"} {
		t.Setenv(config.EnvVar(key), "")
	}
	return home
}

func runConfigInitCmd(t *testing.T, args ...string) error {
	t.Helper()
	cmd := NewConfigInitCmd(&config.GlobalConfig{})
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.Execute()
}

func TestNewConfigInitCmd(t *testing.T) {
	cmd := NewConfigInitCmd(&config.GlobalConfig{})

	assert.Equal(t, "init", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.NotNil(t, cmd.Flags().Lookup("force"))
}

func TestConfigInit_CreatesFile(t *testing.T) {
	home := tempHome(t)

	require.NoError(t, runConfigInitCmd(t))

	dir := filepath.Join(home, ".dashctl")
	assert.DirExists(t, dir)
	assert.FileExists(t, filepath.Join(dir, "config.yaml"))
}

func TestConfigInit_SecurePermissions(t *testing.T) {
	home := tempHome(t)

	require.NoError(t, runConfigInitCmd(t))

	dirInfo, err := os.Stat(filepath.Join(home, ".dashctl"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	fileInfo, err := os.Stat(filepath.Join(home, ".dashctl", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fileInfo.Mode().Perm())
}

func TestConfigInit_ExistingConfig(t *testing.T) {
	home := tempHome(t)
	dir := filepath.Join(home, ".dashctl")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("# existing\n"), 0o600))

	err := runConfigInitCmd(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigInit_ForceOverwrite(t *testing.T) {
	home := tempHome(t)
	file := filepath.Join(home, ".dashctl", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o700))
	require.NoError(t, os.WriteFile(file, []byte("# old config\n"), 0o600))

	require.NoError(t, runConfigInitCmd(t, "--force"))

	content, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "old config")
}

func TestConfigInit_ContentRoundTrips(t *testing.T) {
	home := tempHome(t)
	require.NoError(t, runConfigInitCmd(t))

	file := filepath.Join(home, ".dashctl", "config.yaml")
	content, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), "DASHCTL_REGISTRY_URL")
	assert.Contains(t, string(content), "mode: latest-compatible")
	assert.NotContains(t, string(content), "integration:\n  version:")

	cfg, err := config.ValidateFile(file)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTimeout, cfg.Registry.Timeout)
	assert.Equal(t, "Chores", cfg.Dashboard.Name)
	assert.True(t, cfg.Dashboard.Admin)
	assert.Equal(t, filepath.Join(home, ".dashctl", "cache", "baseline"), cfg.Cache.Dir)
}
