package config

import (
	"os"
	"path/filepath"
)

// Paths contains standard filesystem paths for dashctl.
type Paths struct {
	// ConfigFile is the path to the config file (~/.dashctl/config.yaml).
	ConfigFile string

	// CacheDir is the write-through baseline cache (~/.dashctl/cache/baseline).
	CacheDir string

	// AuditLog is the dependency bypass log (~/.dashctl/audit.jsonl).
	AuditLog string

	// HomeDir is the dashctl home directory (~/.dashctl).
	HomeDir string
}

// DefaultPaths returns the default paths for dashctl.
func DefaultPaths() (*Paths, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	home := filepath.Join(homeDir, ".dashctl")

	return &Paths{
		ConfigFile: filepath.Join(home, "config.yaml"),
		CacheDir:   filepath.Join(home, "cache", "baseline"),
		AuditLog:   filepath.Join(home, "audit.jsonl"),
		HomeDir:    home,
	}, nil
}

// GetConfigFile returns the config file path.
// If DASHCTL_CONFIG is set, it takes precedence.
func GetConfigFile() (string, error) {
	if envPath := os.Getenv(EnvVar("config")); envPath != "" {
		return envPath, nil
	}

	paths, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	return paths.ConfigFile, nil
}

// GetHomeDir returns the dashctl home directory path.
func GetHomeDir() (string, error) {
	paths, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	return paths.HomeDir, nil
}

// EnsureHomeDir creates the dashctl home directory if it doesn't exist.
func EnsureHomeDir() error {
	homeDir, err := GetHomeDir()
	if err != nil {
		return err
	}

	return os.MkdirAll(homeDir, 0o755)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) == 0 {
		return path, nil
	}

	if path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if len(path) == 1 {
		return homeDir, nil
	}

	// Handle ~/path/to/something
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:]), nil
	}

	// Handle ~username (not supported, return as-is)
	return path, nil
}
