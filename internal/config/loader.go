package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Environment variable prefix for dashctl configuration.
const envPrefix = "DASHCTL"

// EnvVar returns the environment variable bound to a config key,
// e.g. "registry.url" → DASHCTL_REGISTRY_URL.
func EnvVar(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
}

// Loader handles loading and merging configuration from multiple sources.
type Loader struct {
	v *viper.Viper

	// file holds the config file alone, for source tracking.
	file *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper knows about.
	d := DefaultConfig()
	v.SetDefault("registry.url", "")
	v.SetDefault("registry.timeout", d.Registry.Timeout)
	v.SetDefault("release.mode", d.Release.Mode)
	v.SetDefault("release.fallback", "")
	v.SetDefault("integration.version", d.Integration.Version)
	v.SetDefault("dashboard.name", d.Dashboard.Name)
	v.SetDefault("dashboard.prefix", d.Dashboard.Prefix)
	v.SetDefault("dashboard.language", d.Dashboard.Language)
	v.SetDefault("dashboard.entry_id", "")
	v.SetDefault("dashboard.admin", d.Dashboard.Admin)
	v.SetDefault("render.workers", d.Render.Workers)
	v.SetDefault("dependencies.present", []string{})
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("audit.path", d.Audit.Path)
	v.SetDefault("vendor.canonical", "")
	v.SetDefault("vendor.dir", d.Vendor.Dir)
	v.SetDefault("log.timestamps", *d.Log.Timestamps)

	return &Loader{v: v, file: viper.New()}
}

// Load loads configuration from the given file path.
// If configFile is empty, it uses the default config file path.
// Environment variables take precedence over file values.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile == "" {
		var err error
		configFile, err = GetConfigFile()
		if err != nil {
			return nil, fmt.Errorf("getting config file path: %w", err)
		}
	}

	expandedPath, err := ExpandPath(configFile)
	if err != nil {
		return nil, fmt.Errorf("expanding config path: %w", err)
	}

	for _, v := range []*viper.Viper{l.v, l.file} {
		v.SetConfigFile(expandedPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	for _, p := range []*string{&cfg.Cache.Dir, &cfg.Audit.Path, &cfg.Vendor.Canonical, &cfg.Vendor.Dir} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", *p, err)
		}
		*p = expanded
	}

	return &cfg, nil
}

// LoadWithDefaults loads configuration and applies defaults.
func (l *Loader) LoadWithDefaults(configFile string) (*Config, error) {
	cfg, err := l.Load(configFile)
	if err != nil {
		return nil, err
	}

	return cfg.WithDefaults(), nil
}

// FileValue returns the raw value of key as written in the config file.
func (l *Loader) FileValue(key string) string {
	if !l.file.IsSet(key) {
		return ""
	}
	return l.file.GetString(key)
}

// ConfigFileExists checks if the config file exists.
func ConfigFileExists(configFile string) (bool, error) {
	if configFile == "" {
		var err error
		configFile, err = GetConfigFile()
		if err != nil {
			return false, err
		}
	}

	expandedPath, err := ExpandPath(configFile)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(expandedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
