// Package config provides configuration loading and management.
package config

import (
	"time"

	"github.com/choreops/dashctl/internal/version"
)

// Defaults for values the CLI cannot work without.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultReleaseMode = "latest-compatible"
	DefaultLanguage    = "en"
	DefaultPrefix      = "kcd"
	DefaultWorkers     = 4
	DefaultVendoredDir = "internal/assets/baseline"
)

// RegistryConfig locates the remote release registry.
type RegistryConfig struct {
	// URL is the registry base URL. Empty means offline: only local assets.
	// Env: DASHCTL_REGISTRY_URL
	URL string `mapstructure:"url" yaml:"url,omitempty"`

	// Timeout bounds every remote fetch.
	// Env: DASHCTL_REGISTRY_TIMEOUT, Default: 10s
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// ReleaseConfig selects which release to use.
type ReleaseConfig struct {
	// Mode is explicit:<tag>, latest-stable, latest-compatible or current-installed.
	// Env: DASHCTL_RELEASE_MODE, Default: latest-compatible
	Mode string `mapstructure:"mode" yaml:"mode,omitempty"`

	// Fallback is a remote tag tried when the resolved release cannot be used.
	Fallback string `mapstructure:"fallback" yaml:"fallback,omitempty"`
}

// IntegrationConfig describes the running integration.
type IntegrationConfig struct {
	// Version overrides the integration version templates are checked against.
	Version string `mapstructure:"version" yaml:"version,omitempty"`
}

// UserConfig is one dashboard assignee.
type UserConfig struct {
	Name   string `mapstructure:"name" yaml:"name"`
	UserID string `mapstructure:"user_id" yaml:"user_id"`
}

// DashboardConfig describes the dashboard to generate.
type DashboardConfig struct {
	Name     string       `mapstructure:"name" yaml:"name,omitempty"`
	Prefix   string       `mapstructure:"prefix" yaml:"prefix,omitempty"`
	Language string       `mapstructure:"language" yaml:"language,omitempty"`
	EntryID  string       `mapstructure:"entry_id" yaml:"entry_id,omitempty"`
	Admin    bool         `mapstructure:"admin" yaml:"admin"`
	Users    []UserConfig `mapstructure:"users" yaml:"users,omitempty"`

	// Templates maps an audience (user, admin-shared, admin-user) to a template id.
	Templates map[string]string `mapstructure:"templates" yaml:"templates,omitempty"`
}

// RenderConfig tunes view rendering.
type RenderConfig struct {
	// Workers bounds concurrent view rendering.
	Workers int `mapstructure:"workers" yaml:"workers,omitempty"`
}

// DependenciesConfig lists the frontend dependencies installed on the host.
type DependenciesConfig struct {
	Present []string `mapstructure:"present" yaml:"present,omitempty"`
}

// CacheConfig locates the write-through baseline cache.
type CacheConfig struct {
	// Env: DASHCTL_CACHE_DIR, Default: ~/.dashctl/cache/baseline
	Dir string `mapstructure:"dir" yaml:"dir,omitempty"`
}

// AuditConfig locates the dependency bypass audit log.
type AuditConfig struct {
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// VendorConfig locates the trees compared by sync.
type VendorConfig struct {
	// Canonical is the asset tree maintained upstream.
	Canonical string `mapstructure:"canonical" yaml:"canonical,omitempty"`

	// Dir is the vendored copy compiled into the binary.
	Dir string `mapstructure:"dir" yaml:"dir,omitempty"`
}

// LogConfig contains logging-related settings.
type LogConfig struct {
	// Timestamps controls whether timestamps are shown in log output.
	// Default: true. Override with --timestamps flag.
	Timestamps *bool `mapstructure:"timestamps" yaml:"timestamps,omitempty"`
}

// Config represents the dashctl configuration.
// Loaded from ~/.dashctl/config.yaml and DASHCTL_* environment variables.
type Config struct {
	Registry     RegistryConfig     `mapstructure:"registry" yaml:"registry"`
	Release      ReleaseConfig      `mapstructure:"release" yaml:"release"`
	Integration  IntegrationConfig  `mapstructure:"integration" yaml:"integration"`
	Dashboard    DashboardConfig    `mapstructure:"dashboard" yaml:"dashboard"`
	Render       RenderConfig       `mapstructure:"render" yaml:"render"`
	Dependencies DependenciesConfig `mapstructure:"dependencies" yaml:"dependencies"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	Audit        AuditConfig        `mapstructure:"audit" yaml:"audit"`
	Vendor       VendorConfig       `mapstructure:"vendor" yaml:"vendor"`
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
}

// DefaultConfig returns a Config with all default values populated.
// Used by `dashctl config init` to generate the initial config file.
func DefaultConfig() *Config {
	timestamps := true
	return &Config{
		Registry: RegistryConfig{Timeout: DefaultTimeout},
		Release:  ReleaseConfig{Mode: DefaultReleaseMode},
		Integration: IntegrationConfig{
			Version: version.IntegrationVersion,
		},
		Dashboard: DashboardConfig{
			Name:     "Chores",
			Prefix:   DefaultPrefix,
			Language: DefaultLanguage,
			Admin:    true,
		},
		Render: RenderConfig{Workers: DefaultWorkers},
		Cache:  CacheConfig{Dir: "~/.dashctl/cache/baseline"},
		Audit:  AuditConfig{Path: "~/.dashctl/audit.jsonl"},
		Vendor: VendorConfig{Dir: DefaultVendoredDir},
		Log:    LogConfig{Timestamps: &timestamps},
	}
}

// WithDefaults fills every unset value from DefaultConfig.
func (c *Config) WithDefaults() *Config {
	d := DefaultConfig()
	out := *c
	if out.Registry.Timeout == 0 {
		out.Registry.Timeout = d.Registry.Timeout
	}
	if out.Release.Mode == "" {
		out.Release.Mode = d.Release.Mode
	}
	if out.Integration.Version == "" {
		out.Integration.Version = d.Integration.Version
	}
	if out.Dashboard.Prefix == "" {
		out.Dashboard.Prefix = d.Dashboard.Prefix
	}
	if out.Dashboard.Language == "" {
		out.Dashboard.Language = d.Dashboard.Language
	}
	if out.Render.Workers == 0 {
		out.Render.Workers = d.Render.Workers
	}
	if out.Cache.Dir == "" {
		out.Cache.Dir = d.Cache.Dir
	}
	if out.Audit.Path == "" {
		out.Audit.Path = d.Audit.Path
	}
	if out.Vendor.Dir == "" {
		out.Vendor.Dir = d.Vendor.Dir
	}
	if out.Log.Timestamps == nil {
		out.Log.Timestamps = d.Log.Timestamps
	}
	return &out
}

// GlobalConfig is the resolved configuration handed to every command.
// It is populated by the root command's PersistentPreRunE.
type GlobalConfig struct {
	// Config contains the merged configuration values.
	Config *Config

	// ConfigPath is the file the configuration was read from.
	ConfigPath ResolvedValue

	// Registry is the resolved registry URL after applying precedence.
	Registry ResolvedValue

	// ReleaseMode is the resolved release mode after applying precedence.
	ReleaseMode ResolvedValue

	// LoadErr is set when the config file could not be read. Config then
	// holds the defaults so commands that do not need it still work.
	LoadErr error

	// Output is the --output format.
	Output string

	Verbose bool
}
