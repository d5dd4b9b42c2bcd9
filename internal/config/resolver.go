package config

import (
	"os"

	"github.com/choreops/dashctl/internal/output"
)

// ConfigSource indicates where a configuration value came from.
type ConfigSource string

const (
	// SourceFlag indicates value came from command-line flag.
	SourceFlag ConfigSource = "flag"
	// SourceEnv indicates value came from environment variable.
	SourceEnv ConfigSource = "env"
	// SourceConfig indicates value came from config file.
	SourceConfig ConfigSource = "config"
	// SourceDefault indicates value is the built-in default.
	SourceDefault ConfigSource = "default"
)

// ResolvedValue is a configuration value and where it came from.
type ResolvedValue struct {
	// Key is the dotted config key, e.g. "registry.url".
	Key string
	// Value is the winning value.
	Value string
	// Source indicates where Value came from.
	Source ConfigSource
	// Shadowed contains values that were overridden by higher precedence.
	Shadowed map[ConfigSource]string
}

// ResolveOptions contains the candidate values for one key.
type ResolveOptions struct {
	// Key is the dotted config key. Its environment variable is EnvVar(Key).
	Key string
	// FlagValue is the flag value (empty if not set).
	FlagValue string
	// ConfigValue is the config file value (empty if not set).
	ConfigValue string
	// DefaultValue is the built-in default (may be empty).
	DefaultValue string
}

// Resolve applies precedence flag > env > config > default to one key.
func Resolve(opts ResolveOptions) ResolvedValue {
	result := ResolvedValue{
		Key:      opts.Key,
		Shadowed: make(map[ConfigSource]string),
	}

	candidates := []struct {
		source ConfigSource
		value  string
	}{
		{SourceFlag, opts.FlagValue},
		{SourceEnv, os.Getenv(EnvVar(opts.Key))},
		{SourceConfig, opts.ConfigValue},
		{SourceDefault, opts.DefaultValue},
	}
	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		if result.Source == "" {
			result.Value = c.value
			result.Source = c.source
			continue
		}
		result.Shadowed[c.source] = c.value
	}
	return result
}

// ResolveRegistry resolves the registry URL using precedence:
// (1) --registry flag, (2) DASHCTL_REGISTRY_URL env, (3) registry.url.
// There is no default: an unset registry means offline.
func ResolveRegistry(flagValue, configValue string) ResolvedValue {
	return Resolve(ResolveOptions{
		Key:         "registry.url",
		FlagValue:   flagValue,
		ConfigValue: configValue,
	})
}

// ResolveReleaseMode resolves the release selection mode using precedence:
// (1) --release flag, (2) DASHCTL_RELEASE_MODE env, (3) release.mode,
// (4) latest-compatible.
func ResolveReleaseMode(flagValue, configValue string) ResolvedValue {
	return Resolve(ResolveOptions{
		Key:          "release.mode",
		FlagValue:    flagValue,
		ConfigValue:  configValue,
		DefaultValue: DefaultReleaseMode,
	})
}

// ResolveConfigPath resolves the config file path using precedence:
// (1) --config flag, (2) DASHCTL_CONFIG env, (3) ~/.dashctl/config.yaml.
func ResolveConfigPath(flagValue string) (ResolvedValue, error) {
	paths, err := DefaultPaths()
	if err != nil {
		return ResolvedValue{}, err
	}
	return Resolve(ResolveOptions{
		Key:          "config",
		FlagValue:    flagValue,
		DefaultValue: paths.ConfigFile,
	}), nil
}

// LogResolvedValues logs configuration resolution at DEBUG level.
func LogResolvedValues(values ...ResolvedValue) {
	for _, v := range values {
		output.Debug("config value resolved",
			"key", v.Key,
			"value", v.Value,
			"source", v.Source,
		)
		for source, shadowed := range v.Shadowed {
			output.Debug("  shadowed by higher precedence",
				"key", v.Key,
				"shadowed_source", source,
				"shadowed_value", shadowed,
			)
		}
	}
}
