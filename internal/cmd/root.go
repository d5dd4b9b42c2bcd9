// Package cmd provides CLI command implementations.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/choreops/dashctl/internal/cmdutil"
	"github.com/choreops/dashctl/internal/config"
	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/output"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	config     string
	verbose    bool
	timestamps bool
	registry   string
	release    string
	output     string
}

// NewRootCmd creates the root command for dashctl.
func NewRootCmd() *cobra.Command {
	var flags rootFlags
	cfg := &config.GlobalConfig{}

	rootCmd := &cobra.Command{
		Use:   "dashctl",
		Short: "Chore dashboard generator",
		Long: `dashctl generates Home Assistant chore dashboards from published
template releases.

It resolves which asset release to use, falls back to local copies when the
registry is unreachable, gates templates on installed frontend cards and
renders one view per assignee plus the admin views.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			return initializeGlobals(c, &flags, cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.config, "config", "", "Path to config file (env: DASHCTL_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&flags.timestamps, "timestamps", true, "Show timestamps in log output")
	rootCmd.PersistentFlags().StringVar(&flags.registry, "registry", "", "Release registry URL (env: DASHCTL_REGISTRY_URL)")
	rootCmd.PersistentFlags().StringVar(&flags.release, "release", "",
		"Release mode: explicit:<tag>, latest-stable, latest-compatible, current-installed (env: DASHCTL_RELEASE_MODE)")
	rootCmd.PersistentFlags().StringVarP(&flags.output, "output", "o", "",
		"Output format: yaml, json, table (default depends on the command)")

	rootCmd.AddCommand(
		NewVersionCmd(cfg),
		NewConfigCmd(cfg),
		NewReleaseCmd(cfg),
		NewTemplatesCmd(cfg),
		NewReviewCmd(cfg),
		NewGenerateCmd(cfg),
		NewSyncCmd(cfg),
	)

	return rootCmd
}

// initializeGlobals loads configuration, resolves precedence and sets up logging.
func initializeGlobals(c *cobra.Command, flags *rootFlags, cfg *config.GlobalConfig) error {
	configPath, err := config.ResolveConfigPath(flags.config)
	if err != nil {
		return &oerrors.ExitError{Code: oerrors.ExitGeneralError, Err: fmt.Errorf("resolving config path: %w", err)}
	}

	loader := config.NewLoader()
	loaded, err := loader.LoadWithDefaults(configPath.Value)
	if err != nil {
		// Don't fail here: config init and config vet must still work.
		output.Debug("config load error", "path", configPath.Value, "err", err)
		cfg.LoadErr = err
		loaded = config.DefaultConfig()
	}

	cfg.Config = loaded
	cfg.ConfigPath = configPath
	cfg.Registry = config.ResolveRegistry(flags.registry, loader.FileValue("registry.url"))
	cfg.ReleaseMode = config.ResolveReleaseMode(flags.release, loader.FileValue("release.mode"))
	cfg.Output = flags.output
	cfg.Verbose = flags.verbose

	// flag (if explicitly set) > config > default (nil = true)
	logCfg := output.LogConfig{Verbose: flags.verbose}
	if c.Flags().Changed("timestamps") {
		logCfg.Timestamps = output.BoolPtr(flags.timestamps)
	} else if loaded.Log.Timestamps != nil {
		logCfg.Timestamps = loaded.Log.Timestamps
	}
	output.SetupLogging(logCfg)

	config.LogResolvedValues(cfg.ConfigPath, cfg.Registry, cfg.ReleaseMode)
	return nil
}

// requireConfig fails commands that cannot run on default configuration.
func requireConfig(cfg *config.GlobalConfig) error {
	if cfg.LoadErr == nil {
		return nil
	}
	return &oerrors.ExitError{
		Code: oerrors.ExitValidationError,
		Err:  fmt.Errorf("loading %s: %w", cfg.ConfigPath.Value, cfg.LoadErr),
	}
}

// services wires the release components from the resolved configuration.
func services(cfg *config.GlobalConfig) (*cmdutil.Services, error) {
	if err := requireConfig(cfg); err != nil {
		return nil, err
	}
	return cmdutil.NewServices(cfg.Config, cfg.Registry.Value, cfg.ReleaseMode.Value)
}

// outputFormat parses --output, using def when it is unset. Table output is
// accepted only when allowTable is set.
func outputFormat(cfg *config.GlobalConfig, def output.OutputFormat, allowTable bool) (output.OutputFormat, error) {
	if cfg.Output == "" {
		return def, nil
	}
	format, ok := output.ParseOutputFormat(cfg.Output)
	if !ok || (format == output.FormatTable && !allowTable) {
		valid := output.ValidFormats()
		if !allowTable {
			valid = valid[:2]
		}
		return "", &oerrors.ExitError{
			Code: oerrors.ExitGeneralError,
			Err:  fmt.Errorf("invalid output format %q (valid: %s)", cfg.Output, strings.Join(valid, ", ")),
		}
	}
	return format, nil
}
