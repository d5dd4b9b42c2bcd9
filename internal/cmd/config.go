package cmd

import (
	"github.com/spf13/cobra"

	"github.com/choreops/dashctl/internal/config"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd(cfg *config.GlobalConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration operations",
		Long:  `Commands for creating and validating the dashctl configuration file.`,
	}

	cmd.AddCommand(
		NewConfigInitCmd(cfg),
		NewConfigVetCmd(cfg),
	)

	return cmd
}

// configFile returns the resolved config path, or the default location when
// the root command did not run.
func configFile(cfg *config.GlobalConfig) (string, error) {
	if cfg != nil && cfg.ConfigPath.Value != "" {
		return config.ExpandPath(cfg.ConfigPath.Value)
	}
	return config.GetConfigFile()
}
