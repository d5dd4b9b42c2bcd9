package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/choreops/dashctl/internal/config"
	"github.com/choreops/dashctl/internal/output"
	"github.com/choreops/dashctl/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd(cfg *config.GlobalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Show dashctl version information.

Displays:
  - dashctl version, commit, and build date
  - Integration version templates are checked against`,
		RunE: func(c *cobra.Command, args []string) error {
			return runVersion(c, cfg)
		},
	}
}

func runVersion(c *cobra.Command, cfg *config.GlobalConfig) error {
	info := version.GetInfo()
	w := c.OutOrStdout()

	fmt.Fprintf(w, "dashctl version %s\n", info.Version)
	fmt.Fprintf(w, "  Commit:       %s\n", info.GitCommit)
	fmt.Fprintf(w, "  Built:        %s\n", info.BuildDate)
	fmt.Fprintf(w, "  Go:           %s\n", info.GoVersion)
	fmt.Fprintf(w, "  Integration:  %s\n", info.IntegrationVersion)

	// config may override the running version
	if cfg != nil && cfg.Config != nil && cfg.Config.Integration.Version != info.IntegrationVersion {
		output.Debug("integration version overridden by config", "version", cfg.Config.Integration.Version)
		fmt.Fprintf(w, "  Running as:   %s\n", cfg.Config.Integration.Version)
	}
	return nil
}
