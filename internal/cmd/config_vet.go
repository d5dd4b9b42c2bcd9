package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/choreops/dashctl/internal/config"
	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/output"
)

// NewConfigVetCmd creates the config vet command.
func NewConfigVetCmd(cfg *config.GlobalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "vet",
		Short: "Validate configuration",
		Long: `Validate the dashctl configuration file.

Checks performed:
  1. Config file exists at resolved path
  2. Config file is valid YAML
  3. Values pass validation (URLs, release mode, versions, users)

The config path is resolved using precedence:
  --config flag > DASHCTL_CONFIG env > ~/.dashctl/config.yaml

Examples:
  # Validate default configuration
  dashctl config vet

  # Validate custom config path
  dashctl config vet --config /path/to/config.yaml`,
		RunE: func(c *cobra.Command, args []string) error {
			return runConfigVet(cfg)
		},
	}
}

func runConfigVet(cfg *config.GlobalConfig) error {
	path, err := configFile(cfg)
	if err != nil {
		return oerrors.Wrap(oerrors.ErrNotFound, "could not resolve config path")
	}

	output.Debug("validating config", "path", path, "source", cfg.ConfigPath.Source)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &oerrors.ExitError{
			Code: oerrors.ExitNotFound,
			Err: oerrors.NewNotFoundError("configuration file not found", path,
				"Run 'dashctl config init' to create default configuration"),
		}
	}

	if _, err := config.ValidateFile(path); err != nil {
		return &oerrors.ExitError{
			Code: oerrors.ExitValidationError,
			Err:  oerrors.NewValidationError(err.Error(), path, "", "fix the listed keys and run 'dashctl config vet' again"),
		}
	}

	output.Println(output.FormatCheckmark("Configuration is valid: " + path))
	return nil
}
