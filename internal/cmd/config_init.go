package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/choreops/dashctl/internal/config"
	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/output"
)

const configHeader = `# dashctl configuration
#
# Every key can be overridden with a DASHCTL_* environment variable,
# e.g. DASHCTL_REGISTRY_URL. Flags take precedence over both.
#
# integration.version defaults to the version this binary ships with.
# dashboard.users lists the assignees, e.g.
#   users:
#     - name: Alice
#       user_id: 8f3e2c
`

// NewConfigInitCmd creates the config init command.
func NewConfigInitCmd(cfg *config.GlobalConfig) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize default configuration",
		Long: `Initialize the dashctl configuration.

Creates ~/.dashctl/config.yaml (or the file named by --config) holding the
default registry, release mode, dashboard and cache settings.

Examples:
  # Initialize configuration
  dashctl config init

  # Overwrite existing configuration
  dashctl config init --force`,
		RunE: func(c *cobra.Command, args []string) error {
			return runConfigInit(cfg, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false,
		"Overwrite existing configuration")

	return cmd
}

func runConfigInit(cfg *config.GlobalConfig, force bool) error {
	path, err := configFile(cfg)
	if err != nil {
		return oerrors.Wrap(oerrors.ErrNotFound, "could not determine home directory")
	}

	if _, err := os.Stat(path); err == nil && !force {
		return &oerrors.DetailError{
			Type:     "validation failed",
			Message:  "configuration already exists",
			Location: path,
			Hint:     "Use --force to overwrite existing configuration.",
			Cause:    oerrors.ErrValidation,
		}
	}

	content, err := defaultConfigYAML()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	output.Println("Configuration initialized at " + path)
	output.Println("Validate with: dashctl config vet")
	return nil
}

func defaultConfigYAML() ([]byte, error) {
	d := config.DefaultConfig()
	d.Integration.Version = ""

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	buf.WriteString("\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
