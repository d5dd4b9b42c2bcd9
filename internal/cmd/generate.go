package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/choreops/dashctl/internal/cmdutil"
	"github.com/choreops/dashctl/internal/config"
	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/output"
	"github.com/choreops/dashctl/internal/pipeline"
)

// NewGenerateCmd creates the generate command.
func NewGenerateCmd(cfg *config.GlobalConfig) *cobra.Command {
	var (
		df      cmdutil.DashboardFlags
		bf      cmdutil.BypassFlags
		workers int
		outFile string
	)

	c := &cobra.Command{
		Use:   "generate",
		Short: "Render the chore dashboard",
		Long: `Render a chore dashboard: one view per assignee, followed by the shared
admin view and one admin view per assignee.

Templates come from the resolved release. When the registry is unreachable
the assets are served from the fallback tag, the local cache or the
vendored baseline. Templates missing required frontend dependencies are
blocked unless --bypass-dependencies is given; every bypass is appended to
the audit log.

Views that fail to render are left out and reported. The dashboard is
still written, and the exit code is that of the first failure.

Examples:
  # Generate from config
  dashctl generate --entry-id 01J8ENTRY

  # Two assignees, written to a file
  dashctl generate -u Alice:8f3e2c -u Bob:91ad07 --out dashboard.yaml

  # Pick a template and render in Spanish
  dashctl generate -t user=user-minimal-v1 --language es

  # Render despite missing cards
  dashctl generate --bypass-dependencies --reason "cards installed manually"`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runGenerate(c, cfg, &df, &bf, workers, outFile)
		},
	}

	df.AddTo(c)
	bf.AddTo(c)
	c.Flags().IntVar(&workers, "workers", 0,
		"Views rendered concurrently (default: render.workers from config)")
	c.Flags().StringVar(&outFile, "out", "",
		"Write the dashboard to a file instead of stdout")

	return c
}

func runGenerate(c *cobra.Command, cfg *config.GlobalConfig, df *cmdutil.DashboardFlags, bf *cmdutil.BypassFlags, workers int, outFile string) error {
	format, err := outputFormat(cfg, output.FormatYAML, false)
	if err != nil {
		return err
	}
	if err := bf.Validate(); err != nil {
		return &oerrors.ExitError{Code: oerrors.ExitValidationError, Err: err}
	}
	if err := requireConfig(cfg); err != nil {
		return err
	}

	// Flags override a copy; the loaded config stays as read.
	effective := *cfg.Config
	if err := df.Apply(&effective.Dashboard, &effective.Dependencies); err != nil {
		return &oerrors.ExitError{Code: oerrors.ExitValidationError, Err: err}
	}
	if err := effective.Validate(); err != nil {
		return &oerrors.ExitError{
			Code: oerrors.ExitValidationError,
			Err:  oerrors.NewValidationError(err.Error(), cfg.ConfigPath.Value, "", "check the dashboard flags and config file"),
		}
	}

	svc, err := cmdutil.NewServices(&effective, cfg.Registry.Value, cfg.ReleaseMode.Value)
	if err != nil {
		return err
	}

	var result *pipeline.Result
	err = output.RunWithSpinner(c.Context(), func(ctx context.Context) error {
		var genErr error
		result, genErr = cmdutil.Generate(ctx, cmdutil.GenerateOpts{
			Config:   &effective,
			Services: svc,
			Bypass:   *bf,
			Workers:  workers,
		})
		return genErr
	}, output.WithTitle("Rendering dashboard"))
	if err != nil {
		return err
	}

	cmdutil.LogProvenance(result.Outcome, result.Provenance)
	for _, b := range result.Bypasses {
		output.Warn("dependency gate bypassed",
			"template", b.TemplateID,
			"missing", strings.Join(b.MissingRequired, ","),
			"actor", b.Actor,
		)
	}

	if err := writeDashboard(c, result, format, outFile); err != nil {
		return &oerrors.ExitError{Code: oerrors.ExitGeneralError, Err: err}
	}
	cmdutil.WriteViewStatus(c.ErrOrStderr(), result)

	return cmdutil.ResultError(result)
}

func writeDashboard(c *cobra.Command, result *pipeline.Result, format output.OutputFormat, outFile string) error {
	var (
		data []byte
		err  error
	)
	if format == output.FormatJSON {
		data, err = result.Dashboard.JSON()
	} else {
		data, err = result.Dashboard.YAML()
	}
	if err != nil {
		return fmt.Errorf("encoding dashboard: %w", err)
	}

	if outFile == "" {
		_, err := c.OutOrStdout().Write(data)
		return err
	}

	if dir := filepath.Dir(outFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(outFile, data, 0o644); err != nil {
		return fmt.Errorf("writing dashboard: %w", err)
	}
	output.Info(fmt.Sprintf("wrote %d views to %s", len(result.Dashboard.Views), outFile))
	return nil
}
