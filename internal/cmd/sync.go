package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/choreops/dashctl/internal/cmdutil"
	"github.com/choreops/dashctl/internal/config"
	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/output"
	"github.com/choreops/dashctl/internal/parity"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd(cfg *config.GlobalConfig) *cobra.Command {
	var sf cmdutil.SyncFlags

	c := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the canonical asset tree into the vendored baseline",
		Long: `Compare the canonical dashboard asset tree with the baseline vendored into
the binary and make them match.

With --check nothing is written; drift exits with code 7 so the check can
gate CI. With --watch the trees are synced again after every change to the
canonical tree until interrupted.

Examples:
  # Report drift
  dashctl sync --check --canonical ../dashboards

  # Repair drift
  dashctl sync --canonical ../dashboards

  # Keep the vendored tree current while editing templates
  dashctl sync --watch --canonical ../dashboards`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runSync(c, cfg, &sf)
		},
	}

	sf.AddTo(c)
	return c
}

func runSync(c *cobra.Command, cfg *config.GlobalConfig, sf *cmdutil.SyncFlags) error {
	var vendor *config.VendorConfig
	if cfg.Config != nil {
		vendor = &cfg.Config.Vendor
	}
	if err := sf.Validate(vendor); err != nil {
		return &oerrors.ExitError{Code: oerrors.ExitValidationError, Err: err}
	}

	w := c.OutOrStdout()
	switch {
	case sf.Check:
		report, err := parity.Check(sf.Canonical, sf.Vendored)
		if report != nil {
			fmt.Fprint(w, report.Render())
			if report.InSync() {
				fmt.Fprintln(w)
			}
		}
		if err != nil {
			return oerrors.WithExitCode(err, report != nil)
		}
		return nil

	case sf.Watch:
		ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		output.Info("watching for changes", "canonical", sf.Canonical, "vendored", sf.Vendored)
		err := parity.Watch(ctx, sf.Canonical, sf.Vendored, func(report *parity.DriftReport, err error) {
			switch {
			case err != nil:
				output.Error("sync failed", "err", err)
			case report.InSync():
				output.Debug("vendored tree in sync")
			default:
				output.Info("synced",
					"copied", len(report.Missing)+len(report.Changed),
					"removed", len(report.Extra),
				)
			}
		})
		if err != nil {
			return oerrors.WithExitCode(err, false)
		}
		return nil

	default:
		report, err := parity.Sync(sf.Canonical, sf.Vendored)
		if err != nil {
			return oerrors.WithExitCode(err, false)
		}
		if !report.InSync() {
			fmt.Fprint(w, report.Render())
		}
		fmt.Fprintln(w, output.FormatCheckmark("Vendored tree in sync: "+sf.Vendored))
		return nil
	}
}
