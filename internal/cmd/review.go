package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/choreops/dashctl/internal/assets"
	"github.com/choreops/dashctl/internal/cmdutil"
	"github.com/choreops/dashctl/internal/config"
	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/gate"
	"github.com/choreops/dashctl/internal/output"
	"github.com/choreops/dashctl/internal/templates"
)

// NewReviewCmd creates the review command.
func NewReviewCmd(cfg *config.GlobalConfig) *cobra.Command {
	var (
		present []string
		showDoc bool
	)

	cmd := &cobra.Command{
		Use:   "review <template-id>",
		Short: "Check a template's frontend dependencies",
		Long: `Compare a template's declared frontend dependencies with the ones
installed on the host.

Missing required dependencies block the template (exit code 8) unless
generate is run with --bypass-dependencies. Missing recommended
dependencies are reported but never block.

Examples:
  # Review against dependencies.present from config
  dashctl review user-gamification-v1

  # Review against an explicit list and show the template docs
  dashctl review user-gamification-v1 --present custom:auto-entities --doc`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runReview(c, cfg, args[0], present, showDoc)
		},
	}

	cmd.Flags().StringSliceVar(&present, "present", nil,
		"Installed frontend dependencies (default: dependencies.present from config)")
	cmd.Flags().BoolVar(&showDoc, "doc", false,
		"Print the template's header comment and preference notes")

	return cmd
}

func runReview(c *cobra.Command, cfg *config.GlobalConfig, templateID string, present []string, showDoc bool) error {
	format, err := outputFormat(cfg, output.FormatTable, true)
	if err != nil {
		return err
	}
	svc, err := services(cfg)
	if err != nil {
		return err
	}

	outcome, b, err := svc.LoadBundle(c.Context())
	if err != nil {
		return oerrors.WithExitCode(err, false)
	}
	cmdutil.LogProvenance(outcome, b.Provenance)

	record, ok := b.Manifest.Lookup(templateID)
	if !ok {
		return &oerrors.ExitError{
			Code: oerrors.ExitNotFound,
			Err: oerrors.NewNotFoundError(fmt.Sprintf("template %q not in release %s", templateID, b.Ref.Tag),
				templateID, "run 'dashctl templates list' to see the available templates"),
		}
	}

	if len(present) == 0 {
		present = cfg.Config.Dependencies.Present
	}
	review := gate.ReviewRecord(record, present)

	w := c.OutOrStdout()
	if format == output.FormatTable {
		cmdutil.WriteReview(w, review)
	} else if err := output.WriteDocument(w, review, format); err != nil {
		return err
	}

	if showDoc {
		if header := templateHeader(b, templateID); header != "" {
			fmt.Fprintln(w)
			fmt.Fprintln(w, header)
		}
		if doc, ok := b.Preference(templateID); ok {
			fmt.Fprintln(w)
			fmt.Fprint(w, string(doc))
		} else {
			output.Debug("no preference notes", "template", templateID)
		}
	}

	if len(review.MissingRecommended) > 0 {
		output.Info("recommended dependencies missing", "template", templateID, "missing", review.MissingRecommended)
	}
	if err := review.Err(); err != nil {
		return &oerrors.ExitError{Code: oerrors.ExitDependencyBlocked, Err: err}
	}
	return nil
}

// templateHeader returns the leading comment of a template, or "" when the
// template has none or does not compile.
func templateHeader(b *assets.Bundle, templateID string) string {
	src, err := b.Template(templateID)
	if err != nil {
		output.Debug("template source unavailable", "template", templateID, "err", err)
		return ""
	}
	tmpl, err := templates.Compile(templateID, src)
	if err != nil {
		output.Debug("template does not compile", "template", templateID, "err", err)
		return ""
	}
	return tmpl.Header()
}
