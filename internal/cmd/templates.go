package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/choreops/dashctl/internal/cmdutil"
	"github.com/choreops/dashctl/internal/config"
	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/manifest"
	"github.com/choreops/dashctl/internal/output"
)

// NewTemplatesCmd creates the templates command group.
func NewTemplatesCmd(cfg *config.GlobalConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Template operations",
		Long:  `Commands for inspecting the templates of the served release.`,
	}

	cmd.AddCommand(NewTemplatesListCmd(cfg))

	return cmd
}

// templateEntry is one row of templates list.
type templateEntry struct {
	TemplateID  string          `json:"template_id" yaml:"template_id"`
	Audience    string          `json:"audience" yaml:"audience"`
	Lifecycle   string          `json:"lifecycle" yaml:"lifecycle"`
	Min         string          `json:"min_integration_version" yaml:"min_integration_version"`
	Max         string          `json:"max_integration_version,omitempty" yaml:"max_integration_version,omitempty"`
	Selectable  bool            `json:"selectable" yaml:"selectable"`
	Reason      manifest.Reason `json:"reason" yaml:"reason"`
	Required    []string        `json:"required,omitempty" yaml:"required,omitempty"`
	Recommended []string        `json:"recommended,omitempty" yaml:"recommended,omitempty"`
}

// NewTemplatesListCmd creates the templates list command.
func NewTemplatesListCmd(cfg *config.GlobalConfig) *cobra.Command {
	var present []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates and whether they can be used",
		Long: `List every template of the served release with its selectability
verdict for the running integration version and the installed frontend
dependencies.

Examples:
  # List templates of the configured release
  dashctl templates list

  # Check against a different set of installed cards
  dashctl templates list --present custom:mushroom-template-card,custom:auto-entities

  # Machine-readable
  dashctl templates list -o json`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runTemplatesList(c, cfg, present)
		},
	}

	cmd.Flags().StringSliceVar(&present, "present", nil,
		"Installed frontend dependencies (default: dependencies.present from config)")

	return cmd
}

func runTemplatesList(c *cobra.Command, cfg *config.GlobalConfig, present []string) error {
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

	if len(present) == 0 {
		present = cfg.Config.Dependencies.Present
	}
	if b.Manifest.Unsupported {
		output.Warn("manifest schema not supported by this build", "schema_version", b.Manifest.SchemaVersion)
	}

	verdicts := manifest.EvaluateAll(b.Manifest, svc.Running, present, manifest.Policy{})
	entries := make([]templateEntry, 0, len(verdicts))
	for i, v := range verdicts {
		r := b.Manifest.Records[i]
		entries = append(entries, templateEntry{
			TemplateID:  r.TemplateID,
			Audience:    string(r.Audience),
			Lifecycle:   string(r.Lifecycle),
			Min:         r.MinIntegration,
			Max:         r.MaxIntegration,
			Selectable:  v.Selectable,
			Reason:      v.Reason,
			Required:    r.Required,
			Recommended: r.Recommended,
		})
	}

	if format != output.FormatTable {
		return output.WriteDocument(c.OutOrStdout(), entries, format)
	}

	tbl := output.NewTable("TEMPLATE", "AUDIENCE", "LIFECYCLE", "VERSIONS", "STATUS", "REQUIRES")
	for _, e := range entries {
		versions := ">=" + e.Min
		if e.Max != "" {
			versions += " <=" + e.Max
		}
		status := output.StatusStyle(output.StatusRendered).Render(string(e.Reason))
		if !e.Selectable {
			status = output.StatusStyle(output.StatusFailed).Render(string(e.Reason))
		}
		tbl.Row(e.TemplateID, e.Audience, e.Lifecycle, versions, status, strings.Join(e.Required, ", "))
	}
	if tbl.Len() == 0 {
		fmt.Fprintln(c.OutOrStdout(), "No templates in release "+b.Ref.Tag+".")
		return nil
	}
	fmt.Fprintln(c.OutOrStdout(), tbl.String())
	return nil
}
