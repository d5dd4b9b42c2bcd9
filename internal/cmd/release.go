package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/choreops/dashctl/internal/assets"
	"github.com/choreops/dashctl/internal/cmdutil"
	"github.com/choreops/dashctl/internal/config"
	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/output"
	"github.com/choreops/dashctl/internal/release"
	"github.com/choreops/dashctl/internal/version"
)

// NewReleaseCmd creates the release command group.
func NewReleaseCmd(cfg *config.GlobalConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Release operations",
		Long:  `Commands for inspecting published dashboard asset releases.`,
	}

	cmd.AddCommand(
		NewReleaseResolveCmd(cfg),
		NewReleaseListCmd(cfg),
	)

	return cmd
}

// resolveReport is the document printed by release resolve.
type resolveReport struct {
	Mode       string            `json:"mode" yaml:"mode"`
	State      release.State     `json:"state" yaml:"state"`
	Ref        *release.Ref      `json:"ref,omitempty" yaml:"ref,omitempty"`
	Error      string            `json:"error,omitempty" yaml:"error,omitempty"`
	Running    string            `json:"running_version" yaml:"running_version"`
	Languages  []string          `json:"languages" yaml:"languages"`
	Provenance assets.Provenance `json:"provenance" yaml:"provenance"`
}

// NewReleaseResolveCmd creates the release resolve command.
func NewReleaseResolveCmd(cfg *config.GlobalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Show which release would be used",
		Long: `Resolve the release mode and report which asset bundle would serve it.

A failed resolution is not an error: the assets then come from the
configured fallback tag, the local cache or the vendored baseline, and the
report says which.

Examples:
  # Resolve the configured mode
  dashctl release resolve

  # Pin a tag
  dashctl release resolve --release explicit:0.5.0

  # Work offline
  dashctl release resolve --release current-installed -o json`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runReleaseResolve(c, cfg)
		},
	}
}

func runReleaseResolve(c *cobra.Command, cfg *config.GlobalConfig) error {
	format, err := outputFormat(cfg, output.FormatYAML, false)
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

	report := resolveReport{
		Mode:       outcome.Mode.String(),
		State:      outcome.State,
		Running:    svc.Running,
		Languages:  b.Languages(),
		Provenance: b.Provenance,
	}
	if outcome.Resolved() {
		ref := outcome.Ref
		report.Ref = &ref
	} else if outcome.Err != nil {
		report.Error = outcome.Err.Error()
		output.ReleaseLogger(outcome.Mode.String()).Warn("resolution failed, using local assets", "err", outcome.Err.Cause)
	}

	output.Info("serving " + output.FormatRelease(b.Ref.Tag, string(b.Ref.Channel), string(b.Provenance.Source)))
	return output.WriteDocument(c.OutOrStdout(), report, format)
}

// NewReleaseListCmd creates the release list command.
func NewReleaseListCmd(cfg *config.GlobalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List published releases",
		Long: `List the tags published in the release registry, newest first.

Requires a registry (--registry or registry.url).

Examples:
  dashctl release list --registry https://assets.example.com/dashboards`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runReleaseList(c, cfg)
		},
	}
}

func runReleaseList(c *cobra.Command, cfg *config.GlobalConfig) error {
	format, err := outputFormat(cfg, output.FormatTable, true)
	if err != nil {
		return err
	}
	svc, err := services(cfg)
	if err != nil {
		return err
	}
	if svc.Remote == nil {
		return &oerrors.ExitError{
			Code: oerrors.ExitConnectivityError,
			Err: oerrors.NewConnectivityError("no release registry configured", nil,
				"pass --registry or set registry.url"),
		}
	}

	tags, err := svc.Remote.Tags(c.Context())
	if err != nil {
		return oerrors.WithExitCode(err, false)
	}

	var valid []string
	for _, t := range tags {
		if version.Valid(t) {
			valid = append(valid, t)
		}
	}
	release.SortNewestFirst(valid)

	if format != output.FormatTable {
		return output.WriteDocument(c.OutOrStdout(), valid, format)
	}

	tbl := output.NewTable("TAG", "CHANNEL")
	for _, t := range valid {
		tbl.Row(t, string(version.ChannelOf(t)))
	}
	if tbl.Len() == 0 {
		fmt.Fprintln(c.OutOrStdout(), "No releases published.")
		return nil
	}
	fmt.Fprintln(c.OutOrStdout(), tbl.String())
	return nil
}
