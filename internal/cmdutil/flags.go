// Package cmdutil provides shared command utilities for dashctl subcommands.
// It centralizes flag group management, generation pipeline wiring and
// output formatting helpers.
package cmdutil

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/choreops/dashctl/internal/config"
	"github.com/choreops/dashctl/internal/manifest"
	"github.com/choreops/dashctl/internal/templates"
)

// DashboardFlags holds flags describing the dashboard to generate
// (generate, templates list, review).
type DashboardFlags struct {
	Name      string
	Prefix    string
	Language  string
	EntryID   string
	Users     []string
	Templates []string
	Present   []string
	NoAdmin   bool
}

// AddTo registers the dashboard flags on the given cobra command.
func (f *DashboardFlags) AddTo(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Name, "name", "",
		"Dashboard name (default: from config)")
	cmd.Flags().StringVar(&f.Prefix, "prefix", "",
		"Dashboard URL prefix (default: from config)")
	cmd.Flags().StringVar(&f.Language, "language", "",
		"Translation language (default: from config)")
	cmd.Flags().StringVar(&f.EntryID, "entry-id", "",
		"Integration config entry id")
	cmd.Flags().StringArrayVarP(&f.Users, "user", "u", nil,
		"Assignee as name:user_id (can be repeated)")
	cmd.Flags().StringArrayVarP(&f.Templates, "template", "t", nil,
		"Template per audience as audience=template_id (can be repeated)")
	cmd.Flags().StringSliceVar(&f.Present, "present", nil,
		"Installed frontend dependencies (comma separated)")
	cmd.Flags().BoolVar(&f.NoAdmin, "no-admin", false,
		"Leave out the admin views")
}

// Apply overlays the flags that were set onto cfg.
func (f *DashboardFlags) Apply(cfg *config.DashboardConfig, deps *config.DependenciesConfig) error {
	if f.Name != "" {
		cfg.Name = f.Name
	}
	if f.Prefix != "" {
		cfg.Prefix = f.Prefix
	}
	if f.Language != "" {
		cfg.Language = f.Language
	}
	if f.EntryID != "" {
		cfg.EntryID = f.EntryID
	}
	if f.NoAdmin {
		cfg.Admin = false
	}
	if len(f.Users) > 0 {
		users, err := ParseUsers(f.Users)
		if err != nil {
			return err
		}
		cfg.Users = users
	}
	if len(f.Templates) > 0 {
		templates, err := ParseTemplates(f.Templates)
		if err != nil {
			return err
		}
		cfg.Templates = templates
	}
	if len(f.Present) > 0 {
		deps.Present = f.Present
	}
	return nil
}

// ParseUsers parses "name:user_id" pairs. A bare name uses its slug as id.
func ParseUsers(values []string) ([]config.UserConfig, error) {
	users := make([]config.UserConfig, 0, len(values))
	for _, v := range values {
		name, id, _ := strings.Cut(v, ":")
		name, id = strings.TrimSpace(name), strings.TrimSpace(id)
		if name == "" {
			return nil, fmt.Errorf("invalid --user %q: expected name:user_id", v)
		}
		if id == "" {
			id = templates.Slugify(name)
		}
		users = append(users, config.UserConfig{Name: name, UserID: id})
	}
	return users, nil
}

// ParseTemplates parses "audience=template_id" pairs.
func ParseTemplates(values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, v := range values {
		audience, id, ok := strings.Cut(v, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid --template %q: expected audience=template_id", v)
		}
		switch manifest.Audience(audience) {
		case manifest.AudienceUser, manifest.AudienceAdminShared, manifest.AudienceAdminUser:
		default:
			return nil, fmt.Errorf("invalid --template %q: unknown audience %q", v, audience)
		}
		out[audience] = id
	}
	return out, nil
}

// BypassFlags holds the explicit dependency gate override (generate).
type BypassFlags struct {
	Bypass bool
	Actor  string
	Reason string
}

// AddTo registers the bypass flags on the given cobra command.
func (f *BypassFlags) AddTo(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.Bypass, "bypass-dependencies", false,
		"Render templates with missing required dependencies (recorded in the audit log)")
	cmd.Flags().StringVar(&f.Actor, "actor", "",
		"Who is bypassing the dependency gate (default: $USER)")
	cmd.Flags().StringVar(&f.Reason, "reason", "",
		"Why the dependency gate is bypassed (required with --bypass-dependencies)")
}

// Validate checks that a bypass carries a reason.
func (f *BypassFlags) Validate() error {
	if !f.Bypass {
		if f.Reason != "" || f.Actor != "" {
			return fmt.Errorf("--actor and --reason require --bypass-dependencies")
		}
		return nil
	}
	if f.Reason == "" {
		return fmt.Errorf("--bypass-dependencies requires --reason")
	}
	return nil
}

// SyncFlags holds flags for comparing the canonical and vendored trees (sync).
type SyncFlags struct {
	Canonical string
	Vendored  string
	Check     bool
	Watch     bool
}

// AddTo registers the sync flags on the given cobra command.
func (f *SyncFlags) AddTo(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Canonical, "canonical", "",
		"Canonical asset tree (default: vendor.canonical from config)")
	cmd.Flags().StringVar(&f.Vendored, "vendored", "",
		"Vendored asset tree (default: vendor.dir from config)")
	cmd.Flags().BoolVar(&f.Check, "check", false,
		"Report drift without changing anything")
	cmd.Flags().BoolVarP(&f.Watch, "watch", "w", false,
		"Keep syncing as the canonical tree changes")
}

// Validate checks the flag combination and fills the trees from cfg.
func (f *SyncFlags) Validate(cfg *config.VendorConfig) error {
	if f.Check && f.Watch {
		return fmt.Errorf("--check and --watch are mutually exclusive")
	}
	if f.Canonical == "" && cfg != nil {
		f.Canonical = cfg.Canonical
	}
	if f.Vendored == "" && cfg != nil {
		f.Vendored = cfg.Dir
	}
	if f.Canonical == "" {
		return fmt.Errorf("no canonical tree: pass --canonical or set vendor.canonical")
	}
	if f.Vendored == "" {
		return fmt.Errorf("no vendored tree: pass --vendored or set vendor.dir")
	}
	return nil
}
