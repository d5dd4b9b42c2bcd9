// Package templates renders dashboard view templates.
//
// A template carries two grammars. Build-time markers are evaluated here:
//
//	<< expr >>        variable, optionally piped through filters
//	<% statement %>   if/elif/else/endif, for x in path/endfor
//	<# comment #>     stripped from the output
//
// Everything else, including the host platform's own {{ }}, {% %} and {# #}
// markers, is copied to the output byte for byte.
//
// The build-time markers are reserved everywhere in a template, host markup
// included: a "#>" outside a comment is a parse error, and "<<" always opens
// a variable, so YAML merge keys ("<<: *base") cannot be written.
package templates

import (
	"fmt"

	"gopkg.in/yaml.v3"

	oerrors "github.com/choreops/dashctl/internal/errors"
)

// User is the assignee a per-user view is rendered for.
type User struct {
	Name   string
	UserID string
}

// DashboardMeta describes the dashboard a view is rendered into.
type DashboardMeta struct {
	Name     string
	URLPath  string
	Language string
}

// RenderContext is the variable set for one view. Build a fresh one per view.
type RenderContext struct {
	// User is nil for the shared admin view.
	User *User

	// EntryID is the integration config entry the dashboard belongs to.
	EntryID string

	// UI holds translation strings for the dashboard language.
	UI map[string]interface{}

	Dashboard DashboardMeta

	// Values are opaque values from the domain engine, exposed under their
	// own keys. They never override the built-in keys.
	Values map[string]interface{}
}

// HelperKey is the key the host uses to find a user's dashboard helper
// payload. Shared views key on the entry alone.
func HelperKey(entryID, userID string) string {
	if userID == "" {
		return entryID
	}
	return entryID + "_" + userID
}

// Data flattens the context into the template's root namespace.
func (rc RenderContext) Data() map[string]interface{} {
	data := make(map[string]interface{}, len(rc.Values)+5)
	for k, v := range rc.Values {
		data[k] = v
	}

	userID := ""
	if rc.User != nil {
		userID = rc.User.UserID
		data["user"] = map[string]interface{}{
			"name":    rc.User.Name,
			"slug":    Slugify(rc.User.Name),
			"user_id": rc.User.UserID,
		}
	} else {
		delete(data, "user")
	}

	ui := rc.UI
	if ui == nil {
		ui = map[string]interface{}{}
	}
	data["ui"] = ui
	data["integration"] = map[string]interface{}{"entry_id": rc.EntryID}
	data["helper_key"] = HelperKey(rc.EntryID, userID)
	data["dashboard"] = map[string]interface{}{
		"name":     rc.Dashboard.Name,
		"url_path": rc.Dashboard.URLPath,
		"language": rc.Dashboard.Language,
	}
	return data
}

// ViewFragment is one rendered view.
type ViewFragment struct {
	TemplateID string
	ViewID     string
	Title      string
	Path       string

	// Raw is the build-time output, before shape validation.
	Raw []byte

	// Node is the view mapping, in source key order.
	Node *yaml.Node
}

// ParseError reports malformed build-time markup.
type ParseError struct {
	TemplateID string
	Line       int
	Msg        string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("template %s: line %d: %s", e.TemplateID, e.Line, e.Msg)
	}
	return fmt.Sprintf("template %s: %s", e.TemplateID, e.Msg)
}

func (e *ParseError) Unwrap() error { return oerrors.ErrRenderParse }

// ExecError reports a failure evaluating a parsed template, such as an
// undefined variable.
type ExecError struct {
	TemplateID string
	ViewID     string
	Err        error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("template %s (view %s): %v", e.TemplateID, e.ViewID, e.Err)
}

func (e *ExecError) Unwrap() []error { return []error{oerrors.ErrRenderParse, e.Err} }

// ShapeError reports output that is not a single view mapping.
type ShapeError struct {
	TemplateID string
	ViewID     string
	Msg        string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("template %s (view %s): %s", e.TemplateID, e.ViewID, e.Msg)
}

func (e *ShapeError) Unwrap() error { return oerrors.ErrRenderParse }
