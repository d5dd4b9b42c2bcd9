package pipeline

import (
	"fmt"

	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/manifest"
)

// ViewError is the failure of one view. It carries the view and template
// it belongs to.
type ViewError interface {
	error

	// View returns the view id, or "" for a whole-audience failure.
	View() string

	// Template returns the template id.
	Template() string
}

// SelectionError means no template of an audience can be used.
type SelectionError struct {
	Audience   manifest.Audience
	TemplateID string
	Reason     manifest.Reason
	Err        error
}

func (e *SelectionError) Error() string {
	if e.TemplateID == "" {
		return fmt.Sprintf("no selectable %s template", e.Audience)
	}
	if e.Err != nil {
		return fmt.Sprintf("template %q (%s): %v", e.TemplateID, e.Audience, e.Err)
	}
	return fmt.Sprintf("template %q (%s) not selectable: %s", e.TemplateID, e.Audience, e.Reason)
}

func (e *SelectionError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return oerrors.ErrIncompatible
}

func (e *SelectionError) View() string     { return "" }
func (e *SelectionError) Template() string { return e.TemplateID }

// RenderFailure is a view that could not be rendered.
type RenderFailure struct {
	ViewID     string
	TemplateID string
	Err        error
}

func (e *RenderFailure) Error() string {
	return fmt.Sprintf("view %q (template %q): %v", e.ViewID, e.TemplateID, e.Err)
}

func (e *RenderFailure) Unwrap() error { return e.Err }

func (e *RenderFailure) View() string     { return e.ViewID }
func (e *RenderFailure) Template() string { return e.TemplateID }
