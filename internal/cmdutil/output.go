package cmdutil

import (
	"errors"
	"fmt"
	"io"

	"github.com/choreops/dashctl/internal/assets"
	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/gate"
	"github.com/choreops/dashctl/internal/output"
	"github.com/choreops/dashctl/internal/pipeline"
	"github.com/choreops/dashctl/internal/release"
	"github.com/choreops/dashctl/internal/templates"
)

// PrintViewErrors prints view failures in a user-friendly format.
func PrintViewErrors(errs []error) {
	output.Error("generation completed with errors")
	for _, err := range errs {
		var selErr *pipeline.SelectionError
		var parseErr *templates.ParseError
		var failure *pipeline.RenderFailure

		switch {
		case errors.Is(err, oerrors.ErrDependencyBlocked):
			var detail *oerrors.DetailError
			if errors.As(err, &detail) {
				output.Error(fmt.Sprintf("template %q blocked: %s", detail.Location, detail.Message))
				output.Info("  " + detail.Hint)
			} else {
				output.Error(err.Error())
			}
		case errors.As(err, &selErr):
			output.Error(selErr.Error())
		case errors.As(err, &parseErr):
			output.Error(fmt.Sprintf("template %q line %d: %s", parseErr.TemplateID, parseErr.Line, parseErr.Msg))
		case errors.As(err, &failure):
			output.Error(fmt.Sprintf("view %q: %v", failure.ViewID, failure.Err))
		default:
			output.Error(err.Error())
		}
	}
}

// WriteViewStatus writes one status line per view.
func WriteViewStatus(w io.Writer, result *pipeline.Result) {
	for _, v := range result.Dashboard.Views {
		fmt.Fprintln(w, output.FormatItemLine("v", v.ViewID, output.StatusRendered))
	}
	for _, e := range result.Dashboard.Errors {
		status := output.StatusFailed
		for _, f := range result.Failures {
			var ve pipeline.ViewError
			if errors.As(f, &ve) && ve.View() == e.ViewID && errors.Is(f, oerrors.ErrDependencyBlocked) {
				status = output.StatusBlocked
			}
		}
		fmt.Fprintln(w, output.FormatItemLine("v", e.ViewID, status))
	}
}

// LogProvenance reports which release served the assets.
func LogProvenance(outcome release.Outcome, prov assets.Provenance) {
	releaseLog := output.ReleaseLogger(prov.Ref)
	if outcome.Resolved() {
		releaseLog.Debug("release resolved", "mode", outcome.Mode, "ref", outcome.Ref)
	}
	for _, a := range prov.Attempts {
		releaseLog.Debug("skipped", "rung", a.Rung, "tag", a.Tag, "err", a.Err)
	}
	if prov.Source != assets.RungRemote {
		releaseLog.Info("serving local assets", "source", prov.Source)
	}
}

// WriteReview writes the dependency statuses of one template.
func WriteReview(w io.Writer, r gate.Review) {
	t := output.NewTable("DEPENDENCY", "KIND", "STATUS")
	for _, s := range r.Statuses() {
		kind := "recommended"
		if s.Required {
			kind = "required"
		}
		var status string
		switch {
		case s.Present:
			status = output.StatusPresent
		case s.Required:
			status = output.StatusBlocked
		default:
			status = output.StatusMissing
		}
		t.Row(s.ID, kind, output.StatusStyle(status).Render(status))
	}
	if t.Len() == 0 {
		fmt.Fprintln(w, "No declared dependencies.")
		return
	}
	fmt.Fprintln(w, t.String())
}

// ResultError returns an *ExitError when views failed. The code is that of
// the first failure.
func ResultError(result *pipeline.Result) error {
	if len(result.Failures) == 0 {
		return nil
	}
	PrintViewErrors(result.Failures)
	return &oerrors.ExitError{
		Code:    oerrors.ExitCodeFromError(result.Failures[0]),
		Err:     fmt.Errorf("%d view(s) failed", len(result.Failures)),
		Printed: true,
	}
}
