package pipeline

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/choreops/dashctl/internal/assemble"
	"github.com/choreops/dashctl/internal/assets"
	"github.com/choreops/dashctl/internal/gate"
	"github.com/choreops/dashctl/internal/manifest"
	"github.com/choreops/dashctl/internal/release"
	"github.com/choreops/dashctl/internal/templates"
)

// DefaultWorkers bounds concurrent view rendering when Request.Workers is unset.
const DefaultWorkers = 4

// Request describes one dashboard generation.
type Request struct {
	// Dashboard names the dashboard and its URL prefix.
	Dashboard assemble.Meta

	// Language selects the translation file exposed as ui.
	Language string

	// EntryID is the integration config entry the dashboard belongs to.
	EntryID string

	// Users get one user view each, in this order.
	Users []templates.User

	// Templates optionally picks a template per audience. An audience
	// without an entry uses the first selectable record in the manifest.
	Templates map[manifest.Audience]string

	// Admin adds the shared admin view and the per-user admin views.
	Admin bool

	// Present lists the frontend dependencies installed on the host.
	Present []string

	// Bypass renders templates with missing required dependencies. The
	// bypass is recorded in the audit log.
	Bypass *Bypass

	// Values are opaque values passed to every view.
	Values map[string]interface{}

	// Workers bounds concurrent rendering. Zero means DefaultWorkers.
	Workers int
}

// Bypass is an explicit decision to render despite missing dependencies.
type Bypass struct {
	Actor  string
	Reason string
}

// Validate checks the request before any release work starts.
func (r *Request) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Dashboard, validation.By(func(value interface{}) error {
			meta, _ := value.(assemble.Meta)
			return validation.Validate(meta.Name, validation.Required.Error("dashboard name is required"))
		})),
		validation.Field(&r.EntryID, validation.Required),
		validation.Field(&r.Workers, validation.Min(0)),
		validation.Field(&r.Bypass),
	)
}

// Validate requires both an actor and a reason.
func (b Bypass) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Actor, validation.Required),
		validation.Field(&b.Reason, validation.Required),
	)
}

func (r *Request) workers(views int) int {
	n := r.Workers
	if n <= 0 {
		n = DefaultWorkers
	}
	if views < n {
		n = views
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Selection is the template chosen for one audience.
type Selection struct {
	Audience manifest.Audience
	Record   manifest.Record
	Verdict  manifest.Verdict
	Review   gate.Review

	// Err is set when no view of this audience can be rendered.
	Err error
}

// Result is a completed generation.
type Result struct {
	// Outcome is what the resolver decided.
	Outcome release.Outcome

	// Provenance says which rung served the assets.
	Provenance assets.Provenance

	Selections []Selection
	Bypasses   []gate.BypassRecord
	Dashboard  *assemble.Dashboard

	// Failures holds the error of every view left out of the dashboard.
	Failures []error
}
