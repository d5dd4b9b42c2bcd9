// Package gate classifies a template's frontend dependencies against the
// ones installed on the host and records explicit bypasses.
package gate

import (
	"sort"
	"time"

	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/manifest"
)

// Review is the dependency report for one template. MissingRequired and
// MissingRecommended are disjoint and sorted.
type Review struct {
	TemplateID         string   `json:"template_id"`
	MissingRequired    []string `json:"missing_required"`
	MissingRecommended []string `json:"missing_recommended"`

	required    []string
	recommended []string
	present     map[string]bool
}

// DependencyStatus is the derived state of one declared dependency.
type DependencyStatus struct {
	ID         string `json:"id"`
	Present    bool   `json:"present"`
	Required   bool   `json:"required"`
	RequiredBy string `json:"required_by"`
}

// ReviewRecord compares the record's declared dependencies with present.
// A dependency declared both required and recommended counts as required.
func ReviewRecord(record manifest.Record, present []string) Review {
	have := make(map[string]bool, len(present))
	for _, id := range present {
		have[id] = true
	}

	required := dedupe(record.Required, nil)
	recommended := dedupe(record.Recommended, required)

	return Review{
		TemplateID:         record.TemplateID,
		MissingRequired:    missing(required, have),
		MissingRecommended: missing(recommended, have),
		required:           required,
		recommended:        recommended,
		present:            have,
	}
}

// Blocked reports whether the template may not be rendered without a bypass.
func (r Review) Blocked() bool {
	return len(r.MissingRequired) > 0
}

// Err returns a dependency-blocked error when the review is blocked.
func (r Review) Err() error {
	if !r.Blocked() {
		return nil
	}
	return oerrors.NewDependencyBlockedError(r.TemplateID, r.MissingRequired)
}

// Statuses lists every declared dependency, required first, each group sorted.
func (r Review) Statuses() []DependencyStatus {
	out := make([]DependencyStatus, 0, len(r.required)+len(r.recommended))
	for _, id := range r.required {
		out = append(out, DependencyStatus{ID: id, Present: r.present[id], Required: true, RequiredBy: r.TemplateID})
	}
	for _, id := range r.recommended {
		out = append(out, DependencyStatus{ID: id, Present: r.present[id], RequiredBy: r.TemplateID})
	}
	return out
}

// BypassRecord is the audit entry for rendering a blocked template anyway.
type BypassRecord struct {
	TemplateID      string    `json:"template_id"`
	MissingRequired []string  `json:"missing_required"`
	Actor           string    `json:"actor"`
	Reason          string    `json:"reason,omitempty"`
	At              time.Time `json:"at"`
}

// Bypass builds the audit entry for overriding a blocked review. The
// review and the manifest record are left untouched.
func Bypass(r Review, actor, reason string, now time.Time) BypassRecord {
	missing := make([]string, len(r.MissingRequired))
	copy(missing, r.MissingRequired)
	return BypassRecord{
		TemplateID:      r.TemplateID,
		MissingRequired: missing,
		Actor:           actor,
		Reason:          reason,
		At:              now.UTC(),
	}
}

func dedupe(ids []string, exclude []string) []string {
	skip := make(map[string]bool, len(ids)+len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || skip[id] {
			continue
		}
		skip[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func missing(ids []string, have map[string]bool) []string {
	out := []string{}
	for _, id := range ids {
		if !have[id] {
			out = append(out, id)
		}
	}
	return out
}
