package manifest

import (
	"github.com/choreops/dashctl/internal/version"
)

// Reason explains a selectability verdict.
type Reason string

const (
	ReasonOK                    Reason = "ok"
	ReasonUnsupportedSchema     Reason = "unsupported_schema"
	ReasonMalformedRecord       Reason = "malformed_record"
	ReasonLifecycleDraft        Reason = "lifecycle_draft"
	ReasonLifecycleDeprecated   Reason = "lifecycle_deprecated"
	ReasonLifecycleRetired      Reason = "lifecycle_retired"
	ReasonInvalidRunningVersion Reason = "invalid_running_version"
	ReasonBelowMinimum          Reason = "below_minimum"
	ReasonAboveMaximum          Reason = "above_maximum"
	ReasonMissingRequired       Reason = "missing_required_dependency"
)

// Policy tunes lifecycle handling.
type Policy struct {
	// AllowDraft makes draft records selectable (template development).
	AllowDraft bool

	// RejectDeprecated makes deprecated records unselectable instead of
	// selectable-with-warning.
	RejectDeprecated bool
}

// Verdict is the outcome of evaluating one record.
type Verdict struct {
	TemplateID string
	Selectable bool
	Reason     Reason

	// Deprecated is a warning flag: the record is selectable but deprecated.
	Deprecated bool
}

// Evaluate decides whether record is selectable. It is pure and total: it
// never panics and never returns an error; every rejection carries a Reason.
func Evaluate(record Record, running string, schemaVersion int, present []DependencyID, policy Policy) Verdict {
	v := Compatible(record, running, schemaVersion, policy)
	if !v.Selectable {
		return v
	}

	have := make(map[DependencyID]bool, len(present))
	for _, id := range present {
		have[id] = true
	}
	for _, id := range record.Required {
		if !have[id] {
			v.Selectable = false
			v.Reason = ReasonMissingRequired
			return v
		}
	}
	return v
}

// IsSelectable is Evaluate reduced to its boolean, with the default policy.
func IsSelectable(record Record, running string, schemaVersion int, present []DependencyID) bool {
	return Evaluate(record, running, schemaVersion, present, Policy{}).Selectable
}

// Filter returns the records compatible with the running version by schema,
// lifecycle and version bounds. Dependency presence is not considered.
func Filter(m *Manifest, running string, policy Policy) []Record {
	if m == nil {
		return nil
	}
	var out []Record
	for _, r := range m.Records {
		if Compatible(r, running, m.SchemaVersion, policy).Selectable {
			out = append(out, r)
		}
	}
	return out
}

// EvaluateAll evaluates every record of m, in manifest order.
func EvaluateAll(m *Manifest, running string, present []DependencyID, policy Policy) []Verdict {
	if m == nil {
		return nil
	}
	out := make([]Verdict, 0, len(m.Records))
	for _, r := range m.Records {
		out = append(out, Evaluate(r, running, m.SchemaVersion, present, policy))
	}
	return out
}

// Compatible is Evaluate without the dependency check: schema, record
// validity, lifecycle and version bounds only.
func Compatible(record Record, running string, schemaVersion int, policy Policy) Verdict {
	v := Verdict{TemplateID: record.TemplateID}

	if !IsSupportedSchema(schemaVersion) {
		v.Reason = ReasonUnsupportedSchema
		return v
	}
	if record.Invalid != nil || record.Validate() != nil {
		v.Reason = ReasonMalformedRecord
		return v
	}

	switch record.Lifecycle {
	case LifecycleSelectable:
	case LifecycleDeprecated:
		if policy.RejectDeprecated {
			v.Reason = ReasonLifecycleDeprecated
			return v
		}
		v.Deprecated = true
	case LifecycleDraft:
		if !policy.AllowDraft {
			v.Reason = ReasonLifecycleDraft
			return v
		}
	default:
		v.Reason = ReasonLifecycleRetired
		return v
	}

	if !version.Valid(running) {
		v.Reason = ReasonInvalidRunningVersion
		return v
	}
	if version.Compare(running, record.MinIntegration) < 0 {
		v.Reason = ReasonBelowMinimum
		return v
	}
	if record.MaxIntegration != "" && version.Compare(running, record.MaxIntegration) > 0 {
		v.Reason = ReasonAboveMaximum
		return v
	}

	v.Selectable = true
	v.Reason = ReasonOK
	return v
}
