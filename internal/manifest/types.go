// Package manifest decodes dashboard registry manifests and evaluates whether
// a template record is selectable for a running integration version.
package manifest

// Lifecycle is a template record's selectability status.
type Lifecycle string

const (
	LifecycleDraft      Lifecycle = "draft"
	LifecycleSelectable Lifecycle = "selectable"
	LifecycleDeprecated Lifecycle = "deprecated"
	LifecycleRetired    Lifecycle = "retired"
)

// Audience says which kind of view a template renders.
type Audience string

const (
	// AudienceUser renders one view per assignee.
	AudienceUser Audience = "user"

	// AudienceAdminShared renders a single admin view shared by everyone.
	AudienceAdminShared Audience = "admin-shared"

	// AudienceAdminUser renders one admin view per assignee.
	AudienceAdminUser Audience = "admin-user"
)

// DependencyID identifies a frontend dependency, e.g. "custom:mushroom-template-card".
type DependencyID = string

// Record is one template entry of a registry manifest.
type Record struct {
	TemplateID     string         `json:"template_id"`
	DisplayName    string         `json:"display_name,omitempty"`
	Audience       Audience       `json:"audience"`
	Lifecycle      Lifecycle      `json:"lifecycle_state"`
	MinIntegration string         `json:"min_integration_version"`
	MaxIntegration string         `json:"max_integration_version,omitempty"`
	Required       []DependencyID `json:"required_dependencies,omitempty"`
	Recommended    []DependencyID `json:"recommended_dependencies,omitempty"`
	SourcePath     string         `json:"source_path"`
	DocAssetPath   string         `json:"doc_asset_path,omitempty"`

	// Invalid is set when the record failed validation. Invalid records are
	// kept so they can be reported, but are never selectable.
	Invalid error `json:"-"`
}

// Manifest is a decoded registry manifest.
type Manifest struct {
	SchemaVersion int      `json:"schema_version"`
	Languages     []string `json:"languages,omitempty"`
	Records       []Record `json:"templates"`

	// Unsupported is set when SchemaVersion is not one this build understands.
	// Records are left empty in that case.
	Unsupported bool `json:"-"`
}

// Lookup returns the record with the given template id.
func (m *Manifest) Lookup(templateID string) (Record, bool) {
	if m == nil {
		return Record{}, false
	}
	for _, r := range m.Records {
		if r.TemplateID == templateID {
			return r, true
		}
	}
	return Record{}, false
}

// ByAudience returns the records rendering the given view kind, in manifest order.
func (m *Manifest) ByAudience(a Audience) []Record {
	if m == nil {
		return nil
	}
	var out []Record
	for _, r := range m.Records {
		if r.Audience == a {
			out = append(out, r)
		}
	}
	return out
}
