package manifest

import (
	"encoding/json"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"sigs.k8s.io/yaml"

	"github.com/choreops/dashctl/internal/version"
)

// SupportedSchemas lists the manifest schema versions this build decodes.
var SupportedSchemas = []int{1, 2}

// IsSupportedSchema reports whether v is a known schema version.
func IsSupportedSchema(v int) bool {
	for _, s := range SupportedSchemas {
		if s == v {
			return true
		}
	}
	return false
}

// ErrMalformed is returned when a document is not a manifest at all.
var ErrMalformed = errors.New("malformed manifest")

type envelope struct {
	SchemaVersion *int              `json:"schema_version"`
	Languages     []string          `json:"languages"`
	Templates     []json.RawMessage `json:"templates"`
}

// v1 records are flat.
type recordV1 struct {
	TemplateID     string   `json:"template_id"`
	DisplayName    string   `json:"display_name"`
	Audience       Audience `json:"audience"`
	Lifecycle      string   `json:"lifecycle_state"`
	MinIntegration string   `json:"min_integration_version"`
	MaxIntegration string   `json:"max_integration_version"`
	Required       []string `json:"required_dependencies"`
	Recommended    []string `json:"recommended_dependencies"`
	SourcePath     string   `json:"source_path"`
	DocAssetPath   string   `json:"doc_asset_path"`
}

// v2 records group compatibility and dependency data.
type recordV2 struct {
	TemplateID    string   `json:"template_id"`
	DisplayName   string   `json:"display_name"`
	Audience      Audience `json:"audience"`
	Lifecycle     string   `json:"lifecycle_state"`
	Compatibility struct {
		Min string `json:"min"`
		Max string `json:"max"`
	} `json:"compatibility"`
	Dependencies struct {
		Required    []string `json:"required"`
		Recommended []string `json:"recommended"`
	} `json:"dependencies"`
	Source struct {
		Path string `json:"path"`
		Doc  string `json:"doc"`
	} `json:"source"`
}

type decodeFunc func(raw json.RawMessage) (Record, error)

var decoders = map[int]decodeFunc{
	1: decodeV1,
	2: decodeV2,
}

// Parse decodes a manifest from JSON or YAML.
//
// Only a document that is not an object or lacks an integer schema_version
// is an error. An unknown schema yields Unsupported=true with no records,
// and individual bad records are kept with Invalid set.
func Parse(data []byte) (*Manifest, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var env envelope
	if err := json.Unmarshal(jsonData, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.SchemaVersion == nil {
		return nil, fmt.Errorf("%w: schema_version is required", ErrMalformed)
	}

	m := &Manifest{
		SchemaVersion: *env.SchemaVersion,
		Languages:     env.Languages,
	}

	decode, ok := decoders[m.SchemaVersion]
	if !ok {
		m.Unsupported = true
		return m, nil
	}

	seen := make(map[string]bool, len(env.Templates))
	for i, raw := range env.Templates {
		rec, err := decode(raw)
		if err == nil {
			err = rec.Validate()
		}
		if err == nil && seen[rec.TemplateID] {
			err = fmt.Errorf("duplicate template_id %q", rec.TemplateID)
		}
		if err != nil {
			rec.Invalid = fmt.Errorf("templates[%d]: %w", i, err)
		}
		if rec.TemplateID != "" {
			seen[rec.TemplateID] = true
		}
		m.Records = append(m.Records, rec)
	}

	return m, nil
}

func decodeV1(raw json.RawMessage) (Record, error) {
	var r recordV1
	if err := json.Unmarshal(raw, &r); err != nil {
		return Record{}, err
	}
	return Record{
		TemplateID:     r.TemplateID,
		DisplayName:    r.DisplayName,
		Audience:       r.Audience,
		Lifecycle:      Lifecycle(r.Lifecycle),
		MinIntegration: r.MinIntegration,
		MaxIntegration: r.MaxIntegration,
		Required:       r.Required,
		Recommended:    r.Recommended,
		SourcePath:     r.SourcePath,
		DocAssetPath:   r.DocAssetPath,
	}, nil
}

func decodeV2(raw json.RawMessage) (Record, error) {
	var r recordV2
	if err := json.Unmarshal(raw, &r); err != nil {
		return Record{}, err
	}
	return Record{
		TemplateID:     r.TemplateID,
		DisplayName:    r.DisplayName,
		Audience:       r.Audience,
		Lifecycle:      Lifecycle(r.Lifecycle),
		MinIntegration: r.Compatibility.Min,
		MaxIntegration: r.Compatibility.Max,
		Required:       r.Dependencies.Required,
		Recommended:    r.Dependencies.Recommended,
		SourcePath:     r.Source.Path,
		DocAssetPath:   r.Source.Doc,
	}, nil
}

var semverRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !version.Valid(s) {
		return errors.New("must be a semantic version")
	}
	return nil
})

// Validate checks the record's structural fields.
func (r Record) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.TemplateID, validation.Required),
		validation.Field(&r.Lifecycle, validation.Required,
			validation.In(LifecycleDraft, LifecycleSelectable, LifecycleDeprecated, LifecycleRetired)),
		validation.Field(&r.Audience, validation.Required,
			validation.In(AudienceUser, AudienceAdminShared, AudienceAdminUser)),
		validation.Field(&r.MinIntegration, validation.Required, semverRule),
		validation.Field(&r.MaxIntegration, semverRule),
		validation.Field(&r.SourcePath, validation.Required),
		validation.Field(&r.Required, validation.Each(validation.Required)),
		validation.Field(&r.Recommended, validation.Each(validation.Required)),
	)
	if err != nil {
		return err
	}
	if r.MaxIntegration != "" && version.Compare(r.MinIntegration, r.MaxIntegration) > 0 {
		return fmt.Errorf("min_integration_version %s is above max_integration_version %s",
			r.MinIntegration, r.MaxIntegration)
	}
	return nil
}
