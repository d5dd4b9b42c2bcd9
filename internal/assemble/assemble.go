// Package assemble orders rendered view fragments into one dashboard document.
package assemble

import (
	"bytes"
	"encoding/json"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/choreops/dashctl/internal/manifest"
	"github.com/choreops/dashctl/internal/templates"
)

// Meta describes the dashboard being assembled.
type Meta struct {
	Name   string
	Prefix string
}

// URLPath is "<prefix>-<slug(name)>".
func URLPath(prefix, name string) string {
	slug := templates.SlugifySep(name, "-")
	if prefix == "" {
		return slug
	}
	return prefix + "-" + slug
}

// ViewResult is the outcome of rendering one view.
type ViewResult struct {
	ViewID     string
	TemplateID string
	Audience   manifest.Audience

	// Order is the view's position within its audience, e.g. the user's
	// position in the configured user list.
	Order int

	Fragment *templates.ViewFragment
	Err      error
}

// ViewError reports a view left out of the dashboard.
type ViewError struct {
	ViewID     string `json:"view_id"`
	TemplateID string `json:"template_id"`
	Error      string `json:"error"`
}

// Dashboard is an assembled document. It is not modified after Assemble.
type Dashboard struct {
	Title   string
	URLPath string
	Views   []*templates.ViewFragment
	Errors  []ViewError
}

func audienceRank(a manifest.Audience) int {
	switch a {
	case manifest.AudienceUser:
		return 0
	case manifest.AudienceAdminShared:
		return 1
	case manifest.AudienceAdminUser:
		return 2
	default:
		return 3
	}
}

// Assemble orders results as user views, then the shared admin view, then
// per-user admin views. Failed results are listed in Errors instead.
func Assemble(meta Meta, results []ViewResult) *Dashboard {
	sorted := make([]ViewResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if ra, rb := audienceRank(a.Audience), audienceRank(b.Audience); ra != rb {
			return ra < rb
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ViewID < b.ViewID
	})

	d := &Dashboard{
		Title:   meta.Name,
		URLPath: URLPath(meta.Prefix, meta.Name),
		Views:   []*templates.ViewFragment{},
		Errors:  []ViewError{},
	}
	for _, r := range sorted {
		switch {
		case r.Err != nil:
			d.Errors = append(d.Errors, ViewError{ViewID: r.ViewID, TemplateID: r.TemplateID, Error: r.Err.Error()})
		case r.Fragment == nil:
			d.Errors = append(d.Errors, ViewError{ViewID: r.ViewID, TemplateID: r.TemplateID, Error: "no output"})
		default:
			d.Views = append(d.Views, r.Fragment)
		}
	}
	return d
}

// Document builds the dashboard as a YAML node: title, url_path and the
// views list.
func (d *Dashboard) Document() *yaml.Node {
	views := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, v := range d.Views {
		views.Content = append(views.Content, v.Node)
	}
	return &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "title"},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: d.Title},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "url_path"},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: d.URLPath},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "views"},
			views,
		},
	}
}

// YAML encodes the document with two-space indentation.
func (d *Dashboard) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.Document()); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSON encodes the document as indented JSON.
func (d *Dashboard) JSON() ([]byte, error) {
	var v interface{}
	if err := d.Document().Decode(&v); err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
