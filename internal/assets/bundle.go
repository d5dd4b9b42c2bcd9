// Package assets loads dashboard asset bundles from a remote release, a
// local write-through cache or the baseline vendored into the binary.
package assets

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/manifest"
	"github.com/choreops/dashctl/internal/release"
)

// Bundle layout, relative to a release root.
const (
	ManifestFile      = "dashboard_registry.json"
	ReleaseFile       = "release.json"
	TranslationsDir   = "translations"
	translationSuffix = "_dashboard.json"

	// DefaultLanguage is used when a requested translation is missing.
	DefaultLanguage = "en"
)

// TranslationPath returns the bundle path of a language's translation file.
func TranslationPath(lang string) string {
	return path.Join(TranslationsDir, lang+translationSuffix)
}

// releaseInfo is the content of release.json.
type releaseInfo struct {
	Tag string `json:"tag"`
}

// Bundle is one complete asset set. It is owned by the Store; consumers only
// read it through the accessors.
type Bundle struct {
	Ref        release.Ref
	Manifest   *manifest.Manifest
	Provenance Provenance

	files        map[string][]byte
	translations map[string]map[string]interface{}
}

// newBundle decodes files into a Bundle. The manifest must be present and
// use a known schema. Records whose template source is missing are marked
// invalid rather than failing the bundle.
func newBundle(ref release.Ref, files map[string][]byte) (*Bundle, error) {
	raw, ok := files[ManifestFile]
	if !ok {
		return nil, fmt.Errorf("%w: bundle %s has no %s", oerrors.ErrNotFound, ref.Tag, ManifestFile)
	}
	m, err := manifest.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: bundle %s: %v", oerrors.ErrValidation, ref.Tag, err)
	}
	if m.Unsupported {
		return nil, fmt.Errorf("%w: bundle %s uses unsupported manifest schema %d",
			oerrors.ErrIncompatible, ref.Tag, m.SchemaVersion)
	}

	for i := range m.Records {
		r := &m.Records[i]
		if r.Invalid != nil {
			continue
		}
		if _, ok := files[r.SourcePath]; !ok {
			r.Invalid = fmt.Errorf("template source %s is missing", r.SourcePath)
		}
	}

	b := &Bundle{
		Ref:          ref,
		Manifest:     m,
		files:        files,
		translations: make(map[string]map[string]interface{}),
	}
	for name, data := range files {
		dir, base := path.Split(name)
		if path.Clean(dir) != TranslationsDir || !strings.HasSuffix(base, translationSuffix) {
			continue
		}
		var tr map[string]interface{}
		if err := json.Unmarshal(data, &tr); err != nil {
			return nil, fmt.Errorf("%w: bundle %s: %s: %v", oerrors.ErrValidation, ref.Tag, name, err)
		}
		b.translations[strings.TrimSuffix(base, translationSuffix)] = tr
	}

	return b, nil
}

// Template returns the raw template source of a record.
func (b *Bundle) Template(templateID string) ([]byte, error) {
	rec, ok := b.Manifest.Lookup(templateID)
	if !ok {
		return nil, oerrors.NewNotFoundError(
			fmt.Sprintf("template %q is not in release %s", templateID, b.Ref.Tag),
			templateID,
			"run 'dashctl templates list' to see available templates")
	}
	if rec.Invalid != nil {
		return nil, fmt.Errorf("%w: template %s: %v", oerrors.ErrValidation, templateID, rec.Invalid)
	}
	return b.files[rec.SourcePath], nil
}

// Preference returns the preference document of a record, if it has one.
func (b *Bundle) Preference(templateID string) ([]byte, bool) {
	rec, ok := b.Manifest.Lookup(templateID)
	if !ok || rec.DocAssetPath == "" {
		return nil, false
	}
	data, ok := b.files[rec.DocAssetPath]
	return data, ok
}

// Translations returns the UI strings for lang, falling back to
// DefaultLanguage. The returned map is a copy.
func (b *Bundle) Translations(lang string) map[string]interface{} {
	tr, ok := b.translations[lang]
	if !ok {
		tr = b.translations[DefaultLanguage]
	}
	out := make(map[string]interface{}, len(tr))
	for k, v := range tr {
		out[k] = v
	}
	return out
}

// Languages lists the languages with a translation file, sorted.
func (b *Bundle) Languages() []string {
	out := make([]string, 0, len(b.translations))
	for lang := range b.translations {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Files returns the sorted relative paths of every file in the bundle.
func (b *Bundle) Files() []string {
	out := make([]string, 0, len(b.files))
	for name := range b.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// File returns the content of one bundle file.
func (b *Bundle) File(name string) ([]byte, bool) {
	data, ok := b.files[name]
	return data, ok
}
