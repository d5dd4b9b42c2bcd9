package templates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"slugify": func(v interface{}) string { return Slugify(fmt.Sprint(v)) },
		"lower":   func(v interface{}) string { return strings.ToLower(fmt.Sprint(v)) },
		"upper":   func(v interface{}) string { return strings.ToUpper(fmt.Sprint(v)) },
		"title":   func(v interface{}) string { return cases.Title(language.Und).String(fmt.Sprint(v)) },
		"quote": func(v interface{}) (string, error) {
			out, err := json.Marshal(fmt.Sprint(v))
			return string(out), err
		},
		"tojson": func(v interface{}) (string, error) {
			out, err := json.Marshal(v)
			return string(out), err
		},
	}
}

// Template is a compiled view template. It is safe for concurrent use.
type Template struct {
	id     string
	header string
	tmpl   *template.Template
}

// Compile parses src's build-time markup. Literal text, including host
// template markers, is never interpreted.
func Compile(templateID string, src []byte) (*Template, error) {
	lr, err := lex(templateID, string(src))
	if err != nil {
		return nil, err
	}
	lowered, err := lower(templateID, lr)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(templateID).
		Delims(leftDelim, rightDelim).
		Option("missingkey=error").
		Funcs(funcMap()).
		Parse(lowered)
	if err != nil {
		return nil, &ParseError{TemplateID: templateID, Msg: err.Error()}
	}
	return &Template{id: templateID, header: lr.header, tmpl: tmpl}, nil
}

// ID returns the template id.
func (t *Template) ID() string {
	return t.id
}

// Header returns the leading documentation comment, if any.
func (t *Template) Header() string {
	return t.header
}

// Execute evaluates the build-time markup against rc.
func (t *Template) Execute(viewID string, rc RenderContext) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, rc.Data()); err != nil {
		return nil, &ExecError{TemplateID: t.id, ViewID: viewID, Err: err}
	}
	return buf.Bytes(), nil
}

// Render executes t and validates the output as one view.
func (t *Template) Render(viewID string, rc RenderContext) (*ViewFragment, error) {
	out, err := t.Execute(viewID, rc)
	if err != nil {
		return nil, err
	}
	return ParseFragment(t.id, viewID, out)
}

// Renderer compiles each template source once and renders views from it.
type Renderer struct {
	mu       sync.Mutex
	compiled map[string]*Template
}

// NewRenderer returns an empty Renderer.
func NewRenderer() *Renderer {
	return &Renderer{compiled: make(map[string]*Template)}
}

// Compile returns the compiled template for id, compiling src on first use.
// Parse failures are not cached.
func (r *Renderer) Compile(templateID string, src []byte) (*Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.compiled[templateID]; ok {
		return t, nil
	}
	t, err := Compile(templateID, src)
	if err != nil {
		return nil, err
	}
	r.compiled[templateID] = t
	return t, nil
}

// Render renders one view of templateID.
func (r *Renderer) Render(templateID, viewID string, src []byte, rc RenderContext) (*ViewFragment, error) {
	t, err := r.Compile(templateID, src)
	if err != nil {
		return nil, err
	}
	return t.Render(viewID, rc)
}
