package templates

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseFragment checks that out is exactly one YAML mapping describing a
// single view: it has a title, a path, and sections or cards. A list of
// views, a views wrapper or several documents are rejected.
func ParseFragment(templateID, viewID string, out []byte) (*ViewFragment, error) {
	shapeErr := func(format string, args ...interface{}) error {
		return &ShapeError{TemplateID: templateID, ViewID: viewID, Msg: fmt.Sprintf(format, args...)}
	}

	dec := yaml.NewDecoder(bytes.NewReader(out))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, shapeErr("output is empty")
		}
		return nil, shapeErr("output is not valid YAML: %v", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, shapeErr("output is not valid YAML: %v", err)
		}
		return nil, shapeErr("output has more than one document")
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, shapeErr("output is empty")
	}
	root := doc.Content[0]
	switch root.Kind {
	case yaml.MappingNode:
	case yaml.SequenceNode:
		return nil, shapeErr("output is a list; a template renders a single view")
	default:
		return nil, shapeErr("output is not a mapping")
	}

	frag := &ViewFragment{TemplateID: templateID, ViewID: viewID, Raw: out, Node: root}
	hasBody := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "views":
			return nil, shapeErr("output wraps a views list; a template renders a single view")
		case "title":
			if val.Kind != yaml.ScalarNode {
				return nil, shapeErr("title must be a string")
			}
			frag.Title = val.Value
		case "path":
			if val.Kind != yaml.ScalarNode {
				return nil, shapeErr("path must be a string")
			}
			frag.Path = val.Value
		case "sections", "cards":
			if val.Kind != yaml.SequenceNode {
				return nil, shapeErr("%s must be a list", key.Value)
			}
			hasBody = true
		}
	}

	switch {
	case frag.Title == "":
		return nil, shapeErr("view has no title")
	case frag.Path == "":
		return nil, shapeErr("view has no path")
	case !hasBody:
		return nil, shapeErr("view has neither sections nor cards")
	}
	return frag, nil
}

// value decodes the fragment into plain Go values.
func (f *ViewFragment) value() (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := f.Node.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
