package parity

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/gonvenience/ytbx"
	"github.com/homeport/dyff/pkg/dyff"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// fileDiff renders the change from the vendored copy to the canonical file.
// YAML and JSON get a structural diff; anything that does not parse, such
// as templates with build-time markers, gets a line diff.
func fileDiff(rel, vendoredPath, canonicalPath string) (string, error) {
	from, err := os.ReadFile(vendoredPath)
	if err != nil {
		return "", err
	}
	to, err := os.ReadFile(canonicalPath)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(path.Ext(rel)) {
	case ".yaml", ".yml", ".json":
		if out, err := structuralDiff(rel, from, to); err == nil {
			return out, nil
		}
	}
	return lineDiff(string(from), string(to)), nil
}

// structuralDiff compares two YAML (or JSON) documents with dyff.
func structuralDiff(rel string, from, to []byte) (string, error) {
	fromInput, err := parseInput("vendored/"+rel, from)
	if err != nil {
		return "", err
	}
	toInput, err := parseInput("canonical/"+rel, to)
	if err != nil {
		return "", err
	}

	report, err := dyff.CompareInputFiles(fromInput, toInput)
	if err != nil {
		return "", fmt.Errorf("comparing %s: %w", rel, err)
	}
	if len(report.Diffs) == 0 {
		// Same data, different bytes: formatting or comments only.
		return lineDiff(string(from), string(to)), nil
	}

	var buf bytes.Buffer
	writer := &dyff.HumanReport{
		Report:            report,
		DoNotInspectCerts: true,
		NoTableStyle:      true,
		OmitHeader:        true,
	}
	if err := writer.WriteReport(&buf); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func parseInput(name string, data []byte) (ytbx.InputFile, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ytbx.InputFile{Location: name}, nil
	}
	docs, err := ytbx.LoadYAMLDocuments(data)
	if err != nil {
		return ytbx.InputFile{}, err
	}
	return ytbx.InputFile{Location: name, Documents: docs}, nil
}

// lineDiff renders a unified-style line diff without context lines.
func lineDiff(from, to string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(strings.TrimSuffix(line, "\n"))
			sb.WriteString("\n")
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
