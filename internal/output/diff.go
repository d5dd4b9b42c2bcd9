package output

import (
	"strconv"
	"strings"
)

// ChangedItem is a changed file with an optional rendered diff.
type ChangedItem struct {
	Name string
	Diff string
}

// RenderDrift renders a drift report between a canonical and a vendored tree.
// It takes raw data rather than the parity types to avoid an import cycle.
func RenderDrift(missing, extra []string, changed []ChangedItem) string {
	if len(missing) == 0 && len(extra) == 0 && len(changed) == 0 {
		return "No drift detected."
	}

	var sb strings.Builder

	if len(missing) > 0 {
		sb.WriteString(StatusStyle(StatusMissing).Render("Missing in vendored tree:"))
		sb.WriteString("\n")
		for _, name := range missing {
			sb.WriteString("  + ")
			sb.WriteString(StyleNoun.Render(name))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(extra) > 0 {
		sb.WriteString(StatusStyle(StatusExtra).Render("Extra in vendored tree:"))
		sb.WriteString("\n")
		for _, name := range extra {
			sb.WriteString("  - ")
			sb.WriteString(StyleNoun.Render(name))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(changed) > 0 {
		sb.WriteString(StatusStyle(StatusChanged).Render("Changed:"))
		sb.WriteString("\n")
		for _, c := range changed {
			sb.WriteString("  ~ ")
			sb.WriteString(StyleNoun.Render(c.Name))
			sb.WriteString("\n")
			sb.WriteString(IndentDiff(c.Diff, "    "))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Summary: ")
	sb.WriteString(driftSummary(len(missing), len(extra), len(changed)))
	sb.WriteString("\n")

	return sb.String()
}

// IndentDiff indents a diff string for display under a file name.
func IndentDiff(diff string, indent string) string {
	if diff == "" {
		return ""
	}

	var sb strings.Builder
	for _, line := range strings.Split(diff, "\n") {
		if line != "" {
			sb.WriteString(indent)
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func driftSummary(missing, extra, changed int) string {
	parts := make([]string, 0, 3)
	if missing > 0 {
		parts = append(parts, strconv.Itoa(missing)+" missing")
	}
	if extra > 0 {
		parts = append(parts, strconv.Itoa(extra)+" extra")
	}
	if changed > 0 {
		parts = append(parts, strconv.Itoa(changed)+" changed")
	}
	return strings.Join(parts, ", ")
}
