package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette. Never use inline lipgloss.Color literals outside this block.
var (
	// ColorCyan is used for identifiable nouns: release tags, template ids, view ids.
	ColorCyan = lipgloss.Color("14")

	// ColorGreen is used for rendered views and in-sync files.
	ColorGreen = lipgloss.Color("82")

	// ColorYellow is used for warnings: skipped views, changed files, deprecated templates.
	ColorYellow = lipgloss.Color("220")

	// ColorRed is used for missing files and blocked templates.
	ColorRed = lipgloss.Color("196")

	// ColorBoldRed is used for failed views (matches ERROR level).
	ColorBoldRed = lipgloss.Color("204")

	// ColorGreenCheck is used for the completion checkmark.
	ColorGreenCheck = lipgloss.Color("10")

	// ColorDimGray is used for borders and other structural chrome.
	ColorDimGray = lipgloss.Color("240")
)

// Semantic styles.
var (
	// StyleNoun styles identifiable nouns.
	StyleNoun = lipgloss.NewStyle().Foreground(ColorCyan)

	// StyleAction styles action verbs (resolving, fetching, rendering).
	StyleAction = lipgloss.NewStyle().Bold(true)

	// StyleDim styles structural chrome.
	StyleDim = lipgloss.NewStyle().Faint(true)

	// StyleSummary styles completion and summary lines.
	StyleSummary = lipgloss.NewStyle().Bold(true)
)

// Item status constants shared by view, template and file listings.
const (
	StatusRendered = "rendered"
	StatusPresent  = "present"
	StatusSkipped  = "skipped"
	StatusBlocked  = "blocked"
	StatusFailed   = "failed"
	StatusInSync   = "in-sync"
	StatusMissing  = "missing"
	StatusChanged  = "changed"
	StatusExtra    = "extra"
)

// StatusStyle returns the lipgloss style for a status string.
// Unknown statuses return an unstyled default.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case StatusRendered, StatusPresent, StatusInSync:
		return lipgloss.NewStyle().Foreground(ColorGreen)
	case StatusSkipped, StatusChanged, StatusExtra:
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case StatusBlocked, StatusMissing:
		return lipgloss.NewStyle().Foreground(ColorRed)
	case StatusFailed:
		return lipgloss.NewStyle().Bold(true).Foreground(ColorBoldRed)
	default:
		return lipgloss.NewStyle()
	}
}

// minItemColumnWidth is the minimum width of the item column before the
// status suffix, so status words line up.
const minItemColumnWidth = 40

// FormatItemLine renders "<prefix>:<name>  <status>" with a right-aligned,
// color-coded status. prefix is a single letter such as "v" (view) or "f" (file).
func FormatItemLine(prefix, name, status string) string {
	padding := minItemColumnWidth - len(name)
	if padding < 2 {
		padding = 2
	}

	return StyleDim.Render(prefix+":") +
		StyleNoun.Render(name) +
		strings.Repeat(" ", padding) +
		StatusStyle(status).Render(status)
}

// FormatCheckmark renders a green checkmark with a message for stdout output.
func FormatCheckmark(msg string) string {
	check := lipgloss.NewStyle().Foreground(ColorGreenCheck).Render("✔")
	return check + " " + msg
}

// FormatRelease renders a release tag with its channel and source.
func FormatRelease(tag, channel, source string) string {
	return fmt.Sprintf("%s %s", StyleNoun.Render(tag), StyleDim.Render("("+channel+", "+source+")"))
}
