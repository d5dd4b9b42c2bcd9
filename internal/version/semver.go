package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Channel is the release channel a tag belongs to.
type Channel string

const (
	// ChannelStable is a release without prerelease suffix.
	ChannelStable Channel = "stable"

	// ChannelRC is a release candidate (-rc.N).
	ChannelRC Channel = "rc"

	// ChannelBeta is a beta (-beta.N) or any other prerelease.
	ChannelBeta Channel = "beta"
)

// Rank orders channels for tie-breaking: stable > rc > beta.
func (c Channel) Rank() int {
	switch c {
	case ChannelStable:
		return 2
	case ChannelRC:
		return 1
	default:
		return 0
	}
}

// Canonical normalizes a version string to the "vMAJOR.MINOR.PATCH[-pre]" form.
// Build metadata is dropped. Returns "" when s is not valid SemVer.
func Canonical(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	c := semver.Canonical(s)
	if c == "" {
		return ""
	}
	// semver.Canonical fills in missing minor/patch ("v1" -> "v1.0.0"); we
	// require the full triple so tags like "v1" are rejected.
	core := strings.SplitN(strings.SplitN(strings.TrimPrefix(s, "v"), "-", 2)[0], "+", 2)[0]
	if strings.Count(core, ".") != 2 {
		return ""
	}
	return c
}

// Valid reports whether s is a full SemVer version, with or without "v".
func Valid(s string) bool {
	return Canonical(s) != ""
}

// Compare compares two versions by SemVer precedence.
// Invalid versions sort before valid ones, matching golang.org/x/mod/semver.
func Compare(a, b string) int {
	return semver.Compare(Canonical(a), Canonical(b))
}

// CompareCore compares only MAJOR.MINOR.PATCH, ignoring prerelease.
func CompareCore(a, b string) int {
	return semver.Compare(core(a), core(b))
}

// ChannelOf derives the release channel from a version's prerelease suffix.
func ChannelOf(s string) Channel {
	pre := strings.TrimPrefix(semver.Prerelease(Canonical(s)), "-")
	switch {
	case pre == "":
		return ChannelStable
	case pre == "rc" || strings.HasPrefix(pre, "rc."):
		return ChannelRC
	default:
		return ChannelBeta
	}
}

// InRange reports whether min <= v <= max. An empty max is unbounded.
// Any invalid bound or version yields false.
func InRange(v, min, max string) bool {
	if !Valid(v) || !Valid(min) {
		return false
	}
	if Compare(v, min) < 0 {
		return false
	}
	if max == "" {
		return true
	}
	if !Valid(max) {
		return false
	}
	return Compare(v, max) <= 0
}

func core(s string) string {
	c := Canonical(s)
	if c == "" {
		return ""
	}
	if pre := semver.Prerelease(c); pre != "" {
		c = strings.TrimSuffix(c, pre)
	}
	return c
}
