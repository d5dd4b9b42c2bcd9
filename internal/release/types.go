// Package release resolves which dashboard asset release to use under a
// selection policy.
package release

import (
	"fmt"
	"strings"

	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/version"
)

// Source records how a Ref was chosen.
type Source string

const (
	SourceExplicitPin    Source = "explicit-pin"
	SourceResolvedLatest Source = "resolved-latest"
	SourceLocalInstalled Source = "local-installed"
)

// Ref identifies one published asset release. It is a value type; copies
// are independent.
type Ref struct {
	Tag     string          `json:"tag"`
	Channel version.Channel `json:"channel"`
	Source  Source          `json:"source"`
}

// NewRef builds a Ref, deriving the channel from the tag's prerelease suffix.
func NewRef(tag string, source Source) (Ref, error) {
	if !version.Valid(tag) {
		return Ref{}, fmt.Errorf("%w: release tag %q is not a semantic version", oerrors.ErrValidation, tag)
	}
	return Ref{Tag: tag, Channel: version.ChannelOf(tag), Source: source}, nil
}

// IsZero reports whether r is the empty Ref.
func (r Ref) IsZero() bool {
	return r.Tag == ""
}

func (r Ref) String() string {
	if r.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s (%s, %s)", r.Tag, r.Channel, r.Source)
}

// ModeKind is a release selection policy.
type ModeKind string

const (
	ModeExplicit         ModeKind = "explicit"
	ModeLatestStable     ModeKind = "latest-stable"
	ModeLatestCompatible ModeKind = "latest-compatible"
	ModeCurrentInstalled ModeKind = "current-installed"
)

// Mode is a parsed selection policy. Tag is set only for ModeExplicit.
type Mode struct {
	Kind ModeKind
	Tag  string
}

func (m Mode) String() string {
	if m.Kind == ModeExplicit {
		return string(ModeExplicit) + ":" + m.Tag
	}
	return string(m.Kind)
}

// ValidModes lists the accepted mode spellings for help text.
var ValidModes = []string{
	"explicit:<tag>",
	string(ModeLatestStable),
	string(ModeLatestCompatible),
	string(ModeCurrentInstalled),
}

// ParseMode parses "explicit:<tag>", "latest-stable", "latest-compatible"
// or "current-installed".
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	switch ModeKind(s) {
	case ModeLatestStable, ModeLatestCompatible, ModeCurrentInstalled:
		return Mode{Kind: ModeKind(s)}, nil
	}

	if tag, ok := strings.CutPrefix(s, string(ModeExplicit)+":"); ok {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return Mode{}, fmt.Errorf("%w: explicit mode requires a tag", oerrors.ErrValidation)
		}
		return Mode{Kind: ModeExplicit, Tag: tag}, nil
	}

	return Mode{}, fmt.Errorf("%w: unknown release mode %q (valid: %s)",
		oerrors.ErrValidation, s, strings.Join(ValidModes, ", "))
}

// State is the resolver lifecycle.
type State string

const (
	StateUnresolved State = "unresolved"
	StateResolving  State = "resolving"
	StateResolved   State = "resolved"
	StateFailed     State = "failed"
)

// Outcome is the terminal result of a resolution.
// Exactly one of Ref (StateResolved) or Err (StateFailed) is meaningful.
type Outcome struct {
	State State
	Mode  Mode
	Ref   Ref
	Err   *ResolutionError
}

// Resolved reports whether the outcome carries a usable Ref.
func (o Outcome) Resolved() bool {
	return o.State == StateResolved
}

// ResolutionError explains why a mode could not be resolved. It is not
// fatal: the asset store falls back to the baseline.
type ResolutionError struct {
	Mode  Mode
	Cause error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving release %s: %v", e.Mode, e.Cause)
}

func (e *ResolutionError) Unwrap() []error {
	return []error{oerrors.ErrResolution, e.Cause}
}
