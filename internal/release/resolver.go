package release

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/manifest"
	"github.com/choreops/dashctl/internal/output"
	"github.com/choreops/dashctl/internal/version"
)

// Index is the remote release registry.
type Index interface {
	// Tags lists every published release tag.
	Tags(ctx context.Context) ([]string, error)

	// Manifest fetches and decodes the registry manifest of one tag.
	Manifest(ctx context.Context, tag string) (*manifest.Manifest, error)
}

// Installed reports the tag recorded by the local baseline.
type Installed interface {
	InstalledTag() (string, error)
}

// Resolver turns a Mode into an Outcome. It resolves at most once; later
// calls return the pinned outcome.
type Resolver struct {
	mode      Mode
	index     Index
	installed Installed
	running   string
	policy    manifest.Policy

	once    sync.Mutex
	mu      sync.RWMutex
	state   State
	outcome Outcome
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRunningVersion sets the integration version latest-compatible checks against.
func WithRunningVersion(v string) Option {
	return func(r *Resolver) { r.running = v }
}

// WithPolicy sets the lifecycle policy used by latest-compatible.
func WithPolicy(p manifest.Policy) Option {
	return func(r *Resolver) { r.policy = p }
}

// NewResolver returns an unresolved Resolver.
func NewResolver(mode Mode, index Index, installed Installed, opts ...Option) *Resolver {
	r := &Resolver{
		mode:      mode,
		index:     index,
		installed: installed,
		running:   version.IntegrationVersion,
		state:     StateUnresolved,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current lifecycle state.
func (r *Resolver) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Mode returns the policy this resolver was built with.
func (r *Resolver) Mode() Mode {
	return r.mode
}

// Resolve runs the selection policy once. Concurrent callers wait for the
// first resolution and share its outcome. A cancelled context fails the
// resolution with the context error as cause.
func (r *Resolver) Resolve(ctx context.Context) Outcome {
	r.once.Lock()
	defer r.once.Unlock()

	r.mu.RLock()
	done := r.state == StateResolved || r.state == StateFailed
	pinned := r.outcome
	r.mu.RUnlock()
	if done {
		return pinned
	}

	r.setState(StateResolving)

	ref, err := r.resolve(ctx)
	out := Outcome{Mode: r.mode}
	if err != nil {
		out.State = StateFailed
		out.Err = &ResolutionError{Mode: r.mode, Cause: err}
		output.Debug("release resolution failed", "mode", r.mode.String(), "err", err)
	} else {
		out.State = StateResolved
		out.Ref = ref
		output.Debug("release resolved", "mode", r.mode.String(), "tag", ref.Tag, "channel", ref.Channel)
	}

	r.mu.Lock()
	r.state = out.State
	r.outcome = out
	r.mu.Unlock()

	return out
}

func (r *Resolver) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Resolver) resolve(ctx context.Context) (Ref, error) {
	if err := ctx.Err(); err != nil {
		return Ref{}, err
	}

	switch r.mode.Kind {
	case ModeExplicit:
		return r.resolveExplicit(ctx)
	case ModeLatestStable:
		return r.resolveLatestStable(ctx)
	case ModeLatestCompatible:
		return r.resolveLatestCompatible(ctx)
	case ModeCurrentInstalled:
		return r.resolveInstalled()
	default:
		return Ref{}, fmt.Errorf("%w: unknown release mode %q", oerrors.ErrValidation, r.mode.Kind)
	}
}

func (r *Resolver) resolveExplicit(ctx context.Context) (Ref, error) {
	ref, err := NewRef(r.mode.Tag, SourceExplicitPin)
	if err != nil {
		return Ref{}, err
	}
	if r.index == nil {
		return Ref{}, fmt.Errorf("%w: no release index configured", oerrors.ErrConnectivity)
	}
	if _, err := r.index.Manifest(ctx, ref.Tag); err != nil {
		return Ref{}, fmt.Errorf("release %s: %w", ref.Tag, err)
	}
	return ref, nil
}

func (r *Resolver) resolveLatestStable(ctx context.Context) (Ref, error) {
	tags, err := r.tags(ctx)
	if err != nil {
		return Ref{}, err
	}
	for _, tag := range tags {
		if version.ChannelOf(tag) == version.ChannelStable {
			return NewRef(tag, SourceResolvedLatest)
		}
	}
	return Ref{}, fmt.Errorf("%w: no stable release published", oerrors.ErrNotFound)
}

func (r *Resolver) resolveLatestCompatible(ctx context.Context) (Ref, error) {
	tags, err := r.tags(ctx)
	if err != nil {
		return Ref{}, err
	}
	if !version.Valid(r.running) {
		return Ref{}, fmt.Errorf("%w: running integration version %q is not a semantic version",
			oerrors.ErrValidation, r.running)
	}

	for _, tag := range tags {
		if err := ctx.Err(); err != nil {
			return Ref{}, err
		}
		m, err := r.index.Manifest(ctx, tag)
		if err != nil {
			output.Debug("skipping unreachable release", "tag", tag, "err", err)
			continue
		}
		if m.Unsupported {
			output.Debug("skipping release with unsupported schema", "tag", tag, "schema", m.SchemaVersion)
			continue
		}
		if len(manifest.Filter(m, r.running, r.policy)) == 0 {
			continue
		}
		return NewRef(tag, SourceResolvedLatest)
	}

	return Ref{}, fmt.Errorf("%w: no release compatible with integration %s", oerrors.ErrIncompatible, r.running)
}

func (r *Resolver) resolveInstalled() (Ref, error) {
	if r.installed == nil {
		return Ref{}, fmt.Errorf("%w: no installed baseline", oerrors.ErrNotFound)
	}
	tag, err := r.installed.InstalledTag()
	if err != nil {
		return Ref{}, err
	}
	return NewRef(tag, SourceLocalInstalled)
}

// tags fetches the index and returns valid tags newest first.
func (r *Resolver) tags(ctx context.Context) ([]string, error) {
	if r.index == nil {
		return nil, fmt.Errorf("%w: no release index configured", oerrors.ErrConnectivity)
	}
	all, err := r.index.Tags(ctx)
	if err != nil {
		return nil, err
	}

	valid := make([]string, 0, len(all))
	for _, t := range all {
		if version.Valid(t) {
			valid = append(valid, t)
		} else {
			output.Debug("ignoring non-semver tag", "tag", t)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: release index is empty", oerrors.ErrNotFound)
	}
	SortNewestFirst(valid)
	return valid, nil
}

// SortNewestFirst orders tags for candidate selection: core version
// descending, then channel (stable, rc, beta), then full SemVer descending.
// The sort is stable and does not validate tags.
func SortNewestFirst(tags []string) {
	sort.SliceStable(tags, func(i, j int) bool {
		return Newer(tags[i], tags[j])
	})
}

// Newer reports whether a precedes b in candidate order.
func Newer(a, b string) bool {
	if c := version.CompareCore(a, b); c != 0 {
		return c > 0
	}
	ra, rb := version.ChannelOf(a).Rank(), version.ChannelOf(b).Rank()
	if ra != rb {
		return ra > rb
	}
	return version.Compare(a, b) > 0
}

// IsResolutionError reports whether err came from a failed resolution.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
