package assets

import (
	"context"
	"errors"
	"fmt"

	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/manifest"
	"github.com/choreops/dashctl/internal/output"
	"github.com/choreops/dashctl/internal/release"
	"github.com/choreops/dashctl/internal/version"
)

// Rung names the fallback step that served a bundle.
type Rung string

const (
	RungRemote   Rung = "remote"
	RungFallback Rung = "fallback"
	RungCache    Rung = "cache"
	RungVendored Rung = "vendored"
)

// Attempt records one rung that was tried and why it was passed over.
type Attempt struct {
	Rung Rung   `json:"rung"`
	Tag  string `json:"tag,omitempty"`
	Err  string `json:"error"`
}

// Provenance says where a bundle came from.
type Provenance struct {
	Source   Rung      `json:"source"`
	Ref      string    `json:"ref"`
	Attempts []Attempt `json:"attempts,omitempty"`
}

// Store hands out bundles using the fallback order remote, configured
// fallback tag, cache, vendored.
type Store struct {
	remote      Remote
	fallbackTag string
	cache       *DirBaseline
	running     string
	policy      manifest.Policy
	vendored    func() (*Bundle, error)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithFallbackTag sets the remote tag tried when the resolved release fails.
func WithFallbackTag(tag string) StoreOption {
	return func(s *Store) { s.fallbackTag = tag }
}

// WithCache enables the write-through cache.
func WithCache(c *DirBaseline) StoreOption {
	return func(s *Store) { s.cache = c }
}

// WithRunningVersion sets the integration version a remote bundle must
// have at least one compatible template for.
func WithRunningVersion(v string) StoreOption {
	return func(s *Store) { s.running = v }
}

// WithPolicy sets the lifecycle policy used for the compatibility check.
func WithPolicy(p manifest.Policy) StoreOption {
	return func(s *Store) { s.policy = p }
}

// NewStore returns a Store. remote may be nil, in which case only the
// baseline is used.
func NewStore(remote Remote, opts ...StoreOption) *Store {
	s := &Store{
		remote:   remote,
		running:  version.IntegrationVersion,
		vendored: LoadVendored,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InstalledTag returns the tag of the baseline that would be served: the
// cache when it is readable, otherwise the vendored copy.
func (s *Store) InstalledTag() (string, error) {
	if s.cache != nil {
		if tag, err := s.cache.InstalledTag(); err == nil {
			return tag, nil
		}
	}
	return readTag(Vendored())
}

// LoadBundle returns the bundle for a resolution outcome. Remote failures
// of any kind degrade to the next rung; the only errors are a corrupt
// vendored baseline and context cancellation.
func (s *Store) LoadBundle(ctx context.Context, outcome release.Outcome) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var attempts []Attempt
	fail := func(rung Rung, tag string, err error) {
		attempts = append(attempts, Attempt{Rung: rung, Tag: tag, Err: err.Error()})
		output.ReleaseLogger(tag).Warn("release unavailable, falling back", "rung", rung, "err", err)
	}

	if outcome.Mode.Kind != release.ModeCurrentInstalled {
		if outcome.Resolved() {
			b, err := s.fetch(ctx, outcome.Ref.Tag)
			if err == nil {
				b.Ref = outcome.Ref
				return s.served(b, RungRemote, attempts), nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			fail(RungRemote, outcome.Ref.Tag, err)
		} else if outcome.Err != nil {
			attempts = append(attempts, Attempt{Rung: RungRemote, Tag: outcome.Mode.Tag, Err: outcome.Err.Error()})
		}

		if s.fallbackTag != "" && s.fallbackTag != outcome.Ref.Tag {
			b, err := s.fetch(ctx, s.fallbackTag)
			if err == nil {
				b.Ref.Source = release.SourceExplicitPin
				return s.served(b, RungFallback, attempts), nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			fail(RungFallback, s.fallbackTag, err)
		}
	}

	if s.cache != nil {
		b, err := s.cache.Load()
		if err == nil {
			return s.served(b, RungCache, attempts), nil
		}
		if !errors.Is(err, oerrors.ErrNotFound) {
			fail(RungCache, "", err)
		}
	}

	b, err := s.vendored()
	if err != nil {
		return nil, err
	}
	return s.served(b, RungVendored, attempts), nil
}

// fetch downloads tag, checks it is usable and writes it through to the cache.
func (s *Store) fetch(ctx context.Context, tag string) (*Bundle, error) {
	if s.remote == nil {
		return nil, fmt.Errorf("%w: no remote registry configured", oerrors.ErrConnectivity)
	}
	b, err := s.remote.FetchBundle(ctx, tag)
	if err != nil {
		return nil, err
	}
	if len(manifest.Filter(b.Manifest, s.running, s.policy)) == 0 {
		return nil, fmt.Errorf("%w: release %s has no template compatible with integration %s",
			oerrors.ErrIncompatible, tag, s.running)
	}

	if s.cache != nil {
		if err := s.cache.Save(b); err != nil {
			output.Warn("could not update baseline cache", "dir", s.cache.Dir(), "err", err)
		}
	}
	return b, nil
}

func (s *Store) served(b *Bundle, rung Rung, attempts []Attempt) *Bundle {
	b.Provenance = Provenance{Source: rung, Ref: b.Ref.Tag, Attempts: attempts}
	output.Debug("bundle served", "source", rung, "tag", b.Ref.Tag, "attempts", len(attempts))
	return b
}
