package release

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/manifest"
	"github.com/choreops/dashctl/internal/version"
)

type mockIndex struct {
	mock.Mock
}

func (m *mockIndex) Tags(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	tags, _ := args.Get(0).([]string)
	return tags, args.Error(1)
}

func (m *mockIndex) Manifest(ctx context.Context, tag string) (*manifest.Manifest, error) {
	args := m.Called(ctx, tag)
	mf, _ := args.Get(0).(*manifest.Manifest)
	return mf, args.Error(1)
}

type installedTag string

func (t installedTag) InstalledTag() (string, error) {
	if t == "" {
		return "", errors.New("no release.json")
	}
	return string(t), nil
}

func compatibleManifest(min, max string) *manifest.Manifest {
	return &manifest.Manifest{
		SchemaVersion: 1,
		Records: []manifest.Record{{
			TemplateID:     "user-gamification-v1",
			Audience:       manifest.AudienceUser,
			Lifecycle:      manifest.LifecycleSelectable,
			MinIntegration: min,
			MaxIntegration: max,
			SourcePath:     "templates/user-gamification-v1.yaml",
		}},
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"latest-stable", Mode{Kind: ModeLatestStable}, false},
		{"latest-compatible", Mode{Kind: ModeLatestCompatible}, false},
		{" current-installed ", Mode{Kind: ModeCurrentInstalled}, false},
		{"explicit:0.5.0-beta.5", Mode{Kind: ModeExplicit, Tag: "0.5.0-beta.5"}, false},
		{"explicit:", Mode{}, true},
		{"newest", Mode{}, true},
		{"", Mode{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, oerrors.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestNewRef(t *testing.T) {
	ref, err := NewRef("0.5.0-rc.1", SourceExplicitPin)
	require.NoError(t, err)
	assert.Equal(t, version.ChannelRC, ref.Channel)
	assert.Equal(t, "0.5.0-rc.1 (rc, explicit-pin)", ref.String())

	_, err = NewRef("latest", SourceExplicitPin)
	assert.ErrorIs(t, err, oerrors.ErrValidation)

	assert.Equal(t, "<none>", Ref{}.String())
}

func TestSortNewestFirst(t *testing.T) {
	tags := []string{"0.4.0", "0.5.0-beta.5", "0.5.0", "0.5.0-rc.1", "0.5.0-beta.10", "0.6.0-beta.1", "0.4.2"}
	SortNewestFirst(tags)
	assert.Equal(t, []string{"0.6.0-beta.1", "0.5.0", "0.5.0-rc.1", "0.5.0-beta.10", "0.5.0-beta.5", "0.4.2", "0.4.0"}, tags)
}

func TestResolve_LatestStable(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Tags", mock.Anything).Return([]string{"0.5.0", "0.6.0-beta.1", "0.5.1", "garbage"}, nil).Once()

	r := NewResolver(Mode{Kind: ModeLatestStable}, idx, nil)
	assert.Equal(t, StateUnresolved, r.State())

	out := r.Resolve(context.Background())
	require.True(t, out.Resolved())
	assert.Equal(t, "0.5.1", out.Ref.Tag)
	assert.Equal(t, version.ChannelStable, out.Ref.Channel)
	assert.Equal(t, SourceResolvedLatest, out.Ref.Source)
	assert.Equal(t, StateResolved, r.State())
}

func TestResolve_LatestStableIsPinned(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Tags", mock.Anything).Return([]string{"0.5.0"}, nil).Once()

	r := NewResolver(Mode{Kind: ModeLatestStable}, idx, nil)
	first := r.Resolve(context.Background())

	// A newer release appearing later must not change the pinned outcome.
	idx.On("Tags", mock.Anything).Return([]string{"0.5.0", "0.9.0"}, nil)
	second := r.Resolve(context.Background())

	assert.Equal(t, first, second)
	idx.AssertNumberOfCalls(t, "Tags", 1)
}

func TestResolve_ConcurrentCallersShareOutcome(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Tags", mock.Anything).Return([]string{"0.5.0", "0.5.1"}, nil)

	r := NewResolver(Mode{Kind: ModeLatestStable}, idx, nil)

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 8)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = r.Resolve(context.Background())
		}(i)
	}
	wg.Wait()

	for _, o := range outcomes {
		assert.Equal(t, outcomes[0], o)
	}
	idx.AssertNumberOfCalls(t, "Tags", 1)
}

func TestResolve_ExplicitNeverSubstitutes(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Manifest", mock.Anything, "0.5.0-beta.5").
		Return(nil, fmt.Errorf("%w: 404", oerrors.ErrNotFound))

	r := NewResolver(Mode{Kind: ModeExplicit, Tag: "0.5.0-beta.5"}, idx, nil)
	out := r.Resolve(context.Background())

	assert.Equal(t, StateFailed, out.State)
	assert.True(t, out.Ref.IsZero())
	require.NotNil(t, out.Err)
	assert.ErrorIs(t, out.Err, oerrors.ErrResolution)
	assert.ErrorIs(t, out.Err, oerrors.ErrNotFound)
	assert.Contains(t, out.Err.Error(), "explicit:0.5.0-beta.5")
	idx.AssertNotCalled(t, "Tags", mock.Anything)
}

func TestResolve_ExplicitResolved(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Manifest", mock.Anything, "0.5.0-beta.5").Return(compatibleManifest("0.4.0", "0.6.0"), nil)

	out := NewResolver(Mode{Kind: ModeExplicit, Tag: "0.5.0-beta.5"}, idx, nil).Resolve(context.Background())

	require.True(t, out.Resolved())
	assert.Equal(t, Ref{Tag: "0.5.0-beta.5", Channel: version.ChannelBeta, Source: SourceExplicitPin}, out.Ref)
}

func TestResolve_ExplicitInvalidTag(t *testing.T) {
	idx := &mockIndex{}
	out := NewResolver(Mode{Kind: ModeExplicit, Tag: "main"}, idx, nil).Resolve(context.Background())

	assert.Equal(t, StateFailed, out.State)
	idx.AssertNotCalled(t, "Manifest", mock.Anything, mock.Anything)
}

func TestResolve_LatestCompatible(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Tags", mock.Anything).Return([]string{"0.4.0", "0.5.0-beta.5", "0.6.0", "0.5.0-rc.1"}, nil)
	// Newest release only supports newer integrations.
	idx.On("Manifest", mock.Anything, "0.6.0").Return(compatibleManifest("0.6.0", ""), nil)
	idx.On("Manifest", mock.Anything, "0.5.0-rc.1").Return(nil, errors.New("connection reset"))
	idx.On("Manifest", mock.Anything, "0.5.0-beta.5").Return(compatibleManifest("0.4.0", "0.6.0"), nil)

	r := NewResolver(Mode{Kind: ModeLatestCompatible}, idx, nil, WithRunningVersion("0.5.0-beta.5"))
	out := r.Resolve(context.Background())

	require.True(t, out.Resolved(), "outcome: %+v", out)
	assert.Equal(t, "0.5.0-beta.5", out.Ref.Tag)
	idx.AssertNotCalled(t, "Manifest", mock.Anything, "0.4.0")
}

func TestResolve_LatestCompatibleSkipsUnsupportedSchema(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Tags", mock.Anything).Return([]string{"0.5.0", "0.4.0"}, nil)
	idx.On("Manifest", mock.Anything, "0.5.0").Return(&manifest.Manifest{SchemaVersion: 7, Unsupported: true}, nil)
	idx.On("Manifest", mock.Anything, "0.4.0").Return(compatibleManifest("0.1.0", ""), nil)

	out := NewResolver(Mode{Kind: ModeLatestCompatible}, idx, nil, WithRunningVersion("0.5.0")).
		Resolve(context.Background())

	require.True(t, out.Resolved())
	assert.Equal(t, "0.4.0", out.Ref.Tag)
}

func TestResolve_LatestCompatibleNoneMatch(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Tags", mock.Anything).Return([]string{"0.5.0"}, nil)
	idx.On("Manifest", mock.Anything, "0.5.0").Return(compatibleManifest("0.9.0", ""), nil)

	out := NewResolver(Mode{Kind: ModeLatestCompatible}, idx, nil, WithRunningVersion("0.5.0")).
		Resolve(context.Background())

	assert.Equal(t, StateFailed, out.State)
	assert.ErrorIs(t, out.Err, oerrors.ErrIncompatible)
}

func TestResolve_IndexUnreachable(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Tags", mock.Anything).Return(nil, fmt.Errorf("%w: dial tcp: timeout", oerrors.ErrConnectivity))

	out := NewResolver(Mode{Kind: ModeLatestStable}, idx, nil).Resolve(context.Background())

	assert.Equal(t, StateFailed, out.State)
	assert.ErrorIs(t, out.Err, oerrors.ErrConnectivity)
	assert.True(t, IsResolutionError(out.Err))
}

func TestResolve_CurrentInstalled(t *testing.T) {
	idx := &mockIndex{}

	out := NewResolver(Mode{Kind: ModeCurrentInstalled}, idx, installedTag("0.5.0-beta.3")).
		Resolve(context.Background())

	require.True(t, out.Resolved())
	assert.Equal(t, SourceLocalInstalled, out.Ref.Source)
	assert.Equal(t, "0.5.0-beta.3", out.Ref.Tag)
	idx.AssertNotCalled(t, "Tags", mock.Anything)

	failed := NewResolver(Mode{Kind: ModeCurrentInstalled}, idx, installedTag("")).
		Resolve(context.Background())
	assert.Equal(t, StateFailed, failed.State)
}

func TestResolve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx := &mockIndex{}
	out := NewResolver(Mode{Kind: ModeLatestStable}, idx, nil).Resolve(ctx)

	assert.Equal(t, StateFailed, out.State)
	assert.ErrorIs(t, out.Err, context.Canceled)
}
