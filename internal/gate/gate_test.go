package gate

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/choreops/dashctl/internal/errors"
	"github.com/choreops/dashctl/internal/manifest"
)

func gamificationRecord() manifest.Record {
	return manifest.Record{
		TemplateID:  "user-gamification-v1",
		Required:    []string{"custom:mushroom-template-card", "custom:auto-entities"},
		Recommended: []string{"custom:card-mod", "custom:auto-entities"},
	}
}

func TestReviewRecord_MissingMushroom(t *testing.T) {
	rev := ReviewRecord(gamificationRecord(), []string{"custom:auto-entities", "custom:card-mod"})

	assert.Equal(t, []string{"custom:mushroom-template-card"}, rev.MissingRequired)
	assert.Empty(t, rev.MissingRecommended)
	assert.True(t, rev.Blocked())

	err := rev.Err()
	assert.ErrorIs(t, err, oerrors.ErrDependencyBlocked)
	assert.Contains(t, err.Error(), "custom:mushroom-template-card")
}

func TestReviewRecord_ListsAreDisjointAndSorted(t *testing.T) {
	rev := ReviewRecord(gamificationRecord(), nil)

	assert.Equal(t, []string{"custom:auto-entities", "custom:mushroom-template-card"}, rev.MissingRequired)
	assert.Equal(t, []string{"custom:card-mod"}, rev.MissingRecommended)
}

func TestReviewRecord_AllPresent(t *testing.T) {
	rev := ReviewRecord(gamificationRecord(), []string{
		"custom:mushroom-template-card", "custom:auto-entities", "custom:card-mod",
	})

	assert.False(t, rev.Blocked())
	assert.NoError(t, rev.Err())
	assert.Empty(t, rev.MissingRequired)
	assert.NotNil(t, rev.MissingRequired, "empty lists encode as [] rather than null")
}

func TestStatuses(t *testing.T) {
	rev := ReviewRecord(gamificationRecord(), []string{"custom:auto-entities"})

	assert.Equal(t, []DependencyStatus{
		{ID: "custom:auto-entities", Present: true, Required: true, RequiredBy: "user-gamification-v1"},
		{ID: "custom:mushroom-template-card", Present: false, Required: true, RequiredBy: "user-gamification-v1"},
		{ID: "custom:card-mod", Present: false, Required: false, RequiredBy: "user-gamification-v1"},
	}, rev.Statuses())
}

func TestBypass_DoesNotMutate(t *testing.T) {
	rec := gamificationRecord()
	rev := ReviewRecord(rec, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	b := Bypass(rev, "parent", "installing cards later", now)
	b.MissingRequired[0] = "changed"

	assert.Equal(t, "custom:auto-entities", rev.MissingRequired[0])
	assert.Equal(t, gamificationRecord(), rec)
	assert.Equal(t, time.UTC, b.At.Location())
	assert.True(t, rev.Blocked(), "a bypass does not unblock the review itself")
}

func TestFileAuditSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "bypass.jsonl")
	sink := NewFileAuditSink(path)
	rev := ReviewRecord(gamificationRecord(), nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, sink.Record(context.Background(), Bypass(rev, "cli", "", now)))
		}()
	}
	wg.Wait()

	records, err := ReadAuditLog(path)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "user-gamification-v1", records[0].TemplateID)
	assert.True(t, now.Equal(records[0].At))
}

func TestFileAuditSink_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := NewFileAuditSink(filepath.Join(t.TempDir(), "a.jsonl"))
	assert.ErrorIs(t, sink.Record(ctx, BypassRecord{}), context.Canceled)
}
