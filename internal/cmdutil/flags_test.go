package cmdutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choreops/dashctl/internal/config"
)

func TestParseUsers(t *testing.T) {
	users, err := ParseUsers([]string{"Alice:u1", "Zoë Smith"})
	require.NoError(t, err)
	assert.Equal(t, []config.UserConfig{
		{Name: "Alice", UserID: "u1"},
		{Name: "Zoë Smith", UserID: "zoe_smith"},
	}, users)

	_, err = ParseUsers([]string{":u1"})
	assert.Error(t, err)
}

func TestParseTemplates(t *testing.T) {
	got, err := ParseTemplates([]string{"user=user-minimal-v1", "admin-shared=admin-shared-v1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"user":         "user-minimal-v1",
		"admin-shared": "admin-shared-v1",
	}, got)

	_, err = ParseTemplates([]string{"user"})
	assert.Error(t, err)
	_, err = ParseTemplates([]string{"kids=x"})
	assert.ErrorContains(t, err, "unknown audience")
}

func TestDashboardFlagsApply(t *testing.T) {
	cfg := config.DefaultConfig()
	f := DashboardFlags{
		Name:    "Family",
		EntryID: "e1",
		Users:   []string{"Bob:u2"},
		Present: []string{"custom:auto-entities"},
		NoAdmin: true,
	}
	require.NoError(t, f.Apply(&cfg.Dashboard, &cfg.Dependencies))

	assert.Equal(t, "Family", cfg.Dashboard.Name)
	assert.Equal(t, "kcd", cfg.Dashboard.Prefix)
	assert.Equal(t, "e1", cfg.Dashboard.EntryID)
	assert.False(t, cfg.Dashboard.Admin)
	assert.Equal(t, []config.UserConfig{{Name: "Bob", UserID: "u2"}}, cfg.Dashboard.Users)
	assert.Equal(t, []string{"custom:auto-entities"}, cfg.Dependencies.Present)
}

func TestBypassFlagsValidate(t *testing.T) {
	assert.NoError(t, (&BypassFlags{}).Validate())
	assert.NoError(t, (&BypassFlags{Bypass: true, Reason: "testing"}).Validate())
	assert.Error(t, (&BypassFlags{Bypass: true}).Validate())
	assert.Error(t, (&BypassFlags{Reason: "no bypass"}).Validate())
}

func TestSyncFlagsValidate(t *testing.T) {
	f := SyncFlags{Check: true, Watch: true, Canonical: "a", Vendored: "b"}
	assert.ErrorContains(t, f.Validate(nil), "mutually exclusive")

	f = SyncFlags{}
	require.NoError(t, f.Validate(&config.VendorConfig{Canonical: "/src", Dir: "/dst"}))
	assert.Equal(t, "/src", f.Canonical)
	assert.Equal(t, "/dst", f.Vendored)

	f = SyncFlags{Vendored: "x"}
	assert.ErrorContains(t, f.Validate(&config.VendorConfig{}), "no canonical tree")
}
