package ruleset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistryMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.toml")
	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Empty(t, reg.All())
}

func TestAddRejectsInvalidID(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join(t.TempDir(), "registry.toml"))
	require.NoError(t, err)

	_, err = reg.Add("Not Valid!", "content", nil, "2026-01-01T00:00:00Z")
	require.Error(t, err)
}

func TestAddRejectsDuplicateID(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join(t.TempDir(), "registry.toml"))
	require.NoError(t, err)

	_, err = reg.Add("py-style", "Use snake_case", []string{"python"}, "2026-01-01T00:00:00Z")
	require.NoError(t, err)

	_, err = reg.Add("py-style", "other", nil, "2026-01-01T00:00:00Z")
	require.Error(t, err)
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.toml")
	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	rule, err := reg.Add("py-style", "Use snake_case", []string{"python"}, "2026-01-01T00:00:00Z")
	require.NoError(t, err)
	require.NoError(t, reg.Save())

	reloaded, err := LoadRegistry(path)
	require.NoError(t, err)

	got, ok := reloaded.ByUUID(rule.UUID)
	require.True(t, ok)
	assert.Equal(t, "py-style", got.ID)
	assert.Equal(t, "Use snake_case", got.Content)
	assert.NoError(t, got.Verify())
}

func TestUpdateContentRecomputesHash(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join(t.TempDir(), "registry.toml"))
	require.NoError(t, err)

	rule, err := reg.Add("py-style", "Use snake_case", nil, "2026-01-01T00:00:00Z")
	require.NoError(t, err)
	originalHash := rule.ContentHash

	updated, err := reg.UpdateContent("py-style", "Use snake_case everywhere", "2026-01-02T00:00:00Z")
	require.NoError(t, err)
	assert.NotEqual(t, originalHash, updated.ContentHash)
	assert.NoError(t, updated.Verify())
}

func TestRemoveDeletesRule(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join(t.TempDir(), "registry.toml"))
	require.NoError(t, err)

	_, err = reg.Add("py-style", "content", nil, "2026-01-01T00:00:00Z")
	require.NoError(t, err)
	require.NoError(t, reg.Remove("py-style"))

	_, ok := reg.ByID("py-style")
	assert.False(t, ok)
}

func TestVerifyDetectsTamperedHash(t *testing.T) {
	rule := &Rule{UUID: "x", ID: "x", Content: "a", ContentHash: "wrong"}
	require.Error(t, rule.Verify())
}
