package ledger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.toml")
	l, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, l.Intents())
}

func TestUpsertAndSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.toml")
	l, err := Load(path)
	require.NoError(t, err)

	l.UpsertIntent(Intent{
		ID:        "rule:py-style",
		UUID:      "11111111-1111-1111-1111-111111111111",
		Timestamp: "2026-01-01T00:00:00Z",
		Projections: []Projection{
			{Tool: "cursor", File: ".cursorrules", Kind: KindTextBlock, Marker: "11111111-1111-1111-1111-111111111111", Checksum: Sha256Checksum("Use snake_case")},
		},
	})
	require.NoError(t, l.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	intent, ok := reloaded.FindByID("rule:py-style")
	require.True(t, ok)
	require.Len(t, intent.Projections, 1)
	assert.Equal(t, "cursor", intent.Projections[0].Tool)
}

func TestUpsertReplacesInPlace(t *testing.T) {
	l := &Ledger{path: filepath.Join(t.TempDir(), "ledger.toml"), intents: map[string]*Intent{}}
	l.UpsertIntent(Intent{ID: "tool:cursor", Timestamp: "t1"})
	l.UpsertIntent(Intent{ID: "tool:cursor", Timestamp: "t2"})

	intent, ok := l.FindByID("tool:cursor")
	require.True(t, ok)
	assert.Equal(t, "t2", intent.Timestamp)
	assert.Len(t, l.Intents(), 1)
}

func TestRemoveIntent(t *testing.T) {
	l := &Ledger{path: filepath.Join(t.TempDir(), "ledger.toml"), intents: map[string]*Intent{}}
	l.UpsertIntent(Intent{ID: "tool:cursor"})
	l.RemoveIntent("tool:cursor")

	_, ok := l.FindByID("tool:cursor")
	assert.False(t, ok)
}

func TestProjectionsForFile(t *testing.T) {
	l := &Ledger{path: filepath.Join(t.TempDir(), "ledger.toml"), intents: map[string]*Intent{}}
	l.UpsertIntent(Intent{
		ID: "rule:py-style",
		Projections: []Projection{
			{Tool: "cursor", File: ".cursorrules", Kind: KindTextBlock},
			{Tool: "claude", File: "CLAUDE.md", Kind: KindTextBlock},
		},
	})

	projections := l.ProjectionsForFile(".cursorrules")
	require.Len(t, projections, 1)
	assert.Equal(t, "cursor", projections[0].Tool)
}

func TestFindByRule(t *testing.T) {
	l := &Ledger{path: filepath.Join(t.TempDir(), "ledger.toml"), intents: map[string]*Intent{}}
	l.UpsertIntent(Intent{
		ID: "rule:py-style",
		Projections: []Projection{
			{Tool: "cursor", File: ".cursorrules", Kind: KindTextBlock, Marker: "uuid-1"},
		},
	})

	intents := l.FindByRule("uuid-1")
	require.Len(t, intents, 1)
	assert.Equal(t, "rule:py-style", intents[0].ID)
}

func TestSha256ChecksumFormat(t *testing.T) {
	checksum := Sha256Checksum("Use snake_case")
	assert.Regexp(t, `^sha256:[0-9a-f]{64}$`, checksum)
}
