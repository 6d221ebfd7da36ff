package extension

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extensions.lock")
	l, err := LoadLock(path)
	require.NoError(t, err)
	_, ok := l.Get("vaultspec")
	assert.False(t, ok)
}

func TestLockSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extensions.lock")
	l, err := LoadLock(path)
	require.NoError(t, err)

	l.Upsert(LockEntry{
		Name:          "vaultspec",
		Version:       "1.2.0",
		Source:        "git+https://example.com/vaultspec",
		PythonVersion: "3.11.4",
		VenvPath:      ".repository/extensions/vaultspec/.venv",
		InstalledAt:   "2026-07-31T00:00:00Z",
	})
	require.NoError(t, l.Save())

	reloaded, err := LoadLock(path)
	require.NoError(t, err)
	entry, ok := reloaded.Get("vaultspec")
	require.True(t, ok)
	assert.Equal(t, "1.2.0", entry.Version)
	assert.Equal(t, "3.11.4", entry.PythonVersion)
}

func TestLockRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extensions.lock")
	l, err := LoadLock(path)
	require.NoError(t, err)

	l.Upsert(LockEntry{Name: "a", Version: "1.0.0"})
	l.Upsert(LockEntry{Name: "b", Version: "1.0.0"})
	l.Remove("a")

	_, ok := l.Get("a")
	assert.False(t, ok)
	_, ok = l.Get("b")
	assert.True(t, ok)
}
