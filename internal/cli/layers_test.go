package cli

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func TestDiscoverLayersEmptyWhenNothingWritten(t *testing.T) {
	fsys := afero.NewMemMapFs()
	assert.Empty(t, discoverLayers(fsys, "/repo"))
}

func TestDiscoverLayersFindsRepositoryLayer(t *testing.T) {
	fsys := afero.NewMemMapFs()
	assert.NoError(t, afero.WriteFile(fsys, "/repo/.repository/config.toml", []byte("[core]\nmode = \"standard\"\n"), 0o644))

	found := discoverLayers(fsys, "/repo")
	assert.Equal(t, []string{"/repo/.repository/config.toml"}, found)
}

func TestDiscoverLayersIncludesLocalOverrideLast(t *testing.T) {
	fsys := afero.NewMemMapFs()
	assert.NoError(t, afero.WriteFile(fsys, "/repo/.repository/config.toml", []byte("[core]\n"), 0o644))
	assert.NoError(t, afero.WriteFile(fsys, "/repo/.repository/config.local.toml", []byte("tools = [\"cursor\"]\n"), 0o644))

	found := discoverLayers(fsys, "/repo")
	assert.Equal(t, []string{
		"/repo/.repository/config.toml",
		"/repo/.repository/config.local.toml",
	}, found)
}
