package manifest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
tools = ["claude", "cursor"]
rules = ["py-style"]

[core]
mode = "standard"

[presets."env:python"]
version = ">=3.12"
provider = "uv"

[extensions."vaultspec"]
source = "git+https://example.com/vaultspec"
ref = "v0.1.0"

[[hooks]]
event = "post-sync"
command = "echo"
args = ["done"]
`

func TestParseValidManifest(t *testing.T) {
	m, err := Parse("config.toml", []byte(sampleTOML))
	require.NoError(t, err)
	assert.Equal(t, ModeStandard, m.Core.Mode)
	assert.Equal(t, []string{"claude", "cursor"}, m.Tools)
	assert.Equal(t, []string{"py-style"}, m.Rules)
	assert.Len(t, m.Hooks, 1)
	assert.Equal(t, "post-sync", m.Hooks[0].Event)
}

func TestParseRejectsInvalidMode(t *testing.T) {
	_, err := Parse("config.toml", []byte(`[core]
mode = "bogus"
`))
	require.Error(t, err)
}

func TestParseRejectsInvalidPresetKey(t *testing.T) {
	_, err := Parse("config.toml", []byte(`[core]
mode = "standard"

[presets."BadKey"]
version = "1.0"
`))
	require.Error(t, err)
}

func TestParseRejectsInvalidSemverConstraint(t *testing.T) {
	_, err := Parse("config.toml", []byte(`[core]
mode = "standard"

[presets."env:python"]
version = "not-a-constraint!!"
provider = "uv"
`))
	require.Error(t, err)
}

func TestResolveToolsRulesSetUnionPreservesOrder(t *testing.T) {
	base := &Manifest{Tools: []string{"claude", "cursor"}, Rules: []string{"py-style"}}
	override := &Manifest{Tools: []string{"cursor", "zed"}, Rules: []string{"go-style", "py-style"}}

	resolved, err := Resolve(base, override)
	require.NoError(t, err)
	assert.Equal(t, []string{"claude", "cursor", "zed"}, resolved.Tools)
	assert.Equal(t, []string{"py-style", "go-style"}, resolved.Rules)
}

func TestResolveModeLastWins(t *testing.T) {
	base := &Manifest{Core: Core{Mode: ModeStandard}}
	override := &Manifest{Core: Core{Mode: ModeWorktrees}}

	resolved, err := Resolve(base, override)
	require.NoError(t, err)
	assert.Equal(t, ModeWorktrees, resolved.Mode)
}

func TestResolveExtensionsLastWinsPerName(t *testing.T) {
	base := &Manifest{Extensions: map[string]ExtensionRef{
		"vaultspec": {Source: "git+https://old", Ref: "v0.1.0"},
	}}
	override := &Manifest{Extensions: map[string]ExtensionRef{
		"vaultspec": {Source: "git+https://new", Ref: "v0.2.0"},
	}}

	resolved, err := Resolve(base, override)
	require.NoError(t, err)
	assert.Equal(t, "git+https://new", resolved.Extensions["vaultspec"].Source)
}

func TestResolvePresetsDeepMerge(t *testing.T) {
	base := &Manifest{Presets: map[string]any{
		"env:python": map[string]any{"version": ">=3.12", "provider": "uv"},
	}}
	override := &Manifest{Presets: map[string]any{
		"env:python": map[string]any{"provider": "pip"},
	}}

	resolved, err := Resolve(base, override)
	require.NoError(t, err)
	merged := resolved.Presets["env:python"].(map[string]any)
	assert.Equal(t, ">=3.12", merged["version"])
	assert.Equal(t, "pip", merged["provider"])
}

func TestResolveHooksConcatenate(t *testing.T) {
	base := &Manifest{Hooks: []Hook{{Event: "pre-sync", Command: "a"}}}
	override := &Manifest{Hooks: []Hook{{Event: "post-sync", Command: "b"}}}

	resolved, err := Resolve(base, override)
	require.NoError(t, err)
	require.Len(t, resolved.Hooks, 2)
	assert.Equal(t, "a", resolved.Hooks[0].Command)
	assert.Equal(t, "b", resolved.Hooks[1].Command)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	m := &Manifest{
		Core:  Core{Mode: ModeStandard},
		Tools: []string{"claude"},
		Rules: []string{"py-style"},
	}
	require.NoError(t, Save(path, m))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Tools, loaded.Tools)
	assert.Equal(t, m.Core.Mode, loaded.Core.Mode)
}
