package extension

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgergely/repository-manager-sub008/internal/hooks"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestInstallLocalNodeExtensionEndToEnd(t *testing.T) {
	root := t.TempDir()
	extSrc := filepath.Join(t.TempDir(), "vaultspec-src")
	marker := filepath.Join(root, "installed.txt")

	writeFile(t, filepath.Join(extSrc, "repo_extension.toml"), `
[extension]
name = "vaultspec"
version = "1.2.0"
[runtime]
type = "node"
install = "touch `+marker+`"
[provides]
mcp = "mcp.json"
`)

	mcpDoc := map[string]any{
		"vault": map[string]any{
			"transport": "stdio",
			"command":   "node",
			"args":      []string{"{{root}}/server.js"},
		},
	}
	data, err := json.Marshal(mcpDoc)
	require.NoError(t, err)
	writeFile(t, filepath.Join(extSrc, "mcp.json"), string(data))

	hookMarker := filepath.Join(root, "hook-ran.txt")
	lifecycleHooks := []hooks.Hook{
		{Event: hooks.EventPostExtensionInstall, Command: "sh", Args: []string{"-c", "echo ${EXTENSION_NAME} > " + hookMarker}},
	}

	decl := Declaration{Name: "vaultspec", Source: extSrc}
	res, err := Install(context.Background(), root, decl, []string{"cursor"}, lifecycleHooks)
	require.NoError(t, err)
	assert.Equal(t, StateActivated, res.State)

	_, statErr := os.Stat(marker)
	assert.NoError(t, statErr, "install string should have run")

	hookData, err := os.ReadFile(hookMarker)
	require.NoError(t, err)
	assert.Contains(t, string(hookData), "vaultspec")

	require.Len(t, res.MCPProjections, 1)
	assert.Equal(t, "cursor", res.MCPProjections[0].Tool)

	cursorConfig, err := os.ReadFile(filepath.Join(root, ".cursor", "mcp.json"))
	require.NoError(t, err)
	assert.Contains(t, string(cursorConfig), "vaultspec:vault")
	assert.Contains(t, string(cursorConfig), root+"/server.js")
}

func TestInstallIsIdempotentOnReentry(t *testing.T) {
	root := t.TempDir()
	extSrc := filepath.Join(t.TempDir(), "noop-src")

	writeFile(t, filepath.Join(extSrc, "repo_extension.toml"), `
[extension]
name = "noop"
version = "1.0.0"
[runtime]
type = "node"
`)

	decl := Declaration{Name: "noop", Source: extSrc}
	res1, err := Install(context.Background(), root, decl, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, StateActivated, res1.State)

	res2, err := Install(context.Background(), root, decl, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, StateActivated, res2.State)
	assert.Equal(t, res1.SourceDir, res2.SourceDir)
}

func TestInstallRejectsInvalidVenvPath(t *testing.T) {
	root := t.TempDir()
	extSrc := filepath.Join(t.TempDir(), "bad-src")
	writeFile(t, filepath.Join(extSrc, "repo_extension.toml"), `
[extension]
name = "bad"
version = "1.0.0"
[runtime]
type = "python"
venv_path = "/abs/escape"
`)

	decl := Declaration{Name: "bad", Source: extSrc}
	_, err := Install(context.Background(), root, decl, nil, nil)
	assert.Error(t, err)
}

func TestInstallFailedOnNonZeroInstallCommand(t *testing.T) {
	root := t.TempDir()
	extSrc := filepath.Join(t.TempDir(), "broken-src")
	writeFile(t, filepath.Join(extSrc, "repo_extension.toml"), `
[extension]
name = "broken"
version = "1.0.0"
[runtime]
type = "node"
install = "false"
`)

	decl := Declaration{Name: "broken", Source: extSrc}
	_, err := Install(context.Background(), root, decl, nil, nil)
	assert.Error(t, err)
}
