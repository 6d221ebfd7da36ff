package mcpinstall

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallCursorUsesMcpServersKey(t *testing.T) {
	root := t.TempDir()
	proj, err := Install(root, "cursor", "vaultspec", McpServerConfig{
		Transport: TransportStdio,
		Command:   "/venv/bin/python",
		Args:      []string{"-m", "vaultspec"},
	})
	require.NoError(t, err)
	assert.Equal(t, "mcpServers.vaultspec", proj.JSONPath)

	data, err := os.ReadFile(filepath.Join(root, ".cursor", "mcp.json"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	servers := doc["mcpServers"].(map[string]any)
	entry := servers["vaultspec"].(map[string]any)
	assert.Equal(t, "/venv/bin/python", entry["command"])
	assert.NotContains(t, entry, "type")
}

func TestInstallVSCodeUsesServersKeyAndTypeField(t *testing.T) {
	root := t.TempDir()
	_, err := Install(root, "vscode", "vaultspec", McpServerConfig{
		Transport: TransportStdio,
		Command:   "/venv/bin/python",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, ".vscode", "mcp.json"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	servers := doc["servers"].(map[string]any)
	entry := servers["vaultspec"].(map[string]any)
	assert.Equal(t, "stdio", entry["type"])
}

func TestInstallPreservesUnrelatedKeys(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ".cursor", "mcp.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers": {"other": {"command": "keep-me"}}}`), 0o644))

	_, err := Install(root, "cursor", "vaultspec", McpServerConfig{Transport: TransportStdio, Command: "new"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	servers := doc["mcpServers"].(map[string]any)
	assert.Contains(t, servers, "other")
	assert.Contains(t, servers, "vaultspec")
}

func TestRemoveDeletesEntry(t *testing.T) {
	root := t.TempDir()
	_, err := Install(root, "cursor", "vaultspec", McpServerConfig{Transport: TransportStdio, Command: "x"})
	require.NoError(t, err)

	require.NoError(t, Remove(root, "cursor", "vaultspec"))

	data, err := os.ReadFile(filepath.Join(root, ".cursor", "mcp.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	servers := doc["mcpServers"].(map[string]any)
	assert.NotContains(t, servers, "vaultspec")
}

func TestSyncRemovesOwnedButNoLongerDeclared(t *testing.T) {
	root := t.TempDir()
	_, err := Install(root, "cursor", "stale", McpServerConfig{Transport: TransportStdio, Command: "x"})
	require.NoError(t, err)

	projections, err := Sync(root, "cursor", map[string]McpServerConfig{
		"fresh": {Transport: TransportStdio, Command: "y"},
	}, map[string]bool{"stale": true})
	require.NoError(t, err)
	require.Len(t, projections, 1)
	assert.Equal(t, "mcpServers.fresh", projections[0].JSONPath)

	data, err := os.ReadFile(filepath.Join(root, ".cursor", "mcp.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	servers := doc["mcpServers"].(map[string]any)
	assert.NotContains(t, servers, "stale")
	assert.Contains(t, servers, "fresh")
}

func TestTransportNotSupportedByTool(t *testing.T) {
	_, err := Install(t.TempDir(), "zed", "x", McpServerConfig{Transport: TransportHTTP, URL: "https://example.com"})
	require.Error(t, err)
}
