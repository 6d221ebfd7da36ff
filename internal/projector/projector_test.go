package projector

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wgergely/repository-manager-sub008/internal/ledger"
	"github.com/wgergely/repository-manager-sub008/internal/ruleset"
)

func rule(id, content string) *ruleset.Rule {
	return &ruleset.Rule{UUID: "uuid-" + id, ID: id, Content: content, ContentHash: ""}
}

func TestSyncCursorWritesManagedBlock(t *testing.T) {
	root := t.TempDir()
	projections, err := Sync(root, Registry["cursor"], []*ruleset.Rule{rule("py-style", "Use snake_case")})
	require.NoError(t, err)
	require.Len(t, projections, 1)
	assert.Equal(t, ledger.KindTextBlock, projections[0].Kind)

	data, err := os.ReadFile(filepath.Join(root, ".cursorrules"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Use snake_case")
}

func TestSyncClaudeAndCursorShareBlockUUID(t *testing.T) {
	root := t.TempDir()
	rules := []*ruleset.Rule{rule("py-style", "Use snake_case")}

	cursorProjections, err := Sync(root, Registry["cursor"], rules)
	require.NoError(t, err)
	claudeProjections, err := Sync(root, Registry["claude"], rules)
	require.NoError(t, err)

	assert.Equal(t, cursorProjections[0].Marker, claudeProjections[0].Marker)
}

func TestSyncIsIdempotent(t *testing.T) {
	root := t.TempDir()
	rules := []*ruleset.Rule{rule("py-style", "Use snake_case")}

	_, err := Sync(root, Registry["cursor"], rules)
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(root, ".cursorrules"))
	require.NoError(t, err)

	_, err = Sync(root, Registry["cursor"], rules)
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(root, ".cursorrules"))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestSyncJSONToolMergesInstructionKey(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ".zed", "settings.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"other_setting": true}`), 0o644))

	_, err := Sync(root, Registry["zed"], []*ruleset.Rule{rule("py-style", "Use snake_case")})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, true, doc["other_setting"])
	assert.Contains(t, doc["instructions"], "Use snake_case")
}

func TestSyncRulesDirectoryRemovesStaleFiles(t *testing.T) {
	root := t.TempDir()
	def := ToolDefinition{
		Slug:                   "withdir",
		SupportsRulesDirectory: true,
		RulesDirectory:         "rules",
	}

	_, err := syncRulesDirectory(root, def, []*ruleset.Rule{rule("a", "A"), rule("b", "B")})
	require.NoError(t, err)

	_, err = syncRulesDirectory(root, def, []*ruleset.Rule{rule("a", "A")})
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "rules"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "01-a.md", entries[0].Name())
}

func TestGenericFallbackForUnregisteredTool(t *testing.T) {
	def := Generic("windsurf")
	assert.Equal(t, ".windsurfrules", def.ConfigPath)
	assert.Equal(t, ConfigText, def.ConfigType)
}

func TestSyncAllCollectsPerToolResults(t *testing.T) {
	root := t.TempDir()
	defs := []ToolDefinition{Registry["cursor"], Registry["claude"]}
	results := SyncAll(root, defs, []*ruleset.Rule{rule("py-style", "Use snake_case")})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.NotEmpty(t, r.Projections)
	}
}
