package syncengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgergely/repository-manager-sub008/internal/ledger"
	"github.com/wgergely/repository-manager-sub008/internal/manifest"
	"github.com/wgergely/repository-manager-sub008/internal/ruleset"
)

func newTestRules(t *testing.T, root string) *ruleset.Registry {
	t.Helper()
	reg, err := ruleset.LoadRegistry(filepath.Join(root, ".repository", "rules.toml"))
	require.NoError(t, err)
	_, err = reg.Add("style", "Use tabs, not spaces.", nil, "2026-07-31T00:00:00Z")
	require.NoError(t, err)
	require.NoError(t, reg.Save())
	return reg
}

func testEngine(t *testing.T) (*Engine, *ruleset.Registry) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".repository"), 0o755))
	return NewEngine(root), newTestRules(t, root)
}

func TestSyncProjectsEnabledTools(t *testing.T) {
	engine, rules := testEngine(t)
	cfg := &manifest.ResolvedConfig{
		Mode:  manifest.ModeStandard,
		Tools: []string{"cursor"},
		Rules: []string{"style"},
	}

	report, err := engine.Sync(context.Background(), cfg, rules, "2026-07-31T00:00:00Z")
	require.NoError(t, err)
	assert.Empty(t, report.Failures)
	assert.Contains(t, report.Succeeded, "tool:cursor")

	data, err := os.ReadFile(filepath.Join(engine.Root, ".cursorrules"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Use tabs, not spaces.")
}

func TestSyncIsIdempotent(t *testing.T) {
	engine, rules := testEngine(t)
	cfg := &manifest.ResolvedConfig{Mode: manifest.ModeStandard, Tools: []string{"cursor"}, Rules: []string{"style"}}

	_, err := engine.Sync(context.Background(), cfg, rules, "2026-07-31T00:00:00Z")
	require.NoError(t, err)

	before, err := os.ReadFile(filepath.Join(engine.Root, ".cursorrules"))
	require.NoError(t, err)

	_, err = engine.Sync(context.Background(), cfg, rules, "2026-07-31T00:01:00Z")
	require.NoError(t, err)

	after, err := os.ReadFile(filepath.Join(engine.Root, ".cursorrules"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCheckReportsHealthyAfterSync(t *testing.T) {
	engine, rules := testEngine(t)
	cfg := &manifest.ResolvedConfig{Mode: manifest.ModeStandard, Tools: []string{"cursor"}, Rules: []string{"style"}}

	_, err := engine.Sync(context.Background(), cfg, rules, "2026-07-31T00:00:00Z")
	require.NoError(t, err)

	report, err := engine.Check()
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusHealthy, report.Results[0].Status)
	assert.Equal(t, 1, report.Counts["Healthy"])
}

func TestCheckReportsMissingWhenFileDeleted(t *testing.T) {
	engine, rules := testEngine(t)
	cfg := &manifest.ResolvedConfig{Mode: manifest.ModeStandard, Tools: []string{"cursor"}, Rules: []string{"style"}}

	_, err := engine.Sync(context.Background(), cfg, rules, "2026-07-31T00:00:00Z")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(engine.Root, ".cursorrules")))

	report, err := engine.Check()
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusMissing, report.Results[0].Status)
}

func TestCheckReportsDriftedOnContentChange(t *testing.T) {
	engine, rules := testEngine(t)
	cfg := &manifest.ResolvedConfig{Mode: manifest.ModeStandard, Tools: []string{"cursor"}, Rules: []string{"style"}}

	_, err := engine.Sync(context.Background(), cfg, rules, "2026-07-31T00:00:00Z")
	require.NoError(t, err)

	path := filepath.Join(engine.Root, ".cursorrules")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := string(data) + "\nextra line outside nothing\n"
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0o644))

	report, err := engine.Check()
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusDrifted, report.Results[0].Status)
}

func TestFixRestoresMissingFile(t *testing.T) {
	engine, rules := testEngine(t)
	cfg := &manifest.ResolvedConfig{Mode: manifest.ModeStandard, Tools: []string{"cursor"}, Rules: []string{"style"}}

	_, err := engine.Sync(context.Background(), cfg, rules, "2026-07-31T00:00:00Z")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(engine.Root, ".cursorrules")))

	_, after, err := engine.Fix(context.Background(), cfg, rules, "2026-07-31T00:02:00Z")
	require.NoError(t, err)
	require.Len(t, after.Results, 1)
	assert.Equal(t, StatusHealthy, after.Results[0].Status)

	_, statErr := os.Stat(filepath.Join(engine.Root, ".cursorrules"))
	assert.NoError(t, statErr)
}

func TestFixIsNoOpWhenAlreadyHealthy(t *testing.T) {
	engine, rules := testEngine(t)
	cfg := &manifest.ResolvedConfig{Mode: manifest.ModeStandard, Tools: []string{"cursor"}, Rules: []string{"style"}}

	_, err := engine.Sync(context.Background(), cfg, rules, "2026-07-31T00:00:00Z")
	require.NoError(t, err)

	report, after, err := engine.Fix(context.Background(), cfg, rules, "2026-07-31T00:03:00Z")
	require.NoError(t, err)
	assert.Empty(t, report.Succeeded)
	assert.Equal(t, StatusHealthy, after.Results[0].Status)
}

func TestSyncFiresPreAndPostSyncHooks(t *testing.T) {
	engine, rules := testEngine(t)
	preMarker := filepath.Join(engine.Root, "pre.txt")
	postMarker := filepath.Join(engine.Root, "post.txt")
	cfg := &manifest.ResolvedConfig{
		Mode:  manifest.ModeStandard,
		Tools: []string{"cursor"},
		Rules: []string{"style"},
		Hooks: []manifest.Hook{
			{Event: "pre-sync", Command: "touch", Args: []string{preMarker}},
			{Event: "post-sync", Command: "touch", Args: []string{postMarker}},
		},
	}

	_, err := engine.Sync(context.Background(), cfg, rules, "2026-07-31T00:00:00Z")
	require.NoError(t, err)

	_, statErr := os.Stat(preMarker)
	assert.NoError(t, statErr)
	_, statErr = os.Stat(postMarker)
	assert.NoError(t, statErr)
}

func TestSyncPersistsLedgerAcrossLoads(t *testing.T) {
	engine, rules := testEngine(t)
	cfg := &manifest.ResolvedConfig{Mode: manifest.ModeStandard, Tools: []string{"cursor"}, Rules: []string{"style"}}

	_, err := engine.Sync(context.Background(), cfg, rules, "2026-07-31T00:00:00Z")
	require.NoError(t, err)

	led, err := ledger.Load(engine.LedgerPath)
	require.NoError(t, err)
	intent, ok := led.FindByID("tool:cursor")
	require.True(t, ok)
	require.Len(t, intent.Projections, 1)
	assert.Equal(t, "cursor", intent.Projections[0].Tool)
}
