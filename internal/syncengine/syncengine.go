// Package syncengine implements C6: the Check/Sync/Fix triad that audits
// and reconciles {manifest, ledger, filesystem}, composing the manifest
// resolver (C3), ledger (C4), tool projector (C5), extension installer
// (C7), MCP installer (C8), and hook runner (C9) into the three commands
// the CLI exposes.
package syncengine

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/wgergely/repository-manager-sub008/internal/extension"
	"github.com/wgergely/repository-manager-sub008/internal/hooks"
	"github.com/wgergely/repository-manager-sub008/internal/ledger"
	"github.com/wgergely/repository-manager-sub008/internal/logger"
	"github.com/wgergely/repository-manager-sub008/internal/manifest"
	"github.com/wgergely/repository-manager-sub008/internal/pathio"
	"github.com/wgergely/repository-manager-sub008/internal/projector"
	"github.com/wgergely/repository-manager-sub008/internal/ruleset"
)

var log = logger.New("syncengine")

var intentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("repoctl.intent"))

func intentUUID(id string) string {
	return uuid.NewSHA1(intentNamespace, []byte(id)).String()
}

// Status is a projection's audited health, per §4.6.
type Status string

const (
	StatusHealthy Status = "Healthy"
	StatusMissing Status = "Missing"
	StatusDrifted Status = "Drifted"
	StatusBroken  Status = "Broken"
)

// ProjectionCheck is one projection's audited state.
type ProjectionCheck struct {
	IntentID   string
	Projection ledger.Projection
	Status     Status
	Detail     string
}

// CheckReport aggregates every projection's audited state.
type CheckReport struct {
	Results []ProjectionCheck
	Counts  map[string]int
}

func newCheckReport() *CheckReport {
	return &CheckReport{Counts: map[string]int{
		string(StatusHealthy): 0, string(StatusMissing): 0,
		string(StatusDrifted): 0, string(StatusBroken): 0,
	}}
}

// Check computes the health of every projection recorded in led, without
// mutating anything on disk or in the ledger.
func Check(root string, led *ledger.Ledger) (*CheckReport, error) {
	report := newCheckReport()
	for _, intent := range led.Intents() {
		for _, proj := range intent.Projections {
			status, detail := checkProjection(root, proj)
			report.Results = append(report.Results, ProjectionCheck{
				IntentID: intent.ID, Projection: proj, Status: status, Detail: detail,
			})
			report.Counts[string(status)]++
		}
	}
	sort.Slice(report.Results, func(i, j int) bool {
		if report.Results[i].Projection.File != report.Results[j].Projection.File {
			return report.Results[i].Projection.File < report.Results[j].Projection.File
		}
		return report.Results[i].Projection.Marker+report.Results[i].Projection.JSONPath <
			report.Results[j].Projection.Marker+report.Results[j].Projection.JSONPath
	})
	return report, nil
}

func checkProjection(root string, proj ledger.Projection) (Status, string) {
	switch proj.Kind {
	case ledger.KindTextBlock:
		return checkTextBlock(proj)
	case ledger.KindJSONKey:
		return checkJSONKey(proj)
	case ledger.KindFileManaged:
		return checkFileManaged(proj)
	default:
		return StatusBroken, fmt.Sprintf("unknown projection kind %q", proj.Kind)
	}
}

func checkTextBlock(proj ledger.Projection) (Status, string) {
	content, err := pathio.ReadText(proj.File)
	if err != nil {
		return StatusMissing, "file absent"
	}

	format := projector.FormatForConfigType(projector.Lookup(proj.Tool).ConfigType)
	blocks, err := format.ParseBlocks(content, proj.File)
	if err != nil {
		return StatusBroken, err.Error()
	}

	for _, b := range blocks {
		if b.UUID == proj.Marker {
			if ledger.Sha256Checksum(b.Content) == proj.Checksum {
				return StatusHealthy, ""
			}
			return StatusDrifted, "checksum mismatch"
		}
	}
	return StatusBroken, "managed block marker absent"
}

func checkJSONKey(proj ledger.Projection) (Status, string) {
	content, err := pathio.ReadText(proj.File)
	if err != nil {
		return StatusMissing, "file absent"
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return StatusBroken, err.Error()
	}

	value, ok := resolveJSONPath(doc, proj.JSONPath)
	if !ok {
		return StatusBroken, "key absent"
	}

	var checksum string
	switch v := value.(type) {
	case string:
		checksum = ledger.Sha256Checksum(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return StatusBroken, err.Error()
		}
		checksum = ledger.Sha256Checksum(string(data))
	}

	if checksum == proj.Checksum {
		return StatusHealthy, ""
	}
	return StatusDrifted, "checksum mismatch"
}

// resolveJSONPath walks a dot-separated path, e.g. "mcpServers.vault", into
// doc, e.g. the nested server entry mcpinstall wrote.
func resolveJSONPath(doc map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var cur any = doc
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func checkFileManaged(proj ledger.Projection) (Status, string) {
	content, err := pathio.ReadText(proj.File)
	if err != nil {
		return StatusMissing, "file absent"
	}
	if ledger.Sha256Checksum(content) == proj.Checksum {
		return StatusHealthy, ""
	}
	return StatusDrifted, "checksum mismatch"
}

// Failure records one entity's sync/fix failure inside a Report.
type Failure struct {
	Entity string
	Err    error
}

// Report is the outcome of a Sync or Fix run.
type Report struct {
	Succeeded []string
	Failures  []Failure
}

func (r *Report) addFailure(entity string, err error) {
	r.Failures = append(r.Failures, Failure{Entity: entity, Err: err})
}

// Engine bundles the repo-relative paths a Check/Sync/Fix run operates
// against, so CLI command handlers don't repeat path joining.
type Engine struct {
	Root         string
	ManifestPath string
	LedgerPath   string
}

// NewEngine derives the standard layout's manifest and ledger paths from
// root (§6: "{root}/.repository/config.toml" and "{root}/.repository/
// ledger.toml").
func NewEngine(root string) *Engine {
	return &Engine{
		Root:         root,
		ManifestPath: filepath.Join(root, ".repository", "config.toml"),
		LedgerPath:   filepath.Join(root, ".repository", "ledger.toml"),
	}
}

// Check loads the ledger and audits every recorded projection.
func (e *Engine) Check() (*CheckReport, error) {
	led, err := ledger.Load(e.LedgerPath)
	if err != nil {
		return nil, err
	}
	return Check(e.Root, led)
}

// Sync resolves cfg/rules into the filesystem and ledger.
func (e *Engine) Sync(ctx context.Context, cfg *manifest.ResolvedConfig, rules *ruleset.Registry, now string) (*Report, error) {
	return Sync(ctx, e.Root, e.ManifestPath, e.LedgerPath, cfg, rules, now)
}

// Fix re-derives every unhealthy projection from its declared source.
func (e *Engine) Fix(ctx context.Context, cfg *manifest.ResolvedConfig, rules *ruleset.Registry, now string) (*Report, *CheckReport, error) {
	return Fix(ctx, e.Root, e.ManifestPath, e.LedgerPath, cfg, rules, now)
}

// hooksFromManifest converts the manifest's declared hooks to the hook
// runner's type.
func hooksFromManifest(in []manifest.Hook) []hooks.Hook {
	out := make([]hooks.Hook, 0, len(in))
	for _, h := range in {
		out = append(out, hooks.Hook{
			Event:      hooks.Event(h.Event),
			Command:    h.Command,
			Args:       h.Args,
			WorkingDir: h.WorkingDir,
		})
	}
	return out
}

// mcpCapableTools returns the slugs among tools that declare supports_mcp.
func mcpCapableTools(tools []string) []string {
	var out []string
	for _, slug := range tools {
		if projector.Lookup(slug).SupportsMCP {
			out = append(out, slug)
		}
	}
	return out
}

func resolveRuleObjects(reg *ruleset.Registry, ids []string) []*ruleset.Rule {
	var out []*ruleset.Rule
	for _, id := range ids {
		if r, ok := reg.ByID(id); ok {
			out = append(out, r)
		}
	}
	return out
}

// Sync implements §4.6's sync(): install declared-but-uninstalled
// extensions, project every enabled tool's configuration in manifest
// order, persist the ledger, and fire PreSync/PostSync hooks. now is an
// RFC3339 timestamp supplied by the caller so intent recording stays
// deterministic under test.
func Sync(ctx context.Context, root, manifestPath, ledgerPath string, cfg *manifest.ResolvedConfig, rules *ruleset.Registry, now string) (*Report, error) {
	guard, err := pathio.AcquireExclusive(manifestPath)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	led, err := ledger.Load(ledgerPath)
	if err != nil {
		return nil, err
	}

	lifecycleHooks := hooksFromManifest(cfg.Hooks)
	if err := hooks.Run(ctx, lifecycleHooks, hooks.EventPreSync, root, nil); err != nil {
		return nil, err
	}

	report := &Report{}
	mcpTools := mcpCapableTools(cfg.Tools)

	extNames := sortedExtensionNames(cfg.Extensions)
	for _, name := range extNames {
		ref := cfg.Extensions[name]
		decl := extension.Declaration{Name: name, Source: ref.Source, Ref: ref.Ref}
		res, installErr := extension.Install(ctx, root, decl, mcpTools, lifecycleHooks)
		if installErr != nil {
			report.addFailure("extension:"+name, installErr)
			continue
		}
		intentID := "extension:" + name
		led.UpsertIntent(ledger.Intent{
			ID: intentID, UUID: intentUUID(intentID), Timestamp: now,
			Projections: res.MCPProjections,
		})
		report.Succeeded = append(report.Succeeded, intentID)
	}

	toolDefs := make([]projector.ToolDefinition, 0, len(cfg.Tools))
	for _, slug := range cfg.Tools {
		toolDefs = append(toolDefs, projector.Lookup(slug))
	}
	ruleObjs := resolveRuleObjects(rules, cfg.Rules)

	for _, result := range projector.SyncAll(root, toolDefs, ruleObjs) {
		intentID := "tool:" + result.Tool
		if result.Err != nil {
			report.addFailure(intentID, result.Err)
			continue
		}
		led.UpsertIntent(ledger.Intent{
			ID: intentID, UUID: intentUUID(intentID), Timestamp: now,
			Projections: result.Projections,
		})
		report.Succeeded = append(report.Succeeded, intentID)
	}

	if err := led.Save(); err != nil {
		return nil, err
	}
	log.Printf("sync complete: %d succeeded, %d failed", len(report.Succeeded), len(report.Failures))

	if err := hooks.Run(ctx, lifecycleHooks, hooks.EventPostSync, root, nil); err != nil {
		return report, err
	}

	if len(report.Succeeded) == 0 && len(report.Failures) > 0 {
		return report, fmt.Errorf("sync: nothing could be synced (%d failures)", len(report.Failures))
	}
	return report, nil
}

func sortedExtensionNames(extensions map[string]manifest.ExtensionRef) []string {
	names := make([]string, 0, len(extensions))
	for name := range extensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fix implements §4.6's fix(): reapply the writers behind every Missing,
// Drifted, or Broken projection by re-running Sync, which regenerates
// every projection from its declared source and is a no-op for
// already-healthy ones.
func Fix(ctx context.Context, root, manifestPath, ledgerPath string, cfg *manifest.ResolvedConfig, rules *ruleset.Registry, now string) (*Report, *CheckReport, error) {
	led, err := ledger.Load(ledgerPath)
	if err != nil {
		return nil, nil, err
	}
	before, err := Check(root, led)
	if err != nil {
		return nil, nil, err
	}

	needsFix := false
	for _, r := range before.Results {
		if r.Status != StatusHealthy {
			needsFix = true
			break
		}
	}
	if !needsFix {
		return &Report{}, before, nil
	}

	report, err := Sync(ctx, root, manifestPath, ledgerPath, cfg, rules, now)
	if err != nil {
		return report, before, err
	}

	led, err = ledger.Load(ledgerPath)
	if err != nil {
		return report, before, err
	}
	after, err := Check(root, led)
	if err != nil {
		return report, before, err
	}
	return report, after, nil
}
