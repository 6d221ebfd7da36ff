// Package projector implements C5: for each enabled tool, translate the
// resolved rule set into that tool's native configuration format and
// write it through the managed-block editor (C2), producing the
// projections the ledger records.
package projector

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"github.com/wgergely/repository-manager-sub008/internal/blockedit"
	"github.com/wgergely/repository-manager-sub008/internal/errs"
	"github.com/wgergely/repository-manager-sub008/internal/ledger"
	"github.com/wgergely/repository-manager-sub008/internal/logger"
	"github.com/wgergely/repository-manager-sub008/internal/pathio"
	"github.com/wgergely/repository-manager-sub008/internal/ruleset"
)

var log = logger.New("projector")

// ConfigType is the file format a tool's configuration is written in.
type ConfigType string

const (
	ConfigText     ConfigType = "text"
	ConfigJSON     ConfigType = "json"
	ConfigMarkdown ConfigType = "markdown"
	ConfigYAML     ConfigType = "yaml"
	ConfigTOML     ConfigType = "toml"
)

// SchemaKeys names the structured keys a json-format tool expects its
// instructions and MCP/python settings under.
type SchemaKeys struct {
	InstructionKey string
	MCPKey         string
	PythonPathKey  string
}

// ToolDefinition is the declarative description of one consuming tool.
type ToolDefinition struct {
	Slug                       string
	ConfigPath                 string // relative to repo root
	ConfigType                 ConfigType
	SupportsCustomInstructions bool
	SupportsMCP                bool
	SupportsRulesDirectory     bool
	RulesDirectory             string // relative to repo root, if SupportsRulesDirectory
	SchemaKeys                 SchemaKeys
}

// blockUUID derives the well-known, stable managed-block UUID for a
// tool's whole-rule-set block from its slug, namespaced under the
// orchestrator's own UUID namespace so it never collides with a
// user-authored rule UUID.
var toolBlockNamespace = newNamespace("repoctl.tool-block")

func blockUUID(slug string) string {
	return toolBlockNamespace(slug)
}

// Registry is the built-in set of tool definitions. Tools absent from
// this map fall back to the generic schema-driven definition constructed
// by Generic.
var Registry = map[string]ToolDefinition{
	"cursor": {
		Slug:                       "cursor",
		ConfigPath:                 ".cursorrules",
		ConfigType:                 ConfigMarkdown,
		SupportsCustomInstructions: true,
		SupportsMCP:                true,
	},
	"claude": {
		Slug:                       "claude",
		ConfigPath:                 "CLAUDE.md",
		ConfigType:                 ConfigMarkdown,
		SupportsCustomInstructions: true,
		SupportsMCP:                true,
	},
	"copilot": {
		Slug:                       "copilot",
		ConfigPath:                 ".github/copilot-instructions.md",
		ConfigType:                 ConfigMarkdown,
		SupportsCustomInstructions: true,
		SupportsMCP:                true,
	},
	"zed": {
		Slug:                       "zed",
		ConfigPath:                 ".zed/settings.json",
		ConfigType:                 ConfigJSON,
		SupportsCustomInstructions: true,
		SupportsMCP:                true,
		SchemaKeys:                 SchemaKeys{InstructionKey: "instructions"},
	},
	"vscode": {
		Slug:                       "vscode",
		ConfigPath:                 ".vscode/mcp.json",
		ConfigType:                 ConfigJSON,
		SupportsMCP:                true,
	},
}

// Generic returns a fallback ToolDefinition for an unregistered tool slug,
// treating it as a plaintext managed-block target (spec §9's
// "ToolIntegration falls back to a generic schema-driven integration").
func Generic(slug string) ToolDefinition {
	return ToolDefinition{
		Slug:                       slug,
		ConfigPath:                 "." + slug + "rules",
		ConfigType:                 ConfigText,
		SupportsCustomInstructions: true,
	}
}

// Lookup resolves slug to its registered ToolDefinition, falling back to
// Generic for a tool this orchestrator doesn't special-case.
func Lookup(slug string) ToolDefinition {
	if def, ok := Registry[slug]; ok {
		return def
	}
	return Generic(slug)
}

// FormatForConfigType selects the managed-block Format a ConfigType
// renders through. Selection is driven by ConfigType rather than
// blockedit.ForPath(path)'s file-extension guess, so a tool whose
// ConfigPath doesn't carry a recognizable extension (cursor's
// ".cursorrules") still gets the marker style its ConfigType declares.
// Exported so syncengine's check() can resolve the same format a
// projection was written with, keyed off the owning tool's definition
// rather than the file's extension.
func FormatForConfigType(ct ConfigType) blockedit.Format {
	switch ct {
	case ConfigMarkdown:
		return blockedit.Markdown{}
	case ConfigYAML:
		return blockedit.YAML{}
	case ConfigTOML:
		return blockedit.TOML{}
	default:
		return blockedit.PlainText{}
	}
}

// renderRules joins every resolved rule's content into one block body,
// separated by a blank line, in resolved-config order.
func renderRules(rules []*ruleset.Rule) string {
	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		parts = append(parts, r.Content)
	}
	return strings.Join(parts, "\n\n")
}

// Sync realizes one tool's projection of the given rules against root,
// returning the projections produced. A malformed managed block aborts
// this tool's sync (returns an error) without touching other tools —
// SyncAll records that as a per-tool failure in the tool's ToolResult.
func Sync(root string, def ToolDefinition, rules []*ruleset.Rule) ([]ledger.Projection, error) {
	var projections []ledger.Projection

	if def.SupportsCustomInstructions && len(rules) > 0 {
		proj, err := syncInstructionBlock(root, def, rules)
		if err != nil {
			return nil, err
		}
		projections = append(projections, proj)
	}

	if def.SupportsRulesDirectory {
		dirProjections, err := syncRulesDirectory(root, def, rules)
		if err != nil {
			return nil, err
		}
		projections = append(projections, dirProjections...)
	}

	return projections, nil
}

func syncInstructionBlock(root string, def ToolDefinition, rules []*ruleset.Rule) (ledger.Projection, error) {
	path := filepath.Join(root, filepath.FromSlash(def.ConfigPath))
	body := renderRules(rules)
	uuid := blockUUID(def.Slug)

	switch def.ConfigType {
	case ConfigJSON:
		return syncJSONInstructionKey(path, def, body)
	default:
		format := FormatForConfigType(def.ConfigType)
		existing, err := pathio.ReadText(path)
		if err != nil {
			existing = ""
		}
		updated, err := format.Upsert(existing, path, uuid, body)
		if err != nil {
			return ledger.Projection{}, err
		}
		if updated == existing {
			return ledger.Projection{
				Tool: def.Slug, File: path, Kind: ledger.KindTextBlock,
				Marker: uuid, Checksum: ledger.Sha256Checksum(body),
			}, nil
		}
		if err := pathio.WriteAtomic(path, []byte(updated)); err != nil {
			return ledger.Projection{}, err
		}
		log.Printf("projected instructions for %s to %s", def.Slug, path)
		return ledger.Projection{
			Tool: def.Slug, File: path, Kind: ledger.KindTextBlock,
			Marker: uuid, Checksum: ledger.Sha256Checksum(body),
		}, nil
	}
}

// syncJSONInstructionKey performs the "json → structured merge at
// schema_keys.instruction_key" writer the spec calls for (§4.5 step 2),
// distinct from the managed-block approach the other config types use:
// the instruction text becomes the value of one named top-level key,
// leaving every sibling key in the document untouched.
func syncJSONInstructionKey(path string, def ToolDefinition, body string) (ledger.Projection, error) {
	existing, err := pathio.ReadText(path)
	if err != nil {
		existing = "{}"
	}
	if existing == "" {
		existing = "{}"
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(existing), &doc); err != nil {
		return ledger.Projection{}, &errs.MalformedBlock{File: path, Reason: err.Error()}
	}
	if doc == nil {
		doc = map[string]any{}
	}

	key := def.SchemaKeys.InstructionKey
	if key == "" {
		key = "instructions"
	}
	doc[key] = body

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return ledger.Projection{}, &errs.MalformedBlock{File: path, Reason: err.Error()}
	}
	if err := pathio.WriteAtomic(path, append(data, '\n')); err != nil {
		return ledger.Projection{}, err
	}
	return ledger.Projection{
		Tool: def.Slug, File: path, Kind: ledger.KindJSONKey,
		JSONPath: key, Checksum: ledger.Sha256Checksum(body),
	}, nil
}

// syncRulesDirectory writes each rule as {NN}-{sanitized-id}.md, removing
// files that no longer correspond to a current rule.
func syncRulesDirectory(root string, def ToolDefinition, rules []*ruleset.Rule) ([]ledger.Projection, error) {
	dir := filepath.Join(root, filepath.FromSlash(def.RulesDirectory))
	var projections []ledger.Projection
	wanted := map[string]bool{}

	for i, r := range rules {
		name := fmt.Sprintf("%02d-%s.md", i+1, sanitize(r.ID))
		path := filepath.Join(dir, name)
		wanted[path] = true
		if err := pathio.WriteAtomic(path, []byte(r.Content)); err != nil {
			return nil, err
		}
		projections = append(projections, ledger.Projection{
			Tool: def.Slug, File: path, Kind: ledger.KindFileManaged,
			Checksum: ledger.Sha256Checksum(r.Content),
		})
	}

	entries, err := listManagedRuleFiles(dir)
	if err == nil {
		for _, path := range entries {
			if !wanted[path] {
				_ = pathio.Remove(path)
			}
		}
	}

	sort.Slice(projections, func(i, j int) bool { return projections[i].File < projections[j].File })
	return projections, nil
}

func sanitize(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// SyncAll fans Sync out across every tool concurrently via
// sourcegraph/conc, collecting a per-tool report so one tool's failure
// never blocks the others.
type ToolResult struct {
	Tool        string
	Projections []ledger.Projection
	Err         error
}

func SyncAll(root string, defs []ToolDefinition, rules []*ruleset.Rule) []ToolResult {
	results := make([]ToolResult, len(defs))
	p := pool.New().WithMaxGoroutines(8)
	for i, def := range defs {
		i, def := i, def
		p.Go(func() {
			projections, err := Sync(root, def, rules)
			results[i] = ToolResult{Tool: def.Slug, Projections: projections, Err: err}
		})
	}
	p.Wait()
	return results
}
