package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/wgergely/repository-manager-sub008/internal/manifest"
	"github.com/wgergely/repository-manager-sub008/internal/pathio"
	"github.com/wgergely/repository-manager-sub008/internal/projector"
	"github.com/wgergely/repository-manager-sub008/internal/ruleset"
)

// diffEntry is one tool's comparison between what sync would currently
// write and what is actually on disk.
type diffEntry struct {
	Tool      string `json:"tool"`
	File      string `json:"file"`
	Identical bool   `json:"identical"`
	Diff      string `json:"diff,omitempty"`
}

// NewDiffCommand shows, per tool, the unified diff between what a sync
// would currently write and the live file - useful independent of check,
// since check only reports a Healthy/Drifted/... status, not content.
func NewDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show what sync would change, per tool, without writing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot(mustFlagString(cmd, "root"))
			if err != nil {
				return err
			}
			jsonFlag, _ := cmd.Flags().GetBool("json")
			format := resolveFormat(jsonFlag, mustFlagString(cmd, "format"))
			return runDiff(root, format)
		},
	}
	cmd.Flags().Bool("json", false, "Output a machine-readable report")
	cmd.Flags().String("format", "human", "Output format: human, json, or yaml")
	return cmd
}

func runDiff(root string, format Format) error {
	cfg, rules, err := loadResolvedConfig(root)
	if err != nil {
		return err
	}

	entries, err := computeDiffEntries(root, cfg, rules)
	if err != nil {
		return err
	}

	if format != FormatHuman {
		return printStruct(entries, format)
	}
	for _, e := range entries {
		if e.Identical {
			continue
		}
		fmt.Println(e.Diff)
	}
	return nil
}

// computeDiffEntries renders every enabled tool's projection into a scratch
// directory and compares it against the live file, without writing
// anything under root. Shared by "diff" and "sync --dry-run"/"fix --dry-run"
// (§5 #4: dry-run reports what would change without touching disk).
func computeDiffEntries(root string, cfg *manifest.ResolvedConfig, rules *ruleset.Registry) ([]diffEntry, error) {
	scratch, err := os.MkdirTemp("", "repoctl-diff-*")
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	defer os.RemoveAll(scratch)

	ruleObjs := resolveRuleIDs(rules, cfg.Rules)
	toolDefs := make([]projector.ToolDefinition, 0, len(cfg.Tools))
	for _, slug := range cfg.Tools {
		toolDefs = append(toolDefs, projector.Lookup(slug))
	}

	entries := make([]diffEntry, 0, len(toolDefs))
	for _, def := range toolDefs {
		if _, err := projector.Sync(scratch, def, ruleObjs); err != nil {
			return nil, fmt.Errorf("diff: rendering %s: %w", def.Slug, err)
		}

		wantPath := filepath.Join(scratch, filepath.FromSlash(def.ConfigPath))
		livePath := filepath.Join(root, filepath.FromSlash(def.ConfigPath))

		want, _ := pathio.ReadText(wantPath)
		live, _ := pathio.ReadText(livePath)

		entry := diffEntry{Tool: def.Slug, File: livePath, Identical: want == live}
		if !entry.Identical {
			entry.Diff, err = unifiedDiff(livePath, want, live)
			if err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func unifiedDiff(path, want, live string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(live),
		B:        difflib.SplitLines(want),
		FromFile: path + " (live)",
		ToFile:   path + " (sync would write)",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// resolveRuleIDs maps rule IDs from the resolved config to their *Rule
// objects, silently skipping any ID the registry no longer has (the same
// tolerant lookup syncengine.resolveRuleObjects uses).
func resolveRuleIDs(reg *ruleset.Registry, ids []string) []*ruleset.Rule {
	out := make([]*ruleset.Rule, 0, len(ids))
	for _, id := range ids {
		if r, ok := reg.ByID(id); ok {
			out = append(out, r)
		}
	}
	return out
}
