package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wgergely/repository-manager-sub008/internal/console"
	"github.com/wgergely/repository-manager-sub008/internal/manifest"
	"github.com/wgergely/repository-manager-sub008/internal/syncengine"
)

// statusReport is the structured shape status prints in --json/--format
// modes; ToolHealth summarizes check()'s per-tool projection counts the
// way the teacher's own status command summarizes per-workflow compile
// state.
type statusReport struct {
	Mode       manifest.Mode                    `json:"mode"`
	Tools      []string                         `json:"tools"`
	Rules      []string                         `json:"rules"`
	Presets    map[string]any                   `json:"presets"`
	Extensions map[string]manifest.ExtensionRef `json:"extensions"`
	ToolHealth []toolHealth                     `json:"tool_health"`
}

type toolHealth struct {
	Tool   string         `json:"tool"`
	Counts map[string]int `json:"counts"`
}

// NewStatusCommand prints the resolved configuration plus a per-tool
// health summary.
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the resolved configuration and each tool's projection health",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot(mustFlagString(cmd, "root"))
			if err != nil {
				return err
			}
			jsonFlag, _ := cmd.Flags().GetBool("json")
			format := resolveFormat(jsonFlag, mustFlagString(cmd, "format"))
			return runStatus(root, format)
		},
	}
	cmd.Flags().Bool("json", false, "Output a machine-readable report")
	cmd.Flags().String("format", "human", "Output format: human, json, or yaml")
	return cmd
}

func runStatus(root string, format Format) error {
	cfg, _, err := loadResolvedConfig(root)
	if err != nil {
		return err
	}

	engine := syncengine.NewEngine(root)
	checkReport, err := engine.Check()
	if err != nil {
		return err
	}

	report := statusReport{
		Mode:       cfg.Mode,
		Tools:      cfg.Tools,
		Rules:      cfg.Rules,
		Presets:    cfg.Presets,
		Extensions: cfg.Extensions,
		ToolHealth: toolHealthFrom(checkReport),
	}

	if format != FormatHuman {
		return printStruct(report, format)
	}

	fmt.Println(console.Info(fmt.Sprintf("mode: %s", report.Mode)))
	fmt.Println(console.Info(fmt.Sprintf("tools: %v", report.Tools)))
	fmt.Println(console.Info(fmt.Sprintf("rules: %v", report.Rules)))
	fmt.Println(console.Info(fmt.Sprintf("extensions: %d declared", len(report.Extensions))))
	for _, th := range report.ToolHealth {
		fmt.Printf("  %-12s %s\n", th.Tool, console.Summary(th.Counts))
	}
	return nil
}

func toolHealthFrom(report *syncengine.CheckReport) []toolHealth {
	byTool := map[string]map[string]int{}
	for _, r := range report.Results {
		counts, ok := byTool[r.Projection.Tool]
		if !ok {
			counts = map[string]int{}
			byTool[r.Projection.Tool] = counts
		}
		counts[string(r.Status)]++
	}
	out := make([]toolHealth, 0, len(byTool))
	for tool, counts := range byTool {
		out = append(out, toolHealth{Tool: tool, Counts: counts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool < out[j].Tool })
	return out
}
