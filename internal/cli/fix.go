package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wgergely/repository-manager-sub008/internal/console"
	"github.com/wgergely/repository-manager-sub008/internal/syncengine"
)

// NewFixCommand re-syncs only when check() would have found something
// unhealthy, per §4.6's idempotence-backed simplification.
func NewFixCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Re-derive any drifted, missing, or broken projection from its declared source",
		Long: `fix runs the same audit "check" does; if every projection is already
Healthy it does nothing. Otherwise it re-runs sync, which is safe to call
unconditionally because an unchanged projection is never rewritten - so a
full sync and "reapply only what's unhealthy" produce identical results.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot(mustFlagString(cmd, "root"))
			if err != nil {
				return err
			}
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			jsonFlag, _ := cmd.Flags().GetBool("json")
			format := resolveFormat(jsonFlag, mustFlagString(cmd, "format"))
			if dryRun {
				return runSyncDryRun(root, format)
			}
			return runFix(root, format)
		},
	}
	cmd.Flags().Bool("dry-run", false, "Report what would change without writing anything")
	cmd.Flags().Bool("json", false, "Output a machine-readable report")
	cmd.Flags().String("format", "human", "Output format: human, json, or yaml")
	return cmd
}

func runFix(root string, format Format) error {
	cfg, rules, err := loadResolvedConfig(root)
	if err != nil {
		return err
	}
	engine := syncengine.NewEngine(root)
	report, after, err := engine.Fix(context.Background(), cfg, rules, now())
	if err != nil {
		return err
	}

	if format != FormatHuman {
		return printStruct(struct {
			Report *syncengine.Report      `json:"report"`
			After  *syncengine.CheckReport `json:"after"`
		}{report, after}, format)
	}

	if len(report.Succeeded) == 0 && len(report.Failures) == 0 {
		printInfo("nothing to fix, every projection was already healthy")
	}
	for _, id := range report.Succeeded {
		printSuccess(fmt.Sprintf("re-synced %s", id))
	}
	for _, f := range report.Failures {
		printError(fmt.Errorf("%s: %w", f.Entity, f.Err))
	}
	fmt.Println(console.Summary(after.Counts))
	return nil
}
