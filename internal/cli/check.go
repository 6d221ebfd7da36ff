package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wgergely/repository-manager-sub008/internal/console"
	"github.com/wgergely/repository-manager-sub008/internal/errs"
	"github.com/wgergely/repository-manager-sub008/internal/syncengine"
)

// NewCheckCommand audits every recorded projection against the live
// filesystem without writing anything (§4.6).
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Audit every projected file against what the ledger recorded",
		Long: `check re-derives each projection's checksum directly from disk and
compares it against the ledger's recorded state, reporting Healthy,
Missing, Drifted, or Broken per projection. It never writes anything -
use "repoctl fix" to repair what it finds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot(mustFlagString(cmd, "root"))
			if err != nil {
				return err
			}
			watch, _ := cmd.Flags().GetBool("watch")
			jsonFlag, _ := cmd.Flags().GetBool("json")
			format := resolveFormat(jsonFlag, mustFlagString(cmd, "format"))

			run := func() error { return runCheck(root, format) }
			if !watch {
				return run()
			}
			return watchAndRun(cmd.Context(), root, run)
		},
	}
	cmd.Flags().Bool("watch", false, "Re-run on every manifest or rule registry change")
	cmd.Flags().Bool("json", false, "Output a machine-readable report")
	cmd.Flags().String("format", "human", "Output format: human, json, or yaml")
	return cmd
}

func runCheck(root string, format Format) error {
	engine := syncengine.NewEngine(root)
	report, err := engine.Check()
	if err != nil {
		return err
	}

	if format != FormatHuman {
		if printErr := printStruct(report, format); printErr != nil {
			return printErr
		}
	} else {
		for _, r := range report.Results {
			fmt.Println(console.RenderStatusLine(string(r.Status), r.Projection.File, r.Detail))
		}
		fmt.Println(console.Summary(report.Counts))
	}

	if report.Counts[string(syncengine.StatusDrifted)] > 0 ||
		report.Counts[string(syncengine.StatusMissing)] > 0 ||
		report.Counts[string(syncengine.StatusBroken)] > 0 {
		return &errs.DriftDetected{Count: unhealthyCount(report)}
	}
	return nil
}

func unhealthyCount(report *syncengine.CheckReport) int {
	return report.Counts[string(syncengine.StatusDrifted)] +
		report.Counts[string(syncengine.StatusMissing)] +
		report.Counts[string(syncengine.StatusBroken)]
}
