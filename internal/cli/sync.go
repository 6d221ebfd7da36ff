package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/wgergely/repository-manager-sub008/internal/syncengine"
)

// NewSyncCommand realizes the resolved manifest into every enabled tool's
// configuration and every declared extension's installed state.
func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Project the resolved manifest onto every enabled tool and extension",
		Long: `sync loads every manifest layer, resolves it, installs any
declared-but-uninstalled extensions, projects the rule set onto every
enabled tool, and persists the result to the ledger.

Use --watch to re-run automatically whenever a manifest layer or the rule
registry changes on disk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot(mustFlagString(cmd, "root"))
			if err != nil {
				return err
			}
			watch, _ := cmd.Flags().GetBool("watch")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			jsonFlag, _ := cmd.Flags().GetBool("json")
			format := resolveFormat(jsonFlag, mustFlagString(cmd, "format"))

			run := func() error {
				if dryRun {
					return runSyncDryRun(root, format)
				}
				return runSync(root, format)
			}

			if !watch {
				return run()
			}
			return watchAndRun(cmd.Context(), root, run)
		},
	}
	cmd.Flags().Bool("watch", false, "Re-run on every manifest/rule registry change")
	cmd.Flags().Bool("dry-run", false, "Report what would change without writing anything")
	cmd.Flags().Bool("json", false, "Output a machine-readable report")
	cmd.Flags().String("format", "human", "Output format: human, json, or yaml")
	return cmd
}

func runSync(root string, format Format) error {
	cfg, rules, err := loadResolvedConfig(root)
	if err != nil {
		return err
	}
	engine := syncengine.NewEngine(root)
	report, err := engine.Sync(context.Background(), cfg, rules, now())
	if err != nil {
		return err
	}
	if format != FormatHuman {
		return printStruct(report, format)
	}
	for _, id := range report.Succeeded {
		printSuccess(fmt.Sprintf("synced %s", id))
	}
	for _, f := range report.Failures {
		printError(fmt.Errorf("%s: %w", f.Entity, f.Err))
	}
	printInfo(fmt.Sprintf("%d succeeded, %d failed", len(report.Succeeded), len(report.Failures)))
	return nil
}

// runSyncDryRun mirrors the teacher's "compile --no-emit" validate-without-
// emit pattern: it renders what sync would write into a scratch directory
// and reports which tools would change, touching nothing under root.
func runSyncDryRun(root string, format Format) error {
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
	changed := 0
	for _, e := range entries {
		if e.Identical {
			continue
		}
		changed++
		printInfo(fmt.Sprintf("would sync %s -> %s", e.Tool, e.File))
	}
	printInfo(fmt.Sprintf("%d of %d tools would change", changed, len(entries)))
	return nil
}

// mustFlagString reads a string flag, whether declared locally on cmd or
// inherited from a persistent parent flag (cobra merges both into Flags()
// once the command tree has been parsed).
func mustFlagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

// watchAndRun runs fn once immediately, then again every time a manifest
// layer or the rule registry changes, until ctx is cancelled. Grounded on
// the teacher's reliance on a plain blocking loop for its own long-running
// commands; here the loop body is fsnotify's event channel instead of a
// subprocess pipe.
func watchAndRun(ctx context.Context, root string, fn func() error) error {
	if err := fn(); err != nil {
		printError(err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range watchDirs(root) {
		if err := watcher.Add(dir); err != nil {
			printInfo(fmt.Sprintf("not watching %s: %v", dir, err))
		}
	}

	printInfo(fmt.Sprintf("watching %s for changes (ctrl-c to stop)", root))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			printInfo(fmt.Sprintf("change detected: %s", event.Name))
			if err := fn(); err != nil {
				printError(err)
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			printError(watchErr)
		}
	}
}

func watchDirs(root string) []string {
	return []string{
		filepath.Join(root, ".repository"),
		filepath.Join(root, ".repository", "rules"),
	}
}
