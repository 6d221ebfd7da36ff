package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wgergely/repository-manager-sub008/internal/console"
)

// version is set by cmd/repoctl's main() before Execute, mirroring the
// teacher's cli.SetVersionInfo.
var version = "dev"

// SetVersion records the binary's build version for the --version output.
func SetVersion(v string) {
	version = v
}

// NewRootCommand builds the repoctl command tree: one New<Verb>Command()
// constructor per subcommand, grouped the way cmd/gh-aw/main.go groups its
// own subcommands.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "repoctl",
		Short: "Keep a repository's per-tool AI configuration in sync from one declarative manifest",
		Long: `repoctl resolves a layered config.toml into the instruction files, MCP
server registrations, and rule snippets every configured tool (Claude,
Cursor, Copilot, Zed, VS Code, ...) expects, and keeps them that way.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddGroup(
		&cobra.Group{ID: "setup", Title: "Setup Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "config", Title: "Configuration Commands:"},
		&cobra.Group{ID: "extensions", Title: "Extension Commands:"},
		&cobra.Group{ID: "inspection", Title: "Inspection Commands:"},
	)

	root.SetVersionTemplate(fmt.Sprintf("%s\n", console.Info("repoctl "+version)))
	root.PersistentFlags().String("root", "", "Project root (default: current directory)")
	root.PersistentFlags().Bool("verbose", false, "Verbose logging")

	initCmd := NewInitCommand()
	doctorCmd := NewDoctorCommand()
	initCmd.GroupID = "setup"
	doctorCmd.GroupID = "setup"

	syncCmd := NewSyncCommand()
	checkCmd := NewCheckCommand()
	fixCmd := NewFixCommand()
	syncCmd.GroupID = "sync"
	checkCmd.GroupID = "sync"
	fixCmd.GroupID = "sync"

	ruleCmd := NewRuleCommand()
	toolCmd := NewToolCommand()
	presetCmd := NewPresetCommand()
	ruleCmd.GroupID = "config"
	toolCmd.GroupID = "config"
	presetCmd.GroupID = "config"

	extensionCmd := NewExtensionCommand()
	extensionCmd.GroupID = "extensions"

	statusCmd := NewStatusCommand()
	diffCmd := NewDiffCommand()
	statusCmd.GroupID = "inspection"
	diffCmd.GroupID = "inspection"

	root.AddCommand(
		initCmd, doctorCmd,
		syncCmd, checkCmd, fixCmd,
		ruleCmd, toolCmd, presetCmd,
		extensionCmd,
		statusCmd, diffCmd,
	)

	return root
}
