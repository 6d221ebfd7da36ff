package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/wgergely/repository-manager-sub008/internal/ledger"
	"github.com/wgergely/repository-manager-sub008/internal/manifest"
	"github.com/wgergely/repository-manager-sub008/internal/ruleset"
)

// NewInitCommand scaffolds a fresh {root}/.repository/ layout: an empty
// config.toml, ledger.toml, and rules/registry.toml (§6's "External
// Interfaces" file layout). It is the one command in this CLI that
// prompts interactively - every other confirmation the teacher's own
// "interactive prompting" surface would offer stays out of scope.
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold .repository/ in the current (or --root) directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot(mustFlagString(cmd, "root"))
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			return runInit(root, force)
		},
	}
	cmd.Flags().Bool("force", false, "Skip the overwrite confirmation prompt")
	return cmd
}

func runInit(root string, force bool) error {
	dir := filepath.Join(root, ".repository")

	if _, err := os.Stat(dir); err == nil && !force {
		confirmed, err := confirmOverwrite(dir)
		if err != nil {
			return err
		}
		if !confirmed {
			printInfo("aborted, nothing written")
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Join(dir, "rules"), 0o755); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	configPath := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		m := &manifest.Manifest{Core: manifest.Core{Mode: manifest.ModeStandard}}
		if err := manifest.Save(configPath, m); err != nil {
			return err
		}
	}

	led, err := ledger.Load(filepath.Join(dir, "ledger.toml"))
	if err != nil {
		return err
	}
	if err := led.Save(); err != nil {
		return err
	}

	reg, err := ruleset.LoadRegistry(filepath.Join(dir, "rules", "registry.toml"))
	if err != nil {
		return err
	}
	if err := reg.Save(); err != nil {
		return err
	}

	printSuccess(fmt.Sprintf("initialized %s", dir))
	return nil
}

func confirmOverwrite(dir string) (bool, error) {
	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%s already exists. Re-initialize it?", dir)).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return confirmed, nil
}
