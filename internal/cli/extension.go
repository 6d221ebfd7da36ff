package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wgergely/repository-manager-sub008/internal/extension"
	"github.com/wgergely/repository-manager-sub008/internal/hooks"
	"github.com/wgergely/repository-manager-sub008/internal/manifest"
	"github.com/wgergely/repository-manager-sub008/internal/projector"
)

// NewExtensionCommand manages manifest.Extensions declarations and drives
// them through the C7 lifecycle state machine.
func NewExtensionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extension",
		Short: "Manage declared extensions",
	}
	cmd.AddCommand(
		newExtensionAddCommand(),
		newExtensionRemoveCommand(),
		newExtensionInstallCommand(),
		newExtensionListCommand(),
	)
	return cmd
}

func newExtensionAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <source>",
		Short: "Declare an extension in the repository manifest layer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, _ := cmd.Flags().GetString("ref")
			install, _ := cmd.Flags().GetBool("install")

			if err := mutateRepositoryLayer(mustFlagString(cmd, "root"), func(m *manifest.Manifest) error {
				if m.Extensions == nil {
					m.Extensions = map[string]manifest.ExtensionRef{}
				}
				m.Extensions[args[0]] = manifest.ExtensionRef{Source: args[1], Ref: ref}
				printSuccess(fmt.Sprintf("declared extension %q (%s)", args[0], args[1]))
				return nil
			}); err != nil {
				return err
			}

			if !install {
				return nil
			}
			root, err := repoRoot(mustFlagString(cmd, "root"))
			if err != nil {
				return err
			}
			return installExtension(root, args[0], args[1], ref)
		},
	}
	cmd.Flags().String("ref", "", "Git ref (tag, branch, or SHA) to install")
	cmd.Flags().Bool("install", false, "Install immediately after declaring")
	return cmd
}

func newExtensionRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an extension declaration from the repository manifest layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateRepositoryLayer(mustFlagString(cmd, "root"), func(m *manifest.Manifest) error {
				if _, ok := m.Extensions[args[0]]; !ok {
					return fmt.Errorf("no such extension %q", args[0])
				}
				delete(m.Extensions, args[0])
				printSuccess(fmt.Sprintf("removed extension %q", args[0]))
				return nil
			})
		},
	}
}

func newExtensionInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install <name>",
		Short: "Drive a declared extension through Fetched -> Activated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot(mustFlagString(cmd, "root"))
			if err != nil {
				return err
			}
			cfg, _, err := loadResolvedConfig(root)
			if err != nil {
				return err
			}
			ref, ok := cfg.Extensions[args[0]]
			if !ok {
				return fmt.Errorf("extension %q is not declared in the manifest", args[0])
			}
			return installExtension(root, args[0], ref.Source, ref.Ref)
		},
	}
}

func newExtensionListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every declared extension",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot(mustFlagString(cmd, "root"))
			if err != nil {
				return err
			}
			cfg, _, err := loadResolvedConfig(root)
			if err != nil {
				return err
			}
			jsonFlag, _ := cmd.Flags().GetBool("json")
			format := resolveFormat(jsonFlag, mustFlagString(cmd, "format"))
			if format != FormatHuman {
				return printStruct(cfg.Extensions, format)
			}
			for name, ref := range cfg.Extensions {
				fmt.Printf("%-20s %s@%s\n", name, ref.Source, ref.Ref)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output a machine-readable report")
	cmd.Flags().String("format", "human", "Output format: human, json, or yaml")
	return cmd
}

// installExtension drives one extension through Install and records it in
// extensions.lock. It does not write the MCP projections Install returns
// to the ledger; syncengine.Sync records them under the
// "extension:<name>" intent on the next sync.
func installExtension(root, name, source, ref string) error {
	cfg, _, err := loadResolvedConfig(root)
	if err != nil {
		return err
	}

	var mcpSlugs []string
	for _, slug := range cfg.Tools {
		if projector.Lookup(slug).SupportsMCP {
			mcpSlugs = append(mcpSlugs, slug)
		}
	}

	decl := extension.Declaration{Name: name, Source: source, Ref: ref}
	res, err := extension.Install(context.Background(), root, decl, mcpSlugs, hooksFromConfig(cfg.Hooks))
	if err != nil {
		return err
	}

	lock, err := extension.LoadLock(extensionLockPath(root))
	if err != nil {
		return err
	}
	lock.Upsert(extension.LockEntry{
		Name:          name,
		Version:       res.Manifest.Extension.Version,
		Source:        source,
		Ref:           ref,
		PythonVersion: res.PythonVersion,
		VenvPath:      res.VenvPath,
		InstalledAt:   now(),
	})
	if err := lock.Save(); err != nil {
		return err
	}

	printSuccess(fmt.Sprintf("installed extension %q (state=%s)", name, res.State))
	return nil
}

func hooksFromConfig(in []manifest.Hook) []hooks.Hook {
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

func extensionLockPath(root string) string {
	return filepath.Join(root, ".repository", "extensions.lock")
}
