package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wgergely/repository-manager-sub008/internal/manifest"
)

// NewToolCommand manages the repository layer's tools list.
func NewToolCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Manage the tools enabled by the repository manifest layer",
	}
	cmd.AddCommand(newToolAddCommand(), newToolRemoveCommand(), newToolListCommand())
	return cmd
}

func newToolAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <slug>",
		Short: "Enable a tool in the repository manifest layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateRepositoryLayer(mustFlagString(cmd, "root"), func(m *manifest.Manifest) error {
				for _, t := range m.Tools {
					if t == args[0] {
						return fmt.Errorf("tool %q is already enabled", args[0])
					}
				}
				m.Tools = append(m.Tools, args[0])
				printSuccess(fmt.Sprintf("enabled tool %q", args[0]))
				return nil
			})
		},
	}
}

func newToolRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <slug>",
		Short: "Disable a tool in the repository manifest layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateRepositoryLayer(mustFlagString(cmd, "root"), func(m *manifest.Manifest) error {
				out := m.Tools[:0]
				found := false
				for _, t := range m.Tools {
					if t == args[0] {
						found = true
						continue
					}
					out = append(out, t)
				}
				if !found {
					return fmt.Errorf("tool %q is not enabled", args[0])
				}
				m.Tools = out
				printSuccess(fmt.Sprintf("disabled tool %q", args[0]))
				return nil
			})
		},
	}
}

func newToolListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every tool the resolved config enables",
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
				return printStruct(cfg.Tools, format)
			}
			for _, t := range cfg.Tools {
				fmt.Println(t)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output a machine-readable report")
	cmd.Flags().String("format", "human", "Output format: human, json, or yaml")
	return cmd
}
