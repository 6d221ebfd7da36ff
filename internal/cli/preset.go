package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wgergely/repository-manager-sub008/internal/manifest"
	"github.com/wgergely/repository-manager-sub008/internal/manifest/preset"
)

// NewPresetCommand manages presets."<kind>:<name>" entries (§3: free-form
// overrides deep-merged by manifest.Resolve).
func NewPresetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage preset overrides (e.g. presets.\"env:python\")",
	}
	cmd.AddCommand(newPresetAddCommand(), newPresetRemoveCommand(), newPresetListCommand(), newPresetEnsureCommand())
	return cmd
}

// newPresetEnsureCommand drives a preset's registered provider: detect
// first, ensure only if detection reports the preset's kind isn't already
// satisfied (§5 #6: the "env:python" preset kind names a provider the
// manifest schema never designs a registry for).
func newPresetEnsureCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure <kind:name>",
		Short: "Detect, and if missing provision, a preset's declared provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _, ok := strings.Cut(args[0], ":")
			if !ok {
				return fmt.Errorf("preset key %q must be kind:name", args[0])
			}
			p, ok := preset.Lookup(kind)
			if !ok {
				return fmt.Errorf("no provider registered for preset kind %q", kind)
			}
			present, err := p.Detect(cmd.Context())
			if err != nil {
				return err
			}
			if present {
				printSuccess(fmt.Sprintf("preset %q already satisfied", args[0]))
				return nil
			}
			if err := p.Ensure(cmd.Context()); err != nil {
				return fmt.Errorf("ensure preset %q: %w", args[0], err)
			}
			printSuccess(fmt.Sprintf("provisioned preset %q", args[0]))
			return nil
		},
	}
}

func newPresetAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <kind:name> <json-object>",
		Short: "Set a preset's value from an inline JSON object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value map[string]any
			if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
				return fmt.Errorf("preset value must be a JSON object: %w", err)
			}
			return mutateRepositoryLayer(mustFlagString(cmd, "root"), func(m *manifest.Manifest) error {
				if m.Presets == nil {
					m.Presets = map[string]any{}
				}
				m.Presets[args[0]] = value
				printSuccess(fmt.Sprintf("set preset %q", args[0]))
				return nil
			})
		},
	}
}

func newPresetRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <kind:name>",
		Short: "Remove a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateRepositoryLayer(mustFlagString(cmd, "root"), func(m *manifest.Manifest) error {
				if _, ok := m.Presets[args[0]]; !ok {
					return fmt.Errorf("no such preset %q", args[0])
				}
				delete(m.Presets, args[0])
				printSuccess(fmt.Sprintf("removed preset %q", args[0]))
				return nil
			})
		},
	}
}

func newPresetListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every resolved preset",
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
				return printStruct(cfg.Presets, format)
			}
			for key, val := range cfg.Presets {
				fmt.Printf("%-20s %v\n", key, val)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output a machine-readable report")
	cmd.Flags().String("format", "human", "Output format: human, json, or yaml")
	return cmd
}
