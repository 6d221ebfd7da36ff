package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wgergely/repository-manager-sub008/internal/ruleset"
)

// NewRuleCommand manages the shareable rule registry (§3: Rule).
func NewRuleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage shareable instruction snippets",
	}
	cmd.AddCommand(newRuleAddCommand(), newRuleRemoveCommand(), newRuleListCommand())
	return cmd
}

func newRuleAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <id> <file>",
		Short: "Register a new rule from a content file (- for stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot(mustFlagString(cmd, "root"))
			if err != nil {
				return err
			}
			tags, _ := cmd.Flags().GetStringSlice("tag")

			reg, err := ruleset.LoadRegistry(ruleRegistryPath(root))
			if err != nil {
				return err
			}

			content, err := readRuleSource(args[1])
			if err != nil {
				return err
			}

			rule, err := reg.Add(args[0], content, tags, now())
			if err != nil {
				return err
			}
			if err := reg.Save(); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("added rule %q (%s)", rule.ID, rule.UUID))
			return nil
		},
	}
	cmd.Flags().StringSlice("tag", nil, "Tag(s) to attach to the rule")
	return cmd
}

func newRuleRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a rule from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot(mustFlagString(cmd, "root"))
			if err != nil {
				return err
			}
			reg, err := ruleset.LoadRegistry(ruleRegistryPath(root))
			if err != nil {
				return err
			}
			if err := reg.Remove(args[0]); err != nil {
				return err
			}
			if err := reg.Save(); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("removed rule %q", args[0]))
			return nil
		},
	}
}

func newRuleListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every registered rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot(mustFlagString(cmd, "root"))
			if err != nil {
				return err
			}
			reg, err := ruleset.LoadRegistry(ruleRegistryPath(root))
			if err != nil {
				return err
			}
			jsonFlag, _ := cmd.Flags().GetBool("json")
			format := resolveFormat(jsonFlag, mustFlagString(cmd, "format"))

			rules := reg.All()
			if format != FormatHuman {
				return printStruct(rules, format)
			}
			for _, r := range rules {
				fmt.Printf("%-20s %s\n", r.ID, r.UUID)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output a machine-readable report")
	cmd.Flags().String("format", "human", "Output format: human, json, or yaml")
	return cmd
}

func readRuleSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
