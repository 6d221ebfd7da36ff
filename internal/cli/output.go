package cli

import (
	"encoding/json"
	"fmt"
	"os"

	goccyyaml "github.com/goccy/go-yaml"

	"github.com/wgergely/repository-manager-sub008/internal/console"
)

// Format is the structured-output encoding a read command renders to,
// selected by --json/--format per §6's CLI contract.
type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func resolveFormat(jsonFlag bool, formatFlag string) Format {
	if jsonFlag {
		return FormatJSON
	}
	switch formatFlag {
	case "yaml", "yml":
		return FormatYAML
	case "json":
		return FormatJSON
	default:
		return FormatHuman
	}
}

// printStruct renders v as indented JSON or YAML to stdout. JSON uses
// encoding/json directly; YAML goes through goccy/go-yaml, which (like the
// teacher's frontmatter parser) reports marshal errors with the offending
// field path rather than a bare "yaml: marshal error".
func printStruct(v any, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		data, err := goccyyaml.MarshalWithOptions(v, goccyyaml.Indent(2))
		if err != nil {
			return fmt.Errorf("render yaml: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	default:
		return fmt.Errorf("printStruct called with non-structured format %q", format)
	}
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, console.Error(err.Error()))
}

func printInfo(msg string) {
	fmt.Fprintln(os.Stderr, console.Info(msg))
}

func printSuccess(msg string) {
	fmt.Fprintln(os.Stderr, console.Success(msg))
}
