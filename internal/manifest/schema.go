package manifest

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/wgergely/repository-manager-sub008/internal/errs"
)

// manifestSchemaJSON is the structural shape of a manifest layer, checked
// in addition to the semantic invariants validate() enforces (preset key
// pattern, SemVer constraints) that a generic JSON Schema cannot express
// as cleanly.
const manifestSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "core": {
      "type": "object",
      "properties": {
        "mode": {"type": "string", "enum": ["standard", "worktrees"]}
      }
    },
    "tools": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "rules": {"type": "array", "items": {"type": "string"}},
    "presets": {"type": "object"},
    "extensions": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["source"],
        "properties": {
          "source": {"type": "string"},
          "ref": {"type": "string"},
          "config": {"type": "object"}
        }
      }
    },
    "hooks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["event", "command"],
        "properties": {
          "event": {"type": "string"},
          "command": {"type": "string"},
          "args": {"type": "array", "items": {"type": "string"}},
          "working_dir": {"type": "string"}
        }
      }
    }
  }
}`

var manifestSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("manifest.json", strings.NewReader(manifestSchemaJSON)); err != nil {
		panic("manifest: invalid embedded schema: " + err.Error())
	}
	sch, err := compiler.Compile("manifest.json")
	if err != nil {
		panic("manifest: failed to compile embedded schema: " + err.Error())
	}
	manifestSchema = sch
}

// validateSchema re-marshals m to JSON and checks it against
// manifestSchemaJSON, catching structural mistakes (wrong types, a
// hook missing its command) ahead of the field-by-field checks in
// validate().
func validateSchema(path string, m *Manifest) error {
	encoded, err := json.Marshal(m)
	if err != nil {
		return &errs.SchemaError{Path: path, Reason: err.Error()}
	}
	var instance any
	if err := json.Unmarshal(encoded, &instance); err != nil {
		return &errs.SchemaError{Path: path, Reason: err.Error()}
	}
	if err := manifestSchema.Validate(instance); err != nil {
		return &errs.SchemaError{Path: path, Reason: err.Error()}
	}
	return nil
}
