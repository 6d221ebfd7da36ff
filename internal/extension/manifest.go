// Package extension implements C7: bringing a declared extension from its
// manifest declaration to an activated, installed state through the
// Declared → Fetched → Validated → Provisioned → Installed → Activated
// state machine (§4.7).
package extension

import (
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/wgergely/repository-manager-sub008/internal/errs"
	"github.com/wgergely/repository-manager-sub008/internal/logger"
)

var log = logger.New("extension")

// RuntimeKind is the extension's language runtime.
type RuntimeKind string

const (
	RuntimePython RuntimeKind = "python"
	RuntimeNode   RuntimeKind = "node"
	RuntimeRust   RuntimeKind = "rust"
)

var validPackageManagers = map[string]bool{
	"uv": true, "pip": true, "npm": true, "yarn": true,
	"pnpm": true, "cargo": true, "bun": true,
}

// PythonRequirement pins an extension's interpreter constraint.
type PythonRequirement struct {
	Version string `toml:"version" json:"version,omitempty"`
}

// Requires groups runtime prerequisites the extension declares.
type Requires struct {
	Python *PythonRequirement `toml:"python" json:"python,omitempty"`
}

// Runtime describes how the extension is built and run.
type Runtime struct {
	Type           RuntimeKind `toml:"type" json:"type"`
	PackageManager string      `toml:"package_manager" json:"package_manager,omitempty"`
	VenvPath       string      `toml:"venv_path" json:"venv_path,omitempty"`
	Install        string      `toml:"install" json:"install,omitempty"`
}

// Provides names build artifacts the extension exposes to the orchestrator.
type Provides struct {
	MCP string `toml:"mcp" json:"mcp,omitempty"`
}

// ExtensionInfo is the extension's own identity block.
type ExtensionInfo struct {
	Name    string `toml:"name" json:"name"`
	Version string `toml:"version" json:"version"`
}

// ExtensionManifest is the parsed form of repo_extension.toml.
type ExtensionManifest struct {
	Extension   ExtensionInfo     `toml:"extension" json:"extension"`
	Requires    Requires          `toml:"requires" json:"requires,omitempty"`
	Runtime     Runtime           `toml:"runtime" json:"runtime"`
	EntryPoints map[string]string `toml:"entry_points" json:"entry_points,omitempty"`
	Outputs     []string          `toml:"outputs" json:"outputs,omitempty"`
	Provides    Provides          `toml:"provides" json:"provides,omitempty"`
}

// ParseManifest decodes and validates repo_extension.toml content per
// §4.7's Fetched → Validated transition.
func ParseManifest(path, data string) (*ExtensionManifest, error) {
	var m ExtensionManifest
	if err := toml.Unmarshal([]byte(data), &m); err != nil {
		return nil, &errs.SchemaError{Path: path, Reason: err.Error()}
	}

	if err := validateManifest(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func validateManifest(path string, m *ExtensionManifest) error {
	if m.Extension.Name == "" {
		return &errs.SchemaError{Path: path, Reason: "extension.name is required"}
	}
	if m.Extension.Version == "" {
		return &errs.SchemaError{Path: path, Reason: "extension.version is required"}
	}

	if m.Runtime.VenvPath != "" {
		if err := validateVenvPath(m.Runtime.VenvPath); err != nil {
			return err
		}
	}

	if m.Runtime.PackageManager != "" && !validPackageManagers[m.Runtime.PackageManager] {
		return &errs.InvalidPackageManager{Value: m.Runtime.PackageManager}
	}

	if m.Requires.Python != nil && m.Requires.Python.Version != "" {
		if _, err := ParsePEP440Constraint(m.Requires.Python.Version); err != nil {
			return &errs.SchemaError{Path: path, Reason: "requires.python.version: " + err.Error()}
		}
	}

	return nil
}

// validateVenvPath rejects absolute paths and paths escaping the
// extension source tree via "..".
func validateVenvPath(p string) error {
	if filepath.IsAbs(p) {
		return &errs.InvalidVenvPath{Path: p}
	}
	clean := filepath.ToSlash(filepath.Clean(p))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return &errs.InvalidVenvPath{Path: p}
	}
	return nil
}
