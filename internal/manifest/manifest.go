// Package manifest implements C3: parsing and layered merging of the
// declarative project manifest into a single ResolvedConfig the rest of
// the orchestrator operates on.
package manifest

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"
	"github.com/wgergely/repository-manager-sub008/internal/errs"
	"github.com/wgergely/repository-manager-sub008/internal/logger"
	"github.com/wgergely/repository-manager-sub008/internal/pathio"
)

var log = logger.New("manifest")

var presetKeyPattern = regexp.MustCompile(`^[a-z]+:[a-z0-9-]+$`)

// Mode is the project's worktree layout mode.
type Mode string

const (
	ModeStandard  Mode = "standard"
	ModeWorktrees Mode = "worktrees"
)

// Hook is one declared lifecycle command.
type Hook struct {
	Event      string   `toml:"event" json:"event"`
	Command    string   `toml:"command" json:"command"`
	Args       []string `toml:"args" json:"args,omitempty"`
	WorkingDir string   `toml:"working_dir,omitempty" json:"working_dir,omitempty"`
}

// ExtensionRef is a manifest-level extension declaration.
type ExtensionRef struct {
	Source          string         `toml:"source" json:"source"`
	Ref             string         `toml:"ref,omitempty" json:"ref,omitempty"`
	ConfigOverrides map[string]any `toml:"config,omitempty" json:"config,omitempty"`
}

// Core carries the project's layout mode.
type Core struct {
	Mode Mode `toml:"mode" json:"mode"`
}

// Manifest is the parsed form of one config.toml layer, prior to merging.
type Manifest struct {
	Core       Core                    `toml:"core" json:"core"`
	Tools      []string                `toml:"tools" json:"tools,omitempty"`
	Rules      []string                `toml:"rules" json:"rules,omitempty"`
	Presets    map[string]any          `toml:"presets" json:"presets,omitempty"`
	Extensions map[string]ExtensionRef `toml:"extensions" json:"extensions,omitempty"`
	Hooks      []Hook                  `toml:"hooks" json:"hooks,omitempty"`
}

// ResolvedConfig is the merged result of every manifest layer, the input
// the projector, sync engine, and extension installer operate against.
type ResolvedConfig struct {
	Mode       Mode
	Tools      []string
	Rules      []string
	Presets    map[string]any
	Extensions map[string]ExtensionRef
	Hooks      []Hook
}

// Parse decodes raw TOML bytes into a Manifest and validates its
// structural invariants (§3): core.mode must be standard or worktrees,
// preset keys must match "kind:name", tools must be non-empty slugs.
func Parse(path string, data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, &errs.SchemaError{Path: path, Reason: err.Error()}
	}
	if err := validateSchema(path, &m); err != nil {
		return nil, err
	}
	if err := validate(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses the manifest file at path under a shared lock.
func Load(path string) (*Manifest, error) {
	guard, err := pathio.AcquireShared(path)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	text, err := pathio.ReadText(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, []byte(text))
}

// Save writes m to path atomically under an exclusive lock.
func Save(path string, m *Manifest) error {
	guard, err := pathio.AcquireExclusive(path)
	if err != nil {
		return err
	}
	defer guard.Release()

	data, err := toml.Marshal(m)
	if err != nil {
		return &errs.SchemaError{Path: path, Reason: err.Error()}
	}
	if err := pathio.WriteAtomicLocked(path, data); err != nil {
		return err
	}
	log.Printf("saved manifest to %s", path)
	return nil
}

func validate(path string, m *Manifest) error {
	if m.Core.Mode == "" {
		m.Core.Mode = ModeStandard
	}
	if m.Core.Mode != ModeStandard && m.Core.Mode != ModeWorktrees {
		return &errs.SchemaError{Path: path, Reason: fmt.Sprintf("invalid core.mode %q", m.Core.Mode)}
	}
	for key := range m.Presets {
		if !presetKeyPattern.MatchString(key) {
			return &errs.SchemaError{Path: path, Reason: fmt.Sprintf("invalid preset key %q: must match kind:name", key)}
		}
		if provider, ok := presetProvider(m.Presets[key]); ok {
			if version, ok := presetVersion(m.Presets[key]); ok {
				if _, err := semver.NewConstraint(version); err != nil {
					return &errs.SchemaError{Path: path, Reason: fmt.Sprintf("preset %q: invalid version constraint %q: %v", key, version, err)}
				}
				_ = provider
			}
		}
	}
	return nil
}

func presetVersion(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := m["version"].(string)
	return s, ok
}

func presetProvider(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := m["provider"].(string)
	return s, ok
}

// Resolve merges layers in order (ambient defaults → organization →
// repository → local overrides per §4.3) into a single ResolvedConfig.
// core.mode: last wins. tools/rules: set union, earliest-seen order
// preserved. presets: recursive deep merge. extensions: last wins
// per-name. hooks: concatenation.
func Resolve(layers ...*Manifest) (*ResolvedConfig, error) {
	resolved := &ResolvedConfig{
		Mode:       ModeStandard,
		Presets:    map[string]any{},
		Extensions: map[string]ExtensionRef{},
	}

	toolSeen := map[string]bool{}
	ruleSeen := map[string]bool{}

	for _, layer := range layers {
		if layer == nil {
			continue
		}
		if layer.Core.Mode != "" {
			resolved.Mode = layer.Core.Mode
		}
		for _, tool := range layer.Tools {
			if !toolSeen[tool] {
				toolSeen[tool] = true
				resolved.Tools = append(resolved.Tools, tool)
			}
		}
		for _, rule := range layer.Rules {
			if !ruleSeen[rule] {
				ruleSeen[rule] = true
				resolved.Rules = append(resolved.Rules, rule)
			}
		}
		for key, val := range layer.Presets {
			resolved.Presets[key] = deepMerge(resolved.Presets[key], val)
		}
		for name, ext := range layer.Extensions {
			resolved.Extensions[name] = ext
		}
		resolved.Hooks = append(resolved.Hooks, layer.Hooks...)
	}

	return resolved, nil
}

// deepMerge recursively merges src into dst for map[string]any values,
// with src's leaf values winning on conflict; non-map values are replaced
// outright.
func deepMerge(dst, src any) any {
	dstMap, dstOK := dst.(map[string]any)
	srcMap, srcOK := src.(map[string]any)
	if !dstOK || !srcOK {
		return src
	}
	merged := map[string]any{}
	for k, v := range dstMap {
		merged[k] = v
	}
	for k, v := range srcMap {
		if existing, ok := merged[k]; ok {
			merged[k] = deepMerge(existing, v)
		} else {
			merged[k] = v
		}
	}
	return merged
}
