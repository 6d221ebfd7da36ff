// Package cli implements C10: the cobra command tree that composes every
// other component (C1-C9) into the repoctl binary, the way the teacher's
// pkg/cli composes the workflow compiler into gh-aw.
package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/wgergely/repository-manager-sub008/internal/manifest"
	"github.com/wgergely/repository-manager-sub008/internal/ruleset"
)

// repoRoot returns the project root a command operates against: the
// current working directory, unless --root overrides it.
func repoRoot(rootFlag string) (string, error) {
	if rootFlag != "" {
		return rootFlag, nil
	}
	return os.Getwd()
}

// now renders the current instant in the RFC 3339 form every ledger,
// ruleset, and lock timestamp in this codebase is stamped with.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// loadResolvedConfig loads every present manifest layer (per discoverLayers)
// and merges them into the ResolvedConfig the rest of the orchestrator
// consumes, plus the rule registry it references.
func loadResolvedConfig(root string) (*manifest.ResolvedConfig, *ruleset.Registry, error) {
	var layers []*manifest.Manifest
	for _, path := range discoverLayers(afero.NewOsFs(), root) {
		m, err := manifest.Load(path)
		if err != nil {
			return nil, nil, err
		}
		layers = append(layers, m)
	}

	cfg, err := manifest.Resolve(layers...)
	if err != nil {
		return nil, nil, err
	}

	rules, err := ruleset.LoadRegistry(ruleRegistryPath(root))
	if err != nil {
		return nil, nil, err
	}
	return cfg, rules, nil
}

func ruleRegistryPath(root string) string {
	return filepath.Join(root, ".repository", "rules", "registry.toml")
}

// repositoryLayerPath is the one manifest layer CLI mutations (tool/rule/
// preset/extension add|remove) write to; config.local.toml is left for a
// human or another tool to hand-edit, never for repoctl itself to write.
func repositoryLayerPath(root string) string {
	return filepath.Join(root, ".repository", "config.toml")
}

// mutateRepositoryLayer loads the repository manifest layer (or starts an
// empty one if it doesn't exist yet), applies fn, and saves it back under
// an exclusive lock - the same load/mutate/save shape every other command
// that edits a TOML-backed registry uses (ruleset.Registry, extension.Lock).
func mutateRepositoryLayer(rootFlag string, fn func(*manifest.Manifest) error) error {
	root, err := repoRoot(rootFlag)
	if err != nil {
		return err
	}
	path := repositoryLayerPath(root)

	m, err := loadOrEmptyManifest(path)
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	return manifest.Save(path, m)
}

func loadOrEmptyManifest(path string) (*manifest.Manifest, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &manifest.Manifest{Core: manifest.Core{Mode: manifest.ModeStandard}}, nil
	}
	return manifest.Load(path)
}
