package cli

import (
	"path/filepath"

	"github.com/spf13/afero"
)

// layerPaths names the manifest layers this CLI resolves, in merge order
// (§4.3: repository layer first, local override last so it wins).
func layerPaths(root string) []string {
	dir := filepath.Join(root, ".repository")
	return []string{
		filepath.Join(dir, "config.toml"),
		filepath.Join(dir, "config.local.toml"),
	}
}

// discoverLayers filters layerPaths down to the ones actually present on
// fsys, without touching file content or taking any lock — a plain
// existence probe, not one of pathio's atomic-write/lock-guarded
// operations, so it is free to run against an in-memory afero.Fs in tests.
func discoverLayers(fsys afero.Fs, root string) []string {
	var present []string
	for _, p := range layerPaths(root) {
		if ok, err := afero.Exists(fsys, p); err == nil && ok {
			present = append(present, p)
		}
	}
	return present
}
