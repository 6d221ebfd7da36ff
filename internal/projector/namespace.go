package projector

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// newNamespace returns a deterministic slug → UUIDv5 generator rooted at
// a namespace derived from name, so that the same tool slug always maps
// to the same well-known block marker across runs and machines, while
// never colliding with a user-authored rule UUID (a distinct namespace
// per purpose per RFC 4122 §4.3).
func newNamespace(name string) func(string) string {
	ns := uuid.NewSHA1(uuid.NameSpaceURL, []byte(name))
	return func(slug string) string {
		return uuid.NewSHA1(ns, []byte(slug)).String()
	}
}

// listManagedRuleFiles returns every ".md" file directly inside dir, the
// set syncRulesDirectory reconciles against the rules it wants to keep.
func listManagedRuleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".md") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
