// Package preset implements the small provider registry the Glossary's
// "env:python" preset kind implies but the manifest schema itself never
// designs: a preset's "kind" names a Provider that can detect whether its
// tool is already present and, if not, ensure it.
package preset

import (
	"context"
	"fmt"
	"sync"

	"github.com/wgergely/repository-manager-sub008/internal/extension"
)

// Provider detects and, if missing, provisions whatever a preset kind
// represents (a language runtime, a package manager, ...).
type Provider interface {
	// Detect reports whether the thing this provider manages is already
	// present and usable.
	Detect(ctx context.Context) (bool, error)
	// Ensure makes it present, if Detect reported false.
	Ensure(ctx context.Context) error
}

var (
	mu        sync.RWMutex
	providers = map[string]Provider{
		"env": envPythonProvider{},
	}
)

// Register adds or replaces the provider for kind. Intended for tests and
// for callers embedding additional preset kinds.
func Register(kind string, p Provider) {
	mu.Lock()
	defer mu.Unlock()
	providers[kind] = p
}

// Lookup returns the provider registered for kind, if any.
func Lookup(kind string) (Provider, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := providers[kind]
	return p, ok
}

// envPythonProvider is the one concrete provider this module ships:
// preset kind "env", name "python". It reuses extension.ResolveSystemPython
// (C7's own venv-provisioning probe) so detection for a preset and
// detection for an extension's interpreter requirement never drift apart.
type envPythonProvider struct{}

func (envPythonProvider) Detect(ctx context.Context) (bool, error) {
	_, version, err := extension.ResolveSystemPython(ctx)
	if err != nil {
		return false, nil
	}
	return version != "", nil
}

// Ensure does not install an interpreter: it re-runs Detect and returns
// an error when no python interpreter is found.
func (envPythonProvider) Ensure(ctx context.Context) error {
	ok, err := envPythonProvider{}.Detect(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return fmt.Errorf("no python interpreter found on PATH; install python3 or uv")
}
