package extension

import (
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/wgergely/repository-manager-sub008/internal/errs"
	"github.com/wgergely/repository-manager-sub008/internal/pathio"
)

// LockEntry is one extension's resolved, reproducible installation record.
type LockEntry struct {
	Name           string `toml:"name"`
	Version        string `toml:"version"`
	Source         string `toml:"source"`
	Ref            string `toml:"ref,omitempty"`
	PythonVersion  string `toml:"python_version,omitempty"`
	VenvPath       string `toml:"venv_path,omitempty"`
	InstalledAt    string `toml:"installed_at"`
}

type lockDoc struct {
	Extensions []LockEntry `toml:"extensions"`
}

// Lock is the in-memory form of {root}/.repository/extensions.lock.
type Lock struct {
	path    string
	entries map[string]LockEntry // keyed by Name
}

// LoadLock reads extensions.lock, treating a missing file as empty.
func LoadLock(path string) (*Lock, error) {
	guard, err := pathio.AcquireShared(path)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	l := &Lock{path: path, entries: map[string]LockEntry{}}

	text, err := pathio.ReadText(path)
	if err != nil {
		if ioErr, ok := err.(*errs.IoError); ok && ioErr.Kind == "read" {
			return l, nil
		}
		return nil, err
	}
	if text == "" {
		return l, nil
	}

	var doc lockDoc
	if err := toml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &errs.SchemaError{Path: path, Reason: err.Error()}
	}
	for _, e := range doc.Extensions {
		l.entries[e.Name] = e
	}
	return l, nil
}

// Upsert records or replaces name's lock entry.
func (l *Lock) Upsert(e LockEntry) {
	l.entries[e.Name] = e
}

// Remove deletes name's lock entry, if present.
func (l *Lock) Remove(name string) {
	delete(l.entries, name)
}

// Get returns name's lock entry, if present.
func (l *Lock) Get(name string) (LockEntry, bool) {
	e, ok := l.entries[name]
	return e, ok
}

func (l *Lock) sorted() []LockEntry {
	names := make([]string, 0, len(l.entries))
	for name := range l.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]LockEntry, 0, len(names))
	for _, name := range names {
		out = append(out, l.entries[name])
	}
	return out
}

// Save serializes and atomically writes the lock file under an exclusive
// lock, mirroring ruleset/manifest/ledger's read-modify-write convention.
func (l *Lock) Save() error {
	guard, err := pathio.AcquireExclusive(l.path)
	if err != nil {
		return err
	}
	defer guard.Release()

	data, err := toml.Marshal(lockDoc{Extensions: l.sorted()})
	if err != nil {
		return &errs.SchemaError{Path: l.path, Reason: err.Error()}
	}
	return pathio.WriteAtomicLocked(l.path, data)
}
