// Package ledger implements C4: the on-disk record of every intent the
// orchestrator has realized and the projections (files, blocks, keys) each
// intent produced. The ledger is the only source `check` consults for
// "what did we write and what should it hash to" — it never re-derives
// that from the manifest at audit time.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/pelletier/go-toml/v2"
	"github.com/wgergely/repository-manager-sub008/internal/errs"
	"github.com/wgergely/repository-manager-sub008/internal/logger"
	"github.com/wgergely/repository-manager-sub008/internal/pathio"
)

var log = logger.New("ledger")

// ProjectionKind tags which verification procedure a Projection owns.
type ProjectionKind string

const (
	KindTextBlock   ProjectionKind = "text_block"
	KindJSONKey     ProjectionKind = "json_key"
	KindFileManaged ProjectionKind = "file_managed"
)

// Projection records one fact the orchestrator wrote: content X at
// location L via writer W, checksummed H (per the glossary).
type Projection struct {
	Tool     string         `toml:"tool"`
	File     string         `toml:"file"`
	Kind     ProjectionKind `toml:"kind"`
	Marker   string         `toml:"marker,omitempty"`
	JSONPath string         `toml:"json_path,omitempty"`
	Checksum string         `toml:"checksum"`
}

// Sha256Checksum renders a content digest in the ledger's stored form,
// "sha256:<hex>".
func Sha256Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Intent is a user declaration whose realization produced Projections.
type Intent struct {
	ID          string       `toml:"id"`
	UUID        string       `toml:"uuid"`
	Timestamp   string       `toml:"timestamp"`
	Args        string       `toml:"args,omitempty"`
	Projections []Projection `toml:"projections"`
}

// Ledger is the in-memory form of {root}/.repository/ledger.toml.
type Ledger struct {
	path    string
	intents map[string]*Intent // keyed by Intent.ID
}

type ledgerDoc struct {
	Intents []*Intent `toml:"intents"`
}

// Load acquires a shared lock on path, parses it, and returns an in-memory
// Ledger. A missing file yields an empty ledger.
func Load(path string) (*Ledger, error) {
	guard, err := pathio.AcquireShared(path)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	l := &Ledger{path: path, intents: map[string]*Intent{}}

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

	var doc ledgerDoc
	if err := toml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &errs.SchemaError{Path: path, Reason: err.Error()}
	}
	for _, intent := range doc.Intents {
		l.intents[intent.ID] = intent
	}
	return l, nil
}

// Save acquires an exclusive lock on the ledger file and writes it
// atomically. Intents are serialized in ID order for a stable diff.
// Concurrent saves are last-writer-wins: the lock serializes the writes,
// but a Save replaces the whole file with this Ledger's intents, so
// changes another process saved after this Ledger was loaded are lost.
func (l *Ledger) Save() error {
	guard, err := pathio.AcquireExclusive(l.path)
	if err != nil {
		return err
	}
	defer guard.Release()

	doc := ledgerDoc{Intents: l.sortedIntents()}
	data, err := toml.Marshal(doc)
	if err != nil {
		return &errs.SchemaError{Path: l.path, Reason: err.Error()}
	}
	if err := pathio.WriteAtomicLocked(l.path, data); err != nil {
		return err
	}
	log.Printf("saved %d intent(s) to %s", len(l.intents), l.path)
	return nil
}

func (l *Ledger) sortedIntents() []*Intent {
	out := make([]*Intent, 0, len(l.intents))
	for _, intent := range l.intents {
		out = append(out, intent)
	}
	// Stable insertion order isn't tracked explicitly; ID ordering gives a
	// deterministic, diff-friendly serialization instead.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ID < out[j-1].ID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// UpsertIntent replaces the intent with the same ID, if any, or appends it.
func (l *Ledger) UpsertIntent(intent Intent) {
	l.intents[intent.ID] = &intent
}

// RemoveIntent deletes the intent identified by id, if present.
func (l *Ledger) RemoveIntent(id string) {
	delete(l.intents, id)
}

// Intents returns every intent, sorted by ID.
func (l *Ledger) Intents() []*Intent {
	return l.sortedIntents()
}

// FindByID looks up a single intent.
func (l *Ledger) FindByID(id string) (*Intent, bool) {
	intent, ok := l.intents[id]
	return intent, ok
}

// ProjectionsForFile returns every projection across all intents that
// targets the given file path.
func (l *Ledger) ProjectionsForFile(path string) []Projection {
	var out []Projection
	for _, intent := range l.sortedIntents() {
		for _, p := range intent.Projections {
			if p.File == path {
				out = append(out, p)
			}
		}
	}
	return out
}

// FindByRule returns every intent that has at least one projection whose
// managed-block marker is the given rule UUID.
func (l *Ledger) FindByRule(ruleUUID string) []*Intent {
	var out []*Intent
	for _, intent := range l.sortedIntents() {
		for _, p := range intent.Projections {
			if p.Marker == ruleUUID {
				out = append(out, intent)
				break
			}
		}
	}
	return out
}
