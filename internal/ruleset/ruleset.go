// Package ruleset implements the rule registry: shareable snippets of
// instruction text, identified by a stable UUID and a human-readable slug,
// that the projector (C5) translates into each enabled tool's native
// format. The registry is the single source of truth a rule's content_hash
// is checked against; every load of a rule for projection re-verifies it.
package ruleset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	"github.com/wgergely/repository-manager-sub008/internal/errs"
	"github.com/wgergely/repository-manager-sub008/internal/logger"
	"github.com/wgergely/repository-manager-sub008/internal/pathio"
)

var log = logger.New("ruleset")

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Rule is one shareable instruction snippet. UUID is the canonical
// identifier embedded as the managed-block marker in every file the rule
// is projected into; ID is a human-facing alias used on the command line.
type Rule struct {
	UUID        string   `toml:"uuid"`
	ID          string   `toml:"id"`
	Content     string   `toml:"content"`
	ContentHash string   `toml:"content_hash"`
	Tags        []string `toml:"tags"`
	Created     string   `toml:"created"`
	Updated     string   `toml:"updated"`
}

// hashContent returns the lowercase hex SHA-256 digest of content, the
// invariant a Rule's ContentHash must equal at all times on disk.
func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the rule's recorded content_hash still matches
// its content, catching a registry file hand-edited out of band.
func (r *Rule) Verify() error {
	if hashContent(r.Content) != r.ContentHash {
		return &errs.SchemaError{Reason: fmt.Sprintf("rule %s: content_hash mismatch", r.ID)}
	}
	return nil
}

// Registry is the in-memory, TOML-backed collection of rules at
// {root}/.repository/rules/registry.toml.
type Registry struct {
	path  string
	rules map[string]*Rule // keyed by UUID
}

type registryDoc struct {
	Rules []*Rule `toml:"rules"`
}

// LoadRegistry acquires a shared lock on path, parses it, and returns an
// in-memory Registry. A missing file yields an empty registry rather than
// an error, matching a freshly-initialized project.
func LoadRegistry(path string) (*Registry, error) {
	guard, err := pathio.AcquireShared(path)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	reg := &Registry{path: path, rules: map[string]*Rule{}}

	text, err := pathio.ReadText(path)
	if err != nil {
		if ioErr, ok := err.(*errs.IoError); ok && ioErr.Kind == "read" {
			return reg, nil
		}
		return nil, err
	}
	if text == "" {
		return reg, nil
	}

	var doc registryDoc
	if err := toml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &errs.SchemaError{Path: path, Reason: err.Error()}
	}
	for _, r := range doc.Rules {
		if err := r.Verify(); err != nil {
			return nil, err
		}
		reg.rules[r.UUID] = r
	}
	return reg, nil
}

// Save acquires an exclusive lock on the registry file and writes it
// atomically, serializing rules in ID order for a stable diff.
func (reg *Registry) Save() error {
	guard, err := pathio.AcquireExclusive(reg.path)
	if err != nil {
		return err
	}
	defer guard.Release()

	doc := registryDoc{Rules: reg.sortedRules()}
	data, err := toml.Marshal(doc)
	if err != nil {
		return &errs.SchemaError{Path: reg.path, Reason: err.Error()}
	}
	if err := pathio.WriteAtomicLocked(reg.path, data); err != nil {
		return err
	}
	log.Printf("saved %d rule(s) to %s", len(reg.rules), reg.path)
	return nil
}

func (reg *Registry) sortedRules() []*Rule {
	out := make([]*Rule, 0, len(reg.rules))
	for _, r := range reg.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Add creates a new Rule, generating a fresh UUIDv4 and content_hash, and
// inserts it into the registry. Fails if id is already registered or is
// not a valid slug.
func (reg *Registry) Add(id, content string, tags []string, now string) (*Rule, error) {
	if !idPattern.MatchString(id) {
		return nil, &errs.SchemaError{Reason: fmt.Sprintf("invalid rule id %q: must match %s", id, idPattern.String())}
	}
	if _, exists := reg.ByID(id); exists {
		return nil, &errs.SchemaError{Reason: fmt.Sprintf("rule id %q already registered", id)}
	}

	rule := &Rule{
		UUID:        uuid.NewString(),
		ID:          id,
		Content:     content,
		ContentHash: hashContent(content),
		Tags:        append([]string(nil), tags...),
		Created:     now,
		Updated:     now,
	}
	reg.rules[rule.UUID] = rule
	return rule, nil
}

// UpdateContent replaces a rule's content, recomputing content_hash and
// bumping Updated.
func (reg *Registry) UpdateContent(id, content, now string) (*Rule, error) {
	rule, ok := reg.ByID(id)
	if !ok {
		return nil, &errs.SchemaError{Reason: fmt.Sprintf("no such rule %q", id)}
	}
	rule.Content = content
	rule.ContentHash = hashContent(content)
	rule.Updated = now
	return rule, nil
}

// Remove deletes the rule identified by id, if present.
func (reg *Registry) Remove(id string) error {
	rule, ok := reg.ByID(id)
	if !ok {
		return &errs.SchemaError{Reason: fmt.Sprintf("no such rule %q", id)}
	}
	delete(reg.rules, rule.UUID)
	return nil
}

// ByID looks up a rule by its human-readable alias.
func (reg *Registry) ByID(id string) (*Rule, bool) {
	for _, r := range reg.rules {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// ByUUID looks up a rule by its canonical identifier.
func (reg *Registry) ByUUID(id string) (*Rule, bool) {
	r, ok := reg.rules[id]
	return r, ok
}

// All returns every registered rule, sorted by ID.
func (reg *Registry) All() []*Rule {
	return reg.sortedRules()
}
