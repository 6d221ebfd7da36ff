package blockedit

import (
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/wgergely/repository-manager-sub008/internal/errs"
)

// managedTable is the reserved top-level TOML table under which every
// managed block lives, one sub-table per UUID: `[repo_managed."UUID"]`
// (spec §4.2).
const managedTable = "repo_managed"

// TOML managed-block handler, built on pelletier/go-toml/v2. Unlike the
// comment-marker and JSON handlers, a TOML update reformats the whole
// document: go-toml has no raw-subtree-splice API comparable to
// json.RawMessage, so sibling tables survive but their original
// formatting (comment placement, key ordering within a table, blank
// lines) does not. This is a known, documented limitation rather than an
// oversight.
type TOML struct{}

func decodeTOMLDoc(content string) (map[string]any, error) {
	doc := map[string]any{}
	if content == "" {
		return doc, nil
	}
	if err := toml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func managedSubtable(doc map[string]any) map[string]any {
	raw, ok := doc[managedTable]
	if !ok {
		return map[string]any{}
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

func (TOML) ParseBlocks(content, file string) ([]ManagedBlock, error) {
	doc, err := decodeTOMLDoc(content)
	if err != nil {
		return nil, &errs.MalformedBlock{File: fileLabel(file), Reason: err.Error()}
	}
	table := managedSubtable(doc)

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	blocks := make([]ManagedBlock, 0, len(keys))
	for _, uuid := range keys {
		rendered, err := toml.Marshal(table[uuid])
		if err != nil {
			return nil, &errs.MalformedBlock{UUID: uuid, File: fileLabel(file), Reason: err.Error()}
		}
		blocks = append(blocks, ManagedBlock{UUID: uuid, Content: string(rendered)})
	}
	return blocks, nil
}

func (TOML) Upsert(content, file, uuid, newContent string) (string, error) {
	doc, err := decodeTOMLDoc(content)
	if err != nil {
		return "", &errs.MalformedBlock{File: fileLabel(file), Reason: err.Error()}
	}
	table := managedSubtable(doc)

	var value any
	if err := toml.Unmarshal([]byte(newContent), &value); err != nil {
		// newContent isn't a TOML table on its own — store it as a single
		// "value" key so the managed subtree stays valid TOML.
		table[uuid] = map[string]any{"value": newContent}
	} else {
		table[uuid] = value
	}

	doc[managedTable] = table
	out, err := toml.Marshal(doc)
	if err != nil {
		return "", &errs.MalformedBlock{UUID: uuid, File: fileLabel(file), Reason: err.Error()}
	}
	return string(out), nil
}

func (TOML) Remove(content, file, uuid string) (string, error) {
	doc, err := decodeTOMLDoc(content)
	if err != nil {
		return "", &errs.MalformedBlock{File: fileLabel(file), Reason: err.Error()}
	}
	table := managedSubtable(doc)
	delete(table, uuid)

	if len(table) == 0 {
		delete(doc, managedTable)
	} else {
		doc[managedTable] = table
	}

	out, err := toml.Marshal(doc)
	if err != nil {
		return "", &errs.MalformedBlock{UUID: uuid, File: fileLabel(file), Reason: err.Error()}
	}
	return string(out), nil
}

func (TOML) Has(content, file, uuid string) (bool, error) {
	doc, err := decodeTOMLDoc(content)
	if err != nil {
		return false, &errs.MalformedBlock{File: fileLabel(file), Reason: err.Error()}
	}
	table := managedSubtable(doc)
	_, ok := table[uuid]
	return ok, nil
}
