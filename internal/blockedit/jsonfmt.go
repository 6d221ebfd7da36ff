package blockedit

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/wgergely/repository-manager-sub008/internal/errs"
)

// managedKey is the reserved top-level JSON key under which every managed
// block's content lives, keyed by UUID (spec §4.2).
const managedKey = "__repo_managed__"

// JSON managed-block handler. Sibling top-level keys are preserved by
// decoding the document into an ordered map of raw messages and only ever
// touching managedKey's subtree — every other key's value round-trips as
// the exact bytes it arrived with. The whitespace between top-level
// entries is regenerated on every write.
type JSON struct{}

// rawDoc preserves insertion order of top-level keys the way the original
// file had them (tracked separately since encoding/json's map decoding
// loses order), so re-encoding doesn't reshuffle a user's file.
type rawDoc struct {
	order  []string
	values map[string]json.RawMessage
}

func decodeRawDoc(content string) (rawDoc, error) {
	doc := rawDoc{values: map[string]json.RawMessage{}}
	if content == "" {
		return doc, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	tok, err := dec.Token()
	if err != nil {
		return doc, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return doc, &errs.MalformedBlock{Reason: "top-level JSON value is not an object"}
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return doc, err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return doc, err
		}
		if _, exists := doc.values[key]; !exists {
			doc.order = append(doc.order, key)
		}
		doc.values[key] = raw
	}
	return doc, nil
}

func (d rawDoc) encode() (string, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, key := range d.order {
		keyJSON, _ := json.Marshal(key)
		buf.Write(keyJSON)
		buf.WriteString(": ")
		if key == managedKey {
			buf.Write(indentValue(d.values[key]))
		} else {
			buf.Write(d.values[key])
		}
		if i < len(d.order)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.String(), nil
}

// indentValue re-marshals a raw JSON value with 2-space indentation so
// that newly-written/updated subtrees match the file's overall style; raw
// values that fail to re-indent (should not happen for valid JSON) are
// emitted as-is.
func indentValue(raw json.RawMessage) []byte {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return raw
	}
	return pretty.Bytes()
}

func decodeManagedMap(doc rawDoc) (map[string]json.RawMessage, error) {
	raw, ok := doc.values[managedKey]
	if !ok {
		return map[string]json.RawMessage{}, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &errs.MalformedBlock{Reason: "__repo_managed__ is not an object: " + err.Error()}
	}
	return m, nil
}

func encodeManagedMap(m map[string]json.RawMessage) (json.RawMessage, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("{")
	for i, k := range keys {
		keyJSON, _ := json.Marshal(k)
		buf.Write(keyJSON)
		buf.WriteString(":")
		buf.Write(m[k])
		if i < len(keys)-1 {
			buf.WriteString(",")
		}
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}

func (JSON) ParseBlocks(content, file string) ([]ManagedBlock, error) {
	doc, err := decodeRawDoc(content)
	if err != nil {
		return nil, &errs.MalformedBlock{File: fileLabel(file), Reason: err.Error()}
	}
	managed, err := decodeManagedMap(doc)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(managed))
	for k := range managed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	blocks := make([]ManagedBlock, 0, len(keys))
	for _, uuid := range keys {
		blocks = append(blocks, ManagedBlock{UUID: uuid, Content: string(managed[uuid])})
	}
	return blocks, nil
}

func (JSON) Upsert(content, file, uuid, newContent string) (string, error) {
	doc, err := decodeRawDoc(content)
	if err != nil {
		return "", &errs.MalformedBlock{File: fileLabel(file), Reason: err.Error()}
	}
	managed, err := decodeManagedMap(doc)
	if err != nil {
		return "", err
	}

	var normalized bytes.Buffer
	if err := json.Compact(&normalized, []byte(newContent)); err != nil {
		// newContent is not a JSON value on its own (e.g. plain text) —
		// encode it as a JSON string so the managed subtree stays valid JSON.
		asString, _ := json.Marshal(newContent)
		managed[uuid] = asString
	} else {
		managed[uuid] = json.RawMessage(normalized.Bytes())
	}

	encoded, err := encodeManagedMap(managed)
	if err != nil {
		return "", err
	}
	if _, exists := doc.values[managedKey]; !exists {
		doc.order = append(doc.order, managedKey)
	}
	doc.values[managedKey] = encoded
	return doc.encode()
}

func (JSON) Remove(content, file, uuid string) (string, error) {
	doc, err := decodeRawDoc(content)
	if err != nil {
		return "", &errs.MalformedBlock{File: fileLabel(file), Reason: err.Error()}
	}
	managed, err := decodeManagedMap(doc)
	if err != nil {
		return "", err
	}
	delete(managed, uuid)

	if len(managed) == 0 {
		delete(doc.values, managedKey)
		newOrder := doc.order[:0:0]
		for _, k := range doc.order {
			if k != managedKey {
				newOrder = append(newOrder, k)
			}
		}
		doc.order = newOrder
		return doc.encode()
	}

	encoded, err := encodeManagedMap(managed)
	if err != nil {
		return "", err
	}
	doc.values[managedKey] = encoded
	return doc.encode()
}

func (JSON) Has(content, file, uuid string) (bool, error) {
	doc, err := decodeRawDoc(content)
	if err != nil {
		return false, &errs.MalformedBlock{File: fileLabel(file), Reason: err.Error()}
	}
	managed, err := decodeManagedMap(doc)
	if err != nil {
		return false, err
	}
	_, ok := managed[uuid]
	return ok, nil
}
