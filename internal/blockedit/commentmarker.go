package blockedit

import (
	"strings"
	"unicode"
)

// commentMarker implements the shared start/end comment-marker scanning
// logic used by Markdown/HTML (`<!-- repo:block:UUID -->`) and by
// plaintext/YAML (`# repo:block:UUID`). Only the marker prefix/suffix
// differ between the two; the byte-range discipline is identical.
type commentMarker struct {
	startPrefix, startSuffix string
	endPrefix, endSuffix     string
}

func (m commentMarker) start(uuid string) string {
	return m.startPrefix + uuid + m.startSuffix
}

func (m commentMarker) end(uuid string) string {
	return m.endPrefix + uuid + m.endSuffix
}

// findBlock locates the start/end marker pair for uuid in content. It
// returns ok=false if neither marker is present. A start marker with no
// matching end marker, or an end marker with no start marker, is reported
// as MalformedBlock (orphan) rather than silently ignored, per spec §4.2's
// tie-break rule.
func (m commentMarker) findBlock(content, file, uuid string) (startIdx, endIdx int, ok bool, err error) {
	start := m.start(uuid)
	end := m.end(uuid)

	firstStart := strings.Index(content, start)
	if firstStart == -1 {
		if strings.Contains(content, end) {
			return 0, 0, false, wrapMalformed(uuid, file, "end marker has no matching start marker")
		}
		return 0, 0, false, nil
	}
	if strings.Index(content[firstStart+len(start):], start) != -1 {
		return 0, 0, false, wrapDuplicate(uuid, file)
	}

	endOffset := strings.Index(content[firstStart:], end)
	if endOffset == -1 {
		return 0, 0, false, wrapMalformed(uuid, file, "start marker has no matching end marker")
	}
	endIdx = firstStart + endOffset + len(end)
	return firstStart, endIdx, true, nil
}

// parseAll scans content for every `repo:block:<uuid>` pair using the
// marker's start prefix to discover candidate UUIDs, then resolves each
// one through findBlock so duplicate/orphan detection applies uniformly.
func (m commentMarker) parseAll(content, file string) ([]ManagedBlock, error) {
	var blocks []ManagedBlock
	seen := map[string]bool{}

	cursor := 0
	for {
		idx := strings.Index(content[cursor:], m.startPrefix)
		if idx == -1 {
			break
		}
		prefixEnd := cursor + idx + len(m.startPrefix)
		suffixIdx := m.indexStartSuffix(content[prefixEnd:])
		if suffixIdx == -1 {
			break
		}
		uuid := content[prefixEnd : prefixEnd+suffixIdx]
		cursor = prefixEnd + suffixIdx + len(m.startSuffix)

		if seen[uuid] {
			continue
		}
		seen[uuid] = true

		start, end, ok, err := m.findBlock(content, file, uuid)
		if err != nil {
			return nil, err
		}
		if ok {
			blocks = append(blocks, ManagedBlock{
				UUID:    uuid,
				Content: innerContent(content[start:end], m.start(uuid), m.end(uuid)),
				Start:   start,
				End:     end,
			})
		}
	}
	return blocks, nil
}

// indexStartSuffix finds where a UUID token ends after startPrefix. When
// startSuffix is non-empty (Markdown's " -->") it's a plain substring
// search. When startSuffix is empty (PlainText/YAML's bare "# repo:block:"
// prefix, with no closing delimiter of its own) strings.Index(s, "")
// would always return 0, reporting an empty UUID - instead scan to the
// next whitespace/newline, which is always present since Upsert renders
// the marker on its own line.
func (m commentMarker) indexStartSuffix(rest string) int {
	if m.startSuffix != "" {
		return strings.Index(rest, m.startSuffix)
	}
	return strings.IndexFunc(rest, unicode.IsSpace)
}

func innerContent(block, start, end string) string {
	inner := strings.TrimPrefix(block, start)
	inner = strings.TrimSuffix(inner, end)
	return strings.Trim(inner, "\n")
}

func (m commentMarker) upsert(content, file, uuid, newContent string) (string, error) {
	start, end, ok, err := m.findBlock(content, file, uuid)
	if err != nil {
		return "", err
	}
	rendered := m.start(uuid) + "\n" + newContent + "\n" + m.end(uuid)
	if !ok {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		if content != "" {
			content += "\n"
		}
		return content + rendered + "\n", nil
	}
	return content[:start] + rendered + content[end:], nil
}

func (m commentMarker) remove(content, file, uuid string) (string, error) {
	start, end, ok, err := m.findBlock(content, file, uuid)
	if err != nil {
		return "", err
	}
	if !ok {
		return content, nil
	}
	trimmedEnd := end
	for trimmedEnd < len(content) && content[trimmedEnd] == '\n' {
		trimmedEnd++
	}
	trimmedStart := start
	for trimmedStart > 0 && content[trimmedStart-1] == '\n' {
		trimmedStart--
	}
	return content[:trimmedStart] + content[trimmedEnd:], nil
}

func (m commentMarker) has(content, file, uuid string) (bool, error) {
	_, _, ok, err := m.findBlock(content, file, uuid)
	return ok, err
}

// Markdown/HTML managed-block handler: `<!-- repo:block:UUID -->` /
// `<!-- /repo:block:UUID -->`.
type Markdown struct{}

var markdownMarker = commentMarker{
	startPrefix: "<!-- repo:block:", startSuffix: " -->",
	endPrefix: "<!-- /repo:block:", endSuffix: " -->",
}

func (Markdown) ParseBlocks(content, file string) ([]ManagedBlock, error) {
	return markdownMarker.parseAll(content, file)
}
func (Markdown) Upsert(content, file, uuid, newContent string) (string, error) {
	return markdownMarker.upsert(content, file, uuid, newContent)
}
func (Markdown) Remove(content, file, uuid string) (string, error) {
	return markdownMarker.remove(content, file, uuid)
}
func (Markdown) Has(content, file, uuid string) (bool, error) {
	return markdownMarker.has(content, file, uuid)
}

// PlainText managed-block handler: `# repo:block:UUID` / `# /repo:block:UUID`.
type PlainText struct{}

var plainTextMarker = commentMarker{
	startPrefix: "# repo:block:", startSuffix: "",
	endPrefix: "# /repo:block:", endSuffix: "",
}

func (PlainText) ParseBlocks(content, file string) ([]ManagedBlock, error) {
	return plainTextMarker.parseAll(content, file)
}
func (PlainText) Upsert(content, file, uuid, newContent string) (string, error) {
	return plainTextMarker.upsert(content, file, uuid, newContent)
}
func (PlainText) Remove(content, file, uuid string) (string, error) {
	return plainTextMarker.remove(content, file, uuid)
}
func (PlainText) Has(content, file, uuid string) (bool, error) {
	return plainTextMarker.has(content, file, uuid)
}

// YAML managed-block handler. Uses the same `#`-comment marker convention
// as PlainText (spec §4.2's marker table gives YAML the identical
// convention) so that a managed block can sit inside a YAML file's comment
// stream without disturbing parsed document structure around it.
type YAML struct{}

func (YAML) ParseBlocks(content, file string) ([]ManagedBlock, error) {
	return plainTextMarker.parseAll(content, file)
}
func (YAML) Upsert(content, file, uuid, newContent string) (string, error) {
	return plainTextMarker.upsert(content, file, uuid, newContent)
}
func (YAML) Remove(content, file, uuid string) (string, error) {
	return plainTextMarker.remove(content, file, uuid)
}
func (YAML) Has(content, file, uuid string) (bool, error) {
	return plainTextMarker.has(content, file, uuid)
}
