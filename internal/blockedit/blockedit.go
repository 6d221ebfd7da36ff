// Package blockedit implements C2: non-destructive insert/update/remove of
// UUID-keyed managed blocks inside user-owned files, across five formats.
// The comment-marker handlers (Markdown, PlainText, YAML) preserve
// byte-for-byte everything outside the targeted block's range (invariant
// ii in spec §4.2); JSON keeps every sibling value's bytes but regenerates
// the whitespace between top-level entries; TOML re-encodes the whole
// document on every update (see tomlfmt.go).
package blockedit

import (
	"path/filepath"
	"strings"

	"github.com/wgergely/repository-manager-sub008/internal/errs"
	"github.com/wgergely/repository-manager-sub008/internal/logger"
)

var log = logger.New("blockedit")

// ManagedBlock describes one parsed block within a file's content.
type ManagedBlock struct {
	UUID    string
	Content string
	// Start and End are byte offsets into the content passed to
	// ParseBlocks, spanning from the first byte of the start marker to the
	// last byte of the end marker (inclusive range, exclusive End offset).
	Start, End int
}

// Format is the capability set a per-file-extension handler implements.
// file is the source path, used only to annotate errors (DuplicateBlock,
// MalformedBlock) — handlers never read from disk themselves.
type Format interface {
	// ParseBlocks returns every managed block found in content.
	ParseBlocks(content, file string) ([]ManagedBlock, error)
	// Upsert inserts a new block for uuid (appended) or rewrites an
	// existing one in place, returning the updated content. Bytes outside
	// the affected block's range are untouched, except as the package doc
	// describes for JSON and TOML.
	Upsert(content, file, uuid, newContent string) (string, error)
	// Remove deletes the block for uuid, if present, and returns the
	// updated content. A no-op if uuid is not present.
	Remove(content, file, uuid string) (string, error)
	// Has reports whether a block for uuid exists.
	Has(content, file, uuid string) (bool, error)
}

// ForPath selects a Format implementation by the file's extension,
// defaulting to the plaintext handler for unrecognized or missing
// extensions (matching how the projector treats an unknown tool config as
// a plain managed-block target).
func ForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".html", ".htm":
		return Markdown{}
	case ".yaml", ".yml":
		return YAML{}
	case ".json":
		return JSON{}
	case ".toml":
		return TOML{}
	default:
		return PlainText{}
	}
}

func fileLabel(file string) string {
	if file == "" {
		return "<buffer>"
	}
	return file
}

// wrapMalformed is a helper shared by the comment-marker handlers
// (Markdown, PlainText, YAML) to report an orphan marker: a start marker
// with no end marker, or an end marker with no start marker.
func wrapMalformed(uuid, file, reason string) error {
	return &errs.MalformedBlock{UUID: uuid, File: fileLabel(file), Reason: reason}
}

func wrapDuplicate(uuid, file string) error {
	return &errs.DuplicateBlock{UUID: uuid, File: fileLabel(file)}
}
