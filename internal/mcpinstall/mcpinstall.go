// Package mcpinstall implements C8: translating a canonical MCP server
// definition into each AI-assistant tool's native MCP configuration file,
// respecting the three top-level key-name conventions in the wild
// (mcpServers / servers / context_servers) and each tool's transport
// field-name choices.
package mcpinstall

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/wgergely/repository-manager-sub008/internal/errs"
	"github.com/wgergely/repository-manager-sub008/internal/ledger"
	"github.com/wgergely/repository-manager-sub008/internal/logger"
	"github.com/wgergely/repository-manager-sub008/internal/pathio"
)

var log = logger.New("mcpinstall")

// Transport identifies how the orchestrator reaches an MCP server.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
	TransportSSE   Transport = "sse"
)

// McpServerConfig is the canonical, tool-agnostic description of one MCP
// server, translated per-tool by Install/Sync.
type McpServerConfig struct {
	Transport Transport
	Command   string // Stdio
	Args      []string
	Cwd       string
	URL       string // Http/Sse
	Headers   map[string]string
	Env       map[string]string
}

// Format is how a tool's MCP entries are stored on disk.
type Format string

const (
	FormatStandaloneJSON  Format = "standalone_json"
	FormatEmbeddedJSON    Format = "embedded_json"
	FormatExtensionStorage Format = "extension_storage"
)

// FieldMappings resolves a tool's chosen field names for transport
// attributes that differ across tools even for the same transport kind.
type FieldMappings struct {
	HTTPURLField      string // one of "url", "serverUrl", "httpUrl"
	SSEURLField       string
	RequiresTypeField bool
	TypeValues        map[Transport]string
}

// ToolSpec is the per-tool MCP installation contract (spec §4.8).
type ToolSpec struct {
	Slug                string
	ServersKey          string // "mcpServers" | "servers" | "context_servers"
	ProjectConfigPath   string // relative to repo root
	Format              Format
	EmbeddedParentKeys  []string // for FormatEmbeddedJSON: path to the parent object
	FieldMappings       FieldMappings
	SupportedTransports map[Transport]bool
}

// Registry is the built-in set of tool MCP specs, keyed by slug. Install,
// Remove and Sync return an error for a slug that has no entry here.
var Registry = map[string]ToolSpec{
	"cursor": {
		Slug:              "cursor",
		ServersKey:        "mcpServers",
		ProjectConfigPath: ".cursor/mcp.json",
		Format:            FormatStandaloneJSON,
		FieldMappings: FieldMappings{
			HTTPURLField:      "url",
			SSEURLField:       "url",
			RequiresTypeField: false,
		},
		SupportedTransports: map[Transport]bool{TransportStdio: true, TransportHTTP: true, TransportSSE: true},
	},
	"claude": {
		Slug:              "claude",
		ServersKey:        "mcpServers",
		ProjectConfigPath: ".mcp.json",
		Format:            FormatStandaloneJSON,
		FieldMappings: FieldMappings{
			HTTPURLField:      "url",
			RequiresTypeField: true,
			TypeValues:        map[Transport]string{TransportStdio: "stdio", TransportHTTP: "http"},
		},
		SupportedTransports: map[Transport]bool{TransportStdio: true, TransportHTTP: true},
	},
	"vscode": {
		Slug:              "vscode",
		ServersKey:        "servers",
		ProjectConfigPath: ".vscode/mcp.json",
		Format:            FormatStandaloneJSON,
		FieldMappings: FieldMappings{
			HTTPURLField:      "url",
			RequiresTypeField: true,
			TypeValues:        map[Transport]string{TransportStdio: "stdio", TransportHTTP: "http", TransportSSE: "sse"},
		},
		SupportedTransports: map[Transport]bool{TransportStdio: true, TransportHTTP: true, TransportSSE: true},
	},
	"copilot": {
		Slug:              "copilot",
		ServersKey:        "servers",
		ProjectConfigPath: ".vscode/mcp.json",
		Format:            FormatStandaloneJSON,
		FieldMappings: FieldMappings{
			HTTPURLField:      "url",
			RequiresTypeField: true,
			TypeValues:        map[Transport]string{TransportStdio: "stdio", TransportHTTP: "http"},
		},
		SupportedTransports: map[Transport]bool{TransportStdio: true, TransportHTTP: true},
	},
	"zed": {
		Slug:              "zed",
		ServersKey:        "context_servers",
		ProjectConfigPath: ".zed/settings.json",
		Format:            FormatEmbeddedJSON,
		FieldMappings: FieldMappings{
			HTTPURLField:      "url",
			RequiresTypeField: false,
		},
		SupportedTransports: map[Transport]bool{TransportStdio: true},
	},
}

// translate renders cfg into this tool's native JSON shape.
func (spec ToolSpec) translate(name string, cfg McpServerConfig) (map[string]any, error) {
	if !spec.SupportedTransports[cfg.Transport] {
		return nil, fmt.Errorf("tool %q does not support transport %q", spec.Slug, cfg.Transport)
	}

	entry := map[string]any{}
	switch cfg.Transport {
	case TransportStdio:
		entry["command"] = cfg.Command
		if len(cfg.Args) > 0 {
			entry["args"] = cfg.Args
		}
		if cfg.Cwd != "" {
			entry["cwd"] = cfg.Cwd
		}
	case TransportHTTP:
		field := spec.FieldMappings.HTTPURLField
		if field == "" {
			field = "url"
		}
		entry[field] = cfg.URL
		if len(cfg.Headers) > 0 {
			entry["headers"] = cfg.Headers
		}
	case TransportSSE:
		field := spec.FieldMappings.SSEURLField
		if field == "" {
			field = spec.FieldMappings.HTTPURLField
		}
		if field == "" {
			field = "url"
		}
		entry[field] = cfg.URL
		if len(cfg.Headers) > 0 {
			entry["headers"] = cfg.Headers
		}
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}

	if spec.FieldMappings.RequiresTypeField {
		if typeValue, ok := spec.FieldMappings.TypeValues[cfg.Transport]; ok {
			entry["type"] = typeValue
		}
	}
	if len(cfg.Env) > 0 {
		entry["env"] = cfg.Env
	}
	return entry, nil
}

// resolveConfigPath returns the absolute path to this tool's config file
// for the given scope ("project" is the only scope §6 requires today).
func (spec ToolSpec) resolveConfigPath(root string) string {
	return filepath.Join(root, filepath.FromSlash(spec.ProjectConfigPath))
}

func loadDoc(path string) (map[string]any, error) {
	text, err := pathio.ReadText(path)
	if err != nil {
		if ioErr, ok := err.(*errs.IoError); ok && ioErr.Kind == "read" {
			return map[string]any{}, nil
		}
		return nil, err
	}
	if text == "" {
		return map[string]any{}, nil
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &errs.MalformedBlock{File: path, Reason: err.Error()}
	}
	return doc, nil
}

// serversTable locates (creating parents as needed for embedded formats)
// the map this tool stores its MCP server entries under.
func (spec ToolSpec) serversTable(doc map[string]any) map[string]any {
	container := doc
	for _, key := range spec.EmbeddedParentKeys {
		next, ok := container[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			container[key] = next
		}
		container = next
	}
	table, ok := container[spec.ServersKey].(map[string]any)
	if !ok {
		table = map[string]any{}
		container[spec.ServersKey] = table
	}
	return table
}

// writeDoc serializes doc and writes it atomically. encoding/json sorts
// map keys alphabetically on its own, so the output is stable across runs
// without any extra bookkeeping.
func writeDoc(path string, doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &errs.MalformedBlock{File: path, Reason: err.Error()}
	}
	return pathio.WriteAtomic(path, append(data, '\n'))
}

// checksumOf hashes the rendered JSON entry the same way the ledger
// stores checksums for JsonKey projections.
func checksumOf(entry map[string]any) string {
	data, _ := json.Marshal(entry)
	return ledger.Sha256Checksum(string(data))
}

// Install merges server into the tool's config file under the correct
// top-level key and writes atomically, returning the JsonKey projection
// to record in the ledger.
func Install(root, toolSlug, serverName string, cfg McpServerConfig) (ledger.Projection, error) {
	spec, ok := Registry[toolSlug]
	if !ok {
		return ledger.Projection{}, fmt.Errorf("no MCP spec registered for tool %q", toolSlug)
	}

	path := spec.resolveConfigPath(root)
	doc, err := loadDoc(path)
	if err != nil {
		return ledger.Projection{}, err
	}

	entry, err := spec.translate(serverName, cfg)
	if err != nil {
		return ledger.Projection{}, err
	}
	table := spec.serversTable(doc)
	table[serverName] = entry

	if err := writeDoc(path, doc); err != nil {
		return ledger.Projection{}, err
	}
	log.Printf("installed MCP server %s for tool %s at %s", serverName, toolSlug, path)

	jsonPath := fmt.Sprintf("%s.%s", spec.ServersKey, serverName)
	return ledger.Projection{
		Tool:     toolSlug,
		File:     path,
		Kind:     ledger.KindJSONKey,
		JSONPath: jsonPath,
		Checksum: checksumOf(entry),
	}, nil
}

// Remove deletes serverName's entry from the tool's config file.
func Remove(root, toolSlug, serverName string) error {
	spec, ok := Registry[toolSlug]
	if !ok {
		return fmt.Errorf("no MCP spec registered for tool %q", toolSlug)
	}

	path := spec.resolveConfigPath(root)
	doc, err := loadDoc(path)
	if err != nil {
		return err
	}
	table := spec.serversTable(doc)
	delete(table, serverName)
	return writeDoc(path, doc)
}

// Sync reconciles servers (name → config) against the tool's config file:
// declared-but-absent servers are added, servers whose rendered checksum
// differs are replaced, and owned server names no longer declared are
// removed. Entries never owned by the orchestrator (not present in
// ownedServerNames) are preserved untouched.
func Sync(root, toolSlug string, servers map[string]McpServerConfig, ownedServerNames map[string]bool) ([]ledger.Projection, error) {
	spec, ok := Registry[toolSlug]
	if !ok {
		return nil, fmt.Errorf("no MCP spec registered for tool %q", toolSlug)
	}

	path := spec.resolveConfigPath(root)
	doc, err := loadDoc(path)
	if err != nil {
		return nil, err
	}
	table := spec.serversTable(doc)

	var projections []ledger.Projection
	for name, cfg := range servers {
		entry, err := spec.translate(name, cfg)
		if err != nil {
			return nil, err
		}
		table[name] = entry
		projections = append(projections, ledger.Projection{
			Tool:     toolSlug,
			File:     path,
			Kind:     ledger.KindJSONKey,
			JSONPath: fmt.Sprintf("%s.%s", spec.ServersKey, name),
			Checksum: checksumOf(entry),
		})
	}
	for name := range ownedServerNames {
		if _, stillDeclared := servers[name]; !stillDeclared {
			delete(table, name)
		}
	}

	if err := writeDoc(path, doc); err != nil {
		return nil, err
	}

	sort.Slice(projections, func(i, j int) bool { return projections[i].JSONPath < projections[j].JSONPath })
	return projections, nil
}
