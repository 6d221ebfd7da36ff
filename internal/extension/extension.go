package extension

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/wgergely/repository-manager-sub008/internal/errs"
	"github.com/wgergely/repository-manager-sub008/internal/gitutil"
	"github.com/wgergely/repository-manager-sub008/internal/hooks"
	"github.com/wgergely/repository-manager-sub008/internal/ledger"
	"github.com/wgergely/repository-manager-sub008/internal/mcpinstall"
	"github.com/wgergely/repository-manager-sub008/internal/pathio"
)

// State is one point in the extension lifecycle (§4.7).
type State string

const (
	StateDeclared    State = "declared"
	StateFetched     State = "fetched"
	StateValidated   State = "validated"
	StateProvisioned State = "provisioned"
	StateInstalled   State = "installed"
	StateActivated   State = "activated"
)

// Declaration is the manifest's extensions.<name> entry, resolved to a
// concrete source and ref.
type Declaration struct {
	Name   string
	Source string
	Ref    string
}

// Result is the outcome of driving a Declaration through the full state
// machine.
type Result struct {
	State          State
	SourceDir      string
	Manifest       *ExtensionManifest
	VenvPath       string
	PythonVersion  string
	MCPProjections []ledger.Projection
}

func sourceDir(root, name string) string {
	return filepath.Join(root, ".repository", "extensions", name, "source")
}

func defaultVenvDir(root, name string) string {
	return filepath.Join(root, ".repository", "extensions", name, ".venv")
}

// Install drives decl through every transition, each idempotent per
// §4.7. mcpToolSlugs names the enabled tools that declare supports_mcp,
// used for the Installed → Activated MCP-injection step; lifecycleHooks
// are the manifest's configured hooks, used to fire PostExtensionInstall.
func Install(ctx context.Context, root string, decl Declaration, mcpToolSlugs []string, lifecycleHooks []hooks.Hook) (*Result, error) {
	src, err := fetch(ctx, root, decl)
	if err != nil {
		return nil, err
	}
	res := &Result{State: StateFetched, SourceDir: src}

	manifest, err := validate(src)
	if err != nil {
		return nil, err
	}
	res.Manifest = manifest
	res.State = StateValidated

	venvPath, pythonPath, err := provision(ctx, src, root, decl.Name, manifest)
	if err != nil {
		return nil, err
	}
	res.VenvPath = venvPath
	res.State = StateProvisioned

	pythonVersion, err := install(ctx, root, src, venvPath, pythonPath, decl, manifest)
	if err != nil {
		return nil, err
	}
	res.PythonVersion = pythonVersion
	res.State = StateInstalled

	if err := activate(ctx, root, src, venvPath, decl, manifest, mcpToolSlugs, lifecycleHooks, res); err != nil {
		return nil, err
	}
	res.State = StateActivated

	return res, nil
}

// fetch implements Declared → Fetched: clone or copy decl's source into
// the extension's source directory, a no-op if it already exists.
func fetch(ctx context.Context, root string, decl Declaration) (string, error) {
	dest := sourceDir(root, decl.Name)
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return dest, nil
	}

	if gitutil.IsGitSource(decl.Source) {
		if err := gitutil.CloneRef(ctx, gitutil.StripGitScheme(decl.Source), decl.Ref, dest); err != nil {
			return "", err
		}
		return dest, nil
	}

	if err := gitutil.CopyLocal(decl.Source, dest); err != nil {
		return "", &errs.FetchFailed{Source: decl.Source, Err: err}
	}
	return dest, nil
}

// validate implements Fetched → Validated: parse repo_extension.toml.
func validate(src string) (*ExtensionManifest, error) {
	manifestPath := filepath.Join(src, "repo_extension.toml")
	data, err := pathio.ReadText(manifestPath)
	if err != nil {
		return nil, &errs.SchemaError{Path: manifestPath, Reason: err.Error()}
	}
	return ParseManifest(manifestPath, data)
}

// provision implements Validated → Provisioned: gate on the Python
// constraint, confirm the package manager is on PATH, and create the venv
// if the extension doesn't supply its own install step for doing so.
func provision(ctx context.Context, src, root, name string, m *ExtensionManifest) (venvPath, pythonPath string, err error) {
	if m.Runtime.Type != RuntimePython {
		return "", "", nil
	}

	if m.Requires.Python != nil && m.Requires.Python.Version != "" {
		constraint, err := ParsePEP440Constraint(m.Requires.Python.Version)
		if err != nil {
			return "", "", &errs.SchemaError{Path: src, Reason: err.Error()}
		}

		resolvedPython, resolvedVersion, resolveErr := ResolveSystemPython(ctx)
		if resolveErr != nil {
			return "", "", &errs.VersionConstraintNotSatisfied{Constraint: m.Requires.Python.Version, Actual: "unresolved"}
		}
		ok, satErr := constraint.Satisfies(resolvedVersion)
		if satErr != nil || !ok {
			return "", "", &errs.VersionConstraintNotSatisfied{Constraint: m.Requires.Python.Version, Actual: resolvedVersion}
		}
		pythonPath = resolvedPython
	}

	if m.Runtime.PackageManager != "" {
		if err := checkPackageManagerOnPath(m.Runtime.PackageManager); err != nil {
			return "", "", err
		}
	}

	venvPath = defaultVenvDir(root, name)
	if m.Runtime.VenvPath != "" {
		venvPath = filepath.Join(src, filepath.FromSlash(m.Runtime.VenvPath))
	}

	if m.Runtime.Install == "" {
		if info, err := os.Stat(venvPath); err == nil && info.IsDir() {
			return venvPath, pythonPath, nil
		}

		selector := ""
		if m.Requires.Python != nil && m.Requires.Python.Version != "" {
			if constraint, cErr := ParsePEP440Constraint(m.Requires.Python.Version); cErr == nil {
				selector = constraint.SingleBoundSelector()
			}
		}
		if err := createVenv(ctx, src, venvPath, selector); err != nil {
			return "", "", fmt.Errorf("creating venv for %s: %w", name, err)
		}
	}

	return venvPath, pythonPath, nil
}

func checkPackageManagerOnPath(tool string) error {
	if _, err := exec.LookPath(tool); err != nil {
		hint := fmt.Sprintf("install %s and ensure it is on PATH", tool)
		return &errs.PackageManagerNotFound{Tool: tool, Hint: hint}
	}
	return nil
}

// install implements Provisioned → Installed: run the declared install
// string (if any), then record the resolved Python version.
func install(ctx context.Context, root, src, venvPath, resolvedPython string, decl Declaration, m *ExtensionManifest) (string, error) {
	if m.Runtime.Install != "" {
		env := map[string]string{
			"REPO_EXTENSION_NAME":    decl.Name,
			"REPO_EXTENSION_VERSION": m.Extension.Version,
			"REPO_ROOT":              root,
		}
		if err := runInstall(ctx, m.Runtime.Install, src, env); err != nil {
			exitCode := extractExitCode(err)
			return "", &errs.InstallFailed{Name: decl.Name, Command: m.Runtime.Install, ExitCode: exitCode}
		}
	}

	if m.Runtime.Type != RuntimePython {
		return "", nil
	}

	pythonPath := resolvedPython
	if pythonPath == "" && venvPath != "" {
		pythonPath = venvPythonPath(venvPath)
	}
	if pythonPath == "" {
		return "", nil
	}

	version, err := pythonVersionOf(ctx, pythonPath)
	if err != nil {
		// The venv python may not exist yet if a custom install string
		// provisioned a different interpreter; this is non-fatal.
		return "", nil
	}
	return version, nil
}

// activate implements Installed → Activated: read provides.mcp (if any),
// install its servers into every enabled MCP-capable tool, then fire
// PostExtensionInstall hooks.
func activate(ctx context.Context, root, src, venvPath string, decl Declaration, m *ExtensionManifest, mcpToolSlugs []string, lifecycleHooks []hooks.Hook, res *Result) error {
	if m.Provides.MCP != "" {
		projections, err := installExtensionMCP(root, src, venvPath, decl.Name, m.Provides.MCP, mcpToolSlugs)
		if err != nil {
			return err
		}
		res.MCPProjections = projections
	}

	varContext := map[string]string{
		"EXTENSION_NAME":    decl.Name,
		"EXTENSION_VERSION": m.Extension.Version,
		"EXTENSION_SOURCE":  decl.Source,
		"EXTENSION_DIR":     src,
		"EXTENSION_VENV":    venvPath,
	}
	return hooks.Run(ctx, lifecycleHooks, hooks.EventPostExtensionInstall, root, varContext)
}

// mcpServerFile is the JSON shape a provides.mcp file is expected to
// contain: server name -> canonical server definition, using the same
// field names as mcpinstall.McpServerConfig's JSON projection.
type mcpServerFile struct {
	Transport string            `json:"transport"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Cwd       string            `json:"cwd,omitempty"`
	URL       string            `json:"url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

func installExtensionMCP(root, src, venvPath, extName, mcpRelPath string, toolSlugs []string) ([]ledger.Projection, error) {
	mcpPath := filepath.Join(src, filepath.FromSlash(mcpRelPath))
	data, err := pathio.ReadText(mcpPath)
	if err != nil {
		return nil, &errs.SchemaError{Path: mcpPath, Reason: err.Error()}
	}

	pythonBin := venvPythonPath(venvPath)
	replacer := strings.NewReplacer("{{runtime.python}}", pythonBin, "{{root}}", root)
	data = replacer.Replace(data)

	var raw map[string]mcpServerFile
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, &errs.SchemaError{Path: mcpPath, Reason: err.Error()}
	}

	var projections []ledger.Projection
	for name, entry := range raw {
		cfg := mcpinstall.McpServerConfig{
			Transport: mcpinstall.Transport(entry.Transport),
			Command:   entry.Command,
			Args:      entry.Args,
			Cwd:       entry.Cwd,
			URL:       entry.URL,
			Headers:   entry.Headers,
			Env:       entry.Env,
		}
		serverName := fmt.Sprintf("%s:%s", extName, name)
		for _, toolSlug := range toolSlugs {
			proj, err := mcpinstall.Install(root, toolSlug, serverName, cfg)
			if err != nil {
				return nil, err
			}
			projections = append(projections, proj)
		}
	}
	return projections, nil
}

func extractExitCode(err error) int {
	type exitCoder interface{ ExitCode() int }
	if ec, ok := err.(exitCoder); ok {
		return ec.ExitCode()
	}
	return 1
}
