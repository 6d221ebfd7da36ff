package extension

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	goruntime "runtime"
	"strings"
)

// venvPythonPath returns the interpreter path inside venvDir for the host
// OS's venv layout.
func venvPythonPath(venvDir string) string {
	if goruntime.GOOS == "windows" {
		return venvDir + `\Scripts\python.exe`
	}
	return venvDir + "/bin/python"
}

// ResolveSystemPython finds a Python interpreter and its version string,
// preferring `uv python find` when uv is on PATH since it respects
// .python-version and uv-managed toolchains, falling back to `python3
// --version`. Exported so internal/manifest/preset's "env:python" provider
// can reuse this exact probe instead of a second implementation.
func ResolveSystemPython(ctx context.Context) (pythonPath, version string, err error) {
	if _, lookErr := exec.LookPath("uv"); lookErr == nil {
		out, runErr := exec.CommandContext(ctx, "uv", "python", "find").Output()
		if runErr == nil {
			pythonPath = strings.TrimSpace(string(out))
			if v, verErr := pythonVersionOf(ctx, pythonPath); verErr == nil {
				return pythonPath, v, nil
			}
		}
	}

	pythonPath = "python3"
	if _, lookErr := exec.LookPath("python3"); lookErr != nil {
		pythonPath = "python"
	}
	version, err = pythonVersionOf(ctx, pythonPath)
	return pythonPath, version, err
}

// pythonVersionOf runs `{python} --version` and extracts the dotted
// numeric release, e.g. "Python 3.11.4\n" -> "3.11.4".
func pythonVersionOf(ctx context.Context, pythonPath string) (string, error) {
	cmd := exec.CommandContext(ctx, pythonPath, "--version")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s --version: %w", pythonPath, err)
	}
	fields := strings.Fields(out.String())
	if len(fields) < 2 {
		return "", fmt.Errorf("unexpected `%s --version` output: %q", pythonPath, out.String())
	}
	return fields[len(fields)-1], nil
}

// createVenv runs `uv venv` in sourceDir, targeting venvDir, optionally
// pinned to a "{major}.{minor}" selector.
func createVenv(ctx context.Context, sourceDir, venvDir, selector string) error {
	args := []string{"venv"}
	if selector != "" {
		args = append(args, "--python", selector)
	}
	args = append(args, venvDir)

	cmd := exec.CommandContext(ctx, "uv", args...)
	cmd.Dir = sourceDir
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error { return cmd.Process.Kill() }
	return cmd.Run()
}

// runInstall executes an extension's runtime.install string in sourceDir
// through the platform shell (§4.7: "shell = sh -c / cmd /C"), streaming
// output and inheriting the parent environment plus the extension
// identity variables.
func runInstall(ctx context.Context, installStr, sourceDir string, env map[string]string) error {
	var cmd *exec.Cmd
	if goruntime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", installStr)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", installStr)
	}
	cmd.Dir = sourceDir
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error { return cmd.Process.Kill() }

	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	return cmd.Run()
}
