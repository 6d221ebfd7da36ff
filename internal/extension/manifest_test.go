package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExtensionTOML = `
[extension]
name = "vaultspec"
version = "1.2.0"

[requires.python]
version = ">=3.10"

[runtime]
type = "python"
package_manager = "uv"
venv_path = ".venv"
install = "uv sync"

[provides]
mcp = "mcp.json"
`

func TestParseManifestValid(t *testing.T) {
	m, err := ParseManifest("repo_extension.toml", sampleExtensionTOML)
	require.NoError(t, err)
	assert.Equal(t, "vaultspec", m.Extension.Name)
	assert.Equal(t, RuntimePython, m.Runtime.Type)
	assert.Equal(t, "uv", m.Runtime.PackageManager)
	assert.Equal(t, "mcp.json", m.Provides.MCP)
}

func TestParseManifestRejectsAbsoluteVenvPath(t *testing.T) {
	doc := `
[extension]
name = "x"
version = "1.0.0"
[runtime]
type = "python"
venv_path = "/abs/venv"
`
	_, err := ParseManifest("repo_extension.toml", doc)
	assert.Error(t, err)
}

func TestParseManifestRejectsEscapingVenvPath(t *testing.T) {
	doc := `
[extension]
name = "x"
version = "1.0.0"
[runtime]
type = "python"
venv_path = "../escape"
`
	_, err := ParseManifest("repo_extension.toml", doc)
	assert.Error(t, err)
}

func TestParseManifestRejectsInvalidPackageManager(t *testing.T) {
	doc := `
[extension]
name = "x"
version = "1.0.0"
[runtime]
type = "python"
package_manager = "conda"
`
	_, err := ParseManifest("repo_extension.toml", doc)
	assert.Error(t, err)
}

func TestParseManifestRejectsInvalidPythonConstraint(t *testing.T) {
	doc := `
[extension]
name = "x"
version = "1.0.0"
[requires.python]
version = "^3.11"
[runtime]
type = "python"
`
	_, err := ParseManifest("repo_extension.toml", doc)
	assert.Error(t, err)
}

func TestParseManifestRequiresNameAndVersion(t *testing.T) {
	_, err := ParseManifest("repo_extension.toml", `[runtime]
type = "node"
`)
	assert.Error(t, err)
}
