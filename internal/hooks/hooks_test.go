package hooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstituteReplacesKnownVars(t *testing.T) {
	out := substitute("hello ${NAME}, root=${ROOT}", map[string]string{"NAME": "world", "ROOT": "/tmp"})
	assert.Equal(t, "hello world, root=/tmp", out)
}

func TestSubstituteLeavesUnknownVarsUntouched(t *testing.T) {
	out := substitute("value=${MISSING}", map[string]string{})
	assert.Equal(t, "value=${MISSING}", out)
}

func TestRunExecutesMatchingEventOnly(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran.txt")

	list := []Hook{
		{Event: EventPostSync, Command: "touch", Args: []string{marker}},
		{Event: EventPreSync, Command: "touch", Args: []string{filepath.Join(dir, "should-not-run.txt")}},
	}

	err := Run(context.Background(), list, EventPostSync, dir, nil)
	require.NoError(t, err)

	_, statErr := os.Stat(marker)
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(dir, "should-not-run.txt"))
	assert.Error(t, statErr)
}

func TestRunFailsFastOnNonZeroExit(t *testing.T) {
	list := []Hook{{Event: EventPostSync, Command: "false"}}
	err := Run(context.Background(), list, EventPostSync, t.TempDir(), nil)
	require.Error(t, err)
}

func TestRunSubstitutesArgsFromContext(t *testing.T) {
	dir := t.TempDir()
	list := []Hook{{Event: EventPostExtensionInstall, Command: "sh", Args: []string{"-c", "echo ${EXTENSION_NAME} > " + filepath.Join(dir, "out.txt")}}}

	err := Run(context.Background(), list, EventPostExtensionInstall, dir, map[string]string{"EXTENSION_NAME": "vaultspec"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "vaultspec")
}
