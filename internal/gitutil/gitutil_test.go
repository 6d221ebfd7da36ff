package gitutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError("fatal: Authentication failed"))
	assert.True(t, IsAuthError("remote: Permission denied"))
	assert.False(t, IsAuthError("fatal: repository not found"))
}

func TestIsHexString(t *testing.T) {
	assert.True(t, IsHexString("deadbeef"))
	assert.True(t, IsHexString("1234567890abcdefABCDEF"))
	assert.False(t, IsHexString(""))
	assert.False(t, IsHexString("not-hex!"))
}

func TestIsGitSource(t *testing.T) {
	assert.True(t, IsGitSource("git+https://example.com/vaultspec"))
	assert.True(t, IsGitSource("https://example.com/vaultspec.git"))
	assert.False(t, IsGitSource("./local/vault"))
	assert.False(t, IsGitSource("/abs/local/vault"))
}

func TestStripGitScheme(t *testing.T) {
	assert.Equal(t, "https://example.com/vaultspec", StripGitScheme("git+https://example.com/vaultspec"))
	assert.Equal(t, "./local/vault", StripGitScheme("./local/vault"))
}

func TestCopyLocalCopiesTree(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "file.txt"), []byte("hello"), 0o644))

	dest := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyLocal(src, dest))

	data, err := os.ReadFile(filepath.Join(dest, "sub", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
