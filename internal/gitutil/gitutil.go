// Package gitutil provides the git and filesystem fetch helpers the
// extension installer (C7) uses to bring a declared extension's source
// onto disk, plus small string-classification helpers shared with error
// reporting.
package gitutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/wgergely/repository-manager-sub008/internal/errs"
	"github.com/wgergely/repository-manager-sub008/internal/logger"
)

var log = logger.New("gitutil")

// IsAuthError reports whether errMsg indicates an authentication failure
// rather than another kind of git error.
func IsAuthError(errMsg string) bool {
	lowerMsg := strings.ToLower(errMsg)
	return strings.Contains(lowerMsg, "gh_token") ||
		strings.Contains(lowerMsg, "github_token") ||
		strings.Contains(lowerMsg, "authentication") ||
		strings.Contains(lowerMsg, "not logged into") ||
		strings.Contains(lowerMsg, "unauthorized") ||
		strings.Contains(lowerMsg, "forbidden") ||
		strings.Contains(lowerMsg, "permission denied")
}

// IsHexString reports whether s contains only hexadecimal characters,
// used to validate a pinned ref that looks like a commit SHA.
func IsHexString(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// CloneRef clones source at ref into dest. dest must not already exist.
// Runs with stdin closed and the parent's environment inherited; the
// subprocess is killed if the context is canceled.
func CloneRef(ctx context.Context, source, ref, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &errs.FetchFailed{Source: source, Err: err}
	}

	args := []string{"clone", "--quiet", source, dest}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error { return cmd.Process.Kill() }

	if err := cmd.Run(); err != nil {
		return &errs.FetchFailed{Source: source, Err: err}
	}

	if ref != "" {
		checkout := exec.CommandContext(ctx, "git", "-C", dest, "checkout", "--quiet", ref)
		checkout.Stdout = os.Stdout
		checkout.Stderr = os.Stderr
		if err := checkout.Run(); err != nil {
			return &errs.FetchFailed{Source: source, Err: fmt.Errorf("checkout %s: %w", ref, err)}
		}
	}

	log.Printf("cloned %s@%s into %s", source, ref, dest)
	return nil
}

// CopyLocal copies the directory tree at src into dest, used when an
// extension's source is a local path rather than a git URL.
func CopyLocal(src, dest string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dest string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// IsGitSource reports whether source names a git remote rather than a
// local filesystem path, by the "git+" scheme prefix the manifest uses
// (§4.7) or a recognizable transport prefix.
func IsGitSource(source string) bool {
	return strings.HasPrefix(source, "git+") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "git@") ||
		strings.HasPrefix(source, "ssh://")
}

// StripGitScheme removes the manifest's "git+" prefix, if present, so the
// remainder can be handed to the git binary directly.
func StripGitScheme(source string) string {
	return strings.TrimPrefix(source, "git+")
}
