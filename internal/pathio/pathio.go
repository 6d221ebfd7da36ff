// Package pathio implements C1: path normalization and atomic, locked
// filesystem mutation. Every write the orchestrator performs — manifest,
// ledger, managed-block edits, lock files — goes through WriteAtomic so
// that a crash never leaves a target file partially written.
package pathio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/wgergely/repository-manager-sub008/internal/errs"
	"github.com/wgergely/repository-manager-sub008/internal/logger"
)

var log = logger.New("pathio")

// Normalize folds "." segments, drops leading ".." segments (sandbox
// discipline — callers must not be able to escape above the root they pass
// in) and returns a forward-slash internal form, lowercasing a Windows
// drive letter if present.
func Normalize(path string) string {
	cleaned := filepath.ToSlash(filepath.Clean(path))
	for strings.HasPrefix(cleaned, "../") {
		cleaned = strings.TrimPrefix(cleaned, "../")
	}
	cleaned = strings.TrimPrefix(cleaned, "..")
	if len(cleaned) >= 2 && cleaned[1] == ':' {
		cleaned = strings.ToLower(cleaned[:1]) + cleaned[1:]
	}
	return cleaned
}

// rejectSymlinkEscape walks every ancestor directory of path and fails if
// any of them is a symlink, refusing to write through a symlinked
// directory to somewhere outside the caller's intended tree.
func rejectSymlinkEscape(path string) error {
	dir := filepath.Dir(path)
	for {
		info, err := os.Lstat(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				parent := filepath.Dir(dir)
				if parent == dir {
					return nil
				}
				dir = parent
				continue
			}
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return &errs.IoError{Path: path, Kind: "symlink-escape", Err: fmt.Errorf("ancestor %s is a symlink", dir)}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

// WriteAtomic writes bytes to path via a sibling temp file, fsync, and
// rename, guarded by a sidecar path+".lock" flock held exclusively for the
// duration. The rename is retried with exponential backoff on transient
// failures (observed primarily on Windows). On any error the temp file is
// removed and the target is left untouched — never partially written.
//
// Use this for a one-shot write. A caller that already holds a Guard from
// AcquireExclusive(path) spanning a read-modify-write cycle (the ledger and
// manifest save paths) must use WriteAtomicLocked instead — acquiring the
// same sidecar lock twice from one process would self-block until the lock
// timeout.
func WriteAtomic(path string, data []byte) error {
	guard, err := AcquireExclusive(path)
	if err != nil {
		return err
	}
	defer guard.Release()
	return WriteAtomicLocked(path, data)
}

// WriteAtomicLocked performs the temp-file-write-fsync-rename sequence
// without acquiring a lock, for callers that already hold the exclusive
// guard on path (or path's logical equivalent) for the duration of a
// larger read-modify-write critical section.
func WriteAtomicLocked(path string, data []byte) error {
	if err := rejectSymlinkEscape(path); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &errs.IoError{Path: path, Kind: "mkdir", Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return &errs.IoError{Path: path, Kind: "create-temp", Err: err}
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &errs.IoError{Path: path, Kind: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &errs.IoError{Path: path, Kind: "fsync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &errs.IoError{Path: path, Kind: "close", Err: err}
	}

	if err := renameWithBackoff(tmpPath, path); err != nil {
		return &errs.IoError{Path: path, Kind: "rename", Err: err}
	}
	cleanup = false

	log.Printf("wrote %d bytes to %s", len(data), path)
	return nil
}

// renameWithBackoff retries os.Rename a handful of times with exponential
// backoff; Windows in particular can transiently fail a rename over an
// open file handle held by an antivirus scanner or a lingering reader.
func renameWithBackoff(src, dst string) error {
	delay := 5 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		if err := os.Rename(src, dst); err != nil {
			lastErr = err
			time.Sleep(delay)
			delay *= 2
			continue
		}
		return nil
	}
	return lastErr
}

// ReadText reads path and returns its contents as a string.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &errs.IoError{Path: path, Kind: "read", Err: err}
	}
	return string(data), nil
}

// Remove deletes path. Removing a file that does not exist is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &errs.IoError{Path: path, Kind: "remove", Err: err}
	}
	return nil
}

// Guard releases a held lock on scope exit.
type Guard struct {
	flock *flock.Flock
}

// Release unlocks the guard's lock file. Safe to call once; callers
// typically defer it immediately after acquiring.
func (g *Guard) Release() {
	if g.flock != nil {
		_ = g.flock.Unlock()
	}
}

const (
	lockRetryInterval = 50 * time.Millisecond
	lockTimeout       = 10 * time.Second
)

// AcquireShared acquires a shared (read) lock on path+".lock", permitting
// many concurrent readers but excluding any exclusive writer.
func AcquireShared(path string) (*Guard, error) {
	return acquire(path, false)
}

// AcquireExclusive acquires an exclusive (write) lock on path+".lock".
func AcquireExclusive(path string) (*Guard, error) {
	return acquire(path, true)
}

func acquire(path string, exclusive bool) (*Guard, error) {
	lockPath := path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, &errs.IoError{Path: lockPath, Kind: "mkdir", Err: err}
	}
	fl := flock.New(lockPath)

	deadline := time.Now().Add(lockTimeout)
	for {
		var ok bool
		var err error
		if exclusive {
			ok, err = fl.TryLock()
		} else {
			ok, err = fl.TryRLock()
		}
		if err != nil {
			return nil, &errs.IoError{Path: lockPath, Kind: "lock", Err: err}
		}
		if ok {
			return &Guard{flock: fl}, nil
		}
		if time.Now().After(deadline) {
			return nil, &errs.LockTimeout{Path: lockPath}
		}
		time.Sleep(lockRetryInterval)
	}
}
