// Package errs defines the typed error taxonomy that every component in
// the orchestrator raises, so that command handlers can map a failure to
// one of the exit codes in the CLI contract via errors.As instead of
// string-matching error messages.
package errs

import (
	"errors"
	"fmt"
)

// IoError wraps a filesystem operation failure. Raised by pathio and ledger.
type IoError struct {
	Path string
	Kind string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error (%s) at %s: %v", e.Kind, e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// LockTimeout is raised when a sidecar lock could not be acquired within
// the backoff budget.
type LockTimeout struct {
	Path string
}

func (e *LockTimeout) Error() string {
	return fmt.Sprintf("timed out waiting for lock on %s (use --force to override)", e.Path)
}

// SchemaError is raised when the manifest or an extension manifest fails
// validation. Fatal for the enclosing command.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error in %s: %s", e.Path, e.Reason)
}

// DuplicateBlock is raised when two start markers share a UUID in one file.
type DuplicateBlock struct {
	UUID string
	File string
}

func (e *DuplicateBlock) Error() string {
	return fmt.Sprintf("duplicate managed block %s in %s", e.UUID, e.File)
}

// MalformedBlock is raised for an orphan marker (a start marker with no
// end marker, or an end marker with no start marker) or an unparsable
// structured-format managed section. Non-fatal: the affected file is
// skipped and the tool's sync is aborted, other tools proceed.
type MalformedBlock struct {
	UUID   string
	File   string
	Reason string
}

func (e *MalformedBlock) Error() string {
	return fmt.Sprintf("malformed managed block %s in %s: %s", e.UUID, e.File, e.Reason)
}

// DriftDetected is raised by check() reporting, surfaced with a non-zero
// exit code rather than an error return (check() itself never fails on
// drift — this type exists so CLI handlers have something to errors.As
// against when converting a CheckReport into an exit code).
type DriftDetected struct {
	Count int
}

func (e *DriftDetected) Error() string {
	return fmt.Sprintf("%d projection(s) drifted from their recorded state", e.Count)
}

// FetchFailed is raised when an extension's source could not be cloned or
// copied.
type FetchFailed struct {
	Source string
	Err    error
}

func (e *FetchFailed) Error() string {
	return fmt.Sprintf("failed to fetch extension source %q: %v", e.Source, e.Err)
}

func (e *FetchFailed) Unwrap() error { return e.Err }

// VersionConstraintNotSatisfied is raised when the resolved Python does not
// satisfy an extension's requires.python.version constraint.
type VersionConstraintNotSatisfied struct {
	Constraint string
	Actual     string
}

func (e *VersionConstraintNotSatisfied) Error() string {
	return fmt.Sprintf("python %s does not satisfy constraint %q", e.Actual, e.Constraint)
}

// PackageManagerNotFound is raised when a declared runtime.package_manager
// is not on PATH.
type PackageManagerNotFound struct {
	Tool string
	Hint string
}

func (e *PackageManagerNotFound) Error() string {
	return fmt.Sprintf("package manager %q not found on PATH (%s)", e.Tool, e.Hint)
}

// InvalidVenvPath is raised when an extension manifest's venv_path escapes
// its source directory or is absolute.
type InvalidVenvPath struct {
	Path string
}

func (e *InvalidVenvPath) Error() string {
	return fmt.Sprintf("invalid venv_path %q: must be relative and confined to the extension source", e.Path)
}

// InvalidPackageManager is raised when runtime.package_manager is not one
// of the accepted values.
type InvalidPackageManager struct {
	Value string
}

func (e *InvalidPackageManager) Error() string {
	return fmt.Sprintf("invalid package_manager %q: must be one of uv, pip, npm, yarn, pnpm, cargo, bun", e.Value)
}

// InstallFailed is raised when an extension's install string exits non-zero.
type InstallFailed struct {
	Name     string
	Command  string
	ExitCode int
}

func (e *InstallFailed) Error() string {
	return fmt.Sprintf("extension %q install command %q failed with exit code %d", e.Name, e.Command, e.ExitCode)
}

// HookFailed is raised when a lifecycle hook exits non-zero. Raised after
// the triggering command's file writes have already committed.
type HookFailed struct {
	Event    string
	Command  string
	ExitCode int
}

func (e *HookFailed) Error() string {
	return fmt.Sprintf("hook for event %q (%q) failed with exit code %d", e.Event, e.Command, e.ExitCode)
}

// ExitCode maps an error produced by this package to the CLI contract's
// exit code (0 is reserved for success and is never returned here),
// unwrapping through fmt.Errorf("...: %w", err) chains via errors.As.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var schemaErr *SchemaError
	var driftErr *DriftDetected
	var installErr *InstallFailed
	var fetchErr *FetchFailed
	var versionErr *VersionConstraintNotSatisfied
	var pkgMgrErr *PackageManagerNotFound
	var venvErr *InvalidVenvPath
	var pkgValErr *InvalidPackageManager
	var hookErr *HookFailed
	var lockErr *LockTimeout

	switch {
	case errors.As(err, &schemaErr):
		return 2
	case errors.As(err, &driftErr):
		return 3
	case errors.As(err, &installErr), errors.As(err, &fetchErr), errors.As(err, &versionErr),
		errors.As(err, &pkgMgrErr), errors.As(err, &venvErr), errors.As(err, &pkgValErr):
		return 4
	case errors.As(err, &hookErr):
		return 5
	case errors.As(err, &lockErr):
		return 6
	default:
		return 1
	}
}
