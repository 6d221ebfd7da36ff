// Package hooks implements C9: invoking user-configured shell commands on
// orchestrator lifecycle events, with ${VAR} substitution from a
// per-event context map.
package hooks

import (
	"context"
	"os"
	"os/exec"
	"regexp"

	"github.com/wgergely/repository-manager-sub008/internal/errs"
	"github.com/wgergely/repository-manager-sub008/internal/logger"
)

var log = logger.New("hooks")

// Event is one lifecycle point a hook can be attached to.
type Event string

const (
	EventPreBranchCreate      Event = "pre-branch-create"
	EventPostBranchCreate     Event = "post-branch-create"
	EventPreBranchDelete      Event = "pre-branch-delete"
	EventPostBranchDelete     Event = "post-branch-delete"
	EventPreSync              Event = "pre-sync"
	EventPostSync             Event = "post-sync"
	EventPostExtensionInstall Event = "post-extension-install"
)

// Hook is one configured lifecycle command.
type Hook struct {
	Event      Event
	Command    string
	Args       []string
	WorkingDir string // default: repo root
}

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substitute replaces every ${VAR} token in s with context[VAR], leaving
// unrecognized tokens untouched so a typo surfaces instead of silently
// vanishing.
func substitute(s string, context map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(token string) string {
		name := varPattern.FindStringSubmatch(token)[1]
		if value, ok := context[name]; ok {
			return value
		}
		return token
	})
}

// Run executes every hook matching event, in declaration order, failing
// fast on the first non-zero exit (§4.9: "no concurrent hooks for the
// same event"). root is the default working directory for a hook that
// does not declare its own.
func Run(ctx context.Context, hooksList []Hook, event Event, root string, varContext map[string]string) error {
	for _, h := range hooksList {
		if h.Event != event {
			continue
		}
		if err := runOne(ctx, h, root, varContext); err != nil {
			return err
		}
	}
	return nil
}

func runOne(ctx context.Context, h Hook, root string, varContext map[string]string) error {
	command := substitute(h.Command, varContext)
	args := make([]string, len(h.Args))
	for i, a := range h.Args {
		args[i] = substitute(a, varContext)
	}

	workingDir := h.WorkingDir
	if workingDir == "" {
		workingDir = root
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = workingDir
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	log.Printf("running hook %s: %s", h.Event, command)
	if err := cmd.Run(); err != nil {
		exitCode := 1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return &errs.HookFailed{Event: string(h.Event), Command: command, ExitCode: exitCode}
	}
	return nil
}
