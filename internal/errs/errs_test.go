package errs

import (
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"schema", &SchemaError{Path: "x", Reason: "bad"}, 2},
		{"drift", &DriftDetected{Count: 2}, 3},
		{"install", &InstallFailed{Name: "x", ExitCode: 1}, 4},
		{"version", &VersionConstraintNotSatisfied{Constraint: ">=3.12", Actual: "3.10"}, 4},
		{"hook", &HookFailed{Event: "post-sync", ExitCode: 1}, 5},
		{"lock", &LockTimeout{Path: "/tmp/x.lock"}, 6},
		{"wrapped schema", fmt.Errorf("sync: %w", &SchemaError{Path: "x", Reason: "bad"}), 2},
		{"generic", fmt.Errorf("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
