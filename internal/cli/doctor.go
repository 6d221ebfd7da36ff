package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wgergely/repository-manager-sub008/internal/console"
	"github.com/wgergely/repository-manager-sub008/internal/syncengine"
)

// staleLockAge is how long a sidecar .lock file may sit un-acquirable
// before doctor flags it as possibly abandoned; pathio guards are only
// ever held for the span of one load/mutate/save cycle.
const staleLockAge = 10 * time.Minute

// diagnostic is one environment check doctor performs.
type diagnostic struct {
	Name   string `yaml:"name"`
	OK     bool   `yaml:"ok"`
	Detail string `yaml:"detail"`
}

// NewDoctorCommand probes the local environment for the external tools C7
// (extension installer) and C9 (hook runner) shell out to, surfacing
// actionable "not found" messages before a sync/extension-install
// subprocess call fails on its own.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the local environment, lock staleness, and projection health",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := repoRoot(mustFlagString(cmd, "root"))
			if err != nil {
				return err
			}
			yamlFlag, _ := cmd.Flags().GetBool("yaml")
			return runDoctor(root, yamlFlag)
		},
	}
	cmd.Flags().Bool("yaml", false, "Output the report as YAML instead of plain text")
	return cmd
}

func runDoctor(root string, asYAML bool) error {
	checks := []diagnostic{
		probeOnPath("git"),
		probeOnPath("uv"),
		probeOnPath("python3"),
		probeOnPath("sh"),
	}
	checks = append(checks, probeLockStaleness(root)...)
	checks = append(checks, probeProjectionHealth(root))

	if asYAML {
		// gopkg.in/yaml.v3's plain Marshal is enough here: doctor's report
		// is a flat, fixed-shape slice with no custom field errors worth
		// goccy's richer diagnostics (those are reserved for the general
		// --format=yaml path in output.go, which renders arbitrary report
		// structs).
		data, err := yaml.Marshal(checks)
		if err != nil {
			return fmt.Errorf("doctor: %w", err)
		}
		fmt.Print(string(data))
		return nil
	}

	for _, d := range checks {
		if d.OK {
			fmt.Println(console.Success(fmt.Sprintf("%s: %s", d.Name, d.Detail)))
		} else {
			fmt.Println(console.Error(fmt.Sprintf("%s: %s", d.Name, d.Detail)))
		}
	}
	return nil
}

func probeOnPath(tool string) diagnostic {
	path, err := exec.LookPath(tool)
	if err != nil {
		return diagnostic{Name: tool, OK: false, Detail: "not found on PATH"}
	}
	return diagnostic{Name: tool, OK: true, Detail: path}
}

// probeLockStaleness checks every sidecar .lock file pathio creates
// alongside this module's TOML files. A lock that cannot be acquired and
// is older than staleLockAge suggests a crashed process never released it;
// a lock that is either acquirable or recent is healthy either way.
func probeLockStaleness(root string) []diagnostic {
	dir := filepath.Join(root, ".repository")
	candidates := []string{
		filepath.Join(dir, "config.toml.lock"),
		filepath.Join(dir, "config.local.toml.lock"),
		filepath.Join(dir, "ledger.toml.lock"),
		filepath.Join(dir, "rules", "registry.toml.lock"),
		filepath.Join(dir, "extensions.lock.lock"),
	}

	var checks []diagnostic
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		fl := flock.New(path)
		locked, lockErr := fl.TryLock()
		if lockErr == nil && locked {
			_ = fl.Unlock()
			checks = append(checks, diagnostic{Name: path, OK: true, Detail: "unlocked"})
			continue
		}

		age := time.Since(info.ModTime())
		if age > staleLockAge {
			checks = append(checks, diagnostic{
				Name: path, OK: false,
				Detail: fmt.Sprintf("held for %s, possibly abandoned by a crashed process", age.Round(time.Second)),
			})
		} else {
			checks = append(checks, diagnostic{Name: path, OK: true, Detail: "held, in use"})
		}
	}
	return checks
}

// probeProjectionHealth delegates to check(), collapsing its per-projection
// results into one pass/fail line: ledger/manifest/filesystem triad health,
// the way the teacher spreads diagnostics across status/audit.
func probeProjectionHealth(root string) diagnostic {
	report, err := syncengine.NewEngine(root).Check()
	if err != nil {
		return diagnostic{Name: "projections", OK: false, Detail: err.Error()}
	}
	unhealthy := report.Counts[string(syncengine.StatusMissing)] +
		report.Counts[string(syncengine.StatusDrifted)] +
		report.Counts[string(syncengine.StatusBroken)]
	if unhealthy == 0 {
		return diagnostic{Name: "projections", OK: true, Detail: fmt.Sprintf("%d healthy", report.Counts[string(syncengine.StatusHealthy)])}
	}
	return diagnostic{Name: "projections", OK: false, Detail: fmt.Sprintf("%d unhealthy, run `repoctl check` for detail", unhealthy)}
}
