// Command repoctl is the orchestrator's entry point: it wires the cobra
// command tree built by internal/cli to the process's argv/exit code,
// mirroring cmd/gh-aw/main.go's own thin main().
package main

import (
	"fmt"
	"os"

	"github.com/wgergely/repository-manager-sub008/internal/cli"
	"github.com/wgergely/repository-manager-sub008/internal/console"
	"github.com/wgergely/repository-manager-sub008/internal/errs"
)

var version = "dev"

func main() {
	cli.SetVersion(version)
	root := cli.NewRootCommand()

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, console.Error(err.Error()))
		os.Exit(errs.ExitCode(err))
	}
}
