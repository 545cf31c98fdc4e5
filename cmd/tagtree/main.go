// Command tagtree interns position sets as canonical labels backed by a
// SQLite op log.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tagtree/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
