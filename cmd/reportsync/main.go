// Command reportsync runs the cloud sync transport and the edge tooling.
package main

import (
	"fmt"
	"os"

	"github.com/thimbleforth/ditto-fde-takehome/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
