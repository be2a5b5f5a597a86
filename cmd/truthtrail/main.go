// Command truthtrail runs the team fact-checking quiz.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/truthtrail/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
