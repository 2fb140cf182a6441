package main

import (
	"fmt"
	"os"

	"github.com/declarr/declarr/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if !cmd.IsExitStatus(err) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(cmd.ExitCode(err))
	}
}
