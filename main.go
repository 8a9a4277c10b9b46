package main

import (
	"fmt"
	"os"

	"github.com/temirov/obsenv/cmd/cli"
)

const failureExitCodeConstant = 1

// main runs obsenv and maps any returned error to a non-zero exit status.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintln(os.Stderr, executionError)
		os.Exit(failureExitCodeConstant)
	}
}
