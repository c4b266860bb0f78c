// Package main is the entry point for the logistix CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/runger/logistix/internal/cmd"
)

func main() {
	err := cmd.Execute()
	if err == nil {
		return
	}
	// A bare exit code (cancelled pick) is not an error worth printing.
	var ee *cmd.ExitError
	if !errors.As(err, &ee) || ee.Err != nil {
		fmt.Fprintf(os.Stderr, "logistix: %v\n", err)
	}
	os.Exit(cmd.ExitCode(err))
}
