package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/upk240z/zipimport/internal/cli"
	"github.com/upk240z/zipimport/pkg/zipimport"
)

func main() {
	// Recover from panics to exit non-zero with a stack trace
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(zipimport.ExitFailure)
		}
	}()

	if err := cli.Execute(); err != nil {
		os.Exit(zipimport.ExitCodeForError(err))
	}
}
