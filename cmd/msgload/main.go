package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/vvka-141/msgload/internal/cli"
	"github.com/vvka-141/msgload/pkg/msgload"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(msgload.ExitPanic)
		}
	}()

	if err := cli.Execute(); err != nil {
		os.Exit(msgload.ExitCodeForError(err))
	}
}
