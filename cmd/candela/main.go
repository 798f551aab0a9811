// Command candela is the CLI entry point: run, repl, compile, and
// compare subcommands live in ./cmd, mirroring the teacher's
// cmd/dwscript binary's cobra-driven layout.
package main

import (
	"fmt"
	"os"

	"github.com/candela-lang/candela/cmd/candela/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
