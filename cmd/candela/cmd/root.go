// Package cmd holds candela's cobra command tree, one command per file,
// generalizing the teacher's cmd/dwscript/cmd layout (root.go owning the
// shared rootCmd/Execute/exitWithError, one file per subcommand) from
// DWScript's lex→parse→(semantic)→interp-or-compile pipeline to
// candela's read→analyze→evaluate pipeline over two evaluator back-ends.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "candela",
	Short: "candela runtime core interpreter",
	Long: `candela is the runtime core of a Clojure-dialect interpreter: a
tagged value representation, a numeric tower, central function dispatch,
Var/dynamic-binding machinery, a worker pool with agent/future semantics,
and a read-analyze-evaluate pipeline driving both a tree-walking
evaluator and a bytecode-compiler-and-VM back end.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
