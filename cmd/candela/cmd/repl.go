package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/candela-lang/candela/internal/ast"
	"github.com/candela-lang/candela/internal/pipeline"
	"github.com/candela-lang/candela/internal/pool"
	"github.com/candela-lang/candela/internal/runtime"
	"github.com/spf13/cobra"
)

var replBackend string

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive candela read-eval-print loop",
	RunE:  runREPL,
}

func init() {
	rootCmd.AddCommand(replCmd)
	replCmd.Flags().StringVar(&replBackend, "backend", "tree", "evaluator back end: tree or vm")
}

// runREPL reads one line at a time from stdin and feeds it through
// Pipeline.EvalString with a FormObserver that prints every top-level
// result, the way a Lisp REPL interleaves prompt/result/prompt (spec.md
// §4.7's stated reason for FormObserver existing at all).
func runREPL(_ *cobra.Command, _ []string) error {
	backend, err := parseBackend(replBackend)
	if err != nil {
		return err
	}

	p := pool.New(numWorkers, nil)
	defer p.Shutdown()

	pl := pipeline.Boot(backend, p)
	th := pl.Env.NewThread()

	obs := func(node ast.Node, result runtime.Value, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			return
		}
		if result != nil {
			fmt.Println(runtime.PrStr(result))
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprint(os.Stderr, "user=> ")
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			if _, err := pl.EvalString(th, "<repl>", line, obs); err != nil {
				// obs already printed it; EvalString stops at the first
				// error within one line, matching a Clojure REPL's
				// per-form error isolation.
			}
		}
		fmt.Fprint(os.Stderr, "user=> ")
	}
	fmt.Fprintln(os.Stderr)
	return scanner.Err()
}
