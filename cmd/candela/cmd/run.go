package cmd

import (
	"fmt"
	"os"

	"github.com/candela-lang/candela/internal/pipeline"
	"github.com/candela-lang/candela/internal/pool"
	"github.com/spf13/cobra"
)

var (
	evalExpr   string
	runBackend string
	numWorkers int
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a candela source file or expression",
	Long: `Execute a candela program from a file or inline expression.

Examples:
  # Run a script file
  candela run script.cdl

  # Evaluate an inline expression
  candela run -e "(+ 1 2)"

  # Run through the bytecode VM instead of the tree-walking evaluator
  candela run --backend vm script.cdl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "evaluate inline code instead of reading from file")
	runCmd.Flags().StringVar(&runBackend, "backend", "tree", "evaluator back end: tree or vm")
	runCmd.Flags().IntVarP(&numWorkers, "workers", "w", 0, "worker pool size (default: number of CPUs)")
}

func runScript(_ *cobra.Command, args []string) error {
	var input, filename string
	switch {
	case evalExpr != "":
		input, filename = evalExpr, "<eval>"
	case len(args) == 1:
		filename = args[0]
		content, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", filename, err)
		}
		input = string(content)
	default:
		return fmt.Errorf("either provide a file path or use -e flag for inline code")
	}

	backend, err := parseBackend(runBackend)
	if err != nil {
		return err
	}

	p := pool.New(numWorkers, nil)
	defer p.Shutdown()

	pl := pipeline.Boot(backend, p)
	th := pl.Env.NewThread()

	if verbose {
		fmt.Fprintf(os.Stderr, "[running %s through %s backend]\n", filename, runBackend)
	}

	if _, err := pl.EvalString(th, filename, input, nil); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return fmt.Errorf("execution failed")
	}
	return nil
}

func parseBackend(name string) (pipeline.Backend, error) {
	switch name {
	case "", "tree", "treewalk":
		return pipeline.BackendTreeWalk, nil
	case "vm", "bytecode":
		return pipeline.BackendVM, nil
	default:
		return 0, fmt.Errorf("unknown backend %q (want tree or vm)", name)
	}
}
