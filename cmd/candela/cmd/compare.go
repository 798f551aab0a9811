package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/candela-lang/candela/internal/lifecycle"
	"github.com/candela-lang/candela/internal/pipeline"
	"github.com/candela-lang/candela/internal/pool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	serveMetrics bool
	metricsAddr  string
)

var compareCmd = &cobra.Command{
	Use:   "compare [file]",
	Short: "Run every form in file through both evaluator back ends and diff the results",
	Long: `Compare reads and analyzes every top-level form in file, runs each one
through both the tree-walking evaluator and the bytecode VM, and reports
any mismatch (spec.md §4.8's EvalEngine). This is candela's primary
regression harness against the dual-backend design staying coherent.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().BoolVar(&serveMetrics, "serve-metrics", false, "after comparing, block and serve pool metrics on an HTTP /metrics endpoint until interrupted")
	compareCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9400", "listen address for --serve-metrics")
}

func runCompare(_ *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	reg := prometheus.NewRegistry()
	p := pool.New(numWorkers, reg)

	// Comparisons run against the tree-walk evaluator's dispatch backend;
	// Pipeline.Compare drives the VM side directly regardless of which
	// backend is installed.
	pl := pipeline.Boot(pipeline.BackendTreeWalk, p)
	th := pl.Env.NewThread()

	results, err := pl.CompareString(th, filename, string(content))
	if err != nil {
		p.Shutdown()
		return fmt.Errorf("compare failed: %w", err)
	}

	mismatches := 0
	for i, r := range results {
		if r.Match {
			continue
		}
		mismatches++
		fmt.Printf("form %d: MISMATCH\n  tree-walk: value=%v err=%v\n  vm:        value=%v err=%v\n",
			i, r.TWValue, r.TWError, r.VMValue, r.VMError)
		if r.Diff != "" {
			fmt.Printf("  diff: %s\n", r.Diff)
		}
	}
	fmt.Printf("%d form(s) compared, %d mismatch(es)\n", len(results), mismatches)

	if !serveMetrics {
		p.Shutdown()
		if mismatches > 0 {
			return fmt.Errorf("%d mismatch(es) found", mismatches)
		}
		return nil
	}

	lc := lifecycle.New(p)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: metricsAddr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "metrics server error: %s\n", err)
		}
	}()
	if err := lc.RegisterHook("metrics-http", func() { _ = srv.Close() }); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "serving metrics on %s/metrics\n", metricsAddr)
	return lc.Run(nil)
}
