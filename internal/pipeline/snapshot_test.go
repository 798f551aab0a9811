package pipeline_test

import (
	"fmt"
	"testing"

	"github.com/candela-lang/candela/internal/pipeline"
	"github.com/candela-lang/candela/internal/pool"
	"github.com/candela-lang/candela/internal/runtime"
	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"
)

// TestEvalStringPrintedResultsSnapshot snapshots the printed form of a
// representative program against each back end, the way the teacher's
// fixture harness snapshots interpreter output per test category.
func TestEvalStringPrintedResultsSnapshot(t *testing.T) {
	programs := []struct {
		name string
		src  string
	}{
		{"arithmetic", `(+ 1 (* 2 3) (- 10 4))`},
		{"collections", `(vector 1 2 3)`},
		{"let-and-fn", `(let [double (fn [x] (* x 2))] (double 21))`},
		{"loop-recur", `(loop [i 0 acc 0] (if (< i 5) (recur (+ i 1) (+ acc i)) acc))`},
	}

	for _, backend := range []pipeline.Backend{pipeline.BackendTreeWalk, pipeline.BackendVM} {
		backendName := "tree"
		if backend == pipeline.BackendVM {
			backendName = "vm"
		}
		for _, prog := range programs {
			p := pool.New(1, nil)
			pl := pipeline.Boot(backend, p)
			th := pl.Env.NewThread()

			v, err := pl.EvalString(th, "<snapshot>", prog.src, nil)
			require.NoError(t, err)

			snaps.MatchSnapshot(t, fmt.Sprintf("%s/%s", backendName, prog.name), runtime.PrStr(v))
			p.Shutdown()
		}
	}
}
