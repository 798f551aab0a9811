package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetRunGlobals restores runScript's package-level flag variables after a
// test mutates them, the way the teacher's run_unit_test.go saves/restores
// unitSearchPaths/verbose around direct RunE invocations.
func resetRunGlobals(t *testing.T) {
	t.Helper()
	oldExpr, oldBackend, oldWorkers, oldVerbose := evalExpr, runBackend, numWorkers, verbose
	t.Cleanup(func() {
		evalExpr, runBackend, numWorkers, verbose = oldExpr, oldBackend, oldWorkers, oldVerbose
	})
}

func TestRunScriptEvalFlagTreeBackend(t *testing.T) {
	resetRunGlobals(t)
	evalExpr = "(+ 1 2 3)"
	runBackend = "tree"
	numWorkers = 1

	err := runScript(runCmd, nil)
	assert.NoError(t, err)
}

func TestRunScriptEvalFlagVMBackend(t *testing.T) {
	resetRunGlobals(t)
	evalExpr = "(* 6 7)"
	runBackend = "vm"
	numWorkers = 1

	err := runScript(runCmd, nil)
	assert.NoError(t, err)
}

func TestRunScriptReadsFile(t *testing.T) {
	resetRunGlobals(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.cdl")
	require.NoError(t, os.WriteFile(path, []byte(`(def x (+ 1 1)) x`), 0644))

	evalExpr = ""
	runBackend = "tree"
	numWorkers = 1

	err := runScript(runCmd, []string{path})
	assert.NoError(t, err)
}

func TestRunScriptMissingFileErrors(t *testing.T) {
	resetRunGlobals(t)
	evalExpr = ""
	runBackend = "tree"
	numWorkers = 1

	err := runScript(runCmd, []string{filepath.Join(t.TempDir(), "missing.cdl")})
	assert.Error(t, err)
}

func TestRunScriptNoArgsOrEvalErrors(t *testing.T) {
	resetRunGlobals(t)
	evalExpr = ""
	runBackend = "tree"
	numWorkers = 1

	err := runScript(runCmd, nil)
	assert.Error(t, err)
}

func TestRunScriptEvaluationErrorIsReported(t *testing.T) {
	resetRunGlobals(t)
	evalExpr = "(undefined-symbol)"
	runBackend = "tree"
	numWorkers = 1

	err := runScript(runCmd, nil)
	assert.Error(t, err)
}

func TestParseBackendNames(t *testing.T) {
	for _, name := range []string{"", "tree", "treewalk"} {
		b, err := parseBackend(name)
		require.NoError(t, err)
		assert.Equal(t, 0, int(b))
	}
	for _, name := range []string{"vm", "bytecode"} {
		b, err := parseBackend(name)
		require.NoError(t, err)
		assert.Equal(t, 1, int(b))
	}
	_, err := parseBackend("nonsense")
	assert.Error(t, err)
}
