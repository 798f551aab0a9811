package cmd

import (
	"fmt"
	"os"

	"github.com/candela-lang/candela/internal/analyzer"
	"github.com/candela-lang/candela/internal/ast"
	"github.com/candela-lang/candela/internal/compiler"
	"github.com/candela-lang/candela/internal/reader"
	"github.com/candela-lang/candela/internal/runtime"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile [file]",
	Short: "Compile a candela file to bytecode and print its disassembly",
	Long: `Compile reads and analyzes every top-level form in file, compiles each
one to a bytecode Chunk, and prints a human-readable disassembly — useful
for inspecting what the VM back end will actually execute.`,
	Args: cobra.ExactArgs(1),
	RunE: compileScript,
}

func init() {
	rootCmd.AddCommand(compileCmd)
}

func compileScript(_ *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	env := runtime.NewEnv("user")
	an := analyzer.New(env)
	th := env.NewThread()
	rdr := reader.New(filename, string(content))

	for i := 0; ; i++ {
		form, err := rdr.Read()
		if err != nil {
			return err
		}
		if form == nil {
			return nil
		}
		node, err := an.Analyze(th, nil, form)
		if err != nil {
			return err
		}
		chunk, err := compiler.Compile([]ast.Node{node})
		if err != nil {
			return err
		}
		compiler.Disassemble(os.Stdout, fmt.Sprintf("form %d", i), chunk)
	}
}
