package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teris-io/cli"

	"github.com/n2t-toolchain/hackc/pkg/jack"
	"github.com/n2t-toolchain/hackc/pkg/vm"
)

var Description = strings.ReplaceAll(`
The Jack Compiler translates programs written in the Jack language directly into VM
bytecode, one module per compiled class, via a single pass over the source with no
intermediate syntax tree ever persisted.
`, "\n", " ")

var JackCompiler = cli.New(Description).
	WithArg(cli.NewArg("inputs", "The Jack (.jack) file(s) or directory to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "Output directory (directory mode) or output file (single-file mode)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("typecheck", "Enables arity checks against the standard library ABI").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	inputs, directoryMode, err := resolveInputs(args)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return -1
	}

	_, strict := options["typecheck"]

	outDir := options["output"]
	if directoryMode && outDir == "" {
		outDir = filepath.Dir(inputs[0])
	}
	if directoryMode {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			fmt.Printf("ERROR: Unable to create output directory: %s\n", err)
			return -1
		}
	}

	for _, input := range inputs {
		source, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		className := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

		module, err := jack.Compile(input, source, strict)
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'compile' pass: %s\n", err)
			return -1
		}

		outPath := options["output"]
		if directoryMode || outPath == "" {
			outPath = filepath.Join(outDir, className+".vm")
		}

		compiled, err := vm.NewCodeGenerator(vm.Program{className: module}).Generate()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
			return -1
		}

		output, err := os.Create(outPath)
		if err != nil {
			fmt.Printf("ERROR: Unable to open output file: %s\n", err)
			return -1
		}

		for _, line := range compiled[className] {
			output.Write([]byte(line + "\n"))
		}
		output.Close()
	}

	return 0
}

// resolveInputs expands a single directory argument into its sorted '*.jack' children;
// any other argument list is taken as-is (each entry a single '.jack' file).
func resolveInputs(args []string) ([]string, bool, error) {
	if len(args) != 1 {
		return args, false, nil
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return nil, false, fmt.Errorf("unable to stat input '%s': %w", args[0], err)
	}
	if !info.IsDir() {
		return args, false, nil
	}

	entries, err := os.ReadDir(args[0])
	if err != nil {
		return nil, false, fmt.Errorf("unable to read directory '%s': %w", args[0], err)
	}

	var children []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".jack" {
			children = append(children, filepath.Join(args[0], entry.Name()))
		}
	}
	sort.Strings(children)

	return children, true, nil
}

func main() { os.Exit(JackCompiler.Run(os.Args, os.Stdout)) }
