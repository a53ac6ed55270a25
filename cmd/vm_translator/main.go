package main

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teris-io/cli"

	"github.com/n2t-toolchain/hackc/pkg/asm"
	"github.com/n2t-toolchain/hackc/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .vm file
	WithArg(cli.NewArg("inputs", "The bytecode (.vm) file(s) or directory to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "The compiled binary output (.asm)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("bootstrap", "Forces the bootstrap prologue even for single-file input").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 || options["output"] == "" {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	// A single argument naming a directory collects every '*.vm' child (directory mode,
	// bootstrap always emitted); otherwise each positional argument is an individual file.
	inputs, directoryMode, err := resolveInputs(args)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return -1
	}

	output, err := os.Create(options["output"])
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	// Allocates a 'vm.Program' struct to save all the parsed translation unit
	// (the .vm files) that will be parsed and lowered independently and then
	// sent to the codegen phase (that will create a monolithic compiled output).
	program, order := vm.Program{}, make([]string, 0, len(inputs))

	for _, input := range inputs {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		// Instantiate a parser for the Vm program
		parser := vm.NewParser(bytes.NewReader(content))
		// Parses the input file content and extracts a 'vm.Module' from it.
		name := path.Base(input)
		program[name], err = parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return -1
		}
		order = append(order, name)
	}

	// Instantiate a lowerer to convert the program from Vm to Asm
	lowerer := vm.NewLowerer(program, order)

	var asmProgram asm.Program

	// Bootstrap is emitted whenever the input was a directory, or the caller explicitly
	// asked for it via '--bootstrap' (§4.2: "directory mode only", kept overridable since
	// the teacher's CLI already exposes the flag to its single-file invocation too).
	_, forced := options["bootstrap"]
	if directoryMode || forced {
		bootstrap, err := lowerer.Bootstrap()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'bootstrap' pass: %s\n", err)
			return -1
		}
		asmProgram = append(asmProgram, bootstrap...)
	}

	translated, err := lowerer.Lower()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}
	asmProgram = append(asmProgram, translated...)

	// Now, instantiates a code generator for the Asm (compiled) program
	codegen := asm.NewCodeGenerator(asmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	for _, line := range compiled {
		output.Write([]byte(line + "\n"))
	}

	return 0
}

// resolveInputs expands a single directory argument into its sorted '*.vm' children;
// any other argument list is taken as-is (each entry a single '.vm' file).
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
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".vm" {
			children = append(children, filepath.Join(args[0], entry.Name()))
		}
	}
	sort.Strings(children)

	return children, true, nil
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
