package vm

import (
	"fmt"

	"github.com/n2t-toolchain/hackc/internal/diag"
)

// ----------------------------------------------------------------------------
// Code Generator

// CodeGenerator takes a 'vm.Program' and spits out its normalized VM source text, one
// line per operation grouped by module. It is not on the compilation path to assembly
// (that is 'Lowerer' + 'asm.CodeGenerator') but is used to round-trip and pretty-print a
// parsed program, e.g. for diagnostics or to normalize whitespace/comments away.
type CodeGenerator struct {
	program Program
}

// NewCodeGenerator returns a CodeGenerator over the given (non-nil) Program.
func NewCodeGenerator(p Program) CodeGenerator {
	return CodeGenerator{program: p}
}

// Generate translates every operation of every module back to VM source text, keyed by
// module name.
func (cg *CodeGenerator) Generate() (map[string][]string, error) {
	generated := map[string][]string{}

	for name, module := range cg.program {
		for _, operation := range module {
			var line string
			var err error

			switch tOperation := operation.(type) {
			case MemoryOp:
				line, err = cg.GenerateMemoryOp(tOperation)
			case ArithmeticOp:
				line, err = cg.GenerateArithmeticOp(tOperation)
			case LabelDecl:
				line, err = cg.GenerateLabelDecl(tOperation)
			case GotoOp:
				line, err = cg.GenerateGotoOp(tOperation)
			case FuncDecl:
				line, err = cg.GenerateFuncDecl(tOperation)
			case ReturnOp:
				line, err = cg.GenerateReturnOp(tOperation)
			case FuncCallOp:
				line, err = cg.GenerateFuncCallOp(tOperation)
			default:
				err = diag.Errorf(diag.Encoding, "unrecognized operation '%T'", operation)
			}

			if err != nil {
				return nil, err
			}
			generated[name] = append(generated[name], line)
		}
	}

	return generated, nil
}

// GenerateMemoryOp converts a 'MemoryOp' to its VM text form, e.g. "push constant 5".
func (CodeGenerator) GenerateMemoryOp(op MemoryOp) (string, error) {
	if op.Segment == Pointer && op.Offset > 1 {
		return "", diag.Errorf(diag.Encoding, "invalid 'pointer' offset, got %d", op.Offset)
	}
	if op.Segment == Temp && op.Offset > 7 {
		return "", diag.Errorf(diag.Encoding, "invalid 'temp' offset, got %d", op.Offset)
	}
	return fmt.Sprintf("%s %s %d", op.Operation, op.Segment, op.Offset), nil
}

// GenerateArithmeticOp converts an 'ArithmeticOp' to its VM text form, e.g. "add".
func (CodeGenerator) GenerateArithmeticOp(op ArithmeticOp) (string, error) {
	return string(op.Operation), nil
}

// GenerateLabelDecl converts a 'LabelDecl' to its VM text form, e.g. "label LOOP".
func (CodeGenerator) GenerateLabelDecl(op LabelDecl) (string, error) {
	if op.Name == "" {
		return "", diag.Errorf(diag.Encoding, "unable to produce empty label declaration")
	}
	return fmt.Sprintf("label %s", op.Name), nil
}

// GenerateGotoOp converts a 'GotoOp' to its VM text form, e.g. "if-goto CHECK".
func (CodeGenerator) GenerateGotoOp(op GotoOp) (string, error) {
	if op.Label == "" {
		return "", diag.Errorf(diag.Encoding, "unable to produce empty jump label")
	}
	return fmt.Sprintf("%s %s", op.Jump, op.Label), nil
}

// GenerateFuncDecl converts a 'FuncDecl' to its VM text form, e.g. "function Main.run 2".
func (CodeGenerator) GenerateFuncDecl(op FuncDecl) (string, error) {
	if op.Name == "" {
		return "", diag.Errorf(diag.Encoding, "unable to produce empty function declaration")
	}
	return fmt.Sprintf("function %s %d", op.Name, op.NLocal), nil
}

// GenerateReturnOp converts a 'ReturnOp' to its VM text form: "return".
func (CodeGenerator) GenerateReturnOp(ReturnOp) (string, error) {
	return "return", nil
}

// GenerateFuncCallOp converts a 'FuncCallOp' to its VM text form, e.g. "call Main.run 2".
func (CodeGenerator) GenerateFuncCallOp(op FuncCallOp) (string, error) {
	if op.Name == "" {
		return "", diag.Errorf(diag.Encoding, "unable to produce empty function call")
	}
	return fmt.Sprintf("call %s %d", op.Name, op.NArgs), nil
}
