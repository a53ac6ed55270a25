package asm

import (
	"fmt"

	"github.com/n2t-toolchain/hackc/internal/diag"
	"github.com/n2t-toolchain/hackc/pkg/hack"
)

// ----------------------------------------------------------------------------
// Code Generator

// CodeGenerator takes a set of 'asm.Statement' and spits out their Asm textual
// counterparts. This is the emitter used by the VM Translator: VM operations are lowered
// to 'asm.Statement' and then rendered back to assembly text by this generator, without
// ever passing through the Hack binary encoding.
type CodeGenerator struct {
	program Program
}

// NewCodeGenerator returns a CodeGenerator over the given (non-nil) Program.
func NewCodeGenerator(p Program) CodeGenerator {
	return CodeGenerator{program: p}
}

// Generate translates every statement in the program to the Asm textual format.
func (cg *CodeGenerator) Generate() ([]string, error) {
	lines := make([]string, 0, len(cg.program))

	for _, statement := range cg.program {
		var generated string
		var err error

		switch tStatement := statement.(type) {
		case AInstruction:
			generated, err = cg.GenerateAInst(tStatement)
		case CInstruction:
			generated, err = cg.GenerateCInst(tStatement)
		case LabelDecl:
			generated, err = cg.GenerateLabelDecl(tStatement)
		default:
			err = diag.Errorf(diag.Encoding, "unrecognized statement '%T'", statement)
		}

		if err != nil {
			return nil, err
		}
		lines = append(lines, generated)
	}

	return lines, nil
}

// GenerateAInst converts an A Instruction to its Asm textual form, e.g. "@SP".
func (CodeGenerator) GenerateAInst(stmt AInstruction) (string, error) {
	if stmt.Location == "" {
		return "", diag.Errorf(diag.Encoding, "unable to produce an A instruction with no location")
	}
	return fmt.Sprintf("@%s", stmt.Location), nil
}

// GenerateCInst converts a C Instruction to its Asm textual form, e.g. "D=D+A" or "0;JMP".
func (CodeGenerator) GenerateCInst(stmt CInstruction) (string, error) {
	if stmt.Comp == "" {
		return "", diag.Errorf(diag.Encoding, "expected 'comp' in C instruction")
	}

	switch {
	case stmt.Dest != "" && stmt.Jump != "":
		return fmt.Sprintf("%s=%s;%s", stmt.Dest, stmt.Comp, stmt.Jump), nil
	case stmt.Dest != "":
		return fmt.Sprintf("%s=%s", stmt.Dest, stmt.Comp), nil
	case stmt.Jump != "":
		return fmt.Sprintf("%s;%s", stmt.Comp, stmt.Jump), nil
	default:
		return "", diag.Errorf(diag.Encoding, "expected either 'dest' or 'jump' in C instruction")
	}
}

// GenerateLabelDecl converts a label declaration to its Asm textual form, e.g. "(LOOP)".
func (CodeGenerator) GenerateLabelDecl(stmt LabelDecl) (string, error) {
	if stmt.Name == "" {
		return "", diag.Errorf(diag.Encoding, "unable to produce an empty label declaration")
	}
	if _, found := hack.BuiltInTable[stmt.Name]; found {
		return "", diag.Errorf(diag.Resolution, "unable to override built-in symbol '%s'", stmt.Name)
	}
	return fmt.Sprintf("(%s)", stmt.Name), nil
}
