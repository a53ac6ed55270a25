package asm

import (
	"strconv"

	"github.com/n2t-toolchain/hackc/internal/diag"
	"github.com/n2t-toolchain/hackc/pkg/hack"
)

// ----------------------------------------------------------------------------
// Asm Lowerer

// Lowerer takes an 'asm.Program' and produces its 'hack.Program' counterpart, resolving
// label declarations into a symbol table as it goes (pass 1 of spec §4.1: a label binds
// its name to the current instruction index without incrementing it).
//
// Variable allocation (pass 2: unseen identifiers get the next free address starting at
// 16) is deferred to 'hack.CodeGenerator', since it can only be decided while encoding,
// once every label has already been bound by this first pass.
type Lowerer struct{ program Program }

// NewLowerer returns a Lowerer for the given (non-nil) 'asm.Program'.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Lower performs pass 1 (label binding) while converting each 'asm.Statement' to its
// 'hack.Instruction' counterpart, and returns the (pre-populated) symbol table alongside.
func (l *Lowerer) Lower() (hack.Program, hack.SymbolTable, error) {
	converted := hack.Program{}
	table := hack.PredefinedSymbols()

	for _, asmInst := range l.program {
		switch tAsmInst := asmInst.(type) {
		case AInstruction:
			hackInst, err := l.HandleAInst(tAsmInst)
			if err != nil {
				return nil, nil, err
			}
			converted = append(converted, hackInst)

		case CInstruction:
			hackInst, err := l.HandleCInst(tAsmInst)
			if err != nil {
				return nil, nil, err
			}
			converted = append(converted, hackInst)

		case LabelDecl:
			// A label binds to the CURRENT instruction index without incrementing it,
			// so it must be recorded before any following instruction is appended.
			label, err := l.HandleLabelDecl(tAsmInst)
			if err != nil {
				return nil, nil, err
			}
			if _, redeclared := table[label]; redeclared {
				return nil, nil, diag.Errorf(diag.Resolution, "label '%s' declared more than once", label)
			}
			table[label] = uint16(len(converted))

		default:
			return nil, nil, diag.Errorf(diag.Encoding, "unrecognized instruction '%T'", asmInst)
		}
	}

	return converted, table, nil
}

// HandleAInst converts an 'asm.AInstruction' to its 'hack.AInstruction' counterpart,
// classifying the location as Raw, BuiltIn or (user-defined) Label.
func (Lowerer) HandleAInst(inst AInstruction) (hack.Instruction, error) {
	if _, found := hack.BuiltInTable[inst.Location]; found {
		return hack.AInstruction{LocType: hack.BuiltIn, LocName: inst.Location}, nil
	}
	if _, err := strconv.ParseUint(inst.Location, 10, 32); err == nil {
		return hack.AInstruction{LocType: hack.Raw, LocName: inst.Location}, nil
	}
	return hack.AInstruction{LocType: hack.Label, LocName: inst.Location}, nil
}

// HandleCInst converts an 'asm.CInstruction' to its 'hack.CInstruction' counterpart.
func (Lowerer) HandleCInst(inst CInstruction) (hack.Instruction, error) {
	if inst.Comp == "" {
		return nil, diag.Errorf(diag.Syntax, "'comp' sub-instruction should always be provided")
	}
	return hack.CInstruction{Dest: inst.Dest, Comp: inst.Comp, Jump: inst.Jump}, nil
}

// HandleLabelDecl extracts the identifier bound by an 'asm.LabelDecl'.
func (Lowerer) HandleLabelDecl(inst LabelDecl) (string, error) {
	return inst.Name, nil
}
