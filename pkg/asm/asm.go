// Package asm models the Hack assembly source language consumed by the Assembler and
// produced (as an intermediate form) by the VM Translator's lowering pass.
package asm

// ----------------------------------------------------------------------------
// General information

// We declare a shared 'Statement' interface for both A and C instructions as well as
// label declarations for arbitrary jumps at runtime during code execution. This in turn
// enables iteration and conditionals both here and at the upper levels (VM, Compiler).

// Statement puts together label declarations, A instructions and C instructions.
type Statement interface{}

// Instruction is an alias used where a Statement is known to already be lowered/validated
// but is still one of the three assembly-level variants.
type Instruction = Statement

// Program is a flat, ordered sequence of assembly statements.
type Program []Statement

// ----------------------------------------------------------------------------
// Label Declarations

// LabelDecl is the in-memory representation of a label declaration statement.
//
// We just keep track of the user-defined name to resolve future references to it (e.g.
// when the same name is referenced from an A Instruction). During lowering this label is
// mapped to its location in the program and recorded in a symbol table, used by codegen.
type LabelDecl struct {
	Name string // The symbol/ident chosen by the user for the label
}

// ----------------------------------------------------------------------------
// A Instructions

// AInstruction is the in-memory representation of an A Instruction.
//
// The A instruction has only one function in the Hack computer: load a memory address
// (RAM or memory-mapped I/O) into the A register. The location can be referenced either
// by an alias (label), a built-in, or the raw address itself.
type AInstruction struct {
	Location string // A generic "payload" (the label/builtin/raw symbol)
}

// ----------------------------------------------------------------------------
// C Instructions

// CInstruction is the in-memory representation of a C Instruction.
//
// The C instruction handles the computation side of the Hack computer: it selects the
// operation to execute, which register(s) to store the result into, and an optional jump
// condition to alter control flow.
type CInstruction struct {
	Comp string // The 'computation' bit-codes, defines the calculation the CPU should perform
	Dest string // The 'destination' bit-codes, defines if/where the result should be saved
	Jump string // The 'jump' bit-codes, defines on what condition the jump should occur
}
