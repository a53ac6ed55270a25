// Package hack models the 16-bit Hack machine instruction set, the final target of both
// the Assembler and (transitively, via pkg/asm) the VM Translator.
package hack

// ----------------------------------------------------------------------------
// General information

// We declare a shared 'Instruction' interface for both A and C instructions as well as
// defining some useful constants for runtime assertions during the codegen phase, such as
// 'MaxAddressableMemory' which bounds the address space an A instruction can reference.

// Just used to put together A and C instructions struct, use a type switch to disambiguate.
type Instruction interface{}

// Program is a flat sequence of Hack instructions, already resolved (labels excluded,
// variables assigned an address) and ready for binary encoding.
type Program []Instruction

// SymbolTable maps an identifier (label or variable) to its 16-bit address.
type SymbolTable map[string]uint16

const MaxAddressableMemory uint16 = (1 << 15) // Max memory address indexable by an A Instruction.

// ----------------------------------------------------------------------------
// A Instructions

// AInstruction loads a location (raw address, label or built-in symbol) into the A register.
type AInstruction struct {
	LocType LocationType // The type of location identified by 'LocName'
	LocName string       // A generic "payload" (the label/builtin/raw symbol)
}

type LocationType uint8 // Enumeration for the different kinds of location (built-in, label, raw)

const (
	Raw     LocationType = 0 // Raw address literal (e.g. @2345, @8989)
	Label   LocationType = 1 // User-defined location w/ a user given name (e.g. @MAIN, @LOOP)
	BuiltIn LocationType = 2 // Predefined association from the Hack spec (@SCREEN, @KBD, @R1)
)

// ----------------------------------------------------------------------------
// C Instructions

// CInstruction selects a computation, an optional destination, and an optional jump.
type CInstruction struct {
	Comp string // The 'computation' bit-codes, defines the calculation the CPU should perform
	Dest string // The 'destination' bit-codes, defines if/where the result should be saved
	Jump string // The 'jump' bit-codes, defines on what condition the jump should occur
}
