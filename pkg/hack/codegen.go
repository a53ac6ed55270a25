package hack

import (
	"fmt"
	"strconv"

	"github.com/n2t-toolchain/hackc/internal/diag"
)

// ----------------------------------------------------------------------------
// Translation tables

// This section contains the translation tables cornerstone of the codegen phase.
//
//   - 'BuiltInTable': translates BuiltIn labels in A instructions to their fixed address
//   - 'CompTable':    translates the 'Comp' opcode of a C instruction
//   - 'DestTable':    translates the 'Dest' opcode of a C instruction
//   - 'JumpTable':    translates the 'Jump' opcode of a C instruction

var (
	BuiltInTable = map[string]uint16{
		// Virtual Machine specific aliases (see project 7/8)
		"SP": 0, "LCL": 1, "ARG": 2, "THIS": 3, "THAT": 4,
		// Named general purpose registers
		"R0": 0, "R1": 1, "R2": 2, "R3": 3, "R4": 4, "R5": 5,
		"R6": 6, "R7": 7, "R8": 8, "R9": 9, "R10": 10, "R11": 11,
		"R12": 12, "R13": 13, "R14": 14, "R15": 15,
		// Memory mapped I/O locations
		"SCREEN": 16384, "KBD": 24576,
	}

	CompTable = map[string]uint16{
		// - Constants and identities
		"0": 0b0101010, "1": 0b0111111, "-1": 0b0111010,
		"D": 0b0001100, "A": 0b0110000, "M": 0b1110000,
		// - Binary and numerical negations
		"!D": 0b0001101, "!A": 0b0110001, "!M": 0b1110001,
		"-D": 0b0001111, "-A": 0b0110011, "-M": 0b1110011,
		// - Increment and decrement operations
		"D+1": 0b0011111, "A+1": 0b0110111, "M+1": 0b1110111,
		"D-1": 0b0001110, "A-1": 0b0110010, "M-1": 0b1110010,
		// - Register with register operations
		"D+A": 0b0000010, "D+M": 0b1000010,
		"D-A": 0b0010011, "D-M": 0b1010011,
		"A-D": 0b0000111, "M-D": 0b1000111,
		// - Bitwise register with register operations
		"D&A": 0b0000000, "D&M": 0b1000000,
		"D|A": 0b0010101, "D|M": 0b1010101,
	}

	DestTable = map[string]uint16{
		"": 0b000, "M": 0b001, "D": 0b010, "A": 0b100,
		"MD": 0b011, "AM": 0b101, "AD": 0b110, "AMD": 0b111,
	}

	JumpTable = map[string]uint16{
		"": 0b000, "JGT": 0b001, "JEQ": 0b010, "JGE": 0b011,
		"JLT": 0b100, "JNE": 0b101, "JLE": 0b110, "JMP": 0b111,
	}
)

// PredefinedSymbols returns a fresh SymbolTable pre-populated with the Hack predefined
// symbols (SP, LCL, ARG, THIS, THAT, R0..R15, SCREEN, KBD), per spec §6.1.
func PredefinedSymbols() SymbolTable {
	table := make(SymbolTable, len(BuiltInTable))
	for name, addr := range BuiltInTable {
		table[name] = addr
	}
	return table
}

// ----------------------------------------------------------------------------
// Code Generator

// CodeGenerator takes a set of 'hack.Instruction' and spits out their binary counterparts.
//
// To resolve user-defined labels in A instructions, a SymbolTable must be provided at
// construction; new variables are allocated in it starting at address 16 (pass 2, §4.1).
type CodeGenerator struct {
	program    Program     // The set of instructions to convert to the Hack binary format
	table      SymbolTable // Mapping to resolve user-defined labels to their address
	nVarOffset uint16      // Internal offset to allocate memory for new variables
}

// NewCodeGenerator returns a CodeGenerator for 'p', resolving labels against 'st'.
func NewCodeGenerator(p Program, st SymbolTable) CodeGenerator {
	return CodeGenerator{program: p, table: st}
}

// Generate translates every instruction in the Program to its Hack binary text form.
func (cg *CodeGenerator) Generate() ([]string, error) {
	hackLines := make([]string, 0, len(cg.program))

	for _, instruction := range cg.program {
		var generated string
		var err error

		switch tInstruction := instruction.(type) {
		case AInstruction:
			generated, err = cg.GenerateAInst(tInstruction)
		case CInstruction:
			generated, err = cg.GenerateCInst(tInstruction)
		default:
			err = diag.Errorf(diag.Encoding, "unrecognized instruction '%T'", instruction)
		}

		if err != nil {
			return nil, err
		}
		hackLines = append(hackLines, generated)
	}

	return hackLines, nil
}

// GenerateAInst converts a single A Instruction to its 16-bit Hack binary text form.
//
// As part of the conversion (for both built-in and user-defined labels) there's a lookup
// on the respective symbol tables to determine the 'real' location address. A location
// that cannot be resolved, or resolves out of bounds, is fatal.
func (cg *CodeGenerator) GenerateAInst(inst AInstruction) (string, error) {
	found, address := false, uint16(0)

	switch inst.LocType {
	case Raw: // Simply translate the raw address from 'string' to 'int'
		num, err := strconv.ParseInt(inst.LocName, 10, 32)
		if err == nil && num >= int64(MaxAddressableMemory) {
			return "", diag.Errorf(diag.Encoding, "location '%s' resolved to an out-of-bound address %d", inst.LocName, num)
		}
		address, found = uint16(num), err == nil && num >= 0
	case Label: // Lookup the label name in the provided SymbolTable
		address, found = cg.table[inst.LocName]
		if !found {
			// Treat it as a new variable, assigned starting at address 16 (§4.1)
			address, found = 16+cg.nVarOffset, true
			cg.table[inst.LocName] = address
			cg.nVarOffset++
		}
	case BuiltIn: // Lookup the registry name in the well-known table
		address, found = BuiltInTable[inst.LocName]
	}

	if !found {
		return "", diag.Errorf(diag.Resolution, "unable to resolve address for location '%s'", inst.LocName)
	}
	// An A instruction always has the first bit set to zero (the opcode bit), leaving only
	// 15 bits to address Hack memory: an address at or over 2^15 is out of bounds.
	if address >= MaxAddressableMemory {
		return "", diag.Errorf(diag.Encoding, "location '%s' resolved to an out-of-bound address %d", inst.LocName, address)
	}
	return fmt.Sprintf("%016b", address), nil
}

// GenerateCInst converts a single C Instruction to its 16-bit Hack binary text form.
func (cg *CodeGenerator) GenerateCInst(inst CInstruction) (string, error) {
	command := uint16(0b111 << 13) // Puts the initial '111' opcode at the start

	opcode, found := CompTable[inst.Comp]
	if !found {
		return "", diag.Errorf(diag.Encoding, "unknown 'comp' mnemonic '%s'", inst.Comp)
	}
	command |= opcode << 6

	opcode, found = DestTable[inst.Dest]
	if !found {
		return "", diag.Errorf(diag.Encoding, "unknown 'dest' mnemonic '%s'", inst.Dest)
	}
	command |= opcode << 3

	opcode, found = JumpTable[inst.Jump]
	if !found {
		return "", diag.Errorf(diag.Encoding, "unknown 'jump' mnemonic '%s'", inst.Jump)
	}
	command |= opcode

	return fmt.Sprintf("%016b", command), nil
}
