package hack_test

import (
	"testing"

	"github.com/n2t-toolchain/hackc/pkg/hack"
)

func TestGenerateAInst(t *testing.T) {
	test := func(inst hack.AInstruction, table hack.SymbolTable, expected string, fail bool) {
		codegen := hack.NewCodeGenerator(hack.Program{}, table)
		res, err := codegen.GenerateAInst(inst)
		if err != nil {
			if !fail {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}
		if fail {
			t.Fatalf("expected failure, got %q", res)
		}
		if res != expected {
			t.Fatalf("expected %q, got %q", expected, res)
		}
	}

	t.Run("raw addresses", func(t *testing.T) {
		test(hack.AInstruction{LocType: hack.Raw, LocName: "2"}, hack.SymbolTable{}, "0000000000000010", false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "3"}, hack.SymbolTable{}, "0000000000000011", false)
		// Out of bounds: >= 2^15 cannot fit in the 15 addressable bits
		test(hack.AInstruction{LocType: hack.Raw, LocName: "32768"}, hack.SymbolTable{}, "", true)
	})

	t.Run("built-in symbols", func(t *testing.T) {
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "SP"}, hack.SymbolTable{}, "0000000000000000", false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "SCREEN"}, hack.SymbolTable{}, "0100000000000000", false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "KBD"}, hack.SymbolTable{}, "0110000000000000", false)
	})

	t.Run("user-defined labels and first-seen variable allocation", func(t *testing.T) {
		table := hack.SymbolTable{"LOOP": 4}
		test(hack.AInstruction{LocType: hack.Label, LocName: "LOOP"}, table, "0000000000000100", false)
		// First unseen variable reference is allocated at address 16 (S2)
		test(hack.AInstruction{LocType: hack.Label, LocName: "i"}, table, "0000000000010000", false)
		if table["i"] != 16 {
			t.Fatalf("expected 'i' allocated at 16, got %d", table["i"])
		}
	})
}

func TestGenerateCInst(t *testing.T) {
	codegen := hack.NewCodeGenerator(hack.Program{}, hack.SymbolTable{})

	test := func(inst hack.CInstruction, expected string, fail bool) {
		res, err := codegen.GenerateCInst(inst)
		if err != nil {
			if !fail {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}
		if fail {
			t.Fatalf("expected failure, got %q", res)
		}
		if res != expected {
			t.Fatalf("expected %q, got %q", expected, res)
		}
	}

	// S1: "D=A" with comp=A, dest=D, no jump
	test(hack.CInstruction{Comp: "A", Dest: "D"}, "1110110000010000", false)
	// S1: "D=D+A"
	test(hack.CInstruction{Comp: "D+A", Dest: "D"}, "1110000010010000", false)
	// S1: "M=D"
	test(hack.CInstruction{Comp: "D", Dest: "M"}, "1110001100001000", false)
	// Unknown mnemonics are fatal
	test(hack.CInstruction{Comp: "D%A", Dest: "D"}, "", true)
	test(hack.CInstruction{Comp: "D", Dest: "XYZ"}, "", true)
	test(hack.CInstruction{Comp: "D", Jump: "JXX"}, "", true)
}
