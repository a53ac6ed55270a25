package asm_test

import (
	"strings"
	"testing"

	"github.com/n2t-toolchain/hackc/pkg/asm"
)

func TestGenerateAInst(t *testing.T) {
	codegen := asm.NewCodeGenerator(asm.Program{})

	test := func(inst asm.AInstruction, expected string, fail bool) {
		res, err := codegen.GenerateAInst(inst)
		if (err != nil) != fail {
			t.Fatalf("GenerateAInst(%+v): err=%v, want fail=%v", inst, err, fail)
		}
		if !fail && res != expected {
			t.Fatalf("GenerateAInst(%+v) = %q, want %q", inst, res, expected)
		}
	}

	test(asm.AInstruction{Location: "38"}, "@38", false)
	test(asm.AInstruction{Location: "SP"}, "@SP", false)
	test(asm.AInstruction{Location: "LOOP"}, "@LOOP", false)
	test(asm.AInstruction{Location: ""}, "", true)
}

func TestGenerateCInst(t *testing.T) {
	codegen := asm.NewCodeGenerator(asm.Program{})

	test := func(inst asm.CInstruction, expected string, fail bool) {
		res, err := codegen.GenerateCInst(inst)
		if (err != nil) != fail {
			t.Fatalf("GenerateCInst(%+v): err=%v, want fail=%v", inst, err, fail)
		}
		if !fail && res != expected {
			t.Fatalf("GenerateCInst(%+v) = %q, want %q", inst, res, expected)
		}
	}

	test(asm.CInstruction{Dest: "D", Comp: "A"}, "D=A", false)
	test(asm.CInstruction{Comp: "0", Jump: "JMP"}, "0;JMP", false)
	test(asm.CInstruction{Dest: "MD", Comp: "D+1", Jump: "JGT"}, "MD=D+1;JGT", false)
	test(asm.CInstruction{Comp: ""}, "", true)
	test(asm.CInstruction{Comp: "D"}, "", true) // neither dest nor jump
}

func TestGenerateLabelDecl(t *testing.T) {
	codegen := asm.NewCodeGenerator(asm.Program{})

	test := func(inst asm.LabelDecl, expected string, fail bool) {
		res, err := codegen.GenerateLabelDecl(inst)
		if (err != nil) != fail {
			t.Fatalf("GenerateLabelDecl(%+v): err=%v, want fail=%v", inst, err, fail)
		}
		if !fail && res != expected {
			t.Fatalf("GenerateLabelDecl(%+v) = %q, want %q", inst, res, expected)
		}
	}

	test(asm.LabelDecl{Name: "LOOP"}, "(LOOP)", false)
	test(asm.LabelDecl{Name: "SP"}, "", true) // cannot override a built-in
	test(asm.LabelDecl{Name: ""}, "", true)
}

func TestParseProgram(t *testing.T) {
	source := "// bootstrap\n@2\nD=A\n@3\nD=D+A\n@0\nM=D\n"
	parser := asm.NewParser(strings.NewReader(source))

	program, err := parser.Parse()
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	want := asm.Program{
		asm.AInstruction{Location: "2"},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "3"},
		asm.CInstruction{Dest: "D", Comp: "D+A"},
		asm.AInstruction{Location: "0"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}

	if len(program) != len(want) {
		t.Fatalf("expected %d statements, got %d: %+v", len(want), len(program), program)
	}
	for i := range want {
		if program[i] != want[i] {
			t.Fatalf("statement %d: got %+v, want %+v", i, program[i], want[i])
		}
	}
}

func TestParseLabelDecl(t *testing.T) {
	source := "(LOOP)\n@LOOP\n0;JMP\n"
	parser := asm.NewParser(strings.NewReader(source))

	program, err := parser.Parse()
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	want := asm.Program{
		asm.LabelDecl{Name: "LOOP"},
		asm.AInstruction{Location: "LOOP"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	}
	if len(program) != len(want) {
		t.Fatalf("expected %d statements, got %d: %+v", len(want), len(program), program)
	}
	for i := range want {
		if program[i] != want[i] {
			t.Fatalf("statement %d: got %+v, want %+v", i, program[i], want[i])
		}
	}
}
