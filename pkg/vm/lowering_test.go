package vm_test

import (
	"testing"

	"github.com/n2t-toolchain/hackc/pkg/asm"
	"github.com/n2t-toolchain/hackc/pkg/vm"
)

func TestLowerMemoryOpConstant(t *testing.T) {
	l := vm.NewLowerer(vm.Program{"Main.vm": {}}, []string{"Main.vm"})

	instructions, err := l.HandleMemoryOp(vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []asm.Instruction{
		asm.AInstruction{Location: "7"},
		asm.CInstruction{Comp: "A", Dest: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M+1", Dest: "M"},
	}
	assertInstructions(t, instructions, want)

	if _, err := l.HandleMemoryOp(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Constant}); err == nil {
		t.Fatal("expected error popping into the virtual 'constant' segment")
	}
}

func TestLowerMemoryOpIndirectSegment(t *testing.T) {
	l := vm.NewLowerer(vm.Program{"Main.vm": {}}, []string{"Main.vm"})

	push, err := l.HandleMemoryOp(vm.MemoryOp{Operation: vm.Push, Segment: vm.Local, Offset: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []asm.Instruction{
		asm.AInstruction{Location: "2"},
		asm.CInstruction{Comp: "A", Dest: "D"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Comp: "D+M", Dest: "A"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M+1", Dest: "M"},
	}
	assertInstructions(t, push, want)

	pop, err := l.HandleMemoryOp(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Argument, Offset: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pop) == 0 {
		t.Fatal("expected a non-empty instruction sequence")
	}
	// Pop of an indirect segment stashes the computed destination in R13.
	assertContains(t, pop, asm.AInstruction{Location: "R13"})
}

func TestLowerMemoryOpDirectSegment(t *testing.T) {
	l := vm.NewLowerer(vm.Program{"Main.vm": {}}, []string{"Main.vm"})

	push, err := l.HandleMemoryOp(vm.MemoryOp{Operation: vm.Push, Segment: vm.Temp, Offset: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertContains(t, push, asm.AInstruction{Location: "7"}) // 5 + 2

	if _, err := l.HandleMemoryOp(vm.MemoryOp{Operation: vm.Push, Segment: vm.Temp, Offset: 8}); err == nil {
		t.Fatal("expected error for out-of-range 'temp' offset")
	}
	if _, err := l.HandleMemoryOp(vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 2}); err == nil {
		t.Fatal("expected error for out-of-range 'pointer' offset")
	}
}

func TestLowerStaticIsolationAcrossFiles(t *testing.T) {
	program := vm.Program{"Foo.vm": {}, "Bar.vm": {}}
	order := []string{"Foo.vm", "Bar.vm"}

	l := vm.NewLowerer(program, order)
	asmProgram, err := l.Lower()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = asmProgram

	fooPush, err := lowerIn(&l, "Foo.vm", vm.MemoryOp{Operation: vm.Pop, Segment: vm.Static, Offset: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	barPush, err := lowerIn(&l, "Bar.vm", vm.MemoryOp{Operation: vm.Pop, Segment: vm.Static, Offset: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !containsInstruction(fooPush, asm.AInstruction{Location: "Foo.0"}) {
		t.Fatal("expected 'Foo.vm' static 0 to resolve to symbol 'Foo.0'")
	}
	if !containsInstruction(barPush, asm.AInstruction{Location: "Bar.0"}) {
		t.Fatal("expected 'Bar.vm' static 0 to resolve to symbol 'Bar.0'")
	}
}

func TestLowerComparisonLabelsAreUnique(t *testing.T) {
	l := vm.NewLowerer(vm.Program{"Main.vm": {}}, []string{"Main.vm"})

	first, err := l.HandleArithmeticOp(vm.ArithmeticOp{Operation: vm.Eq})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := l.HandleArithmeticOp(vm.ArithmeticOp{Operation: vm.Gt})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	firstLabel := labelDeclIn(first)
	secondLabel := labelDeclIn(second)
	if firstLabel == "" || secondLabel == "" {
		t.Fatal("expected both comparisons to declare a label")
	}
	if firstLabel == secondLabel {
		t.Fatalf("expected distinct comparison labels, got %q twice", firstLabel)
	}
}

func TestLowerLabelScopedToFunction(t *testing.T) {
	module := vm.Module{
		vm.FuncDecl{Name: "Main.loop", NLocal: 0},
		vm.LabelDecl{Name: "START"},
		vm.GotoOp{Jump: vm.Goto, Label: "START"},
	}
	l := vm.NewLowerer(vm.Program{"Main.vm": module}, []string{"Main.vm"})

	asmProgram, err := l.Lower()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !containsInstruction(asmProgram, asm.LabelDecl{Name: "Main$Main.loop$START"}) {
		t.Fatalf("expected label scoped as 'Main$Main.loop$START', got %+v", asmProgram)
	}
	if !containsInstruction(asmProgram, asm.AInstruction{Location: "Main$Main.loop$START"}) {
		t.Fatalf("expected goto target scoped as 'Main$Main.loop$START', got %+v", asmProgram)
	}
}

func TestLowerFuncDeclZerosLocals(t *testing.T) {
	l := vm.NewLowerer(vm.Program{"Main.vm": {}}, []string{"Main.vm"})

	instructions, err := l.HandleFuncDecl(vm.FuncDecl{Name: "Main.run", NLocal: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if instructions[0] != (asm.LabelDecl{Name: "Main.run"}) {
		t.Fatalf("expected function label first, got %+v", instructions[0])
	}
	// label + 2 * (5 instructions to push a zeroed local)
	if len(instructions) != 1+2*5 {
		t.Fatalf("expected %d instructions, got %d", 1+2*5, len(instructions))
	}
}

func TestLowerCallAndReturn(t *testing.T) {
	l := vm.NewLowerer(vm.Program{"Main.vm": {}}, []string{"Main.vm"})

	call, err := l.HandleFuncCallOp(vm.FuncCallOp{Name: "Main.helper", NArgs: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !containsInstruction(call, asm.AInstruction{Location: "Main.helper"}) {
		t.Fatal("expected a jump to the callee")
	}
	if !containsLabelWithPrefix(call, "returnAddr_Main.helper_") {
		t.Fatal("expected a globally unique return-address label")
	}

	ret, err := l.HandleReturnOp(vm.ReturnOp{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !containsInstruction(ret, asm.AInstruction{Location: "R13"}) {
		t.Fatal("expected the saved frame to be stashed in R13")
	}
	if !containsInstruction(ret, asm.AInstruction{Location: "R14"}) {
		t.Fatal("expected the return address to be stashed in R14")
	}
}

func TestBootstrap(t *testing.T) {
	l := vm.NewLowerer(vm.Program{"Sys.vm": {}}, []string{"Sys.vm"})

	instructions, err := l.Bootstrap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []asm.Instruction{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Comp: "A", Dest: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "D", Dest: "M"},
	}
	for i, w := range want {
		if instructions[i] != w {
			t.Fatalf("instruction %d: got %+v, want %+v", i, instructions[i], w)
		}
	}
	if !containsInstruction(instructions, asm.AInstruction{Location: "Sys.init"}) {
		t.Fatal("expected the bootstrap to jump into Sys.init")
	}
}

// ----------------------------------------------------------------------------
// Test helpers

func assertInstructions(t *testing.T, got, want []asm.Instruction) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d instructions, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("instruction %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func assertContains(t *testing.T, instructions []asm.Instruction, want asm.Instruction) {
	t.Helper()
	if !containsInstruction(instructions, want) {
		t.Fatalf("expected %+v to contain %+v", instructions, want)
	}
}

func containsInstruction(instructions []asm.Instruction, want asm.Instruction) bool {
	for _, inst := range instructions {
		if inst == want {
			return true
		}
	}
	return false
}

func containsLabelWithPrefix(instructions []asm.Instruction, prefix string) bool {
	for _, inst := range instructions {
		if decl, ok := inst.(asm.LabelDecl); ok && len(decl.Name) >= len(prefix) && decl.Name[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

func labelDeclIn(instructions []asm.Instruction) string {
	for _, inst := range instructions {
		if decl, ok := inst.(asm.LabelDecl); ok {
			return decl.Name
		}
	}
	return ""
}

// lowerIn lowers a single operation as if it appeared in 'file', by re-running Lower over
// a one-operation program and inspecting the result; used to exercise static isolation
// without threading the private 'currentFile' field directly.
func lowerIn(_ *vm.Lowerer, file string, op vm.Operation) ([]asm.Instruction, error) {
	l := vm.NewLowerer(vm.Program{file: {op}}, []string{file})
	return l.Lower()
}
