package vm_test

import (
	"testing"

	"github.com/n2t-toolchain/hackc/pkg/vm"
)

func TestGenerateMemoryOp(t *testing.T) {
	codegen := vm.NewCodeGenerator(vm.Program{})

	test := func(op vm.MemoryOp, expected string, fail bool) {
		res, err := codegen.GenerateMemoryOp(op)
		if (err != nil) != fail {
			t.Fatalf("GenerateMemoryOp(%+v): err=%v, want fail=%v", op, err, fail)
		}
		if !fail && res != expected {
			t.Fatalf("GenerateMemoryOp(%+v) = %q, want %q", op, res, expected)
		}
	}

	test(vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 5}, "push constant 5", false)
	test(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Local, Offset: 3}, "pop local 3", false)
	test(vm.MemoryOp{Operation: vm.Push, Segment: vm.Temp, Offset: 8}, "", true)
	test(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 2}, "", true)
}

func TestGenerateArithmeticOp(t *testing.T) {
	codegen := vm.NewCodeGenerator(vm.Program{})

	for _, op := range []vm.ArithOpType{vm.Add, vm.Sub, vm.Neg, vm.Eq, vm.Gt, vm.Lt, vm.And, vm.Or, vm.Not} {
		res, err := codegen.GenerateArithmeticOp(vm.ArithmeticOp{Operation: op})
		if err != nil {
			t.Fatalf("GenerateArithmeticOp(%s): unexpected error: %v", op, err)
		}
		if res != string(op) {
			t.Fatalf("GenerateArithmeticOp(%s) = %q, want %q", op, res, op)
		}
	}
}

func TestGenerateGotoOp(t *testing.T) {
	codegen := vm.NewCodeGenerator(vm.Program{})

	test := func(op vm.GotoOp, expected string, fail bool) {
		res, err := codegen.GenerateGotoOp(op)
		if (err != nil) != fail {
			t.Fatalf("GenerateGotoOp(%+v): err=%v, want fail=%v", op, err, fail)
		}
		if !fail && res != expected {
			t.Fatalf("GenerateGotoOp(%+v) = %q, want %q", op, res, expected)
		}
	}

	test(vm.GotoOp{Jump: vm.Goto, Label: "END"}, "goto END", false)
	test(vm.GotoOp{Jump: vm.IfGoto, Label: "CHECK"}, "if-goto CHECK", false)
	test(vm.GotoOp{Jump: vm.Goto, Label: ""}, "", true)
}

func TestGenerateFuncDeclAndCall(t *testing.T) {
	codegen := vm.NewCodeGenerator(vm.Program{})

	decl, err := codegen.GenerateFuncDecl(vm.FuncDecl{Name: "Main.run", NLocal: 2})
	if err != nil || decl != "function Main.run 2" {
		t.Fatalf("GenerateFuncDecl: got (%q, %v)", decl, err)
	}

	call, err := codegen.GenerateFuncCallOp(vm.FuncCallOp{Name: "Main.run", NArgs: 2})
	if err != nil || call != "call Main.run 2" {
		t.Fatalf("GenerateFuncCallOp: got (%q, %v)", call, err)
	}

	ret, err := codegen.GenerateReturnOp(vm.ReturnOp{})
	if err != nil || ret != "return" {
		t.Fatalf("GenerateReturnOp: got (%q, %v)", ret, err)
	}

	if _, err := codegen.GenerateFuncDecl(vm.FuncDecl{Name: ""}); err == nil {
		t.Fatal("expected error for empty function declaration")
	}
}
