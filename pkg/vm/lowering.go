package vm

import (
	"fmt"

	"github.com/n2t-toolchain/hackc/internal/diag"
	"github.com/n2t-toolchain/hackc/pkg/asm"
)

// ----------------------------------------------------------------------------
// Vm Lowerer

// Lowerer takes a 'vm.Program' (one Module per translation unit) and produces its flat
// 'asm.Program' counterpart.
//
// Three pieces of state are carried across the whole lowering pass, per spec §3.2:
//   - a monotonically increasing comparison-label counter, unique within the output file
//   - a monotonically increasing return-address counter, keyed per callee (call site)
//   - the current file/function, used to scope 'label'/'goto'/'if-goto' targets so that
//     labels declared in different functions never collide (F$f$L, §4.2)
//
// Static variables are resolved to the assembly symbol "F.i" (F = source file, without
// extension), so the same VM index in two files never clashes (§4.2, §8 property 5).
type Lowerer struct {
	program Program
	order   []string // deterministic file iteration order

	nComparison  int
	nReturnAddr  map[string]int
	currentFile  string
	currentFunc  string
}

// NewLowerer returns a Lowerer over 'p', visiting files in 'order' (the order the caller
// encountered them, e.g. while walking a directory); this keeps output reproducible since
// a Go map's own iteration order is randomized.
func NewLowerer(p Program, order []string) Lowerer {
	return Lowerer{program: p, order: order, nReturnAddr: map[string]int{}}
}

// Lower converts every Module of the Program to its 'asm.Program' counterpart, in file
// order, with no bootstrap prologue (the caller prepends one for directory-mode input).
func (l *Lowerer) Lower() (asm.Program, error) {
	program := asm.Program{}

	for _, file := range l.order {
		module, found := l.program[file]
		if !found {
			return nil, diag.Errorf(diag.IO, "no module recorded for file '%s'", file)
		}

		l.currentFile, l.currentFunc = staticBase(file), ""
		for _, operation := range module {
			instructions, err := l.HandleOperation(operation)
			if err != nil {
				if de, ok := err.(*diag.Error); ok {
					return nil, diag.Errorf(de.Kind, "file '%s': %s", file, de.Message)
				}
				return nil, err
			}
			program = append(program, instructions...)
		}
	}

	return program, nil
}

// staticBase strips a '.vm' extension and any directory component, leaving the base name
// used as the "F" in the "F.i" static-variable symbol and the "F$f$L" label scope.
func staticBase(file string) string {
	base := file
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '/' || base[i] == '\\' {
			base = base[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

// Bootstrap returns the assembly prologue emitted once, ahead of every Module, in
// directory mode: set SP to 256, then call Sys.init under the standard calling
// convention (§4.2).
func (l *Lowerer) Bootstrap() ([]asm.Instruction, error) {
	program := []asm.Instruction{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Comp: "A", Dest: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "D", Dest: "M"},
	}

	l.currentFile, l.currentFunc = "Bootstrap", ""
	call, err := l.HandleFuncCallOp(FuncCallOp{Name: "Sys.init", NArgs: 0})
	if err != nil {
		return nil, err
	}
	return append(program, call...), nil
}

// HandleOperation dispatches a single 'vm.Operation' to its specialized handler.
func (l *Lowerer) HandleOperation(op Operation) ([]asm.Instruction, error) {
	switch tOp := op.(type) {
	case MemoryOp:
		return l.HandleMemoryOp(tOp)
	case ArithmeticOp:
		return l.HandleArithmeticOp(tOp)
	case LabelDecl:
		return l.HandleLabelDecl(tOp)
	case GotoOp:
		return l.HandleGotoOp(tOp)
	case FuncDecl:
		return l.HandleFuncDecl(tOp)
	case FuncCallOp:
		return l.HandleFuncCallOp(tOp)
	case ReturnOp:
		return l.HandleReturnOp(tOp)
	default:
		return nil, diag.Errorf(diag.Encoding, "unrecognized operation '%T'", op)
	}
}

// ----------------------------------------------------------------------------
// Shared instruction fragments

// pushD emits the canonical "push the value currently in D" fragment.
func pushD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M+1", Dest: "M"},
	}
}

// popIntoD emits the canonical "pop the stack's top into D" fragment, decrementing SP.
func popIntoD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
	}
}

// ----------------------------------------------------------------------------
// Memory Op

var indirectBase = map[SegmentType]string{
	Local:    "LCL",
	Argument: "ARG",
	This:     "THIS",
	That:     "THAT",
}

// HandleMemoryOp converts a 'vm.MemoryOp' to its assembly sequence (§4.2 Memory access).
func (l *Lowerer) HandleMemoryOp(op MemoryOp) ([]asm.Instruction, error) {
	switch op.Segment {
	case Constant:
		if op.Operation == Pop {
			return nil, diag.Errorf(diag.Syntax, "cannot 'pop' into the virtual 'constant' segment")
		}
		return append([]asm.Instruction{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Comp: "A", Dest: "D"},
		}, pushD()...), nil

	case Local, Argument, This, That:
		return l.handleIndirectMemoryOp(op, indirectBase[op.Segment])

	case Temp:
		if op.Offset > 7 {
			return nil, diag.Errorf(diag.Encoding, "invalid 'temp' offset %d, must be 0-7", op.Offset)
		}
		return l.handleDirectMemoryOp(op, fmt.Sprint(5+op.Offset))

	case Pointer:
		if op.Offset > 1 {
			return nil, diag.Errorf(diag.Encoding, "invalid 'pointer' offset %d, must be 0 or 1", op.Offset)
		}
		return l.handleDirectMemoryOp(op, fmt.Sprint(3+op.Offset))

	case Static:
		return l.handleDirectMemoryOp(op, fmt.Sprintf("%s.%d", l.currentFile, op.Offset))

	default:
		return nil, diag.Errorf(diag.Encoding, "unrecognized segment '%s'", op.Segment)
	}
}

// handleDirectMemoryOp handles the segments whose target is a single, fixed address or
// assembly symbol known at compile time (temp, pointer, static): no indirection needed.
func (l *Lowerer) handleDirectMemoryOp(op MemoryOp, target string) ([]asm.Instruction, error) {
	if op.Operation == Push {
		return append([]asm.Instruction{
			asm.AInstruction{Location: target},
			asm.CInstruction{Comp: "M", Dest: "D"},
		}, pushD()...), nil
	}

	return append(popIntoD(), []asm.Instruction{
		asm.AInstruction{Location: target},
		asm.CInstruction{Comp: "D", Dest: "M"},
	}...), nil
}

// handleIndirectMemoryOp handles the four segments whose base is itself stored in a
// runtime pointer (LCL/ARG/THIS/THAT), requiring target = *base + i to be computed.
func (l *Lowerer) handleIndirectMemoryOp(op MemoryOp, base string) ([]asm.Instruction, error) {
	if op.Operation == Push {
		return append([]asm.Instruction{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Comp: "A", Dest: "D"},
			asm.AInstruction{Location: base},
			asm.CInstruction{Comp: "D+M", Dest: "A"},
			asm.CInstruction{Comp: "M", Dest: "D"},
		}, pushD()...), nil
	}

	// Pop emits the canonical "compute destination into R13, then pop stack into [R13]".
	instructions := []asm.Instruction{
		asm.AInstruction{Location: fmt.Sprint(op.Offset)},
		asm.CInstruction{Comp: "A", Dest: "D"},
		asm.AInstruction{Location: base},
		asm.CInstruction{Comp: "D+M", Dest: "D"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Comp: "D", Dest: "M"},
	}
	instructions = append(instructions, popIntoD()...)
	instructions = append(instructions,
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
	)
	return instructions, nil
}

// ----------------------------------------------------------------------------
// Arithmetic Op

var binaryOpComp = map[ArithOpType]string{
	Add: "D+M",
	Sub: "M-D",
	And: "D&M",
	Or:  "D|M",
}

var comparisonJump = map[ArithOpType]string{
	Eq: "JEQ",
	Gt: "JGT",
	Lt: "JLT",
}

// HandleArithmeticOp converts a 'vm.ArithmeticOp' to its assembly sequence (§4.2).
func (l *Lowerer) HandleArithmeticOp(op ArithmeticOp) ([]asm.Instruction, error) {
	switch op.Operation {
	case Neg, Not:
		comp := "-M"
		if op.Operation == Not {
			comp = "!M"
		}
		return []asm.Instruction{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Comp: "M-1", Dest: "A"},
			asm.CInstruction{Comp: comp, Dest: "M"},
		}, nil

	case Add, Sub, And, Or:
		return []asm.Instruction{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Comp: "M-1", Dest: "AM"},
			asm.CInstruction{Comp: "M", Dest: "D"},
			asm.CInstruction{Comp: "A-1", Dest: "A"},
			asm.CInstruction{Comp: binaryOpComp[op.Operation], Dest: "M"},
		}, nil

	case Eq, Gt, Lt:
		return l.handleComparison(comparisonJump[op.Operation])

	default:
		return nil, diag.Errorf(diag.Encoding, "unrecognized arithmetic operation '%s'", op.Operation)
	}
}

// handleComparison computes x-y, defaults the result to false (0) and conditionally
// overwrites it with true (-1) via a freshly-named comparison label (§4.2).
func (l *Lowerer) handleComparison(jump string) ([]asm.Instruction, error) {
	n := l.nComparison
	l.nComparison++

	trueLabel := fmt.Sprintf("COMP_TRUE_%d", n)
	endLabel := fmt.Sprintf("COMP_END_%d", n)

	return []asm.Instruction{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.CInstruction{Comp: "A-1", Dest: "A"},
		asm.CInstruction{Comp: "M-D", Dest: "D"},
		asm.CInstruction{Comp: "0", Dest: "M"},
		asm.AInstruction{Location: trueLabel},
		asm.CInstruction{Comp: "D", Jump: jump},
		asm.AInstruction{Location: endLabel},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: trueLabel},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-1", Dest: "A"},
		asm.CInstruction{Comp: "-1", Dest: "M"},
		asm.LabelDecl{Name: endLabel},
	}, nil
}

// ----------------------------------------------------------------------------
// Branching Ops

// scopedLabel scopes a VM label to the current file and (if any) function, per the F$f$L
// scheme of §4.2, so labels in different functions cannot collide.
func (l *Lowerer) scopedLabel(name string) string {
	if l.currentFunc == "" {
		return fmt.Sprintf("%s$%s", l.currentFile, name)
	}
	return fmt.Sprintf("%s$%s$%s", l.currentFile, l.currentFunc, name)
}

// HandleLabelDecl converts a 'vm.LabelDecl' to a scoped 'asm.LabelDecl'.
func (l *Lowerer) HandleLabelDecl(op LabelDecl) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, diag.Errorf(diag.Syntax, "empty label declaration")
	}
	return []asm.Instruction{asm.LabelDecl{Name: l.scopedLabel(op.Name)}}, nil
}

// HandleGotoOp converts a 'vm.GotoOp' to its assembly sequence: 'goto' jumps
// unconditionally, 'if-goto' pops the condition and jumps on non-zero.
func (l *Lowerer) HandleGotoOp(op GotoOp) ([]asm.Instruction, error) {
	if op.Label == "" {
		return nil, diag.Errorf(diag.Syntax, "empty jump target")
	}
	target := l.scopedLabel(op.Label)

	if op.Jump == Goto {
		return []asm.Instruction{
			asm.AInstruction{Location: target},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	}

	instructions := popIntoD()
	return append(instructions,
		asm.AInstruction{Location: target},
		asm.CInstruction{Comp: "D", Jump: "JNE"},
	), nil
}

// ----------------------------------------------------------------------------
// Function related Ops

// HandleFuncDecl converts a 'vm.FuncDecl' to a label plus k zeroed local slots.
func (l *Lowerer) HandleFuncDecl(op FuncDecl) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, diag.Errorf(diag.Syntax, "empty function declaration")
	}
	l.currentFunc = op.Name

	instructions := []asm.Instruction{asm.LabelDecl{Name: op.Name}}
	for i := uint16(0); i < op.NLocal; i++ {
		instructions = append(instructions,
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Comp: "M", Dest: "A"},
			asm.CInstruction{Comp: "0", Dest: "M"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Comp: "M+1", Dest: "M"},
		)
	}
	return instructions, nil
}

// HandleFuncCallOp converts a 'vm.FuncCallOp' to the standard calling convention: save
// the caller's frame, reposition ARG/LCL, and jump to the callee (§4.2).
func (l *Lowerer) HandleFuncCallOp(op FuncCallOp) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, diag.Errorf(diag.Syntax, "empty function call")
	}

	i := l.nReturnAddr[op.Name]
	l.nReturnAddr[op.Name] = i + 1
	returnLabel := fmt.Sprintf("returnAddr_%s_%d", op.Name, i)

	instructions := []asm.Instruction{
		asm.AInstruction{Location: returnLabel},
		asm.CInstruction{Comp: "A", Dest: "D"},
	}
	instructions = append(instructions, pushD()...)

	for _, reg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		instructions = append(instructions,
			asm.AInstruction{Location: reg},
			asm.CInstruction{Comp: "M", Dest: "D"},
		)
		instructions = append(instructions, pushD()...)
	}

	instructions = append(instructions,
		asm.AInstruction{Location: fmt.Sprint(op.NArgs + 5)},
		asm.CInstruction{Comp: "A", Dest: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M-D", Dest: "D"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: op.Name},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: returnLabel},
	)

	return instructions, nil
}

// HandleReturnOp converts a 'vm.ReturnOp' to the standard epilogue: restore the caller's
// segments from the saved frame and jump back to the return address (§4.2).
func (l *Lowerer) HandleReturnOp(ReturnOp) ([]asm.Instruction, error) {
	instructions := []asm.Instruction{
		// R13 = frame = LCL
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// R14 = *(frame-5), the return address
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Comp: "D-A", Dest: "A"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Comp: "D", Dest: "M"},
	}

	// *ARG = pop(); SP = ARG + 1
	instructions = append(instructions, popIntoD()...)
	instructions = append(instructions,
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Comp: "M+1", Dest: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Comp: "D", Dest: "M"},
	)

	// Restore THAT, THIS, ARG, LCL from the saved frame (R13), back to front, in a fixed
	// order: a map iteration here would make the emitted assembly non-deterministic.
	restoreOrder := []struct {
		offset int
		reg    string
	}{
		{1, "THAT"}, {2, "THIS"}, {3, "ARG"}, {4, "LCL"},
	}
	for _, r := range restoreOrder {
		instructions = append(instructions,
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Comp: "M", Dest: "D"},
			asm.AInstruction{Location: fmt.Sprint(r.offset)},
			asm.CInstruction{Comp: "D-A", Dest: "A"},
			asm.CInstruction{Comp: "M", Dest: "D"},
			asm.AInstruction{Location: r.reg},
			asm.CInstruction{Comp: "D", Dest: "M"},
		)
	}

	instructions = append(instructions,
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	)

	return instructions, nil
}
