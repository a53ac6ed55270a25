package jack

import "github.com/n2t-toolchain/hackc/pkg/vm"

// ----------------------------------------------------------------------------
// Emitter

// Emitter owns the output sink (one 'vm.Module' per compiled class) and every monotonic
// counter needed during emission: the if/while label counters are per-subroutine and are
// reset by 'ResetLabels' on every subroutine entry, so no process-wide global ever backs
// them (spec's design note on "Global mutable state in code emitters").
type Emitter struct {
	module vm.Module

	nIf    int
	nWhile int
}

// NewEmitter returns an Emitter with an empty module.
func NewEmitter() *Emitter { return &Emitter{} }

// Module returns the accumulated module, in emission order.
func (e *Emitter) Module() vm.Module { return e.module }

// ResetLabels zeroes the if/while counters; called once per subroutine entry.
func (e *Emitter) ResetLabels() { e.nIf, e.nWhile = 0, 0 }

// NextIf returns the next if-statement counter and advances it.
func (e *Emitter) NextIf() int { n := e.nIf; e.nIf++; return n }

// NextWhile returns the next while-statement counter and advances it.
func (e *Emitter) NextWhile() int { n := e.nWhile; e.nWhile++; return n }

func (e *Emitter) emit(op vm.Operation) { e.module = append(e.module, op) }

func (e *Emitter) Push(segment vm.SegmentType, index uint16) {
	e.emit(vm.MemoryOp{Operation: vm.Push, Segment: segment, Offset: index})
}

func (e *Emitter) Pop(segment vm.SegmentType, index uint16) {
	e.emit(vm.MemoryOp{Operation: vm.Pop, Segment: segment, Offset: index})
}

func (e *Emitter) PushConstant(n uint16) { e.Push(vm.Constant, n) }

func (e *Emitter) Arithmetic(op vm.ArithOpType) { e.emit(vm.ArithmeticOp{Operation: op}) }

func (e *Emitter) Label(name string) { e.emit(vm.LabelDecl{Name: name}) }

func (e *Emitter) Goto(name string) { e.emit(vm.GotoOp{Jump: vm.Goto, Label: name}) }

func (e *Emitter) IfGoto(name string) { e.emit(vm.GotoOp{Jump: vm.IfGoto, Label: name}) }

func (e *Emitter) Call(name string, nArgs uint16) {
	e.emit(vm.FuncCallOp{Name: name, NArgs: nArgs})
}

func (e *Emitter) Function(name string, nLocal uint16) {
	e.emit(vm.FuncDecl{Name: name, NLocal: nLocal})
}

func (e *Emitter) Return() { e.emit(vm.ReturnOp{}) }

// segmentFor maps a Jack storage Kind to the VM segment it is backed by (§4.3.4): a
// 'field' lives in the object's 'this' segment, a plain local 'var' in 'local'.
func segmentFor(kind Kind) vm.SegmentType {
	switch kind {
	case KindStatic:
		return vm.Static
	case KindField:
		return vm.This
	case KindArgument:
		return vm.Argument
	default:
		return vm.Local
	}
}
