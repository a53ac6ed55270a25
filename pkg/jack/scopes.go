package jack

import (
	"github.com/n2t-toolchain/hackc/internal/diag"
	"github.com/n2t-toolchain/hackc/pkg/utils"
)

// ----------------------------------------------------------------------------
// Symbols & Scopes

// Kind is the storage class of a Jack variable (§3.3).
type Kind string

const (
	KindStatic   Kind = "static"
	KindField    Kind = "field"
	KindArgument Kind = "argument"
	KindVar      Kind = "var"
)

// Symbol records a declared name's type, storage kind, and its dense zero-based position
// within its (scope, kind) — the record the VM segment/offset pair of a push/pop is
// derived from.
type Symbol struct {
	Name  string
	Type  string // one of "int", "char", "boolean", or a class name
	Kind  Kind
	Index uint16
}

// ScopeTable holds the two scope levels well-formed Jack input ever needs at once: the
// enclosing class's static/field symbols, and the currently compiling subroutine's
// argument/var symbols. Lookup walks innermost (var) outward to static (§3.3).
//
// A 'utils.Stack' backs each kind so that, like the teacher's scope table, the most
// recently pushed declaration of a shadowed name wins resolution.
type ScopeTable struct {
	class string

	static utils.Stack[Symbol]
	field  utils.Stack[Symbol]

	argument utils.Stack[Symbol]
	local    utils.Stack[Symbol]
}

// NewScopeTable returns an empty ScopeTable.
func NewScopeTable() *ScopeTable { return &ScopeTable{} }

// PushClassScope resets the class-level (static/field) scope for a new class.
func (st *ScopeTable) PushClassScope(class string) {
	st.class = class
	st.static, st.field = utils.Stack[Symbol]{}, utils.Stack[Symbol]{}
}

// PopClassScope clears the class-level scope.
func (st *ScopeTable) PopClassScope() { st.class, st.static, st.field = "", utils.Stack[Symbol]{}, utils.Stack[Symbol]{} }

// PushSubroutineScope resets the subroutine-level (argument/var) scope. The class scope
// (static/field) is left untouched since it outlives any one subroutine.
func (st *ScopeTable) PushSubroutineScope() {
	st.argument, st.local = utils.Stack[Symbol]{}, utils.Stack[Symbol]{}
}

// PopSubroutineScope clears the subroutine-level scope.
func (st *ScopeTable) PopSubroutineScope() {
	st.argument, st.local = utils.Stack[Symbol]{}, utils.Stack[Symbol]{}
}

// Declare registers a new symbol in the scope matching its Kind, assigning it the next
// dense index for that (scope, kind) pair.
func (st *ScopeTable) Declare(name, typ string, kind Kind) Symbol {
	stack := st.stackFor(kind)
	symbol := Symbol{Name: name, Type: typ, Kind: kind, Index: uint16(stack.Count())}
	stack.Push(symbol)
	return symbol
}

func (st *ScopeTable) stackFor(kind Kind) *utils.Stack[Symbol] {
	switch kind {
	case KindStatic:
		return &st.static
	case KindField:
		return &st.field
	case KindArgument:
		return &st.argument
	default:
		return &st.local
	}
}

// Count returns how many symbols of 'kind' have been declared in the scope currently
// holding that kind (e.g. KindField count for the current class).
func (st *ScopeTable) Count(kind Kind) int { return st.stackFor(kind).Count() }

// Resolve looks up 'name', walking local var -> argument -> field -> static, the first
// (and therefore most recently declared, in case of shadowing) hit winning.
func (st *ScopeTable) Resolve(name string) (Symbol, error) {
	for _, stack := range []utils.Stack[Symbol]{st.local, st.argument, st.field, st.static} {
		if symbol, found := latestMatch(stack, name); found {
			return symbol, nil
		}
	}
	return Symbol{}, diag.Errorf(diag.Resolution, "variable '%s' undeclared, not found in any scope", name)
}

// latestMatch walks a Stack's entries, latest first, returning the first whose Name
// matches: this is what lets a shadowing re-declaration win lookup.
func latestMatch(stack utils.Stack[Symbol], name string) (Symbol, bool) {
	for i := stack.Count() - 1; i >= 0; i-- {
		symbol, ok := stack.At(i)
		if ok && symbol.Name == name {
			return symbol, true
		}
	}
	return Symbol{}, false
}
