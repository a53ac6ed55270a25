package jack

import "testing"

func TestScopeTableAssignsDenseIndicesPerKind(t *testing.T) {
	st := NewScopeTable()
	st.PushClassScope("Point")
	defer st.PopClassScope()

	x := st.Declare("x", "int", KindField)
	y := st.Declare("y", "int", KindField)
	count := st.Declare("count", "int", KindStatic)

	if x.Index != 0 || y.Index != 1 {
		t.Fatalf("expected dense field indices 0,1 got %d,%d", x.Index, y.Index)
	}
	if count.Index != 0 {
		t.Fatalf("expected static index to start its own sequence at 0, got %d", count.Index)
	}
}

func TestScopeTableResolvesInnerScopesBeforeOuter(t *testing.T) {
	st := NewScopeTable()
	st.PushClassScope("Main")
	defer st.PopClassScope()
	st.Declare("x", "int", KindField)

	st.PushSubroutineScope()
	defer st.PopSubroutineScope()
	st.Declare("x", "int", KindVar)

	symbol, err := st.Resolve("x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if symbol.Kind != KindVar {
		t.Fatalf("expected the local 'var' declaration to shadow the field, got kind %s", symbol.Kind)
	}
}

func TestScopeTableResolveFailsForUndeclaredName(t *testing.T) {
	st := NewScopeTable()
	st.PushClassScope("Main")
	defer st.PopClassScope()
	st.PushSubroutineScope()
	defer st.PopSubroutineScope()

	if _, err := st.Resolve("nope"); err == nil {
		t.Fatal("expected an error resolving an undeclared name")
	}
}

func TestScopeTablePopSubroutineScopeClearsArgumentsAndVars(t *testing.T) {
	st := NewScopeTable()
	st.PushClassScope("Main")
	defer st.PopClassScope()

	st.PushSubroutineScope()
	st.Declare("a", "int", KindArgument)
	st.PopSubroutineScope()

	st.PushSubroutineScope()
	defer st.PopSubroutineScope()
	if _, err := st.Resolve("a"); err == nil {
		t.Fatal("expected the previous subroutine's arguments not to leak into the next one")
	}
}
