package symbols

import (
	"testing"

	"github.com/go-cppc/cppc/internal/intern"
	"github.com/go-cppc/cppc/internal/nsreg"
	"github.com/go-cppc/cppc/internal/types"
)

func setup() (*intern.Table, *nsreg.Registry, *Table) {
	strs := intern.New()
	reg := nsreg.New(strs)
	tab := New(reg)
	return strs, reg, tab
}

func TestInsertAndLookupUnqualified(t *testing.T) {
	strs, _, tab := setup()
	name := strs.Intern("x")
	sym := &Symbol{Name: types.QualifiedIdentifier{Namespace: nsreg.GLOBAL, Name: name}, Kind: Var}
	if err := tab.Insert(sym); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, ok := tab.LookupUnqualified(name)
	if !ok || got != sym {
		t.Fatalf("LookupUnqualified = (%v, %v), want (%v, true)", got, ok, sym)
	}
}

func TestPopDiscardsLocalScope(t *testing.T) {
	strs, _, tab := setup()
	name := strs.Intern("local")
	tab.Push(nsreg.GLOBAL)
	_ = tab.Insert(&Symbol{Name: types.QualifiedIdentifier{Name: name}, Kind: Var})
	if _, ok := tab.LookupUnqualified(name); !ok {
		t.Fatal("expected local symbol to be visible before Pop")
	}
	tab.Pop()
	if _, ok := tab.LookupUnqualified(name); ok {
		t.Fatal("expected local symbol to be gone after Pop")
	}
}

func TestOverloadSetAccumulates(t *testing.T) {
	strs, _, tab := setup()
	name := strs.Intern("f")
	qid := types.QualifiedIdentifier{Name: name}
	a := &Symbol{Name: qid, Kind: Function, Type: 1}
	b := &Symbol{Name: qid, Kind: Function, Type: 2}
	if err := tab.Insert(a); err != nil {
		t.Fatal(err)
	}
	if err := tab.Insert(b); err != nil {
		t.Fatal(err)
	}
	head, ok := tab.LookupUnqualified(name)
	if !ok {
		t.Fatal("expected to find f")
	}
	if len(head.Overloads) != 2 {
		t.Fatalf("expected 2 overloads, got %d: %+v", len(head.Overloads), head.Overloads)
	}
}

func TestQualifiedLookupDoesNotFallBackToGlobal(t *testing.T) {
	// Open Question (a): other_ns::f() must not resolve against a
	// global-namespace f.
	strs, reg, tab := setup()
	name := strs.Intern("f")
	_ = tab.Insert(&Symbol{Name: types.QualifiedIdentifier{Namespace: nsreg.GLOBAL, Name: name}, Kind: Function})

	otherNS := reg.Declare(nsreg.GLOBAL, strs.Intern("other_ns"))
	if _, ok := tab.LookupQualified(otherNS, name); ok {
		t.Fatal("qualified lookup into other_ns must not find the global f")
	}
}

func TestUnqualifiedWidensToEnclosingNamespace(t *testing.T) {
	strs, reg, tab := setup()
	ns := reg.Declare(nsreg.GLOBAL, strs.Intern("ns"))
	name := strs.Intern("g")
	_ = tab.Insert(&Symbol{Name: types.QualifiedIdentifier{Namespace: nsreg.GLOBAL, Name: name}, Kind: Function})

	tab.Push(ns)
	defer tab.Pop()
	if _, ok := tab.LookupUnqualified(name); !ok {
		t.Fatal("unqualified lookup should widen from ns out to GLOBAL")
	}
}

func TestRedeclarationOfNonFunctionIsError(t *testing.T) {
	strs, _, tab := setup()
	name := strs.Intern("x")
	_ = tab.Insert(&Symbol{Name: types.QualifiedIdentifier{Name: name}, Kind: Var})
	err := tab.Insert(&Symbol{Name: types.QualifiedIdentifier{Name: name}, Kind: Var})
	if err == nil {
		t.Fatal("expected redeclaration error")
	}
}

func TestForwardDeclarationCompletes(t *testing.T) {
	strs, _, tab := setup()
	name := strs.Intern("f")
	qid := types.QualifiedIdentifier{Name: name}
	_ = tab.Insert(&Symbol{Name: qid, Kind: Function, IsForward: true})
	full := &Symbol{Name: qid, Kind: Function}
	if err := tab.Insert(full); err != nil {
		t.Fatalf("completing forward decl: %v", err)
	}
	got, _ := tab.LookupUnqualified(name)
	if got.IsForward {
		t.Fatal("expected completed (non-forward) symbol to be visible")
	}
}
