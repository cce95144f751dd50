package nsreg

import (
	"testing"

	"github.com/go-cppc/cppc/internal/intern"
)

func TestDeclareReopensSameHandle(t *testing.T) {
	strs := intern.New()
	reg := New(strs)
	name := strs.Intern("foo")

	a := reg.Declare(GLOBAL, name)
	b := reg.Declare(GLOBAL, name)
	if a != b {
		t.Fatalf("reopening namespace foo gave different handles: %v != %v", a, b)
	}
}

func TestNestedQualifiedName(t *testing.T) {
	strs := intern.New()
	reg := New(strs)
	a := reg.Declare(GLOBAL, strs.Intern("a"))
	b := reg.Declare(a, strs.Intern("b"))
	c := reg.Declare(b, strs.Intern("c"))

	if got := reg.QualifiedName(c); got != "a::b::c" {
		t.Errorf("QualifiedName = %q, want a::b::c", got)
	}
	if reg.Depth(c) != 3 {
		t.Errorf("Depth = %d, want 3", reg.Depth(c))
	}
}

func TestIsAncestor(t *testing.T) {
	strs := intern.New()
	reg := New(strs)
	a := reg.Declare(GLOBAL, strs.Intern("a"))
	b := reg.Declare(a, strs.Intern("b"))

	if !reg.IsAncestor(GLOBAL, b) {
		t.Error("GLOBAL should be an ancestor of everything")
	}
	if !reg.IsAncestor(a, b) {
		t.Error("a should be an ancestor of b")
	}
	if reg.IsAncestor(b, a) {
		t.Error("b must not be an ancestor of a")
	}
}

func TestGlobalHasNoParent(t *testing.T) {
	strs := intern.New()
	reg := New(strs)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling Parent(GLOBAL)")
		}
	}()
	reg.Parent(GLOBAL)
}
