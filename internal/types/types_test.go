package types

import (
	"testing"

	"github.com/go-cppc/cppc/internal/intern"
)

func TestInternPrimitiveDeduplicates(t *testing.T) {
	reg := New()
	a := reg.InternPrimitive(Int, 32, 32, 32, false, CVNone)
	b := reg.InternPrimitive(Int, 32, 32, 32, false, CVNone)
	if a != b {
		t.Fatalf("two `int` interns produced different TypeIndex: %v != %v", a, b)
	}

	u := reg.InternPrimitive(Int, 32, 32, 32, true, CVNone)
	if u == a {
		t.Fatalf("unsigned int must not share a TypeIndex with int")
	}
}

func TestUserStructsAlwaysFresh(t *testing.T) {
	reg := New()
	strs := intern.New()
	ns := QualifiedIdentifier{Name: strs.Intern("S")}

	idx1, _ := reg.DeclareStruct(ns, false)
	idx2, _ := reg.DeclareStruct(ns, false)
	if idx1 == idx2 {
		t.Fatalf("two struct declarations must not share a TypeIndex even with the same name")
	}
}

func TestLookupReturnsStableInfo(t *testing.T) {
	reg := New()
	idx := reg.InternPrimitive(Float64, 64, 64, 0, false, CVNone)
	first := reg.Lookup(idx)
	// Force growth of the underlying table.
	for i := 0; i < 100; i++ {
		reg.InternArray(idx, int64(i), 64, 64)
	}
	second := reg.Lookup(idx)
	if first != second {
		t.Fatalf("TypeIndex %v resolved to different Info after growth: %+v != %+v", idx, first, second)
	}
}

func TestPointerInterning(t *testing.T) {
	reg := New()
	intIdx := reg.InternPrimitive(Int, 32, 32, 32, false, CVNone)
	p1 := reg.InternPointer(intIdx, CVNone, false)
	p2 := reg.InternPointer(intIdx, CVNone, false)
	if p1 != p2 {
		t.Fatalf("int* interned twice produced different indices")
	}
	constP := reg.InternPointer(intIdx, CVConst, false)
	if constP == p1 {
		t.Fatalf("const int* must differ from int*")
	}
	ref := reg.InternPointer(intIdx, CVNone, true)
	if ref == p1 {
		t.Fatalf("int& must differ from int*")
	}
}

func TestTemplateInstantiationCacheRoundTrip(t *testing.T) {
	reg := New()
	strs := intern.New()
	base := QualifiedIdentifier{Name: strs.Intern("id")}
	intIdx := reg.InternPrimitive(Int, 32, 32, 32, false, CVNone)

	if _, ok := reg.LookupInstantiation(base, []TypeIndex{intIdx}, nil); ok {
		t.Fatalf("expected no cached instantiation before RecordInstantiation")
	}

	decl, _ := reg.DeclareStruct(QualifiedIdentifier{Name: strs.Intern("id<int>")}, false)
	reg.RecordInstantiation(base, []TypeIndex{intIdx}, nil, decl)

	got, ok := reg.LookupInstantiation(base, []TypeIndex{intIdx}, nil)
	if !ok || got != decl {
		t.Fatalf("LookupInstantiation = (%v, %v), want (%v, true)", got, ok, decl)
	}
}

func TestStructInfoMutableInPlace(t *testing.T) {
	reg := New()
	strs := intern.New()
	name := QualifiedIdentifier{Name: strs.Intern("Point")}
	idx, si := reg.DeclareStruct(name, false)

	si.Fields = append(si.Fields, FieldInfo{Name: strs.Intern("x"), Type: 0})
	got := reg.Lookup(idx)
	if len(got.Struct.Fields) != 1 {
		t.Fatalf("mutating the StructInfo pointer should be visible through Lookup, got %+v", got.Struct)
	}
}
