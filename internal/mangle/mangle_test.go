package mangle

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/go-cppc/cppc/internal/intern"
	"github.com/go-cppc/cppc/internal/nsreg"
	"github.com/go-cppc/cppc/internal/types"
)

func fixture() (*types.Registry, *nsreg.Registry, *intern.Table) {
	strs := intern.New()
	tyReg := types.New()
	nsReg := nsreg.New(strs)
	return tyReg, nsReg, strs
}

func TestItaniumFreeFunctionMangling(t *testing.T) {
	tyReg, nsReg, strs := fixture()
	m := New(Itanium, tyReg, nsReg, strs)

	intType := tyReg.InternPrimitive(types.Int, 32, 32, 32, false, types.CVNone)
	qid := types.QualifiedIdentifier{Namespace: nsreg.GLOBAL, Name: strs.Intern("add")}
	sig := types.FuncTypeInfo{Params: []types.TypeIndex{intType, intType}, Return: intType}

	got := m.FunctionName(qid, sig, false, 0)
	snaps.MatchSnapshot(t, "itanium_add_int_int", got)
}

func TestItaniumNamespacedFunctionMangling(t *testing.T) {
	tyReg, nsReg, strs := fixture()
	m := New(Itanium, tyReg, nsReg, strs)

	ns := nsReg.Declare(nsreg.GLOBAL, strs.Intern("mathutil"))
	intType := tyReg.InternPrimitive(types.Int, 32, 32, 32, false, types.CVNone)
	qid := types.QualifiedIdentifier{Namespace: ns, Name: strs.Intern("square")}
	sig := types.FuncTypeInfo{Params: []types.TypeIndex{intType}, Return: intType}

	got := m.FunctionName(qid, sig, false, 0)
	snaps.MatchSnapshot(t, "itanium_mathutil_square_int", got)
}

func TestItaniumMainIsUnmangled(t *testing.T) {
	tyReg, nsReg, strs := fixture()
	m := New(Itanium, tyReg, nsReg, strs)

	qid := types.QualifiedIdentifier{Namespace: nsreg.GLOBAL, Name: strs.Intern("main")}
	got := m.FunctionName(qid, types.FuncTypeInfo{}, false, 0)
	if got != "main" {
		t.Fatalf("main must stay unmangled, got %q", got)
	}
}

func TestVTableAndRTTISymbols(t *testing.T) {
	tyReg, nsReg, strs := fixture()
	m := New(Itanium, tyReg, nsReg, strs)

	classIdx, si := tyReg.DeclareStruct(types.QualifiedIdentifier{Namespace: nsreg.GLOBAL, Name: strs.Intern("Shape")}, false)
	si.HasVTable = true

	snaps.MatchSnapshot(t, "itanium_vtable_shape", m.VTableSymbol(classIdx))
	snaps.MatchSnapshot(t, "itanium_typeinfo_shape", m.TypeInfoSymbol(classIdx))
	snaps.MatchSnapshot(t, "itanium_typename_shape", m.TypeNameSymbol(classIdx))
}

func TestMSVCFreeFunctionMangling(t *testing.T) {
	tyReg, nsReg, strs := fixture()
	m := New(MSVC, tyReg, nsReg, strs)

	intType := tyReg.InternPrimitive(types.Int, 32, 32, 32, false, types.CVNone)
	qid := types.QualifiedIdentifier{Namespace: nsreg.GLOBAL, Name: strs.Intern("add")}
	sig := types.FuncTypeInfo{Params: []types.TypeIndex{intType, intType}, Return: intType}

	got := m.FunctionName(qid, sig, false, 0)
	snaps.MatchSnapshot(t, "msvc_add_int_int", got)
}

func TestMangledNamesAreStableAndDistinct(t *testing.T) {
	tyReg, nsReg, strs := fixture()
	m := New(Itanium, tyReg, nsReg, strs)

	intType := tyReg.InternPrimitive(types.Int, 32, 32, 32, false, types.CVNone)
	floatType := tyReg.InternPrimitive(types.Float32, 32, 32, 0, false, types.CVNone)
	qid := types.QualifiedIdentifier{Namespace: nsreg.GLOBAL, Name: strs.Intern("f")}

	a := m.FunctionName(qid, types.FuncTypeInfo{Params: []types.TypeIndex{intType}, Return: intType}, false, 0)
	b := m.FunctionName(qid, types.FuncTypeInfo{Params: []types.TypeIndex{floatType}, Return: intType}, false, 0)
	if a == b {
		t.Fatalf("overloads f(int) and f(float) must mangle differently, both got %q", a)
	}

	a2 := m.FunctionName(qid, types.FuncTypeInfo{Params: []types.TypeIndex{intType}, Return: intType}, false, 0)
	if a != a2 {
		t.Fatalf("mangling the same signature twice must be stable: %q != %q", a, a2)
	}
}
