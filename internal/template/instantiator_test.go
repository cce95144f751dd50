package template

import (
	"testing"

	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/intern"
	"github.com/go-cppc/cppc/internal/nsreg"
	"github.com/go-cppc/cppc/internal/symbols"
	"github.com/go-cppc/cppc/internal/types"
)

// fixture builds the shared registries plus one registered class template:
//
//	template <typename T> struct Box { T value; };
func fixture(t *testing.T) (*Instantiator, types.QualifiedIdentifier, *intern.Table) {
	t.Helper()
	strs := intern.New()
	tyReg := types.New()
	nsReg := nsreg.New(strs)
	syms := symbols.New(nsReg)
	in := New(tyReg, syms, strs)

	base := types.QualifiedIdentifier{Name: strs.Intern("Box")}
	valueTE := &ast.TypeExpr{Name: "T"}
	boxBody := &ast.StructDecl{
		DeclBase:     ast.DeclBase{Name: "Box", QualID: base},
		Members:      []ast.Decl{&ast.VarDecl{DeclBase: ast.DeclBase{Name: "value"}, Type: valueTE}},
		MemberAccess: []types.Access{types.Public},
	}
	td := &ast.TemplateDecl{
		DeclBase: ast.DeclBase{Name: "Box", QualID: base},
		Params:   []*ast.TemplateParamDecl{{Name: "T", IsTypeParam: true}},
		Pattern:  boxBody,
	}
	in.RegisterTemplate(td, false)
	return in, base, strs
}

func TestInstantiateTypeCachesByArguments(t *testing.T) {
	in, base, _ := fixture(t)
	intIdx := in.Types.InternPrimitive(types.Int, 32, 32, 32, false, types.CVNone)

	idx1, err := in.InstantiateType(base, []types.TypeIndex{intIdx}, nil)
	if err != nil {
		t.Fatalf("InstantiateType(int) error: %v", err)
	}
	idx2, err := in.InstantiateType(base, []types.TypeIndex{intIdx}, nil)
	if err != nil {
		t.Fatalf("second InstantiateType(int) error: %v", err)
	}
	if idx1 != idx2 {
		t.Fatalf("Box<int> instantiated twice produced different indices: %v != %v", idx1, idx2)
	}

	floatIdx := in.Types.InternPrimitive(types.Float32, 32, 32, 0, false, types.CVNone)
	idx3, err := in.InstantiateType(base, []types.TypeIndex{floatIdx}, nil)
	if err != nil {
		t.Fatalf("InstantiateType(float) error: %v", err)
	}
	if idx3 == idx1 {
		t.Fatalf("Box<float> must not share a TypeIndex with Box<int>")
	}
}

func TestInstantiateTypeSubstitutesFieldType(t *testing.T) {
	in, base, _ := fixture(t)
	intIdx := in.Types.InternPrimitive(types.Int, 32, 32, 32, false, types.CVNone)

	idx, err := in.InstantiateType(base, []types.TypeIndex{intIdx}, nil)
	if err != nil {
		t.Fatalf("InstantiateType error: %v", err)
	}
	info := in.Types.Lookup(idx)
	if info.Struct == nil || len(info.Struct.Fields) != 1 {
		t.Fatalf("expected Box<int> to carry exactly one field, got %+v", info.Struct)
	}
	if info.Struct.Fields[0].Type != intIdx {
		t.Fatalf("Box<int>.value field type = %v, want substituted int index %v", info.Struct.Fields[0].Type, intIdx)
	}
}

func TestInstantiateTypeUnknownTemplateErrors(t *testing.T) {
	in, _, strs := fixture(t)
	unknown := types.QualifiedIdentifier{Name: strs.Intern("NotRegistered")}
	if _, err := in.InstantiateType(unknown, nil, nil); err == nil {
		t.Fatalf("expected an error instantiating an unregistered template")
	}
}

// idFunctionFixture registers:
//
//	template <typename T> T id(T x) { return x; }
func idFunctionFixture(t *testing.T) (*Instantiator, types.QualifiedIdentifier) {
	t.Helper()
	strs := intern.New()
	tyReg := types.New()
	nsReg := nsreg.New(strs)
	syms := symbols.New(nsReg)
	in := New(tyReg, syms, strs)

	base := types.QualifiedIdentifier{Name: strs.Intern("id")}
	paramTE := &ast.TypeExpr{Name: "T"}
	retTE := &ast.TypeExpr{Name: "T"}
	fd := &ast.FunctionDecl{
		DeclBase:   ast.DeclBase{Name: "id", QualID: base},
		Params:     []*ast.ParamDecl{{Name: "x", Type: paramTE}},
		ReturnType: retTE,
		Body: &ast.CompoundStmt{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.Ident{Name: "x"}},
		}},
	}
	td := &ast.TemplateDecl{
		DeclBase: ast.DeclBase{Name: "id", QualID: base},
		Params:   []*ast.TemplateParamDecl{{Name: "T", IsTypeParam: true}},
		Pattern:  fd,
	}
	in.RegisterTemplate(td, false)
	return in, base
}

func TestInstantiateFunctionCachesAndClonesBody(t *testing.T) {
	in, base := idFunctionFixture(t)
	intIdx := in.Types.InternPrimitive(types.Int, 32, 32, 32, false, types.CVNone)

	fd1, err := in.InstantiateFunction(base, []types.TypeIndex{intIdx}, nil)
	if err != nil {
		t.Fatalf("InstantiateFunction error: %v", err)
	}
	fd2, err := in.InstantiateFunction(base, []types.TypeIndex{intIdx}, nil)
	if err != nil {
		t.Fatalf("second InstantiateFunction error: %v", err)
	}
	if fd1 != fd2 {
		t.Fatalf("id<int> instantiated twice produced different FunctionDecl pointers")
	}
	if len(fd1.Body.Stmts) != 1 {
		t.Fatalf("expected the cloned body to keep its single return statement, got %d", len(fd1.Body.Stmts))
	}
	ret, ok := fd1.Body.Stmts[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("expected a ReturnStmt, got %T", fd1.Body.Stmts[0])
	}
	if _, ok := ret.Value.(*ast.Ident); !ok {
		t.Fatalf("expected the return value to remain an Ident (parameter reference), got %T", ret.Value)
	}
}

func TestDeduceFunctionArgsFromDirectOccurrence(t *testing.T) {
	in, base := idFunctionFixture(t)
	td := in.templates[base]
	intIdx := in.Types.InternPrimitive(types.Int, 32, 32, 32, false, types.CVNone)

	deduced, ok := in.DeduceFunctionArgs(td, []types.TypeIndex{intIdx})
	if !ok {
		t.Fatalf("expected deduction to succeed for id(int)")
	}
	if len(deduced) != 1 || deduced[0] != intIdx {
		t.Fatalf("deduced = %v, want [%v]", deduced, intIdx)
	}
}

func TestNonTypeArgumentSubstitutesIntoBody(t *testing.T) {
	strs := intern.New()
	tyReg := types.New()
	nsReg := nsreg.New(strs)
	syms := symbols.New(nsReg)
	in := New(tyReg, syms, strs)

	// template <int N> int get_n() { return N; }
	base := types.QualifiedIdentifier{Name: strs.Intern("get_n")}
	fd := &ast.FunctionDecl{
		DeclBase:   ast.DeclBase{Name: "get_n", QualID: base},
		ReturnType: &ast.TypeExpr{Name: "int"},
		Body: &ast.CompoundStmt{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.Ident{Name: "N"}},
		}},
	}
	td := &ast.TemplateDecl{
		DeclBase: ast.DeclBase{Name: "get_n", QualID: base},
		Params:   []*ast.TemplateParamDecl{{Name: "N", IsTypeParam: false, NonTypeType: &ast.TypeExpr{Name: "int"}}},
		Pattern:  fd,
	}
	in.RegisterTemplate(td, false)

	cloned, err := in.InstantiateFunction(base, nil, []int64{42})
	if err != nil {
		t.Fatalf("InstantiateFunction error: %v", err)
	}
	ret := cloned.Body.Stmts[0].(*ast.ReturnStmt)
	lit, ok := ret.Value.(*ast.IntLiteral)
	if !ok {
		t.Fatalf("expected the non-type parameter reference to be rewritten to an IntLiteral, got %T", ret.Value)
	}
	if lit.Value != 42 {
		t.Fatalf("substituted literal = %d, want 42", lit.Value)
	}
}
