package constexpr

import (
	"testing"

	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/intern"
	"github.com/go-cppc/cppc/internal/nsreg"
	"github.com/go-cppc/cppc/internal/symbols"
	"github.com/go-cppc/cppc/internal/template"
	"github.com/go-cppc/cppc/internal/token"
	"github.com/go-cppc/cppc/internal/types"
)

func fixture(t *testing.T) *Evaluator {
	t.Helper()
	strs := intern.New()
	tyReg := types.New()
	nsReg := nsreg.New(strs)
	syms := symbols.New(nsReg)
	in := template.New(tyReg, syms, strs)
	return New(tyReg, syms, strs, in, 0)
}

func ident(name string) *ast.Ident {
	return &ast.Ident{Name: name}
}

func intLit(v int64) *ast.IntLiteral {
	return &ast.IntLiteral{Value: v, Width: 32}
}

func binary(op token.Kind, l, r ast.Expr) *ast.BinaryExpr {
	return &ast.BinaryExpr{ExprBase: ast.ExprBase{Tok: token.Token{Kind: op}}, Op: op, Left: l, Right: r}
}

func TestEvalArithmetic(t *testing.T) {
	e := fixture(t)
	// (2 + 3) * 4 == 20
	expr := binary(token.Star, binary(token.Plus, intLit(2), intLit(3)), intLit(4))
	v, err := e.EvalConst(expr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != KindInt || v.I != 20 {
		t.Fatalf("got %v, want int 20", v)
	}
}

func TestEvalDivisionByZeroErrors(t *testing.T) {
	e := fixture(t)
	expr := binary(token.Slash, intLit(1), intLit(0))
	if _, err := e.EvalConst(expr); err == nil {
		t.Fatal("expected an error for division by zero")
	}
}

func TestEvalOverflowErrors(t *testing.T) {
	e := fixture(t)
	// Two values that overflow a 32-bit signed int when multiplied.
	expr := binary(token.Star, intLit(1<<30), intLit(4))
	if _, err := e.EvalConst(expr); err == nil {
		t.Fatal("expected an overflow error")
	}
}

func TestEvalShiftOutOfRangeErrors(t *testing.T) {
	e := fixture(t)
	expr := binary(token.ShiftLeft, intLit(1), intLit(40))
	if _, err := e.EvalConst(expr); err == nil {
		t.Fatal("expected a shift-range error")
	}
}

func TestHeapAllocLoadStoreAndFree(t *testing.T) {
	e := fixture(t)
	h := newHeap()
	ty := e.intType(32, false)
	p, err := h.Alloc(ty, 4)
	if err != nil {
		t.Fatalf("alloc failed: %v", err)
	}
	if err := h.Store(p, IntValue(42, ty)); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	v, err := h.Load(p)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if v.I != 42 {
		t.Fatalf("got %d, want 42", v.I)
	}
	oob := p
	oob.Offset = 4
	if _, err := h.Load(oob); err == nil {
		t.Fatal("expected an out-of-bounds error")
	}
	if err := h.Free(p); err != nil {
		t.Fatalf("free failed: %v", err)
	}
	if err := h.Free(p); err == nil {
		t.Fatal("expected a double-free error")
	}
	if _, err := h.Load(p); err == nil {
		t.Fatal("expected a use-after-free error")
	}
}

func TestHeapLeakDetected(t *testing.T) {
	e := fixture(t)
	h := newHeap()
	if _, err := h.Alloc(e.intType(32, false), 1); err != nil {
		t.Fatalf("alloc failed: %v", err)
	}
	if leaks := h.Leaks(); len(leaks) != 1 {
		t.Fatalf("got %d leaks, want 1", len(leaks))
	}
}

// TestEvalFactorialFunctionCall exercises a recursive-looking iterative
// constexpr function: int f(int n) { int r = 1; for (int i = 1; i <= n;
// ++i) r *= i; return r; } followed by f(5) == 120.
func TestEvalFactorialFunctionCall(t *testing.T) {
	e := fixture(t)
	intTy := &ast.TypeExpr{Name: "int"}
	body := &ast.CompoundStmt{Stmts: []ast.Stmt{
		&ast.DeclStmt{D: &ast.VarDecl{DeclBase: ast.DeclBase{Name: "r"}, Type: intTy, Init: intLit(1)}},
		&ast.ForStmt{
			Init: &ast.DeclStmt{D: &ast.VarDecl{DeclBase: ast.DeclBase{Name: "i"}, Type: intTy, Init: intLit(1)}},
			Cond: binary(token.LessEq, ident("i"), ident("n")),
			Post: &ast.UnaryExpr{Op: token.PlusPlus, Operand: ident("i")},
			Body: &ast.ExprStmt{X: &ast.BinaryExpr{Op: token.StarAssign, Left: ident("r"), Right: ident("i")}},
		},
		&ast.ReturnStmt{Value: ident("r")},
	}}
	fd := &ast.FunctionDecl{
		DeclBase:    ast.DeclBase{Name: "f"},
		Params:      []*ast.ParamDecl{{Name: "n", Type: intTy}},
		ReturnType:  intTy,
		Body:        body,
		IsConstexpr: true,
	}
	e.RegisterFunction(fd)

	call := &ast.CallExpr{Callee: ident("f"), Args: []ast.Expr{intLit(5)}}
	v, err := e.EvalConst(call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != KindInt || v.I != 120 {
		t.Fatalf("got %v, want int 120", v)
	}
}

func TestEvalNonConstexprFunctionRejected(t *testing.T) {
	e := fixture(t)
	intTy := &ast.TypeExpr{Name: "int"}
	fd := &ast.FunctionDecl{
		DeclBase:   ast.DeclBase{Name: "g"},
		Params:     nil,
		ReturnType: intTy,
		Body:       &ast.CompoundStmt{Stmts: []ast.Stmt{&ast.ReturnStmt{Value: intLit(1)}}},
	}
	e.RegisterFunction(fd)
	call := &ast.CallExpr{Callee: ident("g")}
	if _, err := e.EvalConst(call); err == nil {
		t.Fatal("expected an error calling a non-constexpr function")
	}
}

func TestEvalStaticAssertTrue(t *testing.T) {
	e := fixture(t)
	cond := binary(token.Eq, intLit(4), binary(token.Plus, intLit(2), intLit(2)))
	ok, err := e.EvalStaticAssert(cond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected static_assert condition to hold")
	}
}
