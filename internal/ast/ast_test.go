package ast

import (
	"testing"

	"github.com/go-cppc/cppc/internal/token"
	"github.com/go-cppc/cppc/internal/types"
)

func tok(kind token.Kind, lexeme string) token.Token {
	return token.Token{Kind: kind, Lexeme: lexeme, Pos: token.Position{Line: 1, Column: 1}}
}

func TestLiteralsImplementExpr(t *testing.T) {
	var exprs []Expr
	exprs = append(exprs,
		&IntLiteral{ExprBase: ExprBase{Tok: tok(token.IntLiteral, "1")}, Value: 1},
		&FloatLiteral{ExprBase: ExprBase{Tok: tok(token.FloatLiteral, "1.0")}, Value: 1.0},
		&BoolLiteral{ExprBase: ExprBase{Tok: tok(token.KwTrue, "true")}, Value: true},
		&StringLiteral{ExprBase: ExprBase{Tok: tok(token.StringLiteral, `"x"`)}, Value: "x"},
		&CharLiteral{ExprBase: ExprBase{Tok: tok(token.CharLiteral, "'x'")}, Value: 'x'},
		&NullptrLiteral{ExprBase: ExprBase{Tok: tok(token.KwNullptr, "nullptr")}},
		&Ident{ExprBase: ExprBase{Tok: tok(token.Identifier, "x")}, Name: "x"},
	)
	for _, e := range exprs {
		if e.String() == "" {
			t.Errorf("%T.String() returned empty string", e)
		}
		if e.ResolvedType() != nil {
			t.Errorf("%T should start with a nil resolved type", e)
		}
	}
}

func TestSetResolvedTypeRoundTrips(t *testing.T) {
	id := &Ident{ExprBase: ExprBase{Tok: tok(token.Identifier, "x")}, Name: "x"}
	if id.ResolvedType() != nil {
		t.Fatal("expected nil resolved type before SetResolvedType")
	}
	spec := &types.TypeSpecifier{Base: 0, CV: types.CVNone}
	id.SetResolvedType(spec)
	if id.ResolvedType() != spec {
		t.Fatal("SetResolvedType did not persist")
	}
}

func TestCompoundStmtIsStmt(t *testing.T) {
	var s Stmt = &CompoundStmt{StmtBase: StmtBase{Tok: tok(token.LBrace, "{")}}
	if s.Pos().Line != 1 {
		t.Fatalf("unexpected Pos: %+v", s.Pos())
	}
}

func TestFunctionDeclIsDecl(t *testing.T) {
	var d Decl = &FunctionDecl{DeclBase: DeclBase{Tok: tok(token.Identifier, "f"), Name: "f"}}
	if d.String() != "f(...)" {
		t.Fatalf("unexpected String(): %q", d.String())
	}
}

func TestTranslationUnitPosFallsBackWhenEmpty(t *testing.T) {
	tu := &TranslationUnit{}
	if tu.Pos().Line != 1 {
		t.Fatalf("expected fallback position, got %+v", tu.Pos())
	}
}
