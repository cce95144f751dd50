package ast

import (
	"github.com/go-cppc/cppc/internal/token"
	"github.com/go-cppc/cppc/internal/types"
)

// TypeExpr is the parsed, unresolved form of a type-id as written in
// source ("const Foo<int>&", "unsigned long", "Point*"). It is distinct
// from types.TypeSpecifier, which is the resolved TypeIndex+CV pair that
// semantic analysis produces from a TypeExpr (spec.md §3: parsing never
// blocks on resolving a type; TypeExpr lets the parser move on and have
// the type registry reconcile it later).
type TypeExpr struct {
	Tok            token.Token
	Name           string
	QualID         types.QualifiedIdentifier
	CV             types.CV
	PointerDepth   int  // number of leading `*` after the base type
	IsReference    bool // `&`
	IsRvalueRef    bool // `&&`
	ArraySize      Expr // non-nil for `T[n]`; nil size with brackets present means `T[]`
	HasArrayBrackets bool
	TemplateArgs   []*TypeExpr // non-nil for `name<Args...>`
	NonTypeArgs    []Expr      // non-type template arguments, kept apart from TemplateArgs; how the two lists interleave in source is not recorded
	Resolved       types.TypeIndex // filled in once the type registry has interned/declared this type
}

func (t *TypeExpr) Pos() token.Position { return t.Tok.Pos }

func (t *TypeExpr) String() string {
	s := t.Name
	for i := 0; i < t.PointerDepth; i++ {
		s += "*"
	}
	if t.IsReference {
		s += "&"
	}
	if t.IsRvalueRef {
		s += "&&"
	}
	return s
}
