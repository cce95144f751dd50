package ast

import "github.com/go-cppc/cppc/internal/token"

// TemplateParamDecl is one entry of a template-parameter-list: either a
// type parameter (`typename T`, `class T`, optionally with a default
// type) or a non-type parameter (`int N`, with a type and optional
// default value). IsPack marks a parameter pack (`typename... Ts`).
type TemplateParamDecl struct {
	Tok           token.Token
	Name          string
	IsTypeParam   bool
	NonTypeType   *TypeExpr // set when !IsTypeParam
	DefaultType   *TypeExpr // set when IsTypeParam and a default is given
	DefaultValue  Expr      // set when !IsTypeParam and a default is given
	IsPack        bool
}

func (p *TemplateParamDecl) Pos() token.Position { return p.Tok.Pos }

// TemplateDecl wraps a class, function, or variable template's pattern —
// the un-instantiated declaration plus its template-parameter-list. The
// instantiator (internal/template) clones Pattern, substitutes template
// parameters for concrete arguments, and hands the result back through
// the normal declaration path (spec.md §4.3: instantiation happens once
// per unique (base, args) key and the result is cached in the type
// registry / symbol table like any other declaration).
type TemplateDecl struct {
	DeclBase
	Params  []*TemplateParamDecl
	Pattern Decl // *FunctionDecl, *StructDecl, or *VarDecl
	// RequiresClause holds an optional trailing `requires` constraint
	// expression (spec.md's concepts feature macro, __cpp_concepts).
	RequiresClause Expr
}

func (n *TemplateDecl) String() string { return "template<...> " + n.Name }
