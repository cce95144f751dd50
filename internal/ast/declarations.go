package ast

import "github.com/go-cppc/cppc/internal/token"

// StorageClass captures the storage-class-specifier on a declaration.
type StorageClass int

const (
	StorageNone StorageClass = iota
	StorageStatic
	StorageExtern
	StorageThreadLocal
)

// VarDecl is a variable declaration, at namespace scope, class scope
// (a data member), or local block scope.
type VarDecl struct {
	DeclBase
	Type        *TypeExpr
	Init        Expr // nil when there is no initializer
	Storage     StorageClass
	IsConstexpr bool
	IsConsteval bool
	IsConstinit bool
	IsParenInit bool // `T x(args...)` vs `T x = ...` / `T x{...}`, relevant to aggregate paren-init (__cpp_aggregate_paren_init)
}

func (n *VarDecl) String() string { return n.Type.String() + " " + n.Name }

// ParamDecl is one function parameter. It is never inserted into the
// symbol table directly by the parser; FunctionDecl's processor does
// that when opening the function body scope.
type ParamDecl struct {
	Tok     token.Token
	Name    string // empty for an unnamed parameter
	Type    *TypeExpr
	Default Expr // nil when there is no default argument
}

func (p *ParamDecl) Pos() token.Position { return p.Tok.Pos }
func (p *ParamDecl) String() string      { return p.Type.String() + " " + p.Name }

// FunctionDecl covers free functions, member functions, and function
// templates' patterns (wrapped by TemplateDecl). Body is nil for a
// declaration-only prototype.
type FunctionDecl struct {
	DeclBase
	Params         []*ParamDecl
	ReturnType     *TypeExpr
	Body           *CompoundStmt
	Storage        StorageClass
	IsInline       bool
	IsVirtual      bool
	IsOverride     bool
	IsFinal        bool
	IsConstMethod  bool // trailing `const` on a member function
	IsStatic       bool // member function declared `static`
	IsConstexpr    bool // required for the constant-expression evaluator to permit a call (spec.md §4.4)
	IsConsteval    bool
	IsCtor         bool
	IsDtor         bool
	IsDeleted      bool
	IsDefaulted    bool
	Noexcept       bool
	// DeferredTokens holds the captured token range of a template member
	// function body so it can be re-lexed/re-parsed per instantiation
	// (spec.md §4.1: deferred-parse token ranges for templates). Set only
	// when this FunctionDecl's pattern lives inside a class template;
	// ordinary function bodies are parsed eagerly into Body instead.
	DeferredTokens []token.Token
}

func (n *FunctionDecl) String() string { return n.Name + "(...)" }

// UsingDirective is `using namespace N;`.
type UsingDirective struct {
	DeclBase
	Target token.Token // identifier token of the namespace name, for diagnostics
}

func (n *UsingDirective) String() string { return "using namespace " + n.Name + ";" }

// UsingDeclaration is `using N::x;` or `using Alias = T;`.
type UsingDeclaration struct {
	DeclBase
	IsTypeAlias bool
	AliasedType *TypeExpr // set when IsTypeAlias
}

func (n *UsingDeclaration) String() string { return "using " + n.Name + ";" }

// NamespaceDecl re-opens (or opens) a namespace and holds the
// declarations written inside this particular occurrence of it —
// spec.md's namespace registry tracks the namespace itself across all
// occurrences; this node is just one lexical block of it.
type NamespaceDecl struct {
	DeclBase
	Decls []Decl
}

func (n *NamespaceDecl) String() string { return "namespace " + n.Name + " { ... }" }
