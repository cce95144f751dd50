package ast

import "github.com/go-cppc/cppc/internal/types"

// BaseSpecifier is one entry of a class's base-clause.
type BaseSpecifier struct {
	Type     *TypeExpr
	Access   types.Access
	IsVirtual bool
}

// StructDecl covers `struct`, `class`, and `union` definitions
// (IsUnion/IsClass distinguish them; the default member access differs:
// public for struct/union, private for class). Members holds field
// declarations (VarDecl), member functions (FunctionDecl), nested types
// (StructDecl/EnumDecl), and nested templates in source order.
type StructDecl struct {
	DeclBase
	IsUnion bool
	IsClass bool // true for `class`, false for `struct`
	Bases   []BaseSpecifier
	Members []Decl
	// MemberAccess parallels Members, recording the access-specifier
	// section (public/protected/private) each member falls under at the
	// point it was parsed.
	MemberAccess []types.Access
	Resolved     types.TypeIndex // filled in once internal/types declares this struct
}

func (n *StructDecl) String() string { return "struct " + n.Name + " { ... }" }

// EnumeratorDecl is one `Name = Value` entry; Value is nil when the
// enumerator uses the implicit previous-plus-one rule.
type EnumeratorDecl struct {
	Name  string
	Value Expr
}

// EnumDecl covers both plain and scoped (`enum class`) enumerations.
type EnumDecl struct {
	DeclBase
	IsScoped    bool
	Underlying  *TypeExpr // nil when not explicitly specified; the parser registers every enum with a 32-bit int underlying type either way
	Enumerators []EnumeratorDecl
	Resolved    types.TypeIndex
}

func (n *EnumDecl) String() string { return "enum " + n.Name + " { ... }" }
