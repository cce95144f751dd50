package template

import (
	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/types"
)

// frame is the substitution map installed while cloning a template
// pattern (spec.md §4.3 step 2): template-parameter-slot → concrete
// TypeIndex for type arguments, or → i64 for non-type arguments. Lookup
// is by parameter name since the parser records template parameters by
// name in its own templateParamFrame (internal/parser), and a
// TemplateDecl's Params preserves that same naming.
type frame struct {
	typeArgs    map[string]types.TypeIndex
	typeNames   map[string]string // display name for the substituted type, for TypeExpr.Name
	nonTypeArgs map[string]int64
}

func newFrame(params []*ast.TemplateParamDecl, typeArgs []types.TypeIndex, nonTypeArgs []int64, reg *types.Registry) *frame {
	f := &frame{
		typeArgs:    make(map[string]types.TypeIndex),
		typeNames:   make(map[string]string),
		nonTypeArgs: make(map[string]int64),
	}
	ti, ni := 0, 0
	for _, p := range params {
		if p.IsTypeParam {
			if ti < len(typeArgs) {
				f.typeArgs[p.Name] = typeArgs[ti]
				f.typeNames[p.Name] = displayName(reg, typeArgs[ti])
				ti++
			}
			continue
		}
		if ni < len(nonTypeArgs) {
			f.nonTypeArgs[p.Name] = nonTypeArgs[ni]
			ni++
		}
	}
	return f
}

func displayName(reg *types.Registry, idx types.TypeIndex) string {
	info := reg.Lookup(idx)
	switch info.Kind {
	case types.Struct, types.Union, types.Enum:
		return "<instantiated-type>" // a real mangled/source name requires internal/mangle; callers only use this for diagnostics
	default:
		return "<builtin>"
	}
}

// cloneTypeExpr deep-copies a TypeExpr, substituting any base name that
// matches a type template parameter with the concrete argument (spec.md
// §4.3 step 3: "for each node carrying a TypeSpecifier... rewrite to the
// substituted form").
func cloneTypeExpr(te *ast.TypeExpr, f *frame) *ast.TypeExpr {
	if te == nil {
		return nil
	}
	clone := *te
	if idx, ok := f.typeArgs[te.Name]; ok {
		clone.Resolved = idx
		clone.Name = f.typeNames[te.Name]
	}
	if te.ArraySize != nil {
		clone.ArraySize = cloneExpr(te.ArraySize, f)
	}
	if len(te.TemplateArgs) > 0 {
		clone.TemplateArgs = make([]*ast.TypeExpr, len(te.TemplateArgs))
		for i, a := range te.TemplateArgs {
			clone.TemplateArgs[i] = cloneTypeExpr(a, f)
		}
	}
	if len(te.NonTypeArgs) > 0 {
		clone.NonTypeArgs = make([]ast.Expr, len(te.NonTypeArgs))
		for i, a := range te.NonTypeArgs {
			clone.NonTypeArgs[i] = cloneExpr(a, f)
		}
	}
	return &clone
}

// cloneExpr deep-copies an expression subtree under the substitution
// frame. An Ident naming a non-type template parameter is rewritten into
// an IntLiteral carrying the substituted constant (spec.md §4.3's
// non-type argument substitution).
func cloneExpr(e ast.Expr, f *frame) ast.Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *ast.IntLiteral:
		c := *n
		return &c
	case *ast.FloatLiteral:
		c := *n
		return &c
	case *ast.BoolLiteral:
		c := *n
		return &c
	case *ast.StringLiteral:
		c := *n
		return &c
	case *ast.CharLiteral:
		c := *n
		return &c
	case *ast.NullptrLiteral:
		c := *n
		return &c
	case *ast.Ident:
		if v, ok := f.nonTypeArgs[n.Name]; ok {
			return &ast.IntLiteral{ExprBase: ast.ExprBase{Tok: n.Tok}, Value: v}
		}
		c := *n
		return &c
	case *ast.UnaryExpr:
		c := *n
		c.Operand = cloneExpr(n.Operand, f)
		return &c
	case *ast.BinaryExpr:
		c := *n
		c.Left = cloneExpr(n.Left, f)
		c.Right = cloneExpr(n.Right, f)
		return &c
	case *ast.TernaryExpr:
		c := *n
		c.Cond = cloneExpr(n.Cond, f)
		c.Then = cloneExpr(n.Then, f)
		c.Else = cloneExpr(n.Else, f)
		return &c
	case *ast.CallExpr:
		c := *n
		c.Callee = cloneExpr(n.Callee, f)
		c.Args = cloneExprSlice(n.Args, f)
		return &c
	case *ast.MemberExpr:
		c := *n
		c.Object = cloneExpr(n.Object, f)
		return &c
	case *ast.SubscriptExpr:
		c := *n
		c.Object = cloneExpr(n.Object, f)
		c.Index = cloneExpr(n.Index, f)
		return &c
	case *ast.CastExpr:
		c := *n
		c.Target = cloneTypeExpr(n.Target, f)
		c.Operand = cloneExpr(n.Operand, f)
		return &c
	case *ast.SizeofExpr:
		c := *n
		c.Operand = cloneExpr(n.Operand, f)
		c.TypeOperand = cloneTypeExpr(n.TypeOperand, f)
		return &c
	case *ast.AlignofExpr:
		c := *n
		c.TypeOperand = cloneTypeExpr(n.TypeOperand, f)
		return &c
	case *ast.TypeTraitExpr:
		c := *n
		c.Args = make([]*ast.TypeExpr, len(n.Args))
		for i, a := range n.Args {
			c.Args[i] = cloneTypeExpr(a, f)
		}
		return &c
	case *ast.NewExpr:
		c := *n
		c.Type = cloneTypeExpr(n.Type, f)
		c.ArraySize = cloneExpr(n.ArraySize, f)
		c.Args = cloneExprSlice(n.Args, f)
		return &c
	case *ast.DeleteExpr:
		c := *n
		c.Operand = cloneExpr(n.Operand, f)
		return &c
	case *ast.LambdaExpr:
		c := *n
		c.Params = cloneParamSlice(n.Params, f)
		c.ReturnType = cloneTypeExpr(n.ReturnType, f)
		c.Body = cloneCompoundStmt(n.Body, f)
		return &c
	case *ast.FoldExpr:
		c := *n
		c.Pack = cloneExpr(n.Pack, f)
		c.Init = cloneExpr(n.Init, f)
		return &c
	case *ast.PackExpansionExpr:
		c := *n
		c.Pattern = cloneExpr(n.Pattern, f)
		return &c
	case *ast.TemplateIDExpr:
		c := *n
		c.Base = cloneExpr(n.Base, f)
		c.TypeArgs = make([]*ast.TypeExpr, len(n.TypeArgs))
		for i, a := range n.TypeArgs {
			c.TypeArgs[i] = cloneTypeExpr(a, f)
		}
		c.NonTypeArgs = cloneExprSlice(n.NonTypeArgs, f)
		return &c
	case *ast.RequiresExpr:
		c := *n
		c.Params = cloneParamSlice(n.Params, f)
		c.Requirements = cloneExprSlice(n.Requirements, f)
		return &c
	default:
		return e
	}
}

func cloneExprSlice(exprs []ast.Expr, f *frame) []ast.Expr {
	if exprs == nil {
		return nil
	}
	out := make([]ast.Expr, len(exprs))
	for i, e := range exprs {
		out[i] = cloneExpr(e, f)
	}
	return out
}

func cloneParamSlice(params []*ast.ParamDecl, f *frame) []*ast.ParamDecl {
	if params == nil {
		return nil
	}
	out := make([]*ast.ParamDecl, len(params))
	for i, p := range params {
		c := *p
		c.Type = cloneTypeExpr(p.Type, f)
		c.Default = cloneExpr(p.Default, f)
		out[i] = &c
	}
	return out
}

func cloneCompoundStmt(cs *ast.CompoundStmt, f *frame) *ast.CompoundStmt {
	if cs == nil {
		return nil
	}
	c := *cs
	c.Stmts = make([]ast.Stmt, len(cs.Stmts))
	for i, s := range cs.Stmts {
		c.Stmts[i] = cloneStmt(s, f)
	}
	return &c
}

func cloneStmt(s ast.Stmt, f *frame) ast.Stmt {
	if s == nil {
		return nil
	}
	switch n := s.(type) {
	case *ast.CompoundStmt:
		return cloneCompoundStmt(n, f)
	case *ast.ExprStmt:
		c := *n
		c.X = cloneExpr(n.X, f)
		return &c
	case *ast.DeclStmt:
		c := *n
		c.D = cloneDecl(n.D, f)
		return &c
	case *ast.IfStmt:
		c := *n
		c.Init = cloneStmt(n.Init, f)
		c.Cond = cloneExpr(n.Cond, f)
		c.Then = cloneStmt(n.Then, f)
		c.Else = cloneStmt(n.Else, f)
		return &c
	case *ast.WhileStmt:
		c := *n
		c.Cond = cloneExpr(n.Cond, f)
		c.Body = cloneStmt(n.Body, f)
		return &c
	case *ast.DoStmt:
		c := *n
		c.Body = cloneStmt(n.Body, f)
		c.Cond = cloneExpr(n.Cond, f)
		return &c
	case *ast.ForStmt:
		c := *n
		c.Init = cloneStmt(n.Init, f)
		c.Cond = cloneExpr(n.Cond, f)
		c.Post = cloneExpr(n.Post, f)
		c.Body = cloneStmt(n.Body, f)
		return &c
	case *ast.RangeForStmt:
		c := *n
		if decl := cloneDecl(n.Decl, f); decl != nil {
			c.Decl = decl.(*ast.VarDecl)
		}
		c.Range = cloneExpr(n.Range, f)
		c.Body = cloneStmt(n.Body, f)
		return &c
	case *ast.SwitchStmt:
		c := *n
		c.Init = cloneStmt(n.Init, f)
		c.Cond = cloneExpr(n.Cond, f)
		c.Cases = make([]ast.SwitchCase, len(n.Cases))
		for i, sc := range n.Cases {
			nc := sc
			nc.Values = cloneExprSlice(sc.Values, f)
			nc.Body = make([]ast.Stmt, len(sc.Body))
			for j, st := range sc.Body {
				nc.Body[j] = cloneStmt(st, f)
			}
			c.Cases[i] = nc
		}
		return &c
	case *ast.BreakStmt:
		c := *n
		return &c
	case *ast.ContinueStmt:
		c := *n
		return &c
	case *ast.ReturnStmt:
		c := *n
		c.Value = cloneExpr(n.Value, f)
		return &c
	case *ast.ThrowStmt:
		c := *n
		c.Value = cloneExpr(n.Value, f)
		return &c
	case *ast.TryStmt:
		c := *n
		c.Body = cloneCompoundStmt(n.Body, f)
		c.Handlers = make([]*ast.CatchClause, len(n.Handlers))
		for i, h := range n.Handlers {
			hc := *h
			hc.ExceptionType = cloneTypeExpr(h.ExceptionType, f)
			hc.Body = cloneCompoundStmt(h.Body, f)
			c.Handlers[i] = &hc
		}
		return &c
	default:
		return s
	}
}

// cloneDecl deep-copies a declaration subtree — used both for a whole
// template pattern (VarDecl/FunctionDecl/StructDecl) and for the nested
// declarations a StructDecl pattern contains (member variables, member
// functions, nested types).
func cloneDecl(d ast.Decl, f *frame) ast.Decl {
	if d == nil {
		return nil
	}
	switch n := d.(type) {
	case *ast.VarDecl:
		c := *n
		c.Type = cloneTypeExpr(n.Type, f)
		c.Init = cloneExpr(n.Init, f)
		return &c
	case *ast.FunctionDecl:
		c := *n
		c.Params = cloneParamSlice(n.Params, f)
		c.ReturnType = cloneTypeExpr(n.ReturnType, f)
		c.Body = cloneCompoundStmt(n.Body, f)
		return &c
	case *ast.StructDecl:
		c := *n
		c.Bases = make([]ast.BaseSpecifier, len(n.Bases))
		for i, b := range n.Bases {
			c.Bases[i] = ast.BaseSpecifier{Type: cloneTypeExpr(b.Type, f), Access: b.Access, IsVirtual: b.IsVirtual}
		}
		c.Members = make([]ast.Decl, len(n.Members))
		for i, m := range n.Members {
			c.Members[i] = cloneDecl(m, f)
		}
		c.MemberAccess = append([]types.Access(nil), n.MemberAccess...)
		return &c
	case *ast.EnumDecl:
		c := *n
		c.Underlying = cloneTypeExpr(n.Underlying, f)
		c.Enumerators = make([]ast.EnumeratorDecl, len(n.Enumerators))
		for i, en := range n.Enumerators {
			c.Enumerators[i] = ast.EnumeratorDecl{Name: en.Name, Value: cloneExpr(en.Value, f)}
		}
		return &c
	case *ast.UsingDeclaration:
		c := *n
		c.AliasedType = cloneTypeExpr(n.AliasedType, f)
		return &c
	case *ast.UsingDirective:
		c := *n
		return &c
	case *ast.NamespaceDecl:
		c := *n
		c.Decls = make([]ast.Decl, len(n.Decls))
		for i, nd := range n.Decls {
			c.Decls[i] = cloneDecl(nd, f)
		}
		return &c
	default:
		return d
	}
}
