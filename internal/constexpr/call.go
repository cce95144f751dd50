package constexpr

import (
	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/diag"
)

// evalCall resolves the callee to a registered constexpr/consteval
// function, binds its arguments in a fresh scope, and executes its body.
// Overload resolution is reduced to "first registered overload whose
// parameter count matches the call" — a documented simplification (see
// DESIGN.md); full overload resolution belongs to a semantic-analysis
// pass this evaluator does not have.
func (e *Evaluator) evalCall(n *ast.CallExpr, sc *scope, h *Heap) (Value, *diag.Error) {
	id, ok := n.Callee.(*ast.Ident)
	if !ok {
		return Value{}, e.errorf(n, "only direct calls to a named function are supported in a constant expression")
	}
	fd := e.resolveCallee(id, len(n.Args))
	if fd == nil {
		return Value{}, e.errorf(n, "%q does not name a constant-expression-callable function", id.Name)
	}
	if !fd.IsConstexpr && !fd.IsConsteval {
		return Value{}, e.errorf(n, "call to non-constexpr function %q in a constant expression", id.Name)
	}
	if fd.Body == nil {
		return Value{}, e.errorf(n, "call to %q, which has no definition visible to the constant-expression evaluator", id.Name)
	}
	if len(n.Args) != len(fd.Params) {
		return Value{}, e.errorf(n, "call to %q with %d argument(s), expected %d", id.Name, len(n.Args), len(fd.Params))
	}
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > maxDepth {
		return Value{}, e.errorf(n, "constant expression exceeded the recursion-depth limit (%d)", maxDepth)
	}

	callScope := newScope(nil) // constexpr functions have no access to caller locals
	for i, p := range fd.Params {
		v, err := e.eval(n.Args[i], sc, h)
		if err != nil {
			return Value{}, err
		}
		if p.Name != "" {
			callScope.define(p.Name, v)
		}
	}
	ctl, ret, err := e.execStmt(fd.Body, callScope, h)
	if err != nil {
		return Value{}, err
	}
	if ctl != ctrlReturn {
		return Value{}, nil // fell off the end of a void constexpr function
	}
	return ret, nil
}

// resolveCallee takes the overload set registered under id's QualID or,
// failing that, the first set registered under that bare name at all
// (free functions resolved before qualification is fully wired), and
// picks from it the first overload with argc parameters. When none has
// argc parameters it returns the set's first overload, so evalCall
// reports the argument-count mismatch.
func (e *Evaluator) resolveCallee(id *ast.Ident, argc int) *ast.FunctionDecl {
	pick := func(overloads []*ast.FunctionDecl) *ast.FunctionDecl {
		for _, fd := range overloads {
			if len(fd.Params) == argc {
				return fd
			}
		}
		return overloads[0]
	}
	if overloads, ok := e.funcs[id.QualID]; ok && len(overloads) > 0 {
		return pick(overloads)
	}
	for key, overloads := range e.funcs {
		if e.Strings != nil && e.Strings.Valid(key.Name) && e.Strings.View(key.Name) == id.Name && len(overloads) > 0 {
			return pick(overloads)
		}
	}
	return nil
}
