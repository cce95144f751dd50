package constexpr

import (
	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/diag"
)

// execStmt runs one statement, returning the control signal in flight
// (ctrlNone unless a return/break/continue propagated out of it) and, for
// ctrlReturn, the returned Value.
func (e *Evaluator) execStmt(stmt ast.Stmt, sc *scope, h *Heap) (ctrl, Value, *diag.Error) {
	if err := e.step(stmt); err != nil {
		return ctrlNone, Value{}, err
	}
	switch n := stmt.(type) {
	case *ast.CompoundStmt:
		inner := newScope(sc)
		for _, s := range n.Stmts {
			c, v, err := e.execStmt(s, inner, h)
			if err != nil || c != ctrlNone {
				return c, v, err
			}
		}
		return ctrlNone, Value{}, nil
	case *ast.ExprStmt:
		_, err := e.eval(n.X, sc, h)
		return ctrlNone, Value{}, err
	case *ast.DeclStmt:
		return ctrlNone, Value{}, e.execDecl(n.D, sc, h)
	case *ast.IfStmt:
		if n.Init != nil {
			inner := newScope(sc)
			if c, v, err := e.execStmt(n.Init, inner, h); err != nil || c != ctrlNone {
				return c, v, err
			}
			sc = inner
		}
		cond, err := e.eval(n.Cond, sc, h)
		if err != nil {
			return ctrlNone, Value{}, err
		}
		if cond.Truthy() {
			return e.execStmt(n.Then, sc, h)
		}
		if n.Else != nil {
			return e.execStmt(n.Else, sc, h)
		}
		return ctrlNone, Value{}, nil
	case *ast.WhileStmt:
		for {
			cond, err := e.eval(n.Cond, sc, h)
			if err != nil {
				return ctrlNone, Value{}, err
			}
			if !cond.Truthy() {
				return ctrlNone, Value{}, nil
			}
			c, v, err := e.execStmt(n.Body, sc, h)
			if err != nil {
				return ctrlNone, Value{}, err
			}
			if c == ctrlBreak {
				return ctrlNone, Value{}, nil
			}
			if c == ctrlReturn {
				return c, v, nil
			}
		}
	case *ast.DoStmt:
		for {
			c, v, err := e.execStmt(n.Body, sc, h)
			if err != nil {
				return ctrlNone, Value{}, err
			}
			if c == ctrlBreak {
				return ctrlNone, Value{}, nil
			}
			if c == ctrlReturn {
				return c, v, nil
			}
			cond, err := e.eval(n.Cond, sc, h)
			if err != nil {
				return ctrlNone, Value{}, err
			}
			if !cond.Truthy() {
				return ctrlNone, Value{}, nil
			}
		}
	case *ast.ForStmt:
		inner := newScope(sc)
		if n.Init != nil {
			if c, v, err := e.execStmt(n.Init, inner, h); err != nil || c != ctrlNone {
				return c, v, err
			}
		}
		for {
			if n.Cond != nil {
				cond, err := e.eval(n.Cond, inner, h)
				if err != nil {
					return ctrlNone, Value{}, err
				}
				if !cond.Truthy() {
					return ctrlNone, Value{}, nil
				}
			}
			c, v, err := e.execStmt(n.Body, inner, h)
			if err != nil {
				return ctrlNone, Value{}, err
			}
			if c == ctrlBreak {
				return ctrlNone, Value{}, nil
			}
			if c == ctrlReturn {
				return c, v, nil
			}
			if n.Post != nil {
				if _, err := e.eval(n.Post, inner, h); err != nil {
					return ctrlNone, Value{}, err
				}
			}
		}
	case *ast.BreakStmt:
		return ctrlBreak, Value{}, nil
	case *ast.ContinueStmt:
		return ctrlContinue, Value{}, nil
	case *ast.ReturnStmt:
		if n.Value == nil {
			return ctrlReturn, Value{}, nil
		}
		v, err := e.eval(n.Value, sc, h)
		return ctrlReturn, v, err
	default:
		return ctrlNone, Value{}, e.errorf(stmt, "statement is not supported in a constant expression (%T)", stmt)
	}
}

// execDecl binds a local variable declaration into sc. Only VarDecl is
// supported; a local struct/function/template declaration inside a
// constexpr function body is rejected.
func (e *Evaluator) execDecl(d ast.Decl, sc *scope, h *Heap) *diag.Error {
	vd, ok := d.(*ast.VarDecl)
	if !ok {
		return e.errorf(d, "this declaration is not supported inside a constant expression")
	}
	var v Value
	if vd.Init != nil {
		var err *diag.Error
		v, err = e.eval(vd.Init, sc, h)
		if err != nil {
			return err
		}
	}
	sc.define(vd.Name, v)
	return nil
}
