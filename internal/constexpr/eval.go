package constexpr

import (
	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/diag"
	"github.com/go-cppc/cppc/internal/types"
)

// eval dispatches an expression node to a Value. It is the counterpart of
// internal/interp's Eval(node, ctx) in the teacher, adapted to return a
// *diag.Error instead of a sentinel error Value so failures carry a
// diag.Constexpr diagnostic all the way out (spec.md §4.4 failure list).
func (e *Evaluator) eval(expr ast.Expr, sc *scope, h *Heap) (Value, *diag.Error) {
	if err := e.step(expr); err != nil {
		return Value{}, err
	}
	switch n := expr.(type) {
	case *ast.IntLiteral:
		return IntValue(n.Value, e.intType(n.Width, n.Unsigned)), nil
	case *ast.FloatLiteral:
		return FloatValue(n.Value, e.floatType(n.Double)), nil
	case *ast.BoolLiteral:
		return BoolValue(n.Value), nil
	case *ast.CharLiteral:
		return IntValue(n.Value, e.intType(32, false)), nil
	case *ast.NullptrLiteral:
		return PointerValue(Pointer{}, 0), nil
	case *ast.StringLiteral:
		return Value{}, e.errorf(n, "string literals are not supported in constant expressions")
	case *ast.Ident:
		if v, ok := sc.lookup(n.Name); ok {
			return *v, nil
		}
		return Value{}, e.errorf(n, "%q is not a constant-expression value", n.Name)
	case *ast.UnaryExpr:
		return e.evalUnary(n, sc, h)
	case *ast.BinaryExpr:
		return e.evalBinary(n, sc, h)
	case *ast.TernaryExpr:
		c, err := e.eval(n.Cond, sc, h)
		if err != nil {
			return Value{}, err
		}
		if c.Truthy() {
			return e.eval(n.Then, sc, h)
		}
		return e.eval(n.Else, sc, h)
	case *ast.CallExpr:
		return e.evalCall(n, sc, h)
	case *ast.MemberExpr:
		obj, err := e.eval(n.Object, sc, h)
		if err != nil {
			return Value{}, err
		}
		if obj.Kind != KindStruct {
			return Value{}, e.errorf(n, "member access on a non-struct constant value")
		}
		fv, ok := obj.Fields[n.Member]
		if !ok {
			return Value{}, e.errorf(n, "no member %q in constant struct value", n.Member)
		}
		return *fv, nil
	case *ast.SubscriptExpr:
		obj, err := e.eval(n.Object, sc, h)
		if err != nil {
			return Value{}, err
		}
		idx, err := e.eval(n.Index, sc, h)
		if err != nil {
			return Value{}, err
		}
		if obj.Kind != KindPointer {
			return Value{}, e.errorf(n, "subscript of a non-pointer constant value")
		}
		p := obj.Ptr
		p.Offset += idx.I
		v, gerr := h.Load(p)
		if gerr != nil {
			return Value{}, e.errorf(n, "%s", gerr.Error())
		}
		return v, nil
	case *ast.CastExpr:
		return e.evalCast(n, sc, h)
	case *ast.SizeofExpr:
		return e.evalSizeof(n, sc)
	case *ast.AlignofExpr:
		ty := e.Resolver.Resolve(n.TypeOperand)
		return IntValue(int64(e.Types.Align(ty)), e.intType(64, true)), nil
	case *ast.NewExpr:
		return e.evalNew(n, sc, h)
	case *ast.DeleteExpr:
		obj, err := e.eval(n.Operand, sc, h)
		if err != nil {
			return Value{}, err
		}
		if obj.Kind != KindPointer {
			return Value{}, e.errorf(n, "delete of a non-pointer constant value")
		}
		if gerr := h.Free(obj.Ptr); gerr != nil {
			return Value{}, e.errorf(n, "%s", gerr.Error())
		}
		return Value{}, nil
	default:
		return Value{}, e.errorf(expr, "expression is not a supported constant expression (%T)", expr)
	}
}

func (e *Evaluator) intType(width int, unsigned bool) types.TypeIndex {
	if width == 0 {
		width = 32
	}
	return e.Types.InternPrimitive(types.Int, uint32(width), uint32(width), uint32(width), unsigned, types.CVNone)
}

func (e *Evaluator) floatType(isDouble bool) types.TypeIndex {
	if isDouble {
		return e.Types.InternPrimitive(types.Float64, 64, 64, 0, false, types.CVNone)
	}
	return e.Types.InternPrimitive(types.Float32, 32, 32, 0, false, types.CVNone)
}

func (e *Evaluator) evalCast(n *ast.CastExpr, sc *scope, h *Heap) (Value, *diag.Error) {
	v, err := e.eval(n.Operand, sc, h)
	if err != nil {
		return Value{}, err
	}
	ty := e.Resolver.Resolve(n.Target)
	info := e.Types.Lookup(ty)
	switch info.Kind {
	case types.Int:
		switch v.Kind {
		case KindInt:
			return IntValue(truncate(v.I, info.IntWidth, info.Unsigned), ty), nil
		case KindFloat:
			return IntValue(truncate(int64(v.F), info.IntWidth, info.Unsigned), ty), nil
		case KindBool:
			b := int64(0)
			if v.B {
				b = 1
			}
			return IntValue(b, ty), nil
		}
	case types.Float32, types.Float64:
		f, ok := v.AsFloat()
		if !ok {
			return Value{}, e.errorf(n, "cannot convert this constant value to a floating-point type")
		}
		return FloatValue(f, ty), nil
	case types.Bool:
		return BoolValue(v.Truthy()), nil
	case types.Pointer, types.Reference:
		if v.Kind != KindPointer {
			return Value{}, e.errorf(n, "cannot convert this constant value to a pointer type")
		}
		return PointerValue(v.Ptr, ty), nil
	}
	return Value{}, e.errorf(n, "unsupported cast target type in constant expression")
}

func (e *Evaluator) evalSizeof(n *ast.SizeofExpr, sc *scope) (Value, *diag.Error) {
	var ty types.TypeIndex
	if n.TypeOperand != nil {
		ty = e.Resolver.Resolve(n.TypeOperand)
	} else if rt := n.Operand.ResolvedType(); rt != nil {
		ty = rt.Base
	} else {
		return Value{}, e.errorf(n, "sizeof operand has no resolved type")
	}
	return IntValue(int64(e.Types.Size(ty)), e.intType(64, true)), nil
}

func (e *Evaluator) evalNew(n *ast.NewExpr, sc *scope, h *Heap) (Value, *diag.Error) {
	ty := e.Resolver.Resolve(n.Type)
	length := int64(1)
	if n.ArraySize != nil {
		sz, err := e.eval(n.ArraySize, sc, h)
		if err != nil {
			return Value{}, err
		}
		length = sz.I
	}
	p, gerr := h.Alloc(ty, length)
	if gerr != nil {
		return Value{}, e.errorf(n, "%s", gerr.Error())
	}
	ptrType := e.Types.InternPointer(ty, types.CVNone, false)
	return PointerValue(p, ptrType), nil
}

// evalUnary and evalBinary live in ops.go; evalCall lives in call.go.
