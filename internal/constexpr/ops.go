package constexpr

import (
	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/diag"
	"github.com/go-cppc/cppc/internal/token"
)

// truncate narrows v to width bits, sign- or zero-extending back to
// int64 per the usual integer-conversion rules.
func truncate(v int64, width uint32, unsigned bool) int64 {
	if width >= 64 {
		return v
	}
	mask := int64(1)<<width - 1
	v &= mask
	if !unsigned && v&(int64(1)<<(width-1)) != 0 {
		v |= ^mask
	}
	return v
}

func (e *Evaluator) evalUnary(n *ast.UnaryExpr, sc *scope, h *Heap) (Value, *diag.Error) {
	if n.Op == token.PlusPlus || n.Op == token.MinusMinus {
		return e.evalIncDec(n, sc, h)
	}
	if n.Op == token.Amp {
		return e.evalAddressOf(n, sc, h)
	}
	if n.Op == token.Star {
		p, err := e.eval(n.Operand, sc, h)
		if err != nil {
			return Value{}, err
		}
		if p.Kind != KindPointer {
			return Value{}, e.errorf(n, "dereference of a non-pointer constant value")
		}
		v, gerr := h.Load(p.Ptr)
		if gerr != nil {
			return Value{}, e.errorf(n, "%s", gerr.Error())
		}
		return v, nil
	}
	v, err := e.eval(n.Operand, sc, h)
	if err != nil {
		return Value{}, err
	}
	switch n.Op {
	case token.Minus:
		if v.Kind == KindFloat {
			return FloatValue(-v.F, v.Type), nil
		}
		return IntValue(-v.I, v.Type), nil
	case token.Plus:
		return v, nil
	case token.Bang:
		return BoolValue(!v.Truthy()), nil
	case token.Tilde:
		return IntValue(^v.I, v.Type), nil
	default:
		return Value{}, e.errorf(n, "unsupported unary operator in constant expression")
	}
}

// evalAddressOf supports only `&arr[i]`/`&*p` forms that produce an
// already-heap-backed pointer; taking the address of a plain local
// variable has no constant-expression representation here since locals
// live in the Go-side scope map, not the heap.
func (e *Evaluator) evalAddressOf(n *ast.UnaryExpr, sc *scope, h *Heap) (Value, *diag.Error) {
	if sub, ok := n.Operand.(*ast.SubscriptExpr); ok {
		obj, err := e.eval(sub.Object, sc, h)
		if err != nil {
			return Value{}, err
		}
		idx, err := e.eval(sub.Index, sc, h)
		if err != nil {
			return Value{}, err
		}
		if obj.Kind != KindPointer {
			return Value{}, e.errorf(n, "address-of subscript of a non-pointer constant value")
		}
		p := obj.Ptr
		p.Offset += idx.I
		return PointerValue(p, obj.Type), nil
	}
	if star, ok := n.Operand.(*ast.UnaryExpr); ok && star.Op == token.Star {
		return e.eval(star.Operand, sc, h)
	}
	return Value{}, e.errorf(n, "address-of this operand is not supported in a constant expression")
}

func (e *Evaluator) evalIncDec(n *ast.UnaryExpr, sc *scope, h *Heap) (Value, *diag.Error) {
	old, err := e.eval(n.Operand, sc, h)
	if err != nil {
		return Value{}, err
	}
	delta := int64(1)
	if n.Op == token.MinusMinus {
		delta = -1
	}
	var updated Value
	if old.Kind == KindFloat {
		updated = FloatValue(old.F+float64(delta), old.Type)
	} else {
		updated = IntValue(old.I+delta, old.Type)
	}
	if err := e.assign(n.Operand, updated, sc, h); err != nil {
		return Value{}, err
	}
	if n.Postfix {
		return old, nil
	}
	return updated, nil
}

func (e *Evaluator) evalBinary(n *ast.BinaryExpr, sc *scope, h *Heap) (Value, *diag.Error) {
	switch n.Op {
	case token.AmpAmp:
		l, err := e.eval(n.Left, sc, h)
		if err != nil {
			return Value{}, err
		}
		if !l.Truthy() {
			return BoolValue(false), nil
		}
		r, err := e.eval(n.Right, sc, h)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(r.Truthy()), nil
	case token.PipePipe:
		l, err := e.eval(n.Left, sc, h)
		if err != nil {
			return Value{}, err
		}
		if l.Truthy() {
			return BoolValue(true), nil
		}
		r, err := e.eval(n.Right, sc, h)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(r.Truthy()), nil
	case token.Assign:
		v, err := e.eval(n.Right, sc, h)
		if err != nil {
			return Value{}, err
		}
		if err := e.assign(n.Left, v, sc, h); err != nil {
			return Value{}, err
		}
		return v, nil
	case token.PlusAssign, token.MinusAssign, token.StarAssign, token.SlashAssign,
		token.PercentAssign, token.AmpAssign, token.PipeAssign, token.CaretAssign,
		token.ShiftLeftAssign, token.ShiftRightAssign:
		cur, err := e.eval(n.Left, sc, h)
		if err != nil {
			return Value{}, err
		}
		rhs, err := e.eval(n.Right, sc, h)
		if err != nil {
			return Value{}, err
		}
		res, err := e.applyArith(n, compoundBase(n.Op), cur, rhs)
		if err != nil {
			return Value{}, err
		}
		if err := e.assign(n.Left, res, sc, h); err != nil {
			return Value{}, err
		}
		return res, nil
	}
	l, err := e.eval(n.Left, sc, h)
	if err != nil {
		return Value{}, err
	}
	r, err := e.eval(n.Right, sc, h)
	if err != nil {
		return Value{}, err
	}
	return e.applyArith(n, n.Op, l, r)
}

// compoundBase maps a compound-assignment token to the plain binary
// operator it composes with `=`.
func compoundBase(op token.Kind) token.Kind {
	switch op {
	case token.PlusAssign:
		return token.Plus
	case token.MinusAssign:
		return token.Minus
	case token.StarAssign:
		return token.Star
	case token.SlashAssign:
		return token.Slash
	case token.PercentAssign:
		return token.Percent
	case token.AmpAssign:
		return token.Amp
	case token.PipeAssign:
		return token.Pipe
	case token.CaretAssign:
		return token.Caret
	case token.ShiftLeftAssign:
		return token.ShiftLeft
	case token.ShiftRightAssign:
		return token.ShiftRight
	}
	return op
}

func (e *Evaluator) applyArith(n ast.Node, op token.Kind, l, r Value) (Value, *diag.Error) {
	switch op {
	case token.Less, token.Greater, token.LessEq, token.GreaterEq, token.Eq, token.NotEq, token.Spaceship:
		return e.compare(n, op, l, r)
	}
	if l.Kind == KindPointer && (op == token.Plus || op == token.Minus) {
		if r.Kind == KindPointer {
			if op != token.Minus || l.Ptr.Region != r.Ptr.Region {
				return Value{}, e.errorf(n, "unsupported pointer arithmetic in constant expression")
			}
			return IntValue(l.Ptr.Offset-r.Ptr.Offset, e.intType(64, false)), nil
		}
		p := l.Ptr
		if op == token.Plus {
			p.Offset += r.I
		} else {
			p.Offset -= r.I
		}
		return PointerValue(p, l.Type), nil
	}
	if l.Kind == KindFloat || r.Kind == KindFloat {
		lf, _ := l.AsFloat()
		rf, _ := r.AsFloat()
		resTy := l.Type
		if l.Kind != KindFloat {
			resTy = r.Type
		}
		switch op {
		case token.Plus:
			return FloatValue(lf+rf, resTy), nil
		case token.Minus:
			return FloatValue(lf-rf, resTy), nil
		case token.Star:
			return FloatValue(lf*rf, resTy), nil
		case token.Slash:
			if rf == 0 {
				return Value{}, e.errorf(n, "division by zero in constant expression")
			}
			return FloatValue(lf/rf, resTy), nil
		default:
			return Value{}, e.errorf(n, "unsupported floating-point operator in constant expression")
		}
	}
	info := e.Types.Lookup(l.Type)
	width, unsigned := info.IntWidth, info.Unsigned
	if width == 0 {
		width = 32
	}
	switch op {
	case token.Plus:
		v, ok := checkedAdd(l.I, r.I, width, unsigned)
		if !ok {
			return Value{}, e.errorf(n, "integer overflow in constant expression (width %d)", width)
		}
		return IntValue(v, l.Type), nil
	case token.Minus:
		v, ok := checkedSub(l.I, r.I, width, unsigned)
		if !ok {
			return Value{}, e.errorf(n, "integer overflow in constant expression (width %d)", width)
		}
		return IntValue(v, l.Type), nil
	case token.Star:
		v, ok := checkedMul(l.I, r.I, width, unsigned)
		if !ok {
			return Value{}, e.errorf(n, "integer overflow in constant expression (width %d)", width)
		}
		return IntValue(v, l.Type), nil
	case token.Slash:
		if r.I == 0 {
			return Value{}, e.errorf(n, "division by zero in constant expression")
		}
		return IntValue(truncate(l.I/r.I, width, unsigned), l.Type), nil
	case token.Percent:
		if r.I == 0 {
			return Value{}, e.errorf(n, "modulo by zero in constant expression")
		}
		return IntValue(truncate(l.I%r.I, width, unsigned), l.Type), nil
	case token.Amp:
		return IntValue(truncate(l.I&r.I, width, unsigned), l.Type), nil
	case token.Pipe:
		return IntValue(truncate(l.I|r.I, width, unsigned), l.Type), nil
	case token.Caret:
		return IntValue(truncate(l.I^r.I, width, unsigned), l.Type), nil
	case token.ShiftLeft:
		if r.I < 0 || uint64(r.I) >= uint64(width) {
			return Value{}, e.errorf(n, "shift amount %d is out of range for a %d-bit type", r.I, width)
		}
		return IntValue(truncate(l.I<<uint(r.I), width, unsigned), l.Type), nil
	case token.ShiftRight:
		if r.I < 0 || uint64(r.I) >= uint64(width) {
			return Value{}, e.errorf(n, "shift amount %d is out of range for a %d-bit type", r.I, width)
		}
		return IntValue(truncate(l.I>>uint(r.I), width, unsigned), l.Type), nil
	}
	return Value{}, e.errorf(n, "unsupported integer operator in constant expression")
}

// checkedAdd/Sub/Mul detect overflow by widening to int64 arithmetic and
// verifying the width-truncated result round-trips back to the original;
// a 64-bit-wide operand is trusted as-is since there is no wider Go
// integer to widen into.
func checkedAdd(a, b int64, width uint32, unsigned bool) (int64, bool) {
	raw := a + b
	return raw, width >= 64 || truncate(raw, width, unsigned) == raw
}

func checkedSub(a, b int64, width uint32, unsigned bool) (int64, bool) {
	raw := a - b
	return raw, width >= 64 || truncate(raw, width, unsigned) == raw
}

func checkedMul(a, b int64, width uint32, unsigned bool) (int64, bool) {
	raw := a * b
	return raw, width >= 64 || truncate(raw, width, unsigned) == raw
}

func (e *Evaluator) compare(n ast.Node, op token.Kind, l, r Value) (Value, *diag.Error) {
	var cmp int
	switch {
	case l.Kind == KindPointer && r.Kind == KindPointer:
		switch {
		case l.Ptr.Region != r.Ptr.Region:
			return Value{}, e.errorf(n, "comparison of pointers into different allocations in constant expression")
		case l.Ptr.Offset < r.Ptr.Offset:
			cmp = -1
		case l.Ptr.Offset > r.Ptr.Offset:
			cmp = 1
		}
	case l.Kind == KindFloat || r.Kind == KindFloat:
		lf, _ := l.AsFloat()
		rf, _ := r.AsFloat()
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	default:
		switch {
		case l.I < r.I:
			cmp = -1
		case l.I > r.I:
			cmp = 1
		}
	}
	switch op {
	case token.Less:
		return BoolValue(cmp < 0), nil
	case token.Greater:
		return BoolValue(cmp > 0), nil
	case token.LessEq:
		return BoolValue(cmp <= 0), nil
	case token.GreaterEq:
		return BoolValue(cmp >= 0), nil
	case token.Eq:
		return BoolValue(cmp == 0), nil
	case token.NotEq:
		return BoolValue(cmp != 0), nil
	case token.Spaceship:
		return IntValue(int64(cmp), e.intType(32, false)), nil
	}
	return Value{}, e.errorf(n, "unsupported comparison operator in constant expression")
}

// assign writes v to the lvalue expr, which must be an Ident (scope
// binding), a SubscriptExpr (heap element), a MemberExpr (struct field),
// or a unary `*p` dereference (heap element through a pointer).
func (e *Evaluator) assign(expr ast.Expr, v Value, sc *scope, h *Heap) *diag.Error {
	switch lhs := expr.(type) {
	case *ast.Ident:
		ptr, ok := sc.lookup(lhs.Name)
		if !ok {
			return e.errorf(lhs, "assignment to undeclared constant-expression variable %q", lhs.Name)
		}
		*ptr = v
		return nil
	case *ast.SubscriptExpr:
		obj, err := e.eval(lhs.Object, sc, h)
		if err != nil {
			return err
		}
		idx, err := e.eval(lhs.Index, sc, h)
		if err != nil {
			return err
		}
		if obj.Kind != KindPointer {
			return e.errorf(lhs, "assignment through a non-pointer constant value")
		}
		p := obj.Ptr
		p.Offset += idx.I
		if gerr := h.Store(p, v); gerr != nil {
			return e.errorf(lhs, "%s", gerr.Error())
		}
		return nil
	case *ast.MemberExpr:
		obj, err := e.eval(lhs.Object, sc, h)
		if err != nil {
			return err
		}
		if obj.Kind != KindStruct {
			return e.errorf(lhs, "member assignment on a non-struct constant value")
		}
		cp := v
		obj.Fields[lhs.Member] = &cp
		return nil
	case *ast.UnaryExpr:
		if lhs.Op == token.Star {
			p, err := e.eval(lhs.Operand, sc, h)
			if err != nil {
				return err
			}
			if p.Kind != KindPointer {
				return e.errorf(lhs, "assignment through a non-pointer constant value")
			}
			if gerr := h.Store(p.Ptr, v); gerr != nil {
				return e.errorf(lhs, "%s", gerr.Error())
			}
			return nil
		}
	}
	return e.errorf(expr, "this expression is not assignable in a constant expression")
}
