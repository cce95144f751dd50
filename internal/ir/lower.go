package ir

import (
	"fmt"

	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/constexpr"
	"github.com/go-cppc/cppc/internal/diag"
	"github.com/go-cppc/cppc/internal/intern"
	"github.com/go-cppc/cppc/internal/symbols"
	"github.com/go-cppc/cppc/internal/template"
	"github.com/go-cppc/cppc/internal/token"
	"github.com/go-cppc/cppc/internal/types"
)

// Lowerer walks a resolved AST and produces one ir.Function per
// FunctionDecl with a body, the way internal/semantic.Analyzer walks the
// same tree for type checking — lowering reuses the same registries
// rather than re-deriving symbol/type information.
type Lowerer struct {
	Types    *types.Registry
	Syms     *symbols.Table
	Strings  *intern.Table
	Resolver *template.Instantiator
	Eval     *constexpr.Evaluator
	FileIdx  int

	cur      *Function
	locals   map[string]TempVar   // name -> address temp (alloca-like)
	breakLbl []string
	contLbl  []string
	labelSeq int
}

// NewLowerer creates a Lowerer sharing the driver's registries.
func NewLowerer(tyReg *types.Registry, syms *symbols.Table, strs *intern.Table, resolver *template.Instantiator, ev *constexpr.Evaluator, fileIdx int) *Lowerer {
	return &Lowerer{Types: tyReg, Syms: syms, Strings: strs, Resolver: resolver, Eval: ev, FileIdx: fileIdx}
}

// LowerModule lowers every function definition reachable at the
// top level (namespace-nested functions included) into a Module. Class
// member functions are lowered from their enclosing StructDecl's Members.
func (lw *Lowerer) LowerModule(tu *ast.TranslationUnit) (*Module, []*diag.Error) {
	mod := &Module{}
	var errs []*diag.Error
	var walk func(decls []ast.Decl)
	walk = func(decls []ast.Decl) {
		for _, d := range decls {
			switch n := d.(type) {
			case *ast.FunctionDecl:
				if n.Body == nil {
					continue
				}
				fn, err := lw.LowerFunction(n)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				mod.Functions = append(mod.Functions, fn)
			case *ast.StructDecl:
				for _, m := range n.Members {
					if fd, ok := m.(*ast.FunctionDecl); ok && fd.Body != nil {
						fn, err := lw.LowerFunction(fd)
						if err != nil {
							errs = append(errs, err)
							continue
						}
						mod.Functions = append(mod.Functions, fn)
					}
				}
			case *ast.NamespaceDecl:
				walk(n.Decls)
			}
		}
	}
	walk(tu.Decls)
	return mod, errs
}

// LowerFunction lowers one function body into three-address form.
func (lw *Lowerer) LowerFunction(fd *ast.FunctionDecl) (*Function, *diag.Error) {
	fn := &Function{
		Name:       fd.QualID,
		Categories: make(map[TempVar]ValueCategory),
		LValues:    make(map[TempVar]*LValueInfo),
		VTableSlot: -1,
	}
	if fd.IsVirtual {
		fn.IsVirtual = true
	}
	lw.cur = fn
	lw.locals = make(map[string]TempVar)
	lw.labelSeq = 0

	for _, p := range fd.Params {
		if p.Name == "" {
			continue
		}
		t := lw.newTemp(fn)
		fn.Categories[t] = LValue
		fn.LValues[t] = &LValueInfo{Kind: StorageDirect, Symbol: fd.QualID}
		lw.locals[p.Name] = t
		fn.Params = append(fn.Params, t)
	}

	if err := lw.lowerStmt(fd.Body); err != nil {
		return nil, err
	}
	// implicit `return;` at fall-through for a void function.
	lw.emit(Instruction{Op: OpReturn, A: Operand{}})
	return fn, nil
}

func (lw *Lowerer) newTemp(fn *Function) TempVar {
	t := fn.NumTemps
	fn.NumTemps++
	return t
}

func (lw *Lowerer) emit(i Instruction) { lw.cur.Instrs = append(lw.cur.Instrs, i) }

func (lw *Lowerer) newLabel(prefix string) string {
	lw.labelSeq++
	return fmt.Sprintf("%s%d", prefix, lw.labelSeq)
}

func (lw *Lowerer) errorf(n ast.Node, format string, args ...any) *diag.Error {
	pos := n.Pos()
	return diag.New(diag.Internal, diag.Position{Line: pos.Line, Column: pos.Column, File: fmt.Sprint(lw.FileIdx)}, format, args...)
}

// --- statements ---

func (lw *Lowerer) lowerStmt(s ast.Stmt) *diag.Error {
	switch n := s.(type) {
	case *ast.CompoundStmt:
		for _, st := range n.Stmts {
			if err := lw.lowerStmt(st); err != nil {
				return err
			}
		}
	case *ast.ExprStmt:
		_, err := lw.lowerExpr(n.X)
		return err
	case *ast.DeclStmt:
		return lw.lowerDecl(n.D)
	case *ast.IfStmt:
		return lw.lowerIf(n)
	case *ast.WhileStmt:
		return lw.lowerWhile(n)
	case *ast.DoStmt:
		return lw.lowerDo(n)
	case *ast.ForStmt:
		return lw.lowerFor(n)
	case *ast.BreakStmt:
		if len(lw.breakLbl) == 0 {
			return lw.errorf(n, "break statement not within a loop")
		}
		lw.emit(Instruction{Op: OpJmp, A: LabelOperand(lw.breakLbl[len(lw.breakLbl)-1])})
	case *ast.ContinueStmt:
		if len(lw.contLbl) == 0 {
			return lw.errorf(n, "continue statement not within a loop")
		}
		lw.emit(Instruction{Op: OpJmp, A: LabelOperand(lw.contLbl[len(lw.contLbl)-1])})
	case *ast.ReturnStmt:
		if n.Value == nil {
			lw.emit(Instruction{Op: OpReturn})
			return nil
		}
		v, err := lw.lowerExpr(n.Value)
		if err != nil {
			return err
		}
		lw.emit(Instruction{Op: OpReturn, A: TempOperand(v)})
	case *ast.ThrowStmt:
		if n.Value == nil {
			lw.emit(Instruction{Op: OpThrow})
			return nil
		}
		v, err := lw.lowerExpr(n.Value)
		if err != nil {
			return err
		}
		lw.emit(Instruction{Op: OpThrow, A: TempOperand(v)})
	case *ast.TryStmt:
		return lw.lowerTry(n)
	case *ast.SwitchStmt:
		return lw.lowerSwitch(n)
	default:
		return lw.errorf(s, "lowering not implemented for statement %T", s)
	}
	return nil
}

func (lw *Lowerer) lowerDecl(d ast.Decl) *diag.Error {
	vd, ok := d.(*ast.VarDecl)
	if !ok {
		return nil // nested type/function decls need no per-statement lowering
	}
	t := lw.newTemp(lw.cur)
	lw.cur.Categories[t] = LValue
	lw.cur.LValues[t] = &LValueInfo{Kind: StorageTemporary}
	lw.locals[vd.Name] = t
	if vd.Init == nil {
		return nil
	}
	v, err := lw.lowerExpr(vd.Init)
	if err != nil {
		return err
	}
	lw.emit(Instruction{Op: OpStore, A: TempOperand(t), B: TempOperand(v)})
	return nil
}

func (lw *Lowerer) lowerIf(n *ast.IfStmt) *diag.Error {
	if n.Init != nil {
		if err := lw.lowerStmt(n.Init); err != nil {
			return err
		}
	}
	cond, err := lw.lowerExpr(n.Cond)
	if err != nil {
		return err
	}
	elseLbl := lw.newLabel("else")
	endLbl := lw.newLabel("endif")
	lw.emit(Instruction{Op: OpBranch, A: TempOperand(cond), B: LabelOperand(elseLbl)})
	if err := lw.lowerStmt(n.Then); err != nil {
		return err
	}
	lw.emit(Instruction{Op: OpJmp, A: LabelOperand(endLbl)})
	lw.emit(Instruction{Op: OpLabel, A: LabelOperand(elseLbl)})
	if n.Else != nil {
		if err := lw.lowerStmt(n.Else); err != nil {
			return err
		}
	}
	lw.emit(Instruction{Op: OpLabel, A: LabelOperand(endLbl)})
	return nil
}

func (lw *Lowerer) lowerWhile(n *ast.WhileStmt) *diag.Error {
	top := lw.newLabel("wloop")
	end := lw.newLabel("wend")
	lw.breakLbl = append(lw.breakLbl, end)
	lw.contLbl = append(lw.contLbl, top)
	defer lw.popLoop()

	lw.emit(Instruction{Op: OpLabel, A: LabelOperand(top)})
	cond, err := lw.lowerExpr(n.Cond)
	if err != nil {
		return err
	}
	lw.emit(Instruction{Op: OpBranch, A: TempOperand(cond), B: LabelOperand(end)})
	if err := lw.lowerStmt(n.Body); err != nil {
		return err
	}
	lw.emit(Instruction{Op: OpJmp, A: LabelOperand(top)})
	lw.emit(Instruction{Op: OpLabel, A: LabelOperand(end)})
	return nil
}

func (lw *Lowerer) lowerDo(n *ast.DoStmt) *diag.Error {
	top := lw.newLabel("doloop")
	contLbl := lw.newLabel("docont")
	end := lw.newLabel("doend")
	lw.breakLbl = append(lw.breakLbl, end)
	lw.contLbl = append(lw.contLbl, contLbl)
	defer lw.popLoop()

	lw.emit(Instruction{Op: OpLabel, A: LabelOperand(top)})
	if err := lw.lowerStmt(n.Body); err != nil {
		return err
	}
	lw.emit(Instruction{Op: OpLabel, A: LabelOperand(contLbl)})
	cond, err := lw.lowerExpr(n.Cond)
	if err != nil {
		return err
	}
	lw.emit(Instruction{Op: OpBranch, A: TempOperand(cond), B: LabelOperand(end)})
	lw.emit(Instruction{Op: OpJmp, A: LabelOperand(top)})
	lw.emit(Instruction{Op: OpLabel, A: LabelOperand(end)})
	return nil
}

func (lw *Lowerer) lowerFor(n *ast.ForStmt) *diag.Error {
	if n.Init != nil {
		if err := lw.lowerStmt(n.Init); err != nil {
			return err
		}
	}
	top := lw.newLabel("floop")
	contLbl := lw.newLabel("fcont")
	end := lw.newLabel("fend")
	lw.breakLbl = append(lw.breakLbl, end)
	lw.contLbl = append(lw.contLbl, contLbl)
	defer lw.popLoop()

	lw.emit(Instruction{Op: OpLabel, A: LabelOperand(top)})
	if n.Cond != nil {
		cond, err := lw.lowerExpr(n.Cond)
		if err != nil {
			return err
		}
		lw.emit(Instruction{Op: OpBranch, A: TempOperand(cond), B: LabelOperand(end)})
	}
	if err := lw.lowerStmt(n.Body); err != nil {
		return err
	}
	lw.emit(Instruction{Op: OpLabel, A: LabelOperand(contLbl)})
	if n.Post != nil {
		if _, err := lw.lowerExpr(n.Post); err != nil {
			return err
		}
	}
	lw.emit(Instruction{Op: OpJmp, A: LabelOperand(top)})
	lw.emit(Instruction{Op: OpLabel, A: LabelOperand(end)})
	return nil
}

func (lw *Lowerer) popLoop() {
	lw.breakLbl = lw.breakLbl[:len(lw.breakLbl)-1]
	lw.contLbl = lw.contLbl[:len(lw.contLbl)-1]
}

// lowerSwitch lowers to a chain of compares-and-branches — spec.md does
// not require jump-table codegen, just correct control flow.
func (lw *Lowerer) lowerSwitch(n *ast.SwitchStmt) *diag.Error {
	if n.Init != nil {
		if err := lw.lowerStmt(n.Init); err != nil {
			return err
		}
	}
	cond, err := lw.lowerExpr(n.Cond)
	if err != nil {
		return err
	}
	end := lw.newLabel("swend")
	lw.breakLbl = append(lw.breakLbl, end)
	defer func() { lw.breakLbl = lw.breakLbl[:len(lw.breakLbl)-1] }()

	caseLbls := make([]string, len(n.Cases))
	defaultIdx := -1
	for i, c := range n.Cases {
		caseLbls[i] = lw.newLabel("case")
		if c.IsDefault {
			defaultIdx = i
		}
	}
	for i, c := range n.Cases {
		for _, v := range c.Values {
			cv, err := lw.lowerExpr(v)
			if err != nil {
				return err
			}
			eq := lw.newTemp(lw.cur)
			lw.emit(Instruction{Op: OpEq, Dst: eq, A: TempOperand(cond), B: TempOperand(cv)})
			lw.emit(Instruction{Op: OpBranch, A: TempOperand(eq), B: LabelOperand(caseLbls[i])})
		}
	}
	if defaultIdx >= 0 {
		lw.emit(Instruction{Op: OpJmp, A: LabelOperand(caseLbls[defaultIdx])})
	} else {
		lw.emit(Instruction{Op: OpJmp, A: LabelOperand(end)})
	}
	for i, c := range n.Cases {
		lw.emit(Instruction{Op: OpLabel, A: LabelOperand(caseLbls[i])})
		for _, st := range c.Body {
			if err := lw.lowerStmt(st); err != nil {
				return err
			}
		}
	}
	lw.emit(Instruction{Op: OpLabel, A: LabelOperand(end)})
	return nil
}

func (lw *Lowerer) lowerTry(n *ast.TryStmt) *diag.Error {
	tryLbl := lw.newLabel("try")
	end := lw.newLabel("tryend")
	lw.emit(Instruction{Op: OpTryBegin, A: LabelOperand(tryLbl)})
	for _, st := range n.Body.Stmts {
		if err := lw.lowerStmt(st); err != nil {
			return err
		}
	}
	lw.emit(Instruction{Op: OpTryEnd, A: LabelOperand(tryLbl)})
	lw.emit(Instruction{Op: OpJmp, A: LabelOperand(end)})
	for _, h := range n.Handlers {
		var ty types.TypeIndex
		if h.ExceptionType != nil {
			ty = lw.Resolver.Resolve(h.ExceptionType)
		}
		lw.emit(Instruction{Op: OpCatchBegin, Type: ty})
		if h.Name != "" {
			t := lw.newTemp(lw.cur)
			lw.cur.Categories[t] = LValue
			lw.cur.LValues[t] = &LValueInfo{Kind: StorageTemporary}
			lw.locals[h.Name] = t
		}
		for _, st := range h.Body.Stmts {
			if err := lw.lowerStmt(st); err != nil {
				return err
			}
		}
		lw.emit(Instruction{Op: OpCatchEnd})
	}
	lw.emit(Instruction{Op: OpLabel, A: LabelOperand(end)})
	return nil
}

// --- expressions ---

func (lw *Lowerer) lowerExpr(e ast.Expr) (TempVar, *diag.Error) {
	switch n := e.(type) {
	case *ast.IntLiteral:
		t := lw.newTemp(lw.cur)
		lw.emit(Instruction{Op: OpCopy, Dst: t, A: ConstIntOperand(n.Value)})
		return t, nil
	case *ast.FloatLiteral:
		t := lw.newTemp(lw.cur)
		lw.emit(Instruction{Op: OpCopy, Dst: t, A: ConstFloatOperand(n.Value)})
		return t, nil
	case *ast.BoolLiteral:
		t := lw.newTemp(lw.cur)
		v := int64(0)
		if n.Value {
			v = 1
		}
		lw.emit(Instruction{Op: OpCopy, Dst: t, A: ConstIntOperand(v)})
		return t, nil
	case *ast.CharLiteral:
		t := lw.newTemp(lw.cur)
		lw.emit(Instruction{Op: OpCopy, Dst: t, A: ConstIntOperand(n.Value)})
		return t, nil
	case *ast.NullptrLiteral:
		t := lw.newTemp(lw.cur)
		lw.emit(Instruction{Op: OpCopy, Dst: t, A: ConstIntOperand(0)})
		return t, nil
	case *ast.StringLiteral:
		t := lw.newTemp(lw.cur)
		idx := len(lw.cur.Instrs) // not a pool index: nothing adds the literal to Module.Strings or maps .Lstr labels to it
		lw.emit(Instruction{Op: OpCopy, Dst: t, A: Operand{Kind: OperandLabel, Label: fmt.Sprintf(".Lstr%d", idx)}})
		return t, nil
	case *ast.Ident:
		return lw.lowerIdent(n)
	case *ast.UnaryExpr:
		return lw.lowerUnary(n)
	case *ast.BinaryExpr:
		return lw.lowerBinary(n)
	case *ast.TernaryExpr:
		return lw.lowerTernary(n)
	case *ast.CallExpr:
		return lw.lowerCall(n)
	case *ast.MemberExpr:
		addr, err := lw.lowerMemberAddr(n)
		if err != nil {
			return 0, err
		}
		t := lw.newTemp(lw.cur)
		lw.emit(Instruction{Op: OpLoad, Dst: t, A: TempOperand(addr)})
		return t, nil
	case *ast.SubscriptExpr:
		return lw.lowerSubscript(n)
	case *ast.CastExpr:
		return lw.lowerCast(n)
	case *ast.SizeofExpr:
		return lw.lowerSizeof(n)
	case *ast.NewExpr:
		return lw.lowerNew(n)
	case *ast.DeleteExpr:
		v, err := lw.lowerExpr(n.Operand)
		if err != nil {
			return 0, err
		}
		flag := int64(0)
		if n.IsArray {
			flag = 1
		}
		lw.emit(Instruction{Op: OpDelete, A: TempOperand(v), B: ConstIntOperand(flag)})
		return v, nil
	default:
		return 0, lw.errorf(e, "lowering not implemented for expression %T", e)
	}
}

func (lw *Lowerer) lowerIdent(n *ast.Ident) (TempVar, *diag.Error) {
	if addr, ok := lw.locals[n.Name]; ok {
		t := lw.newTemp(lw.cur)
		lw.emit(Instruction{Op: OpLoad, Dst: t, A: TempOperand(addr)})
		return t, nil
	}
	t := lw.newTemp(lw.cur)
	lw.emit(Instruction{Op: OpLoad, Dst: t, A: SymbolOperand(n.QualID)})
	return t, nil
}

// lowerLValueAddr returns the address TempVar for an expression usable as
// an assignment target (identifier, member access, subscript, deref).
func (lw *Lowerer) lowerLValueAddr(e ast.Expr) (TempVar, *diag.Error) {
	switch n := e.(type) {
	case *ast.Ident:
		if addr, ok := lw.locals[n.Name]; ok {
			return addr, nil
		}
		t := lw.newTemp(lw.cur)
		lw.cur.Categories[t] = LValue
		lw.cur.LValues[t] = &LValueInfo{Kind: StorageDirect, Symbol: n.QualID}
		lw.emit(Instruction{Op: OpAddr, Dst: t, A: SymbolOperand(n.QualID)})
		return t, nil
	case *ast.MemberExpr:
		return lw.lowerMemberAddr(n)
	case *ast.SubscriptExpr:
		return lw.lowerElemAddr(n)
	case *ast.UnaryExpr:
		if n.Op == token.Star {
			return lw.lowerExpr(n.Operand)
		}
	}
	return 0, lw.errorf(e, "expression is not assignable")
}

func (lw *Lowerer) lowerMemberAddr(n *ast.MemberExpr) (TempVar, *diag.Error) {
	obj, err := lw.lowerExpr(n.Object)
	if err != nil {
		return 0, err
	}
	offset := lw.memberOffset(n)
	t := lw.newTemp(lw.cur)
	lw.cur.Categories[t] = LValue
	lw.cur.LValues[t] = &LValueInfo{Kind: StorageMember, Base: obj, Offset: offset}
	lw.emit(Instruction{Op: OpMemberAddr, Dst: t, A: TempOperand(obj), B: ConstIntOperand(offset)})
	return t, nil
}

// memberOffset looks the field up by name on the object expression's
// resolved struct type, defaulting to 0 when the type isn't resolved yet
// (a known limitation shared with the rest of this pass's best-effort
// type tracking — see internal/constexpr's own member-access handling).
func (lw *Lowerer) memberOffset(n *ast.MemberExpr) int64 {
	ty := n.Object.ResolvedType()
	if ty == nil {
		return 0
	}
	info := lw.Types.Lookup(ty.Base)
	if info.Kind == types.Pointer || info.Kind == types.Reference {
		info = lw.Types.Lookup(info.Elem)
	}
	if info.Struct == nil {
		return 0
	}
	var bitOffset uint32
	for _, f := range info.Struct.Fields {
		if lw.Strings.Valid(f.Name) && lw.Strings.View(f.Name) == n.Member {
			bitOffset = f.BitOffset
			break
		}
	}
	return int64(bitOffset / 8)
}

func (lw *Lowerer) lowerElemAddr(n *ast.SubscriptExpr) (TempVar, *diag.Error) {
	obj, err := lw.lowerExpr(n.Object)
	if err != nil {
		return 0, err
	}
	idx, err := lw.lowerExpr(n.Index)
	if err != nil {
		return 0, err
	}
	elemSize := int64(4)
	if ty := n.ResolvedType(); ty != nil {
		elemSize = int64(lw.Types.Size(ty.Base))
	}
	t := lw.newTemp(lw.cur)
	lw.cur.Categories[t] = LValue
	lw.cur.LValues[t] = &LValueInfo{Kind: StorageElement, Base: obj, Index: idx, ElemSize: elemSize}
	lw.emit(Instruction{Op: OpElemAddr, Dst: t, A: TempOperand(obj), B: TempOperand(idx)})
	return t, nil
}

func (lw *Lowerer) lowerSubscript(n *ast.SubscriptExpr) (TempVar, *diag.Error) {
	addr, err := lw.lowerElemAddr(n)
	if err != nil {
		return 0, err
	}
	t := lw.newTemp(lw.cur)
	lw.emit(Instruction{Op: OpLoad, Dst: t, A: TempOperand(addr)})
	return t, nil
}

func (lw *Lowerer) lowerUnary(n *ast.UnaryExpr) (TempVar, *diag.Error) {
	switch n.Op {
	case token.Amp:
		return lw.lowerLValueAddr(n.Operand)
	case token.Star:
		v, err := lw.lowerExpr(n.Operand)
		if err != nil {
			return 0, err
		}
		t := lw.newTemp(lw.cur)
		lw.emit(Instruction{Op: OpDeref, Dst: t, A: TempOperand(v)})
		return t, nil
	case token.Minus:
		v, err := lw.lowerExpr(n.Operand)
		if err != nil {
			return 0, err
		}
		t := lw.newTemp(lw.cur)
		lw.emit(Instruction{Op: OpNeg, Dst: t, A: TempOperand(v)})
		return t, nil
	case token.Bang:
		v, err := lw.lowerExpr(n.Operand)
		if err != nil {
			return 0, err
		}
		t := lw.newTemp(lw.cur)
		lw.emit(Instruction{Op: OpNot, Dst: t, A: TempOperand(v)})
		return t, nil
	case token.Tilde:
		v, err := lw.lowerExpr(n.Operand)
		if err != nil {
			return 0, err
		}
		t := lw.newTemp(lw.cur)
		lw.emit(Instruction{Op: OpBitNot, Dst: t, A: TempOperand(v)})
		return t, nil
	case token.PlusPlus, token.MinusMinus:
		return lw.lowerIncDec(n)
	default:
		return 0, lw.errorf(n, "unsupported unary operator %v", n.Op)
	}
}

func (lw *Lowerer) lowerIncDec(n *ast.UnaryExpr) (TempVar, *diag.Error) {
	addr, err := lw.lowerLValueAddr(n.Operand)
	if err != nil {
		return 0, err
	}
	old := lw.newTemp(lw.cur)
	lw.emit(Instruction{Op: OpLoad, Dst: old, A: TempOperand(addr)})
	op := OpAdd
	if n.Op == token.MinusMinus {
		op = OpSub
	}
	updated := lw.newTemp(lw.cur)
	lw.emit(Instruction{Op: op, Dst: updated, A: TempOperand(old), B: ConstIntOperand(1)})
	lw.emit(Instruction{Op: OpStore, A: TempOperand(addr), B: TempOperand(updated)})
	if n.Postfix {
		return old, nil
	}
	return updated, nil
}

var binOps = map[token.Kind]Opcode{
	token.Plus: OpAdd, token.Minus: OpSub, token.Star: OpMul, token.Slash: OpDiv, token.Percent: OpMod,
	token.Amp: OpAnd, token.Pipe: OpOr, token.Caret: OpXor, token.ShiftLeft: OpShl, token.ShiftRight: OpShr,
	token.Less: OpLt, token.LessEq: OpLe, token.Greater: OpGt, token.GreaterEq: OpGe, token.Eq: OpEq, token.NotEq: OpNe,
}

var compoundOps = map[token.Kind]Opcode{
	token.PlusAssign: OpAdd, token.MinusAssign: OpSub, token.StarAssign: OpMul, token.SlashAssign: OpDiv, token.PercentAssign: OpMod,
	token.AmpAssign: OpAnd, token.PipeAssign: OpOr, token.CaretAssign: OpXor, token.ShiftLeftAssign: OpShl, token.ShiftRightAssign: OpShr,
}

func (lw *Lowerer) lowerBinary(n *ast.BinaryExpr) (TempVar, *diag.Error) {
	if n.Op == token.Assign {
		return lw.lowerAssign(n)
	}
	if op, ok := compoundOps[n.Op]; ok {
		addr, err := lw.lowerLValueAddr(n.Left)
		if err != nil {
			return 0, err
		}
		old := lw.newTemp(lw.cur)
		lw.emit(Instruction{Op: OpLoad, Dst: old, A: TempOperand(addr)})
		rhs, err := lw.lowerExpr(n.Right)
		if err != nil {
			return 0, err
		}
		t := lw.newTemp(lw.cur)
		lw.emit(Instruction{Op: op, Dst: t, A: TempOperand(old), B: TempOperand(rhs)})
		lw.emit(Instruction{Op: OpStore, A: TempOperand(addr), B: TempOperand(t)})
		return t, nil
	}
	if n.Op == token.AmpAmp || n.Op == token.PipePipe {
		return lw.lowerShortCircuit(n)
	}
	op, ok := binOps[n.Op]
	if !ok {
		return 0, lw.errorf(n, "unsupported binary operator %v", n.Op)
	}
	l, err := lw.lowerExpr(n.Left)
	if err != nil {
		return 0, err
	}
	r, err := lw.lowerExpr(n.Right)
	if err != nil {
		return 0, err
	}
	t := lw.newTemp(lw.cur)
	lw.emit(Instruction{Op: op, Dst: t, A: TempOperand(l), B: TempOperand(r)})
	return t, nil
}

// lowerShortCircuit desugars `&&`/`||` into branches so the backend never
// has to special-case non-evaluated operands (spec.md §4.5 leaves
// short-circuiting to the lowerer, not the backend).
func (lw *Lowerer) lowerShortCircuit(n *ast.BinaryExpr) (TempVar, *diag.Error) {
	result := lw.newTemp(lw.cur)
	lw.cur.LValues[result] = &LValueInfo{Kind: StorageTemporary}
	l, err := lw.lowerExpr(n.Left)
	if err != nil {
		return 0, err
	}
	lw.emit(Instruction{Op: OpCopy, Dst: result, A: TempOperand(l)})
	shortLbl := lw.newLabel("sc")
	if n.Op == token.AmpAmp {
		lw.emit(Instruction{Op: OpBranch, A: TempOperand(l), B: LabelOperand(shortLbl)})
	} else {
		notL := lw.newTemp(lw.cur)
		lw.emit(Instruction{Op: OpNot, Dst: notL, A: TempOperand(l)})
		lw.emit(Instruction{Op: OpBranch, A: TempOperand(notL), B: LabelOperand(shortLbl)})
	}
	r, err := lw.lowerExpr(n.Right)
	if err != nil {
		return 0, err
	}
	lw.emit(Instruction{Op: OpCopy, Dst: result, A: TempOperand(r)})
	lw.emit(Instruction{Op: OpLabel, A: LabelOperand(shortLbl)})
	return result, nil
}

func (lw *Lowerer) lowerAssign(n *ast.BinaryExpr) (TempVar, *diag.Error) {
	addr, err := lw.lowerLValueAddr(n.Left)
	if err != nil {
		return 0, err
	}
	v, err := lw.lowerExpr(n.Right)
	if err != nil {
		return 0, err
	}
	lw.emit(Instruction{Op: OpStore, A: TempOperand(addr), B: TempOperand(v)})
	return v, nil
}

func (lw *Lowerer) lowerTernary(n *ast.TernaryExpr) (TempVar, *diag.Error) {
	cond, err := lw.lowerExpr(n.Cond)
	if err != nil {
		return 0, err
	}
	result := lw.newTemp(lw.cur)
	elseLbl := lw.newLabel("telse")
	end := lw.newLabel("tend")
	lw.emit(Instruction{Op: OpBranch, A: TempOperand(cond), B: LabelOperand(elseLbl)})
	thenV, err := lw.lowerExpr(n.Then)
	if err != nil {
		return 0, err
	}
	lw.emit(Instruction{Op: OpCopy, Dst: result, A: TempOperand(thenV)})
	lw.emit(Instruction{Op: OpJmp, A: LabelOperand(end)})
	lw.emit(Instruction{Op: OpLabel, A: LabelOperand(elseLbl)})
	elseV, err := lw.lowerExpr(n.Else)
	if err != nil {
		return 0, err
	}
	lw.emit(Instruction{Op: OpCopy, Dst: result, A: TempOperand(elseV)})
	lw.emit(Instruction{Op: OpLabel, A: LabelOperand(end)})
	return result, nil
}

// lowerCall distinguishes a plain function call, a virtual member call
// (callee resolves to a MethodInfo with VTableSlot >= 0), and an indirect
// call through a function pointer value.
func (lw *Lowerer) lowerCall(n *ast.CallExpr) (TempVar, *diag.Error) {
	args := make([]Operand, 0, len(n.Args))
	for _, a := range n.Args {
		v, err := lw.lowerExpr(a)
		if err != nil {
			return 0, err
		}
		args = append(args, TempOperand(v))
	}

	if me, ok := n.Callee.(*ast.MemberExpr); ok {
		obj, err := lw.lowerExpr(me.Object)
		if err != nil {
			return 0, err
		}
		slot, qid, virtual := lw.resolveMethod(me)
		t := lw.newTemp(lw.cur)
		args = append([]Operand{TempOperand(obj)}, args...)
		if virtual {
			lw.emit(Instruction{Op: OpCallVirtual, Dst: t, A: TempOperand(obj), B: Operand{Kind: OperandSlot, Int: int64(slot)}, Args: args})
		} else {
			lw.emit(Instruction{Op: OpCallDirect, Dst: t, A: SymbolOperand(qid), Args: args})
		}
		return t, nil
	}

	if id, ok := n.Callee.(*ast.Ident); ok {
		t := lw.newTemp(lw.cur)
		lw.emit(Instruction{Op: OpCallDirect, Dst: t, A: SymbolOperand(id.QualID), Args: args})
		return t, nil
	}

	fn, err := lw.lowerExpr(n.Callee)
	if err != nil {
		return 0, err
	}
	t := lw.newTemp(lw.cur)
	lw.emit(Instruction{Op: OpCallIndirect, Dst: t, A: TempOperand(fn), Args: args})
	return t, nil
}

// resolveMethod looks up me.Member on the object's resolved struct type
// and reports the vtable slot (if virtual) or the qualified name to call
// directly.
func (lw *Lowerer) resolveMethod(me *ast.MemberExpr) (slot int, qid types.QualifiedIdentifier, virtual bool) {
	ty := me.Object.ResolvedType()
	if ty == nil {
		return -1, types.QualifiedIdentifier{}, false
	}
	info := lw.Types.Lookup(ty.Base)
	if info.Kind == types.Pointer || info.Kind == types.Reference {
		info = lw.Types.Lookup(info.Elem)
	}
	if info.Struct == nil {
		return -1, types.QualifiedIdentifier{}, false
	}
	for _, m := range info.Struct.Methods {
		if lw.Strings.Valid(m.Name) && lw.Strings.View(m.Name) == me.Member {
			qid = types.QualifiedIdentifier{Name: m.Name}
			if m.IsVirtual && m.VTableSlot >= 0 {
				return m.VTableSlot, qid, true
			}
			return -1, qid, false
		}
	}
	return -1, types.QualifiedIdentifier{}, false
}

func (lw *Lowerer) lowerCast(n *ast.CastExpr) (TempVar, *diag.Error) {
	v, err := lw.lowerExpr(n.Operand)
	if err != nil {
		return 0, err
	}
	ty := lw.Resolver.Resolve(n.Target)
	if n.Kind == ast.DynamicCast {
		t := lw.newTemp(lw.cur)
		lw.emit(Instruction{Op: OpDynamicCast, Dst: t, A: TempOperand(v), Type: ty})
		return t, nil
	}
	t := lw.newTemp(lw.cur)
	lw.emit(Instruction{Op: OpCopy, Dst: t, A: TempOperand(v), Type: ty})
	return t, nil
}

func (lw *Lowerer) lowerSizeof(n *ast.SizeofExpr) (TempVar, *diag.Error) {
	var sz int64
	if n.TypeOperand != nil {
		sz = int64(lw.Types.Size(lw.Resolver.Resolve(n.TypeOperand)))
	} else if n.Operand != nil {
		if ty := n.Operand.ResolvedType(); ty != nil {
			sz = int64(lw.Types.Size(ty.Base))
		}
	}
	t := lw.newTemp(lw.cur)
	lw.emit(Instruction{Op: OpCopy, Dst: t, A: ConstIntOperand(sz)})
	return t, nil
}

func (lw *Lowerer) lowerNew(n *ast.NewExpr) (TempVar, *diag.Error) {
	ty := lw.Resolver.Resolve(n.Type)
	count := Operand{Kind: OperandConstInt, Int: 1}
	if n.ArraySize != nil {
		cv, err := lw.lowerExpr(n.ArraySize)
		if err != nil {
			return 0, err
		}
		count = TempOperand(cv)
	}
	t := lw.newTemp(lw.cur)
	lw.emit(Instruction{Op: OpNew, Dst: t, A: count, Type: ty})
	return t, nil
}
