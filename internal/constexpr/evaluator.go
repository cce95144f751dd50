package constexpr

import (
	"fmt"

	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/diag"
	"github.com/go-cppc/cppc/internal/intern"
	"github.com/go-cppc/cppc/internal/symbols"
	"github.com/go-cppc/cppc/internal/template"
	"github.com/go-cppc/cppc/internal/types"
)

// Resource limits from spec.md §4.4: "Step limit (default 10^6) and
// recursion-depth limit (default 512) prevent runaway evaluation."
const (
	maxSteps = 1_000_000
	maxDepth = 512
)

// Evaluator walks AST subtrees to produce compile-time Values. One
// Evaluator is shared across a translation unit; each top-level
// EvalConst/EvalStaticAssert/EvalInt64 call gets its own Heap and its own
// step/depth counters, since the heap and resource budget are scoped to
// one evaluation (spec.md §4.4: "The heap is per-evaluation").
type Evaluator struct {
	Types   *types.Registry
	Syms    *symbols.Table
	Strings *intern.Table
	// Resolver turns a parsed TypeExpr into a TypeIndex, instantiating
	// class templates along the way — reused directly from
	// internal/template rather than re-implemented, since type
	// resolution inside a cast/sizeof/new is exactly the same operation
	// the template instantiator already performs on a pattern's TypeExprs.
	Resolver *template.Instantiator
	FileIdx  int

	// funcs indexes every ordinary (non-template) function body by its
	// qualified name for call evaluation. Populated by RegisterFunction
	// as the parser (or the driver, walking the finished TranslationUnit)
	// discovers function definitions; internal/template's own function
	// template instantiations are registered the same way so a constexpr
	// call can reach an instantiated template function too.
	funcs map[types.QualifiedIdentifier][]*ast.FunctionDecl

	steps int
	depth int
}

func New(tyReg *types.Registry, syms *symbols.Table, strs *intern.Table, resolver *template.Instantiator, fileIdx int) *Evaluator {
	return &Evaluator{
		Types:    tyReg,
		Syms:     syms,
		Strings:  strs,
		Resolver: resolver,
		FileIdx:  fileIdx,
		funcs:    make(map[types.QualifiedIdentifier][]*ast.FunctionDecl),
	}
}

// RegisterFunction makes fd callable from a constant expression, provided
// it carries a body and is declared constexpr or consteval (checked at
// call time, not here, so forward declarations can still be registered
// and completed later).
func (e *Evaluator) RegisterFunction(fd *ast.FunctionDecl) {
	e.funcs[fd.QualID] = append(e.funcs[fd.QualID], fd)
}

// ctrl is the non-local control signal a statement can propagate up
// through execStmt — a return, break, or continue in flight.
type ctrl int

const (
	ctrlNone ctrl = iota
	ctrlReturn
	ctrlBreak
	ctrlContinue
)

// EvalConst evaluates expr to a Value in a fresh scope and a fresh heap,
// failing if any heap region allocated during the evaluation is still
// live when it completes (spec.md §4.4: "leaks ... are compile errors").
func (e *Evaluator) EvalConst(expr ast.Expr) (Value, *diag.Error) {
	e.steps, e.depth = 0, 0
	h := newHeap()
	v, err := e.eval(expr, newScope(nil), h)
	if err != nil {
		return Value{}, err
	}
	if leaked := h.Leaks(); len(leaked) > 0 {
		return Value{}, e.errorf(expr, "constant expression leaks %d heap allocation(s)", len(leaked))
	}
	return v, nil
}

// EvalStaticAssert evaluates a static_assert condition to bool.
func (e *Evaluator) EvalStaticAssert(cond ast.Expr) (bool, *diag.Error) {
	v, err := e.EvalConst(cond)
	if err != nil {
		return false, err
	}
	if v.Kind != KindBool && v.Kind != KindInt {
		return false, e.errorf(cond, "static_assert condition is not a constant boolean expression")
	}
	return v.Truthy(), nil
}

// EvalInt64 is the narrow entry point internal/template.Instantiator
// wires into its EvalConstInt field: array bounds and non-type template
// arguments only ever need a plain integer result.
func (e *Evaluator) EvalInt64(expr ast.Expr) (int64, bool) {
	v, err := e.EvalConst(expr)
	if err != nil {
		return 0, false
	}
	switch v.Kind {
	case KindInt:
		return v.I, true
	case KindBool:
		if v.B {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func (e *Evaluator) errorf(n ast.Node, format string, args ...any) *diag.Error {
	pos := n.Pos()
	return diag.New(diag.Constexpr, diag.Position{Line: pos.Line, Column: pos.Column, File: fmt.Sprint(e.FileIdx)}, format, args...)
}

func (e *Evaluator) step(n ast.Node) *diag.Error {
	e.steps++
	if e.steps > maxSteps {
		return e.errorf(n, "constant expression exceeded the step limit (%d)", maxSteps)
	}
	return nil
}
