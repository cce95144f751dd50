// Package driver wires together every compiler phase — lexer, parser,
// template instantiator, constant-expression evaluator, IR lowering,
// x86-64 backend, and object-file writer — into the single pipeline
// cmd/cppc's subcommands call (spec.md §4, §6). It owns the phase
// ordering and the exit-code mapping (spec.md §6: 0 success, 1 compile
// error, 2 internal error, 3 I/O failure); cmd/cppc only translates that
// into os.Exit.
package driver

import (
	"fmt"
	"os"

	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/backend"
	"github.com/go-cppc/cppc/internal/config"
	"github.com/go-cppc/cppc/internal/constexpr"
	"github.com/go-cppc/cppc/internal/diag"
	"github.com/go-cppc/cppc/internal/ir"
	"github.com/go-cppc/cppc/internal/lexer"
	"github.com/go-cppc/cppc/internal/mangle"
	"github.com/go-cppc/cppc/internal/parser"
	"github.com/go-cppc/cppc/internal/template"
	"github.com/go-cppc/cppc/internal/types"
)

// ExitCode mirrors spec.md §6's exit-code contract.
type ExitCode int

const (
	ExitOK       ExitCode = 0
	ExitCompile  ExitCode = 1
	ExitInternal ExitCode = 2
	ExitIO       ExitCode = 3
)

// Result is everything a CLI subcommand might want out of a compile:
// the parsed tree, the lowered module, the compiled machine code, and
// the final object bytes, each populated as far as the pipeline got
// before stopping (so `cppc lex`/`cppc parse`/`cppc dump-ir` can inspect
// an intermediate stage without running the whole pipeline twice).
type Result struct {
	TranslationUnit *ast.TranslationUnit
	Module          *ir.Module
	Compiled        *backend.Module
	Object          []byte
	Sections        []SectionInfo
	Mangler         *mangle.Mangler
}

// Driver runs one translation unit through the pipeline described above.
type Driver struct {
	Opts config.Options
	Log  *diag.Logger
}

func New(opts config.Options) *Driver {
	return &Driver{Opts: opts, Log: opts.Logger(os.Stderr)}
}

// Run executes the full pipeline for the file at d.Opts.InputPath and,
// on success, writes the object to d.Opts.OutputPath. It never panics
// across a phase boundary: a broken invariant surfaces as an
// ExitInternal error instead (spec.md §7).
func (d *Driver) Run() (code ExitCode, err error) {
	defer func() {
		if r := recover(); r != nil {
			code = ExitInternal
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	src, readErr := os.ReadFile(d.Opts.InputPath)
	if readErr != nil {
		return ExitIO, fmt.Errorf("cannot read %s: %w", d.Opts.InputPath, readErr)
	}

	res, errs := d.Compile(string(src), d.Opts.InputPath)
	if len(errs) > 0 {
		fmt.Fprintln(os.Stderr, diag.FormatErrors(errs))
		return ExitCompile, fmt.Errorf("compilation failed with %d error(s)", len(errs))
	}

	if d.Opts.OutputPath == "" {
		return ExitOK, nil
	}
	if writeErr := os.WriteFile(d.Opts.OutputPath, res.Object, 0o644); writeErr != nil {
		return ExitIO, fmt.Errorf("cannot write %s: %w", d.Opts.OutputPath, writeErr)
	}
	return ExitOK, nil
}

// Compile runs every phase and returns as much of Result as completed.
// Result.Object is only populated when every phase up to object-file
// writing succeeded.
func (d *Driver) Compile(src, filename string) (*Result, []*diag.Error) {
	res := &Result{}

	lx := lexer.New(src)
	p := parser.New(lx, nil, nil, nil, nil, 0)
	tu, perrs := p.ParseTranslationUnit()
	res.TranslationUnit = tu
	if len(perrs) > 0 {
		return res, withSource(perrs, src)
	}

	instantiator := template.New(p.Types, p.Syms, p.Strings)
	evaluator := constexpr.New(p.Types, p.Syms, p.Strings, instantiator, 0)
	instantiator.EvalConstInt = evaluator.EvalInt64
	registerConstexprFunctions(tu, evaluator)

	lw := ir.NewLowerer(p.Types, p.Syms, p.Strings, instantiator, evaluator, 0)
	mod, lerrs := lw.LowerModule(tu)
	res.Module = mod
	if len(lerrs) > 0 {
		return res, withSource(lerrs, src)
	}

	abi := mangle.MSVC
	backendABI := backend.Win64
	if d.Opts.ItaniumABI() {
		abi = mangle.Itanium
		backendABI = backend.SysV
	}
	m := mangle.New(abi, p.Types, p.NS, p.Strings)
	res.Mangler = m

	nameOf := func(qid types.QualifiedIdentifier) string {
		return m.FunctionName(qid, types.FuncTypeInfo{}, false, 0)
	}
	compiler := backend.New(backendABI, nameOf)
	compiled, cerr := compiler.Compile(mod)
	if cerr != nil {
		return res, []*diag.Error{diag.NewInternal("%v", cerr)}
	}
	res.Compiled = compiled

	obj, sections, oerr := Assemble(compiled, d.Opts.Target)
	if oerr != nil {
		return res, []*diag.Error{diag.NewInternal("%v", oerr)}
	}
	res.Object = obj
	res.Sections = sections

	return res, nil
}

// registerConstexprFunctions walks the tree once, registering every
// constexpr-eligible function so the evaluator can call it from a
// constant expression (spec.md §4.4) — mirroring how
// internal/ir.Lowerer.LowerModule separately walks namespaces and
// struct members to find function bodies.
func registerConstexprFunctions(tu *ast.TranslationUnit, ev *constexpr.Evaluator) {
	var walk func([]ast.Decl)
	walk = func(decls []ast.Decl) {
		for _, d := range decls {
			switch n := d.(type) {
			case *ast.FunctionDecl:
				if n.Body != nil && n.IsConstexpr {
					ev.RegisterFunction(n)
				}
			case *ast.StructDecl:
				for _, m := range n.Members {
					if fd, ok := m.(*ast.FunctionDecl); ok && fd.Body != nil && fd.IsConstexpr {
						ev.RegisterFunction(fd)
					}
				}
			case *ast.NamespaceDecl:
				walk(n.Decls)
			}
		}
	}
	walk(tu.Decls)
}

func withSource(errs []*diag.Error, src string) []*diag.Error {
	for _, e := range errs {
		e.WithSource(src)
	}
	return errs
}
