// Package parser implements the recursive-descent, Pratt-precedence
// parser (spec.md §4.1): token stream in, AST + populated type/symbol/
// namespace/template registries out.
package parser

import (
	"fmt"

	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/diag"
	"github.com/go-cppc/cppc/internal/intern"
	"github.com/go-cppc/cppc/internal/nsreg"
	"github.com/go-cppc/cppc/internal/symbols"
	"github.com/go-cppc/cppc/internal/token"
	"github.com/go-cppc/cppc/internal/types"
)

// templateParamFrame maps a template's parameter names to the
// placeholder TypeIndex (for type parameters) or a non-type marker
// pushed while parsing the template's pattern (spec.md §4.1: "a
// template-parameter stack... each frame maps local template names to
// placeholder TypeIndexes or non-type parameter slots").
type templateParamFrame struct {
	typeParams    map[string]types.TypeIndex
	nonTypeParams map[string]*ast.TemplateParamDecl
}

// Parser drives the whole translation-unit parse. It owns no lexer
// directly — it pulls tokens through a buffering cursor so it can
// backtrack for the speculative template-argument-list parse.
type Parser struct {
	cur *cursor

	Strings *intern.Table
	Types   *types.Registry
	NS      *nsreg.Registry
	Syms    *symbols.Table

	nsStack       []nsreg.Handle
	templateStack []*templateParamFrame
	fileIdx       int

	errors []*diag.Error
}

// New creates a Parser over src (typically an *internal/lexer.Lexer).
// The registries are created fresh if nil, or shared with a caller that
// wants them pre-populated (e.g. the driver threading the same registry
// set through template instantiation).
func New(src tokenSource, strs *intern.Table, nsReg *nsreg.Registry, tyReg *types.Registry, syms *symbols.Table, fileIdx int) *Parser {
	if strs == nil {
		strs = intern.New()
	}
	if nsReg == nil {
		nsReg = nsreg.New(strs)
	}
	if tyReg == nil {
		tyReg = types.New()
	}
	if syms == nil {
		syms = symbols.New(nsReg)
	}
	return &Parser{
		cur:     newCursor(src),
		Strings: strs,
		NS:      nsReg,
		Types:   tyReg,
		Syms:    syms,
		nsStack: []nsreg.Handle{nsreg.GLOBAL},
		fileIdx: fileIdx,
	}
}

func (p *Parser) currentNS() nsreg.Handle { return p.nsStack[len(p.nsStack)-1] }

func (p *Parser) pushNS(h nsreg.Handle) { p.nsStack = append(p.nsStack, h) }

func (p *Parser) popNS() { p.nsStack = p.nsStack[:len(p.nsStack)-1] }

func (p *Parser) pushTemplateFrame() *templateParamFrame {
	f := &templateParamFrame{typeParams: make(map[string]types.TypeIndex), nonTypeParams: make(map[string]*ast.TemplateParamDecl)}
	p.templateStack = append(p.templateStack, f)
	return f
}

func (p *Parser) popTemplateFrame() { p.templateStack = p.templateStack[:len(p.templateStack)-1] }

// lookupTemplateParam searches the template-parameter stack innermost
// first, returning the placeholder TypeIndex for a type parameter name.
func (p *Parser) lookupTemplateTypeParam(name string) (types.TypeIndex, bool) {
	for i := len(p.templateStack) - 1; i >= 0; i-- {
		if idx, ok := p.templateStack[i].typeParams[name]; ok {
			return idx, true
		}
	}
	return 0, false
}

// errorf records a ParseError at the current token's position and
// returns it; the caller decides whether to attempt recovery.
func (p *Parser) errorf(format string, args ...any) *diag.Error {
	pos := p.cur.Cur().Pos
	e := diag.New(diag.Parse, diag.Position{Line: pos.Line, Column: pos.Column, File: fmt.Sprint(p.fileIdx)}, format, args...)
	p.errors = append(p.errors, e)
	return e
}

// Errors returns all diagnostics accumulated so far.
func (p *Parser) Errors() []*diag.Error { return p.errors }

// expect consumes the current token if it has kind k, else records a
// diagnostic and returns the current token without consuming it —
// callers proceed with whatever
// partial node they can still construct, per spec.md's "nodes are built
// from completed subcomponents bottom-up" (a malformed subcomponent
// simply becomes an error node higher up, never a half-built one).
func (p *Parser) expect(k token.Kind) token.Token {
	if p.cur.check(k) {
		return p.cur.Advance()
	}
	p.errorf("expected token kind %d, got %q", k, p.cur.Cur().Lexeme)
	return p.cur.Cur()
}

// ParseTranslationUnit is the parser's public entry point:
// parse_translation_unit() → TranslationUnit | []ParseError (spec.md §4.1).
func (p *Parser) ParseTranslationUnit() (*ast.TranslationUnit, []*diag.Error) {
	tu := &ast.TranslationUnit{}
	for p.cur.Cur().Kind != token.EOF {
		d := p.parseTopLevelDeclaration()
		if d != nil {
			tu.Decls = append(tu.Decls, d)
		}
	}
	return tu, p.errors
}

// recoverSkipToMatching skips tokens up to and including the matching
// close token, accounting for nesting of open/close pairs. Used when a
// construct is rejected outright (e.g. a template lambda) but the
// cursor must still land somewhere sane to keep parsing the rest of the
// file.
func (p *Parser) recoverSkipToMatching(open, close token.Kind) {
	depth := 0
	if p.cur.check(open) {
		depth = 1
		p.cur.Advance()
	}
	for depth > 0 && p.cur.Cur().Kind != token.EOF {
		switch p.cur.Cur().Kind {
		case open:
			depth++
		case close:
			depth--
		}
		p.cur.Advance()
	}
}

// synchronize implements the parser's best-effort error recovery: skip
// tokens until a plausible top-level declaration boundary (`;`, `}`,
// EOF, or a keyword that begins a declaration such as `class`, `struct`,
// `namespace` or `template`) so one malformed declaration doesn't
// cascade into spurious errors
// for the rest of the file.
func (p *Parser) synchronize() {
	for {
		switch p.cur.Cur().Kind {
		case token.EOF:
			return
		case token.Semicolon:
			p.cur.Advance()
			return
		case token.RBrace:
			return
		case token.KwClass, token.KwStruct, token.KwNamespace, token.KwTemplate,
			token.KwUsing, token.KwEnum, token.KwUnion:
			return
		}
		p.cur.Advance()
	}
}
