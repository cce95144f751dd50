package parser

import (
	"strings"

	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/token"
	"github.com/go-cppc/cppc/internal/types"
)

var builtinTypeKeywords = map[token.Kind]bool{
	token.KwVoid: true, token.KwBool: true, token.KwChar: true, token.KwWchar: true,
	token.KwShort: true, token.KwInt: true, token.KwLong: true, token.KwFloat: true,
	token.KwDouble: true, token.KwSigned: true, token.KwUnsigned: true, token.KwAuto: true,
}

// looksLikeTypeStart is a syntactic lookahead used for disambiguation
// (sizeof(x) vs. sizeof(Type), template non-type vs. type arguments). It
// is deliberately permissive: an Identifier is accepted as a possible
// type start even when it names a variable, mirroring the ambiguity
// that real C++ compilers resolve with full name lookup — this parser's
// simplified model resolves it via the speculative-parse-then-fallback
// pattern at each call site instead (spec.md §4.1).
func (p *Parser) looksLikeTypeStart() bool {
	k := p.cur.Cur().Kind
	if builtinTypeKeywords[k] {
		return true
	}
	switch k {
	case token.KwConst, token.KwVolatile, token.KwStruct, token.KwClass,
		token.KwUnion, token.KwEnum, token.KwTypename, token.Identifier, token.ColonColon:
		return true
	}
	return false
}

// parseTypeExpr parses a type-id: cv-qualifiers, a base type (built-in or
// a possibly-qualified, possibly-templated user name), pointer/reference
// declarator suffixes, and an optional array suffix.
func (p *Parser) parseTypeExpr() *ast.TypeExpr {
	tok := p.cur.Cur()
	te := &ast.TypeExpr{Tok: tok}

	te.CV |= p.consumeCVQualifiers()

	switch {
	case p.cur.check(token.KwStruct), p.cur.check(token.KwClass), p.cur.check(token.KwUnion), p.cur.check(token.KwEnum):
		p.cur.Advance() // elaborated-type-specifier keyword, tag itself carries no extra meaning here
		p.parseTypeBaseName(te)
	case p.cur.check(token.KwTypename):
		p.cur.Advance()
		p.parseTypeBaseName(te)
	case builtinTypeKeywords[p.cur.Cur().Kind]:
		p.parseBuiltinBase(te)
	default:
		p.parseTypeBaseName(te)
	}

	te.CV |= p.consumeCVQualifiers()

	for {
		switch {
		case p.cur.check(token.Star):
			p.cur.Advance()
			te.PointerDepth++
			te.CV |= p.consumeCVQualifiers() // cv applying to the pointer itself; folded into te.CV for simplicity
		case p.cur.check(token.AmpAmp):
			p.cur.Advance()
			te.IsRvalueRef = true
		case p.cur.check(token.Amp):
			p.cur.Advance()
			te.IsReference = true
		default:
			goto declaratorDone
		}
	}
declaratorDone:

	if p.cur.check(token.LBracket) {
		p.cur.Advance()
		te.HasArrayBrackets = true
		if !p.cur.check(token.RBracket) {
			te.ArraySize = p.parseExpression()
		}
		p.expect(token.RBracket)
	}

	return te
}

func (p *Parser) consumeCVQualifiers() types.CV {
	var cv types.CV
	for {
		switch {
		case p.cur.check(token.KwConst):
			p.cur.Advance()
			cv |= types.CVConst
		case p.cur.check(token.KwVolatile):
			p.cur.Advance()
			cv |= types.CVVolatile
		default:
			return cv
		}
	}
}

// parseBuiltinBase consumes a run of built-in type-specifier keywords
// (e.g. "unsigned long long int") and records the canonical spelling.
func (p *Parser) parseBuiltinBase(te *ast.TypeExpr) {
	var parts []string
	for builtinTypeKeywords[p.cur.Cur().Kind] {
		parts = append(parts, p.cur.Advance().Lexeme)
	}
	te.Name = strings.Join(parts, " ")
}

// parseTypeBaseName parses a (possibly qualified, possibly templated)
// user type name as the base of a type-id.
func (p *Parser) parseTypeBaseName(te *ast.TypeExpr) {
	name, qual := p.parseQualifiedName()
	te.Name = name
	te.QualID = qual
	if p.cur.check(token.Less) {
		mark := p.cur.Mark()
		p.cur.Advance()
		var args []*ast.TypeExpr
		if !p.cur.check(token.Greater) && !p.cur.check(token.ShiftRight) {
			for {
				args = append(args, p.parseTypeExpr())
				if !p.cur.match(token.Comma) {
					break
				}
			}
		}
		if p.closeAngleBracket() {
			te.TemplateArgs = args
		} else {
			p.cur.Reset(mark)
		}
	}
}
