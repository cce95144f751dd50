package parser

import (
	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/symbols"
	"github.com/go-cppc/cppc/internal/token"
)

// parseExpression parses the full comma-operator expression (precedence
// floor 1 in spec.md §4.1's table).
func (p *Parser) parseExpression() ast.Expr {
	first := p.parseAssignment()
	for p.cur.check(token.Comma) {
		tok := p.cur.Advance()
		rhs := p.parseAssignment()
		first = &ast.BinaryExpr{ExprBase: ast.ExprBase{Tok: tok}, Op: token.Comma, Left: first, Right: rhs}
	}
	return first
}

func (p *Parser) parseAssignment() ast.Expr {
	lhs := p.parseTernary()
	if prec, ok := binaryPrecedence[p.cur.Cur().Kind]; ok && prec == 2 {
		tok := p.cur.Advance()
		rhs := p.parseAssignment() // right-associative
		return &ast.BinaryExpr{ExprBase: ast.ExprBase{Tok: tok}, Op: tok.Kind, Left: lhs, Right: rhs}
	}
	return lhs
}

func (p *Parser) parseTernary() ast.Expr {
	cond := p.parseBinary(4)
	if p.cur.check(token.Question) {
		tok := p.cur.Advance()
		then := p.parseExpression()
		p.expect(token.Colon)
		els := p.parseAssignment()
		return &ast.TernaryExpr{ExprBase: ast.ExprBase{Tok: tok}, Cond: cond, Then: then, Else: els}
	}
	return cond
}

// parseBinary implements precedence climbing over binaryPrecedence,
// starting at minPrec (spec.md §4.1).
func (p *Parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		op := p.cur.Cur().Kind
		prec, ok := binaryPrecedence[op]
		if !ok || prec < minPrec || prec < 4 {
			return left
		}
		tok := p.cur.Advance()
		nextMin := prec + 1
		if rightAssociative[op] {
			nextMin = prec
		}
		right := p.parseBinary(nextMin)
		left = &ast.BinaryExpr{ExprBase: ast.ExprBase{Tok: tok}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.cur.Cur().Kind {
	case token.Plus, token.Minus, token.Bang, token.Tilde, token.PlusPlus, token.MinusMinus, token.Star, token.Amp:
		tok := p.cur.Advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{ExprBase: ast.ExprBase{Tok: tok}, Op: tok.Kind, Operand: operand, Postfix: false}
	case token.KwSizeof:
		return p.parseSizeof()
	case token.KwAlignof:
		tok := p.cur.Advance()
		p.expect(token.LParen)
		ty := p.parseTypeExpr()
		p.expect(token.RParen)
		return &ast.AlignofExpr{ExprBase: ast.ExprBase{Tok: tok}, TypeOperand: ty}
	case token.KwStaticCast, token.KwReinterpretCast, token.KwConstCast, token.KwDynamicCast:
		return p.parseNamedCast()
	case token.KwNew:
		return p.parseNew()
	case token.KwDelete:
		return p.parseDelete()
	case token.LBracket:
		return p.parseLambda()
	case token.KwRequires:
		return p.parseRequires()
	}
	return p.parsePostfix()
}

// parseSizeof disambiguates `sizeof expr` from `sizeof(Type)`: when the
// next token is `(` it speculatively tries a type-id parse first and
// falls back to a parenthesized expression if that fails, since
// `sizeof(x)` where x is a variable is also legal.
func (p *Parser) parseSizeof() ast.Expr {
	tok := p.cur.Advance()
	if p.cur.check(token.LParen) {
		mark := p.cur.Mark()
		p.cur.Advance()
		if p.looksLikeTypeStart() {
			ty := p.parseTypeExpr()
			if p.cur.check(token.RParen) {
				p.cur.Advance()
				return &ast.SizeofExpr{ExprBase: ast.ExprBase{Tok: tok}, TypeOperand: ty}
			}
		}
		p.cur.Reset(mark)
	}
	operand := p.parseUnary()
	return &ast.SizeofExpr{ExprBase: ast.ExprBase{Tok: tok}, Operand: operand}
}

func (p *Parser) parseNamedCast() ast.Expr {
	tok := p.cur.Advance()
	var kind ast.CastKind
	switch tok.Kind {
	case token.KwStaticCast:
		kind = ast.StaticCast
	case token.KwReinterpretCast:
		kind = ast.ReinterpretCast
	case token.KwConstCast:
		kind = ast.ConstCast
	case token.KwDynamicCast:
		kind = ast.DynamicCast
	}
	p.expect(token.Less)
	target := p.parseTypeExpr()
	p.closeAngleBracket()
	p.expect(token.LParen)
	operand := p.parseExpression()
	p.expect(token.RParen)
	return p.parsePostfixChain(&ast.CastExpr{ExprBase: ast.ExprBase{Tok: tok}, Kind: kind, Target: target, Operand: operand})
}

func (p *Parser) parseNew() ast.Expr {
	tok := p.cur.Advance()
	ty := p.parseTypeExpr()
	n := &ast.NewExpr{ExprBase: ast.ExprBase{Tok: tok}, Type: ty}
	if p.cur.match(token.LBracket) {
		n.ArraySize = p.parseExpression()
		p.expect(token.RBracket)
	}
	if p.cur.match(token.LParen) {
		n.Args = p.parseArgList()
	}
	return n
}

func (p *Parser) parseDelete() ast.Expr {
	tok := p.cur.Advance()
	isArray := false
	if p.cur.check(token.LBracket) {
		p.cur.Advance()
		p.expect(token.RBracket)
		isArray = true
	}
	operand := p.parseUnary()
	return &ast.DeleteExpr{ExprBase: ast.ExprBase{Tok: tok}, Operand: operand, IsArray: isArray}
}

func (p *Parser) parseLambda() ast.Expr {
	tok := p.cur.Advance() // `[`
	var captures []ast.LambdaCapture
	for !p.cur.check(token.RBracket) && p.cur.Cur().Kind != token.EOF {
		capByRef := p.cur.match(token.Amp)
		if p.cur.check(token.Assign) && len(captures) == 0 && !capByRef {
			p.cur.Advance()
			captures = append(captures, ast.LambdaCapture{IsDefault: true})
		} else if p.cur.check(token.Identifier) {
			name := p.cur.Advance().Lexeme
			captures = append(captures, ast.LambdaCapture{Name: name, ByRef: capByRef})
		} else {
			break
		}
		if !p.cur.match(token.Comma) {
			break
		}
	}
	p.expect(token.RBracket)

	if p.cur.check(token.Less) {
		p.errorf("template lambdas are not supported")
		p.recoverSkipToMatching(token.Less, token.Greater)
	}

	var params []*ast.ParamDecl
	if p.cur.match(token.LParen) {
		params = p.parseParamList()
	}
	var ret *ast.TypeExpr
	if p.cur.match(token.Arrow) {
		ret = p.parseTypeExpr()
	}
	body := p.parseCompoundStmt()
	return &ast.LambdaExpr{ExprBase: ast.ExprBase{Tok: tok}, Captures: captures, Params: params, ReturnType: ret, Body: body}
}

func (p *Parser) parseRequires() ast.Expr {
	tok := p.cur.Advance()
	var params []*ast.ParamDecl
	if p.cur.match(token.LParen) {
		params = p.parseParamList()
	}
	p.expect(token.LBrace)
	var reqs []ast.Expr
	for !p.cur.check(token.RBrace) && p.cur.Cur().Kind != token.EOF {
		reqs = append(reqs, p.parseExpression())
		p.cur.match(token.Semicolon)
	}
	p.expect(token.RBrace)
	return &ast.RequiresExpr{ExprBase: ast.ExprBase{Tok: tok}, Params: params, Requirements: reqs}
}

// parsePostfix parses a primary expression followed by any chain of
// postfix operators (call, subscript, member access, increment/decrement).
func (p *Parser) parsePostfix() ast.Expr {
	return p.parsePostfixChain(p.parsePrimary())
}

func (p *Parser) parsePostfixChain(e ast.Expr) ast.Expr {
	for {
		switch p.cur.Cur().Kind {
		case token.LParen:
			tok := p.cur.Advance()
			args := p.parseArgList()
			e = &ast.CallExpr{ExprBase: ast.ExprBase{Tok: tok}, Callee: e, Args: args}
		case token.LBracket:
			tok := p.cur.Advance()
			idx := p.parseExpression()
			p.expect(token.RBracket)
			e = &ast.SubscriptExpr{ExprBase: ast.ExprBase{Tok: tok}, Object: e, Index: idx}
		case token.Dot, token.Arrow:
			tok := p.cur.Advance()
			name := p.expect(token.Identifier).Lexeme
			e = &ast.MemberExpr{ExprBase: ast.ExprBase{Tok: tok}, Object: e, Member: name, Arrow: tok.Kind == token.Arrow}
		case token.PlusPlus, token.MinusMinus:
			tok := p.cur.Advance()
			e = &ast.UnaryExpr{ExprBase: ast.ExprBase{Tok: tok}, Op: tok.Kind, Operand: e, Postfix: true}
		default:
			return e
		}
	}
}

func (p *Parser) parseArgList() []ast.Expr {
	var args []ast.Expr
	if p.cur.check(token.RParen) {
		p.cur.Advance()
		return args
	}
	for {
		args = append(args, p.parseAssignment())
		if !p.cur.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen)
	return args
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.cur.Cur()
	switch tok.Kind {
	case token.IntLiteral:
		p.cur.Advance()
		return &ast.IntLiteral{ExprBase: ast.ExprBase{Tok: tok}, Value: parseIntLiteral(tok.Lexeme)}
	case token.FloatLiteral:
		p.cur.Advance()
		return &ast.FloatLiteral{ExprBase: ast.ExprBase{Tok: tok}, Value: parseFloatLiteral(tok.Lexeme), Double: !hasSuffix(tok.Lexeme, "f", "F")}
	case token.StringLiteral:
		p.cur.Advance()
		return &ast.StringLiteral{ExprBase: ast.ExprBase{Tok: tok}, Value: unquote(tok.Lexeme)}
	case token.CharLiteral:
		p.cur.Advance()
		return &ast.CharLiteral{ExprBase: ast.ExprBase{Tok: tok}, Value: int64(charValue(tok.Lexeme))}
	case token.KwTrue:
		p.cur.Advance()
		return &ast.BoolLiteral{ExprBase: ast.ExprBase{Tok: tok}, Value: true}
	case token.KwFalse:
		p.cur.Advance()
		return &ast.BoolLiteral{ExprBase: ast.ExprBase{Tok: tok}, Value: false}
	case token.KwNullptr:
		p.cur.Advance()
		return &ast.NullptrLiteral{ExprBase: ast.ExprBase{Tok: tok}}
	case token.KwThis:
		p.cur.Advance()
		return &ast.Ident{ExprBase: ast.ExprBase{Tok: tok}, Name: "this"}
	case token.LParen:
		p.cur.Advance()
		e := p.parseExpression()
		p.expect(token.RParen)
		return e
	case token.Identifier, token.ColonColon:
		return p.parseIdentOrTemplateID()
	}
	p.errorf("unexpected token %q in expression", tok.Lexeme)
	p.cur.Advance()
	return &ast.Ident{ExprBase: ast.ExprBase{Tok: tok}, Name: tok.Lexeme}
}

// parseIdentOrTemplateID parses a (possibly qualified) identifier and,
// if a template name is followed by `<`, speculatively attempts a
// template-argument-list parse (spec.md §4.1): on success the result is
// a TemplateIDExpr, otherwise the cursor is rewound and `<` is left for
// the binary-operator parser to treat as a comparison.
func (p *Parser) parseIdentOrTemplateID() ast.Expr {
	tok := p.cur.Cur()
	name, qual := p.parseQualifiedName()
	id := &ast.Ident{ExprBase: ast.ExprBase{Tok: tok}, Name: name, QualID: qual}

	if p.cur.check(token.Less) && p.isKnownTemplateName(name) {
		mark := p.cur.Mark()
		if tid, ok := p.tryParseTemplateArgs(id); ok {
			return tid
		}
		p.cur.Reset(mark)
	}
	return id
}

// isKnownTemplateName reports whether name resolves to a Template-kind
// symbol, gating the speculative `<...>` attempt the way spec.md §4.1
// requires ("if the left operand ... resolves to a template name").
func (p *Parser) isKnownTemplateName(name string) bool {
	h := p.Strings.Intern(name)
	sym, ok := p.Syms.LookupUnqualified(h)
	return ok && sym.Kind == symbols.Template
}

func (p *Parser) tryParseTemplateArgs(base ast.Expr) (ast.Expr, bool) {
	tok := p.cur.Advance() // `<`
	var typeArgs []*ast.TypeExpr
	var nonTypeArgs []ast.Expr
	if !p.cur.check(token.Greater) {
		for {
			if p.looksLikeTypeStart() {
				typeArgs = append(typeArgs, p.parseTypeExpr())
			} else {
				nonTypeArgs = append(nonTypeArgs, p.parseAssignment())
			}
			if !p.cur.match(token.Comma) {
				break
			}
		}
	}
	if !p.closeAngleBracket() {
		return nil, false
	}
	return &ast.TemplateIDExpr{ExprBase: ast.ExprBase{Tok: tok}, Base: base, TypeArgs: typeArgs, NonTypeArgs: nonTypeArgs}, true
}

// closeAngleBracket consumes a single `>` closing a template-argument
// list, splitting a `>>` token into two `>` tokens first if needed
// (spec.md §4.1). Returns false (without consuming) if neither applies.
func (p *Parser) closeAngleBracket() bool {
	if p.cur.check(token.ShiftRight) {
		p.cur.splitShiftRight()
	}
	if p.cur.check(token.Greater) {
		p.cur.Advance()
		return true
	}
	return false
}

