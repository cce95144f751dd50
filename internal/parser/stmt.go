package parser

import (
	"github.com/go-cppc/cppc/internal/ast"
	"github.com/go-cppc/cppc/internal/token"
)

// parseParamList parses a parameter-declaration-clause whose opening
// `(` has already been consumed by the caller; it consumes the closing
// `)`.
func (p *Parser) parseParamList() []*ast.ParamDecl {
	var params []*ast.ParamDecl
	if p.cur.check(token.RParen) {
		p.cur.Advance()
		return params
	}
	for {
		if p.cur.check(token.KwVoid) && p.cur.Peek(1).Kind == token.RParen {
			p.cur.Advance()
			break
		}
		tok := p.cur.Cur()
		ty := p.parseTypeExpr()
		name := ""
		if p.cur.check(token.Identifier) {
			name = p.cur.Advance().Lexeme
		}
		param := &ast.ParamDecl{Tok: tok, Name: name, Type: ty}
		if p.cur.match(token.Assign) {
			param.Default = p.parseAssignment()
		}
		params = append(params, param)
		if !p.cur.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen)
	return params
}

// parseCompoundStmt parses a `{ ... }` block; the opening `{` is
// consumed here.
func (p *Parser) parseCompoundStmt() *ast.CompoundStmt {
	tok := p.expect(token.LBrace)
	cs := &ast.CompoundStmt{StmtBase: ast.StmtBase{Tok: tok}}
	p.Syms.Push(p.currentNS())
	defer p.Syms.Pop()
	for !p.cur.check(token.RBrace) && p.cur.Cur().Kind != token.EOF {
		cs.Stmts = append(cs.Stmts, p.parseStatement())
	}
	p.expect(token.RBrace)
	return cs
}

func (p *Parser) parseStatement() ast.Stmt {
	switch p.cur.Cur().Kind {
	case token.LBrace:
		return p.parseCompoundStmt()
	case token.KwIf:
		return p.parseIfStmt()
	case token.KwWhile:
		return p.parseWhileStmt()
	case token.KwDo:
		return p.parseDoStmt()
	case token.KwFor:
		return p.parseForStmt()
	case token.KwSwitch:
		return p.parseSwitchStmt()
	case token.KwBreak:
		tok := p.cur.Advance()
		p.expect(token.Semicolon)
		return &ast.BreakStmt{StmtBase: ast.StmtBase{Tok: tok}}
	case token.KwContinue:
		tok := p.cur.Advance()
		p.expect(token.Semicolon)
		return &ast.ContinueStmt{StmtBase: ast.StmtBase{Tok: tok}}
	case token.KwReturn:
		tok := p.cur.Advance()
		var val ast.Expr
		if !p.cur.check(token.Semicolon) {
			val = p.parseExpression()
		}
		p.expect(token.Semicolon)
		return &ast.ReturnStmt{StmtBase: ast.StmtBase{Tok: tok}, Value: val}
	case token.KwThrow:
		tok := p.cur.Advance()
		var val ast.Expr
		if !p.cur.check(token.Semicolon) {
			val = p.parseExpression()
		}
		p.expect(token.Semicolon)
		return &ast.ThrowStmt{StmtBase: ast.StmtBase{Tok: tok}, Value: val}
	case token.KwTry:
		return p.parseTryStmt()
	case token.Semicolon:
		tok := p.cur.Advance()
		return &ast.ExprStmt{StmtBase: ast.StmtBase{Tok: tok}}
	}

	if p.looksLikeDeclarationStart() {
		d := p.parseBlockDeclaration()
		return &ast.DeclStmt{StmtBase: ast.StmtBase{Tok: token.Token{Pos: d.Pos()}}, D: d}
	}

	tok := p.cur.Cur()
	e := p.parseExpression()
	p.expect(token.Semicolon)
	return &ast.ExprStmt{StmtBase: ast.StmtBase{Tok: tok}, X: e}
}

func (p *Parser) parseIfStmt() ast.Stmt {
	tok := p.cur.Advance()
	p.expect(token.LParen)
	var init ast.Stmt
	cond := p.parseConditionOrInit(&init)
	p.expect(token.RParen)
	then := p.parseStatement()
	var els ast.Stmt
	if p.cur.match(token.KwElse) {
		els = p.parseStatement()
	}
	return &ast.IfStmt{StmtBase: ast.StmtBase{Tok: tok}, Init: init, Cond: cond, Then: then, Else: els}
}

// parseConditionOrInit handles C++17's `if (init; cond)` / `switch
// (init; cond)` forms: it parses a statement, and if a `;` follows
// (rather than the closing paren), that statement was the init-statement
// and a further condition expression follows.
func (p *Parser) parseConditionOrInit(init *ast.Stmt) ast.Expr {
	if p.looksLikeDeclarationStart() {
		mark := p.cur.Mark()
		d := p.parseBlockDeclaration()
		if vd, ok := d.(*ast.VarDecl); ok && p.cur.check(token.RParen) {
			// single declaration used directly as the condition, e.g. `if (auto x = f())`
			return &ast.Ident{ExprBase: ast.ExprBase{Tok: vd.Tok}, Name: vd.Name, QualID: vd.QualID}
		}
		if _, ok := d.(*ast.VarDecl); ok {
			*init = &ast.DeclStmt{StmtBase: ast.StmtBase{Tok: token.Token{Pos: d.Pos()}}, D: d}
			return p.parseExpression()
		}
		p.cur.Reset(mark)
	}
	return p.parseExpression()
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	tok := p.cur.Advance()
	p.expect(token.LParen)
	cond := p.parseExpression()
	p.expect(token.RParen)
	body := p.parseStatement()
	return &ast.WhileStmt{StmtBase: ast.StmtBase{Tok: tok}, Cond: cond, Body: body}
}

func (p *Parser) parseDoStmt() ast.Stmt {
	tok := p.cur.Advance()
	body := p.parseStatement()
	p.expect(token.KwWhile)
	p.expect(token.LParen)
	cond := p.parseExpression()
	p.expect(token.RParen)
	p.expect(token.Semicolon)
	return &ast.DoStmt{StmtBase: ast.StmtBase{Tok: tok}, Body: body, Cond: cond}
}

// parseForStmt disambiguates `for (init; cond; post)` from the C++11
// range-based form `for (decl : range)` by looking for a top-level
// colon after parsing the init declaration.
func (p *Parser) parseForStmt() ast.Stmt {
	tok := p.cur.Advance()
	p.expect(token.LParen)

	if p.looksLikeDeclarationStart() {
		mark := p.cur.Mark()
		declTok := p.cur.Cur()
		ty := p.parseTypeExpr()
		if p.cur.check(token.Identifier) {
			name := p.cur.Advance().Lexeme
			if p.cur.check(token.Colon) {
				p.cur.Advance()
				rangeExpr := p.parseExpression()
				p.expect(token.RParen)
				body := p.parseStatement()
				vd := &ast.VarDecl{DeclBase: ast.DeclBase{Tok: declTok, Name: name}, Type: ty}
				return &ast.RangeForStmt{StmtBase: ast.StmtBase{Tok: tok}, Decl: vd, Range: rangeExpr, Body: body}
			}
		}
		p.cur.Reset(mark)
	}

	var init ast.Stmt
	if p.cur.check(token.Semicolon) {
		p.cur.Advance()
	} else if p.looksLikeDeclarationStart() {
		d := p.parseBlockDeclaration()
		init = &ast.DeclStmt{StmtBase: ast.StmtBase{Tok: token.Token{Pos: d.Pos()}}, D: d}
	} else {
		e := p.parseExpression()
		p.expect(token.Semicolon)
		init = &ast.ExprStmt{StmtBase: ast.StmtBase{Tok: tok}, X: e}
	}

	var cond ast.Expr
	if !p.cur.check(token.Semicolon) {
		cond = p.parseExpression()
	}
	p.expect(token.Semicolon)

	var post ast.Expr
	if !p.cur.check(token.RParen) {
		post = p.parseExpression()
	}
	p.expect(token.RParen)
	body := p.parseStatement()
	return &ast.ForStmt{StmtBase: ast.StmtBase{Tok: tok}, Init: init, Cond: cond, Post: post, Body: body}
}

func (p *Parser) parseSwitchStmt() ast.Stmt {
	tok := p.cur.Advance()
	p.expect(token.LParen)
	var init ast.Stmt
	cond := p.parseConditionOrInit(&init)
	p.expect(token.RParen)
	p.expect(token.LBrace)

	sw := &ast.SwitchStmt{StmtBase: ast.StmtBase{Tok: tok}, Init: init, Cond: cond}
	var cur *ast.SwitchCase
	for !p.cur.check(token.RBrace) && p.cur.Cur().Kind != token.EOF {
		switch p.cur.Cur().Kind {
		case token.KwCase:
			p.cur.Advance()
			val := p.parseAssignment()
			p.expect(token.Colon)
			sw.Cases = append(sw.Cases, ast.SwitchCase{Values: []ast.Expr{val}})
			cur = &sw.Cases[len(sw.Cases)-1]
		case token.KwDefault:
			p.cur.Advance()
			p.expect(token.Colon)
			sw.Cases = append(sw.Cases, ast.SwitchCase{IsDefault: true})
			cur = &sw.Cases[len(sw.Cases)-1]
		default:
			if cur == nil {
				p.errorf("statement outside any case in switch body")
				p.cur.Advance()
				continue
			}
			cur.Body = append(cur.Body, p.parseStatement())
		}
	}
	p.expect(token.RBrace)
	return sw
}

func (p *Parser) parseTryStmt() ast.Stmt {
	tok := p.cur.Advance()
	body := p.parseCompoundStmt()
	ts := &ast.TryStmt{StmtBase: ast.StmtBase{Tok: tok}, Body: body}
	for p.cur.check(token.KwCatch) {
		catchTok := p.cur.Advance()
		p.expect(token.LParen)
		cc := &ast.CatchClause{Tok: catchTok}
		if p.cur.check(token.Ellipsis) {
			p.cur.Advance()
			cc.CatchAll = true
		} else {
			cc.ExceptionType = p.parseTypeExpr()
			if p.cur.check(token.Identifier) {
				cc.Name = p.cur.Advance().Lexeme
			}
		}
		p.expect(token.RParen)
		cc.Body = p.parseCompoundStmt()
		ts.Handlers = append(ts.Handlers, cc)
	}
	return ts
}
