package lexer

import (
	"testing"

	"github.com/go-cppc/cppc/internal/token"
)

func collect(src string) []token.Token {
	l := New(src)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestLexerBasicDeclaration(t *testing.T) {
	toks := collect("int main() { return 1 + 2; }")
	want := []token.Kind{
		token.KwInt, token.Identifier, token.LParen, token.RParen, token.LBrace,
		token.KwReturn, token.IntLiteral, token.Plus, token.IntLiteral, token.Semicolon,
		token.RBrace, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %v, want %v (%q)", i, toks[i].Kind, k, toks[i].Lexeme)
		}
	}
}

func TestLexerTemplateAngleBrackets(t *testing.T) {
	toks := collect("id<int>(1) >> 2")
	// "id" "<" "int" ">" "(" "1" ")" ">>"  "2"
	if toks[1].Kind != token.Less {
		t.Errorf("expected Less, got %v", toks[1].Kind)
	}
	// The lone ">" after int must NOT merge with the following "(" - verify kind.
	if toks[3].Kind != token.Greater {
		t.Errorf("expected Greater, got %v", toks[3].Kind)
	}
	// the final ">>" must lex as a single ShiftRight; splitting is the parser's job.
	var shiftSeen bool
	for _, tk := range toks {
		if tk.Kind == token.ShiftRight {
			shiftSeen = true
		}
	}
	if !shiftSeen {
		t.Errorf("expected a ShiftRight token somewhere in %+v", toks)
	}
}

func TestLexerStringAndCharLiterals(t *testing.T) {
	toks := collect(`"hello\n" 'a' '\0'`)
	if toks[0].Kind != token.StringLiteral || toks[0].Lexeme != `"hello\n"` {
		t.Errorf("got %+v", toks[0])
	}
	if toks[1].Kind != token.CharLiteral || toks[1].Lexeme != `'a'` {
		t.Errorf("got %+v", toks[1])
	}
	if toks[2].Kind != token.CharLiteral || toks[2].Lexeme != `'\0'` {
		t.Errorf("got %+v", toks[2])
	}
}

func TestLexerFloatLiterals(t *testing.T) {
	toks := collect("1.5 2.0e10 42")
	if toks[0].Kind != token.FloatLiteral {
		t.Errorf("got %v", toks[0].Kind)
	}
	if toks[1].Kind != token.FloatLiteral {
		t.Errorf("got %v", toks[1].Kind)
	}
	if toks[2].Kind != token.IntLiteral {
		t.Errorf("got %v", toks[2].Kind)
	}
}

func TestLexerThreeWayComparison(t *testing.T) {
	toks := collect("a <=> b")
	if toks[1].Kind != token.Spaceship {
		t.Errorf("got %v, want Spaceship", toks[1].Kind)
	}
}

func TestLexerPosition(t *testing.T) {
	toks := collect("int\nx;")
	// 'x' is on line 2, column 1.
	if toks[1].Pos.Line != 2 || toks[1].Pos.Column != 1 {
		t.Errorf("got pos %+v", toks[1].Pos)
	}
}
