// Package lexer is a minimal boundary stub standing in for the
// character-level lexer and preprocessor, which spec.md §1 explicitly
// places out of scope ("we describe only the token contract the parser
// consumes"). internal/driver and the `cppc lex` command use it as the
// compiler's front end; it does no preprocessing (a `#` lexes as an
// Invalid token).
//
// Columns are counted in runes, not bytes or display cells, following the
// convention documented on the teacher's Lexer type.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-cppc/cppc/internal/token"
)

// Lexer tokenizes a single translation unit's source text.
type Lexer struct {
	input    string
	fileIdx  int
	pos      int
	readPos  int
	line     int
	col      int
	ch       rune
	chWidth  int
}

// Option configures a Lexer, in the style of the teacher's LexerOption.
type Option func(*Lexer)

// WithFileIndex sets the FileIndex recorded on every emitted token.
func WithFileIndex(idx int) Option {
	return func(l *Lexer) { l.fileIdx = idx }
}

// New creates a Lexer over input, stripping a leading UTF-8 BOM if present.
func New(input string, opts ...Option) *Lexer {
	input = strings.TrimPrefix(input, string(rune(0xFEFF)))
	l := &Lexer{input: input, line: 1, col: 0}
	for _, opt := range opts {
		opt(l)
	}
	l.advance()
	return l
}

func (l *Lexer) advance() {
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.chWidth = 0
		l.pos = l.readPos
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPos:])
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	l.pos = l.readPos
	l.ch = r
	l.chWidth = w
	l.readPos += w
	l.col++
}

func (l *Lexer) peek() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) here() token.Position {
	return token.Position{Line: l.line, Column: l.col, FileIndex: l.fileIdx}
}

// Next returns the next token in the stream, ending with a token.EOF.
func (l *Lexer) Next() token.Token {
	l.skipWhitespaceAndComments()
	pos := l.here()

	if l.ch == 0 {
		return token.Token{Kind: token.EOF, Pos: pos}
	}

	switch {
	case unicode.IsLetter(l.ch) || l.ch == '_':
		return l.readIdentifier(pos)
	case unicode.IsDigit(l.ch):
		return l.readNumber(pos)
	case l.ch == '"':
		return l.readString(pos)
	case l.ch == '\'':
		return l.readChar(pos)
	default:
		return l.readOperator(pos)
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.advance()
		case l.ch == '/' && l.peek() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.advance()
			}
		case l.ch == '/' && l.peek() == '*':
			l.advance()
			l.advance()
			for !(l.ch == '*' && l.peek() == '/') && l.ch != 0 {
				l.advance()
			}
			if l.ch != 0 {
				l.advance()
				l.advance()
			}
		default:
			return
		}
	}
}

// alternateSpellings maps the alternative operator spellings to their
// canonical operator Kind.
var alternateSpellings = map[string]token.Kind{
	"and": token.AmpAmp, "or": token.PipePipe, "not": token.Bang, "not_eq": token.NotEq,
	"bitand": token.Amp, "bitor": token.Pipe, "xor": token.Caret, "compl": token.Tilde,
	"and_eq": token.AmpAssign, "or_eq": token.PipeAssign, "xor_eq": token.CaretAssign,
}

func (l *Lexer) readIdentifier(pos token.Position) token.Token {
	start := l.pos
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
		l.advance()
	}
	lexeme := l.input[start:l.pos]
	if kind, ok := token.LookupKeyword(lexeme); ok {
		return token.Token{Kind: kind, Lexeme: lexeme, Pos: pos}
	}
	if kind, ok := alternateSpellings[lexeme]; ok {
		return token.Token{Kind: kind, Lexeme: lexeme, Pos: pos}
	}
	return token.Token{Kind: token.Identifier, Lexeme: lexeme, Pos: pos}
}

func (l *Lexer) readNumber(pos token.Position) token.Token {
	start := l.pos
	isFloat := false
	for unicode.IsDigit(l.ch) {
		l.advance()
	}
	if l.ch == '.' && unicode.IsDigit(l.peek()) {
		isFloat = true
		l.advance()
		for unicode.IsDigit(l.ch) {
			l.advance()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		isFloat = true
		l.advance()
		if l.ch == '+' || l.ch == '-' {
			l.advance()
		}
		for unicode.IsDigit(l.ch) {
			l.advance()
		}
	}
	// integer-literal suffixes: u, U, l, L in any combination.
	for l.ch == 'u' || l.ch == 'U' || l.ch == 'l' || l.ch == 'L' {
		l.advance()
	}
	kind := token.IntLiteral
	if isFloat {
		kind = token.FloatLiteral
	}
	return token.Token{Kind: kind, Lexeme: l.input[start:l.pos], Pos: pos}
}

func (l *Lexer) readString(pos token.Position) token.Token {
	start := l.pos
	l.advance() // opening quote
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			l.advance()
		}
		l.advance()
	}
	l.advance() // closing quote
	return token.Token{Kind: token.StringLiteral, Lexeme: l.input[start:l.pos], Pos: pos}
}

func (l *Lexer) readChar(pos token.Position) token.Token {
	start := l.pos
	l.advance()
	for l.ch != '\'' && l.ch != 0 {
		if l.ch == '\\' {
			l.advance()
		}
		l.advance()
	}
	l.advance()
	return token.Token{Kind: token.CharLiteral, Lexeme: l.input[start:l.pos], Pos: pos}
}

// twoCharOps maps two-character punctuation sequences to their Kind.
var twoCharOps = map[string]token.Kind{
	"::": token.ColonColon, "->": token.Arrow, "++": token.PlusPlus, "--": token.MinusMinus,
	"+=": token.PlusAssign, "-=": token.MinusAssign, "*=": token.StarAssign, "/=": token.SlashAssign,
	"%=": token.PercentAssign, "^=": token.CaretAssign, "&=": token.AmpAssign, "|=": token.PipeAssign,
	"==": token.Eq, "!=": token.NotEq, "<=": token.LessEq, ">=": token.GreaterEq,
	"&&": token.AmpAmp, "||": token.PipePipe, "<<": token.ShiftLeft, ">>": token.ShiftRight,
	".*": token.DotStar,
}

var threeCharOps = map[string]token.Kind{
	"<=>": token.Spaceship, "->*": token.ArrowStar, "<<=": token.ShiftLeftAssign, ">>=": token.ShiftRightAssign, "...": token.Ellipsis,
}

var oneCharOps = map[rune]token.Kind{
	'{': token.LBrace, '}': token.RBrace, '(': token.LParen, ')': token.RParen,
	'[': token.LBracket, ']': token.RBracket, ';': token.Semicolon, ':': token.Colon,
	',': token.Comma, '.': token.Dot, '+': token.Plus, '-': token.Minus, '*': token.Star,
	'/': token.Slash, '%': token.Percent, '^': token.Caret, '&': token.Amp, '|': token.Pipe,
	'~': token.Tilde, '!': token.Bang, '=': token.Assign, '<': token.Less, '>': token.Greater,
	'?': token.Question,
}

func (l *Lexer) readOperator(pos token.Position) token.Token {
	rest := l.input[l.pos:]
	for _, n := range []int{3, 2} {
		if len(rest) >= n {
			if kind, ok := lookupOp(rest[:n], n); ok {
				for i := 0; i < n; i++ {
					l.advance()
				}
				return token.Token{Kind: kind, Lexeme: rest[:n], Pos: pos}
			}
		}
	}
	if kind, ok := oneCharOps[l.ch]; ok {
		lexeme := string(l.ch)
		l.advance()
		return token.Token{Kind: kind, Lexeme: lexeme, Pos: pos}
	}
	lexeme := string(l.ch)
	l.advance()
	return token.Token{Kind: token.Invalid, Lexeme: lexeme, Pos: pos}
}

func lookupOp(s string, n int) (token.Kind, bool) {
	if n == 3 {
		k, ok := threeCharOps[s]
		return k, ok
	}
	k, ok := twoCharOps[s]
	return k, ok
}

// TemplateRAngle splits a ">>" token into two ">" tokens for use inside
// nested template-argument lists, per spec.md §4.1. The lexer itself never
// does this split — it always emits a single ShiftRight token. The
// parser does not call this helper; it splits the token in place with
// its own cursor.splitShiftRight.
func TemplateRAngle(pos token.Position) (token.Token, token.Token) {
	first := token.Token{Kind: token.Greater, Lexeme: ">", Pos: pos}
	second := token.Token{Kind: token.Greater, Lexeme: ">", Pos: token.Position{Line: pos.Line, Column: pos.Column + 1, FileIndex: pos.FileIndex}}
	return first, second
}
