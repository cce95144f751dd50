package parser

import "github.com/go-cppc/cppc/internal/token"

// precedence implements spec.md §4.1's "operator precedence table
// (floor-to-ceiling 1-17)". Higher numbers bind tighter. Assignment and
// the ternary operator are right-associative; everything else here is
// left-associative (handled by parseBinary's `minPrec+1` recursion).
var binaryPrecedence = map[token.Kind]int{
	token.Comma: 1,

	token.Assign: 2, token.PlusAssign: 2, token.MinusAssign: 2,
	token.StarAssign: 2, token.SlashAssign: 2, token.PercentAssign: 2,
	token.AmpAssign: 2, token.PipeAssign: 2, token.CaretAssign: 2,
	token.ShiftLeftAssign: 2, token.ShiftRightAssign: 2,

	// Ternary (?:) is handled specially in parseTernary, not through
	// this table, since its middle operand has its own grammar.

	token.PipePipe: 4,
	token.AmpAmp:   5,
	token.Pipe:     6,
	token.Caret:    7,
	token.Amp:      8,

	token.Eq: 9, token.NotEq: 9,

	token.Less: 10, token.Greater: 10, token.LessEq: 10, token.GreaterEq: 10,

	token.Spaceship: 11,

	token.ShiftLeft: 12, token.ShiftRight: 12,

	token.Plus: 13, token.Minus: 13,

	token.Star: 14, token.Slash: 14, token.Percent: 14,

	// 15 would be pointer-to-member (.*/->*). The lexer produces DotStar
	// and ArrowStar tokens, but neither this table nor parseUnary's
	// postfix chain handles them, so those operators are not parsed.
}

// rightAssociative marks operators that recurse with the same (not
// incremented) minimum precedence on their right operand.
var rightAssociative = map[token.Kind]bool{
	token.Assign: true, token.PlusAssign: true, token.MinusAssign: true,
	token.StarAssign: true, token.SlashAssign: true, token.PercentAssign: true,
	token.AmpAssign: true, token.PipeAssign: true, token.CaretAssign: true,
	token.ShiftLeftAssign: true, token.ShiftRightAssign: true,
}
