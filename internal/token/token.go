// Package token defines the token contract the parser consumes (spec.md
// §6). internal/lexer produces these tokens; no preprocessor runs before
// it. This package specifies only the boundary shape.
package token

// Position is a 1-indexed source location carrying the originating file.
// FileIndex lets multi-file token streams (after #include expansion) be
// told apart without storing a full path on every token.
type Position struct {
	Line      int
	Column    int
	FileIndex int
}

// Kind enumerates token kinds per spec.md §6. Alternate spellings (and,
// or, bitand, xor_eq, compl, not, not_eq, and_eq, or_eq) are mapped to
// their canonical operator Kind by the boundary lexer before reaching the
// parser, so the parser never special-cases spelling.
type Kind int

const (
	Invalid Kind = iota
	EOF
	Comment

	// Literals and identifiers.
	Identifier
	IntLiteral
	FloatLiteral
	StringLiteral
	CharLiteral

	literalEnd

	// Keywords.
	KwAlignas
	KwAlignof
	KwAsm
	KwAuto
	KwBool
	KwBreak
	KwCase
	KwCatch
	KwChar
	KwClass
	KwConst
	KwConstCast
	KwConstexpr
	KwConsteval
	KwConstinit
	KwContinue
	KwDecltype
	KwDefault
	KwDelete
	KwDo
	KwDouble
	KwDynamicCast
	KwElse
	KwEnum
	KwExplicit
	KwExport
	KwExtern
	KwFalse
	KwFloat
	KwFor
	KwFriend
	KwGoto
	KwIf
	KwInline
	KwInt
	KwLong
	KwMutable
	KwNamespace
	KwNew
	KwNoexcept
	KwNullptr
	KwOperator
	KwPrivate
	KwProtected
	KwPublic
	KwRegister
	KwReinterpretCast
	KwRequires
	KwReturn
	KwShort
	KwSigned
	KwSizeof
	KwStaticCast
	KwStatic
	KwStaticAssert
	KwStruct
	KwSwitch
	KwTemplate
	KwThis
	KwThrow
	KwTrue
	KwTry
	KwTypedef
	KwTypeid
	KwTypename
	KwUnion
	KwUnsigned
	KwUsing
	KwVirtual
	KwVoid
	KwVolatile
	KwWchar
	KwWhile

	keywordEnd

	// Punctuation / operators.
	LBrace
	RBrace
	LParen
	RParen
	LBracket
	RBracket
	Semicolon
	Colon
	ColonColon
	Comma
	Dot
	DotStar
	Arrow
	ArrowStar
	Ellipsis

	Plus
	Minus
	Star
	Slash
	Percent
	Caret
	Amp
	Pipe
	Tilde
	Bang
	Assign
	Less
	Greater
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign
	CaretAssign
	AmpAssign
	PipeAssign
	ShiftLeft
	ShiftRight
	ShiftLeftAssign
	ShiftRightAssign
	Eq
	NotEq
	LessEq
	GreaterEq
	Spaceship // <=>
	AmpAmp
	PipePipe
	PlusPlus
	MinusMinus
	Question

	punctuationEnd
)

// IsLiteral reports whether k is a literal token kind.
func IsLiteral(k Kind) bool { return k > Identifier-1 && k < literalEnd }

// IsKeyword reports whether k is a reserved keyword.
func IsKeyword(k Kind) bool { return k > literalEnd && k < keywordEnd }

// Token is the unit the parser consumes: a kind, the literal slice of
// source it was lexed from, and a position for diagnostics.
type Token struct {
	Kind   Kind
	Lexeme string
	Pos    Position
}

// keywords maps the canonical spelling to its Kind. Alternate spellings
// (and, bitand, ...) are the boundary lexer's responsibility to fold into
// these before emission.
var keywords = map[string]Kind{
	"alignas": KwAlignas, "alignof": KwAlignof, "asm": KwAsm, "auto": KwAuto,
	"bool": KwBool, "break": KwBreak, "case": KwCase, "catch": KwCatch,
	"char": KwChar, "class": KwClass, "const": KwConst, "const_cast": KwConstCast,
	"constexpr": KwConstexpr, "consteval": KwConsteval, "constinit": KwConstinit,
	"continue": KwContinue, "decltype": KwDecltype, "default": KwDefault,
	"delete": KwDelete, "do": KwDo, "double": KwDouble, "dynamic_cast": KwDynamicCast,
	"else": KwElse, "enum": KwEnum, "explicit": KwExplicit, "export": KwExport,
	"extern": KwExtern, "false": KwFalse, "float": KwFloat, "for": KwFor,
	"friend": KwFriend, "goto": KwGoto, "if": KwIf, "inline": KwInline,
	"int": KwInt, "long": KwLong, "mutable": KwMutable, "namespace": KwNamespace,
	"new": KwNew, "noexcept": KwNoexcept, "nullptr": KwNullptr, "operator": KwOperator,
	"private": KwPrivate, "protected": KwProtected, "public": KwPublic,
	"register": KwRegister, "reinterpret_cast": KwReinterpretCast, "requires": KwRequires,
	"return": KwReturn, "short": KwShort, "signed": KwSigned, "sizeof": KwSizeof,
	"static_cast": KwStaticCast, "static": KwStatic, "static_assert": KwStaticAssert,
	"struct": KwStruct, "switch": KwSwitch, "template": KwTemplate, "this": KwThis,
	"throw": KwThrow, "true": KwTrue, "try": KwTry, "typedef": KwTypedef,
	"typeid": KwTypeid, "typename": KwTypename, "union": KwUnion,
	"unsigned": KwUnsigned, "using": KwUsing, "virtual": KwVirtual, "void": KwVoid,
	"volatile": KwVolatile, "wchar_t": KwWchar, "while": KwWhile,
}

// LookupKeyword returns the Kind for a canonical keyword spelling, or
// (Identifier, false) if ident is not a keyword.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}

// FeatureMacros lists the feature-test macros of spec.md §6, mapped to
// their ISO value; no code in this module reads the table. The parser
// rejects template lambdas explicitly (see DESIGN.md, Open Question
// (b)). __cpp_aggregate_paren_init is listed, but the parser reads every
// `T x(args);` as a function declaration, so only brace-form aggregate
// initialization is parsed (Open Question (c)).
var FeatureMacros = map[string]int64{
	"__cpp_exceptions":                  199711,
	"__cpp_rtti":                        199711,
	"__cpp_constexpr":                   201603,
	"__cpp_concepts":                    202002,
	"__cpp_if_constexpr":                201606,
	"__cpp_inline_variables":            201606,
	"__cpp_static_assert":               201411,
	"__cpp_decltype":                    200707,
	"__cpp_range_based_for":             201603,
	"__cpp_lambdas":                     200907,
	"__cpp_initializer_lists":           200806,
	"__cpp_delegating_constructors":     200604,
	"__cpp_nullptr":                     200810,
	"__cpp_structured_bindings":         201606,
	"__cpp_variadic_templates":          200704,
	"__cpp_aggregate_paren_init":        201902,
	"__cpp_aggregate_bases":             201603,
}
