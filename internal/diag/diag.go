// Package diag provides diagnostic formatting for the compiler.
//
// Every recoverable compiler failure is represented as an *Error carrying
// a source position, a Kind, and a one-line Message. Errors are rendered
// with a caret-pointing source snippet, matching the "file:line:col: kind:
// message" contract required by spec.md §7.
package diag

import (
	"fmt"
	"strings"

	"golang.org/x/text/width"
)

// Kind classifies a diagnostic per spec.md §7.
type Kind int

const (
	Lex Kind = iota
	Parse
	Lookup
	Type
	Template
	Constexpr
	Internal
	IO
)

func (k Kind) String() string {
	switch k {
	case Lex:
		return "lex error"
	case Parse:
		return "parse error"
	case Lookup:
		return "lookup error"
	case Type:
		return "type error"
	case Template:
		return "template error"
	case Constexpr:
		return "constexpr error"
	case Internal:
		return "internal error"
	case IO:
		return "I/O error"
	default:
		return "error"
	}
}

// Position is a 1-indexed source location.
type Position struct {
	Line   int
	Column int
	File   string
}

// Note chains below the primary diagnostic (e.g. "in instantiation of template ...").
type Note struct {
	Pos     Position
	Message string
}

// Error is a single compiler diagnostic.
type Error struct {
	Kind    Kind
	Pos     Position
	Message string
	Source  string // full source text, for caret rendering; may be empty
	Notes   []Note
}

// New builds a diagnostic of the given kind.
func New(kind Kind, pos Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// NewInternal builds an Internal diagnostic for a broken invariant.
// These are never recovered from; the phase aborts immediately (spec.md §7).
func NewInternal(format string, args ...any) *Error {
	return &Error{Kind: Internal, Message: fmt.Sprintf(format, args...)}
}

// WithSource attaches the source text so Format can render a snippet.
func (e *Error) WithSource(src string) *Error {
	e.Source = src
	return e
}

// WithNote appends a chained note.
func (e *Error) WithNote(pos Position, format string, args ...any) *Error {
	e.Notes = append(e.Notes, Note{Pos: pos, Message: fmt.Sprintf(format, args...)})
	return e
}

// Error implements the error interface: "file:line:col: kind: message".
func (e *Error) Error() string {
	var sb strings.Builder
	writeHeader(&sb, e.Pos, e.Kind, e.Message)
	for _, n := range e.Notes {
		sb.WriteString("\nnote: ")
		writeHeader(&sb, n.Pos, -1, n.Message)
	}
	return sb.String()
}

func writeHeader(sb *strings.Builder, pos Position, kind Kind, msg string) {
	file := pos.File
	if file == "" {
		file = "<input>"
	}
	if kind >= 0 {
		fmt.Fprintf(sb, "%s:%d:%d: %s: %s", file, pos.Line, pos.Column, kind, msg)
	} else {
		fmt.Fprintf(sb, "%s:%d:%d: %s", file, pos.Line, pos.Column, msg)
	}
}

// Format renders the diagnostic with a caret-pointing source snippet, the way
// the teacher's CompilerError.Format does for DWScript diagnostics.
func (e *Error) Format() string {
	var sb strings.Builder
	writeHeader(&sb, e.Pos, e.Kind, e.Message)
	sb.WriteString("\n")

	line := sourceLine(e.Source, e.Pos.Line)
	if line != "" {
		prefix := fmt.Sprintf("%4d | ", e.Pos.Line)
		sb.WriteString(prefix)
		sb.WriteString(line)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(" ", len(prefix)+caretOffset(line, e.Pos.Column)))
		sb.WriteString("^")
	}

	for _, n := range e.Notes {
		sb.WriteString("\nnote: ")
		writeHeader(&sb, n.Pos, -1, n.Message)
	}
	return sb.String()
}

// caretOffset converts a 1-based rune column into a display-width offset,
// widening the teacher's rune-counting column convention (internal/lexer's
// doc comment on Unicode columns) to account for East-Asian wide runes
// inside string/char literals so the caret still lines up visually.
func caretOffset(line string, column int) int {
	if column <= 1 {
		return 0
	}
	offset := 0
	count := 0
	for _, r := range line {
		if count >= column-1 {
			break
		}
		count++
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			offset += 2
		default:
			offset++
		}
	}
	return offset
}

func sourceLine(src string, lineNum int) string {
	if src == "" || lineNum < 1 {
		return ""
	}
	lines := strings.Split(src, "\n")
	if lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// FormatErrors renders multiple diagnostics, numbering them when there is
// more than one, matching the teacher's FormatErrors helper.
func FormatErrors(errs []*Error) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return errs[0].Format()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "compilation failed with %d error(s):\n\n", len(errs))
	for i, e := range errs {
		fmt.Fprintf(&sb, "[%d/%d] ", i+1, len(errs))
		sb.WriteString(e.Format())
		if i < len(errs)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
