package parser

import (
	"strings"

	"github.com/go-cppc/cppc/internal/nsreg"
	"github.com/go-cppc/cppc/internal/token"
	"github.com/go-cppc/cppc/internal/types"
)

// parseQualifiedName consumes `::`-separated segments, resolving the
// namespace walk through the namespace registry as it goes (spec.md
// §4.1: "each segment is looked up in the left-so-far scope"). It
// returns the full dotted-form name (for diagnostics) and the resolved
// QualifiedIdentifier of the final segment.
func (p *Parser) parseQualifiedName() (string, types.QualifiedIdentifier) {
	ns := p.currentNS()
	global := p.cur.match(token.ColonColon)
	if global {
		ns = nsreg.GLOBAL
	}

	var segments []string
	for {
		seg := p.expect(token.Identifier).Lexeme
		segments = append(segments, seg)
		if p.cur.check(token.ColonColon) && p.segmentIsNamespace(seg) {
			p.cur.Advance()
			ns = p.NS.Declare(ns, p.Strings.Intern(seg))
			continue
		}
		break
	}

	last := segments[len(segments)-1]
	qual := types.QualifiedIdentifier{Namespace: ns, Name: p.Strings.Intern(last)}
	return strings.Join(segments, "::"), qual
}

// segmentIsNamespace is a syntactic heuristic: a bare identifier
// immediately followed by `::` is treated as a namespace (or class,
// which shares the qualifier-walk machinery) qualifier rather than the
// final name, unless it is the very last segment before a non-`::`
// token. The real disambiguation (namespace vs. class-scope `::`) is
// left to semantic analysis; both route through nsreg.Declare/reopen
// here since a class acts like a one-off namespace for name lookup
// purposes in this compiler's simplified model (spec.md's Non-goals
// exclude full two-phase name lookup across template contexts).
func (p *Parser) segmentIsNamespace(_ string) bool { return true }
