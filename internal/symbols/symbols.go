// Package symbols implements the symbol table (spec.md §3/§4.2): a stack
// of scopes mapping (namespace, identifier) to declarations, with
// overload sets for functions and ADL-aware unqualified lookup.
package symbols

import (
	"fmt"

	"github.com/go-cppc/cppc/internal/intern"
	"github.com/go-cppc/cppc/internal/nsreg"
	"github.com/go-cppc/cppc/internal/types"
)

// Kind classifies what a Symbol denotes.
type Kind int

const (
	Var Kind = iota
	Function
	TypeAlias
	Namespace
	Template
)

// Symbol is one declaration visible under some name. Function symbols
// with the same name and namespace form an OverloadSet instead of
// replacing one another.
type Symbol struct {
	Name       types.QualifiedIdentifier
	Kind       Kind
	Type       types.TypeIndex // variable type, or function signature's FuncPointer TypeIndex
	IsConst    bool
	IsConstexpr bool
	IsExtern   bool
	IsStatic   bool
	IsForward  bool // declared but not yet defined (spec.md §3: "eventually reachable ... must have a body")
	Overloads  []*Symbol // non-nil only on the head symbol of an overload set
}

// scope is one stack frame: a flat map keyed by (namespace, name) so that
// the same identifier in two different namespaces never collides within
// one scope frame.
type scope struct {
	symbols map[key]*Symbol
	ns      nsreg.Handle // the namespace active while this scope is open, for unqualified lookup fallback
}

type key struct {
	ns   nsreg.Handle
	name intern.Handle
}

// Table is the scope stack used during parsing/semantic analysis. It is
// not the registry of namespaces themselves (see internal/nsreg); it
// tracks what names are visible at a point in the token stream.
type Table struct {
	scopes []*scope
	reg    *nsreg.Registry
	// usingAliases maps an alias key (scope-local) to the symbol it refers to.
	usingAliases map[*scope]map[key]*Symbol
}

// New creates a Table with a single global scope open.
func New(reg *nsreg.Registry) *Table {
	t := &Table{reg: reg, usingAliases: make(map[*scope]map[key]*Symbol)}
	t.Push(nsreg.GLOBAL)
	return t
}

// Push opens a new scope associated with the given active namespace
// (which does not have to differ from the enclosing scope's, e.g. a
// function body scope stays in the same namespace as its declaration).
func (t *Table) Push(ns nsreg.Handle) {
	t.scopes = append(t.scopes, &scope{symbols: make(map[key]*Symbol), ns: ns})
}

// Pop discards the innermost scope's local symbols. Declarations made in
// it remain reachable from the AST (spec.md §3 lifecycle), just no
// longer visible to unqualified lookup.
func (t *Table) Pop() {
	if len(t.scopes) == 1 {
		panic("symbols: cannot pop the global scope")
	}
	last := t.scopes[len(t.scopes)-1]
	delete(t.usingAliases, last)
	t.scopes = t.scopes[:len(t.scopes)-1]
}

func (t *Table) top() *scope { return t.scopes[len(t.scopes)-1] }

// CurrentNamespace returns the namespace active in the innermost scope.
func (t *Table) CurrentNamespace() nsreg.Handle { return t.top().ns }

// Insert adds sym to the innermost scope. If a Function symbol with the
// same (namespace, name) already exists there, sym joins its overload
// set instead of replacing it; any other kind colliding with an existing
// declaration is an error (shadowing across scopes is fine, redeclaring
// within one scope is not, except for forward declarations being
// completed).
func (t *Table) Insert(sym *Symbol) error {
	s := t.top()
	k := key{ns: sym.Name.Namespace, name: sym.Name.Name}
	existing, ok := s.symbols[k]
	if !ok {
		s.symbols[k] = sym
		return nil
	}

	if existing.IsForward && !sym.IsForward {
		// Completing a forward declaration: replace in place, keep any
		// accumulated overloads.
		sym.Overloads = existing.Overloads
		s.symbols[k] = sym
		return nil
	}

	if sym.Kind == Function && existing.Kind == Function {
		head := existing
		if head.Overloads == nil {
			head.Overloads = []*Symbol{head}
		}
		head.Overloads = append(head.Overloads, sym)
		return nil
	}

	return fmt.Errorf("redeclaration of %q in this scope", k.name)
}

// LookupQualified resolves name strictly inside ns — it does not fall
// back to the global namespace (Open Question (a) in DESIGN.md: this was
// an ambiguity in the distilled spec, resolved here by tightening).
func (t *Table) LookupQualified(ns nsreg.Handle, name intern.Handle) (*Symbol, bool) {
	k := key{ns: ns, name: name}
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i].symbols[k]; ok {
			return sym, true
		}
		if alias, ok := t.usingAliases[t.scopes[i]][k]; ok {
			return alias, true
		}
	}
	return nil, false
}

// LookupUnqualified performs ordinary unqualified lookup: walk the scope
// stack innermost-first within the current namespace, then widen to each
// enclosing namespace up to GLOBAL (spec.md §4.2's ADL-aware lookup for
// function calls layers argument-dependent namespaces on top of this —
// see LookupUnqualifiedADL).
func (t *Table) LookupUnqualified(name intern.Handle) (*Symbol, bool) {
	ns := t.CurrentNamespace()
	for {
		if sym, ok := t.LookupQualified(ns, name); ok {
			return sym, true
		}
		if ns == nsreg.GLOBAL {
			return nil, false
		}
		ns = t.reg.Parent(ns)
	}
}

// LookupUnqualifiedADL extends LookupUnqualified by also searching the
// namespaces associated with each argument type in argNamespaces (the
// namespace a class type was declared in), per ordinary
// argument-dependent lookup for function calls (spec.md §4.2).
func (t *Table) LookupUnqualifiedADL(name intern.Handle, argNamespaces []nsreg.Handle) (*Symbol, bool) {
	if sym, ok := t.LookupUnqualified(name); ok {
		return sym, true
	}
	for _, ns := range argNamespaces {
		if sym, ok := t.LookupQualified(ns, name); ok {
			return sym, true
		}
	}
	return nil, false
}

// DefineUsing installs a using-declaration: `name` in the current scope
// now also resolves to target, without copying the declaration.
func (t *Table) DefineUsing(name intern.Handle, inNamespace nsreg.Handle, target *Symbol) {
	s := t.top()
	if t.usingAliases[s] == nil {
		t.usingAliases[s] = make(map[key]*Symbol)
	}
	t.usingAliases[s][key{ns: inNamespace, name: name}] = target
}
