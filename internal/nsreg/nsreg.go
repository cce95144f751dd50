// Package nsreg implements the namespace registry (spec.md §3,
// "NamespaceHandle"): a tree of nested namespaces where each entry
// carries its parent handle and local name.
package nsreg

import (
	"strings"

	"github.com/go-cppc/cppc/internal/intern"
)

// Handle indexes into the registry. GLOBAL (0) is reserved for the
// translation unit's global namespace.
type Handle uint32

// GLOBAL is the always-present root namespace.
const GLOBAL Handle = 0

type entry struct {
	parent Handle
	name   intern.Handle // empty for GLOBAL
	hasParent bool
}

// Registry is the append-only namespace tree for one translation unit.
type Registry struct {
	entries []entry
	strings *intern.Table
	// children maps a namespace to its previously-created child namespaces
	// by name handle, so re-opening "namespace foo { ... }" twice reuses
	// the same Handle instead of creating a sibling duplicate.
	children map[Handle]map[intern.Handle]Handle
}

// New creates a Registry with only GLOBAL present.
func New(strings *intern.Table) *Registry {
	r := &Registry{strings: strings, children: make(map[Handle]map[intern.Handle]Handle)}
	r.entries = append(r.entries, entry{}) // GLOBAL
	return r
}

// Declare returns the Handle for the namespace named `name` nested inside
// parent, creating it on first use and reusing it thereafter (namespaces
// are reopenable).
func (r *Registry) Declare(parent Handle, name intern.Handle) Handle {
	if kids, ok := r.children[parent]; ok {
		if h, ok := kids[name]; ok {
			return h
		}
	} else {
		r.children[parent] = make(map[intern.Handle]Handle)
	}
	h := Handle(len(r.entries))
	r.entries = append(r.entries, entry{parent: parent, name: name, hasParent: true})
	r.children[parent][name] = h
	return h
}

// Parent returns h's enclosing namespace. Calling Parent(GLOBAL) panics:
// GLOBAL has no parent by construction.
func (r *Registry) Parent(h Handle) Handle {
	e := r.entries[h]
	if !e.hasParent {
		panic("nsreg: GLOBAL has no parent")
	}
	return e.parent
}

// Name returns h's local (unqualified) name handle. GLOBAL's name is the
// zero intern.Handle.
func (r *Registry) Name(h Handle) intern.Handle {
	return r.entries[h].name
}

// IsGlobal reports whether h is the GLOBAL namespace.
func (r *Registry) IsGlobal(h Handle) bool { return h == GLOBAL }

// Depth returns the number of namespaces between h and GLOBAL, inclusive
// of h but not GLOBAL itself (GLOBAL has depth 0).
func (r *Registry) Depth(h Handle) int {
	depth := 0
	for h != GLOBAL {
		depth++
		h = r.Parent(h)
	}
	return depth
}

// IsAncestor reports whether ancestor lies on h's walk-to-root path
// (GLOBAL is an ancestor of everything, including itself).
func (r *Registry) IsAncestor(ancestor, h Handle) bool {
	for {
		if h == ancestor {
			return true
		}
		if h == GLOBAL {
			return ancestor == GLOBAL
		}
		h = r.Parent(h)
	}
}

// QualifiedName builds the fully-qualified "a::b::c" name by walking to
// root and back down.
func (r *Registry) QualifiedName(h Handle) string {
	if h == GLOBAL {
		return ""
	}
	var parts []string
	for cur := h; cur != GLOBAL; cur = r.Parent(cur) {
		parts = append(parts, r.strings.View(r.Name(cur)))
	}
	// parts is innermost-first; reverse.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "::")
}
