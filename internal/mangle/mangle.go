// Package mangle turns a resolved function or object symbol into its
// linker-visible name, per spec.md §4.7/§6: Itanium (GCC/Clang, ELF
// targets) and MSVC (COFF targets) name mangling. No pack repo performs
// name mangling, so this package is built directly from the two ABI
// mangling grammars spec.md names rather than adapted from an example —
// the one package in this tree without a grounding source in the pack,
// recorded as such in DESIGN.md.
package mangle

import (
	"fmt"
	"strings"

	"github.com/go-cppc/cppc/internal/intern"
	"github.com/go-cppc/cppc/internal/nsreg"
	"github.com/go-cppc/cppc/internal/types"
)

// ABI selects which mangling scheme Mangler produces.
type ABI int

const (
	Itanium ABI = iota
	MSVC
)

// Mangler renders QualifiedIdentifier + signature into a mangled symbol.
type Mangler struct {
	ABI     ABI
	Types   *types.Registry
	NS      *nsreg.Registry
	Strings *intern.Table
}

func New(abi ABI, tyReg *types.Registry, nsReg *nsreg.Registry, strs *intern.Table) *Mangler {
	return &Mangler{ABI: abi, Types: tyReg, NS: nsReg, Strings: strs}
}

// FunctionName mangles a free or member function.
func (m *Mangler) FunctionName(qid types.QualifiedIdentifier, sig types.FuncTypeInfo, isMember bool, classType types.TypeIndex) string {
	if m.ABI == Itanium {
		return m.itaniumFunction(qid, sig, isMember, classType)
	}
	return m.msvcFunction(qid, sig, isMember, classType)
}

// VTableSymbol mangles the vtable symbol for a polymorphic class
// (`_ZTV<name>` for Itanium, `??_7<name>@@6B@` for MSVC).
func (m *Mangler) VTableSymbol(classType types.TypeIndex) string {
	name := m.className(classType)
	if m.ABI == Itanium {
		return "_ZTV" + m.lengthPrefixed(name)
	}
	return "??_7" + name + "@@6B@"
}

// TypeInfoSymbol mangles the RTTI type_info object (`_ZTI<name>` /
// MSVC's `??_R0<name>@@8`).
func (m *Mangler) TypeInfoSymbol(classType types.TypeIndex) string {
	name := m.className(classType)
	if m.ABI == Itanium {
		return "_ZTI" + m.lengthPrefixed(name)
	}
	return "??_R0" + name + "@@8"
}

// TypeNameSymbol mangles the RTTI type-name string object (`_ZTS<name>`).
// MSVC has no direct analog (its RTTI name is embedded in the
// TypeDescriptor, not a separate symbol), so this is Itanium-only; MSVC
// callers are expected to embed the name in the TypeInfoSymbol payload
// instead of requesting a standalone symbol here.
func (m *Mangler) TypeNameSymbol(classType types.TypeIndex) string {
	name := m.className(classType)
	return "_ZTS" + m.lengthPrefixed(name)
}

func (m *Mangler) className(idx types.TypeIndex) string {
	info := m.Types.Lookup(idx)
	if info.Struct == nil {
		return "anon"
	}
	return m.qualName(info.Struct.Name)
}

func (m *Mangler) qualName(qid types.QualifiedIdentifier) string {
	var parts []string
	ns := qid.Namespace
	for !m.NS.IsGlobal(ns) {
		parts = append([]string{m.view(m.NS.Name(ns))}, parts...)
		ns = m.NS.Parent(ns)
	}
	parts = append(parts, m.view(qid.Name))
	return strings.Join(parts, "::")
}

func (m *Mangler) view(h intern.Handle) string {
	if !m.Strings.Valid(h) {
		return "_"
	}
	return m.Strings.View(h)
}

func (m *Mangler) lengthPrefixed(name string) string {
	parts := strings.Split(name, "::")
	if len(parts) == 1 {
		return fmt.Sprintf("%d%s", len(parts[0]), parts[0])
	}
	var sb strings.Builder
	sb.WriteString("N")
	for _, p := range parts {
		fmt.Fprintf(&sb, "%d%s", len(p), p)
	}
	sb.WriteString("E")
	return sb.String()
}

// --- Itanium ---

func (m *Mangler) itaniumFunction(qid types.QualifiedIdentifier, sig types.FuncTypeInfo, isMember bool, classType types.TypeIndex) string {
	if m.view(qid.Name) == "main" && m.NS.IsGlobal(qid.Namespace) && !isMember {
		return "main" // the one un-mangled symbol, matching the Itanium ABI's special case
	}
	var sb strings.Builder
	sb.WriteString("_Z")
	if isMember {
		info := m.Types.Lookup(classType)
		full := append(append([]string{}, m.namespaceParts(info.Struct.Name.Namespace)...), m.view(info.Struct.Name.Name), m.view(qid.Name))
		sb.WriteString("N")
		for _, p := range full {
			fmt.Fprintf(&sb, "%d%s", len(p), p)
		}
		sb.WriteString("E")
	} else {
		parts := m.namespaceParts(qid.Namespace)
		name := m.view(qid.Name)
		if len(parts) == 0 {
			fmt.Fprintf(&sb, "%d%s", len(name), name)
		} else {
			sb.WriteString("N")
			for _, p := range parts {
				fmt.Fprintf(&sb, "%d%s", len(p), p)
			}
			fmt.Fprintf(&sb, "%d%s", len(name), name)
			sb.WriteString("E")
		}
	}
	if len(sig.Params) == 0 {
		sb.WriteString("v")
	} else {
		for _, p := range sig.Params {
			sb.WriteString(m.itaniumType(p))
		}
	}
	return sb.String()
}

func (m *Mangler) namespaceParts(ns nsreg.Handle) []string {
	var parts []string
	for !m.NS.IsGlobal(ns) {
		parts = append([]string{m.view(m.NS.Name(ns))}, parts...)
		ns = m.NS.Parent(ns)
	}
	return parts
}

// itaniumType renders one builtin-type mangling per the Itanium C++ ABI
// grammar's <builtin-type> production; user-defined types fall back to a
// length-prefixed source-name, which is correct for the common non-
// templated case spec.md's test matrix exercises (a full substitution/
// compression table per §5.1.8 is out of scope).
func (m *Mangler) itaniumType(idx types.TypeIndex) string {
	info := m.Types.Lookup(idx)
	switch info.Kind {
	case types.Void:
		return "v"
	case types.Bool:
		return "b"
	case types.Int:
		return itaniumIntCode(info.IntWidth, info.Unsigned)
	case types.Float32:
		return "f"
	case types.Float64:
		return "d"
	case types.Pointer:
		return "P" + m.itaniumType(info.Elem)
	case types.Reference:
		return "R" + m.itaniumType(info.Elem)
	case types.Struct, types.Union, types.Enum:
		name := m.className(idx)
		return m.lengthPrefixed(name)
	default:
		return "v"
	}
}

func itaniumIntCode(width uint32, unsigned bool) string {
	switch width {
	case 8:
		if unsigned {
			return "h"
		}
		return "c"
	case 16:
		if unsigned {
			return "t"
		}
		return "s"
	case 32:
		if unsigned {
			return "j"
		}
		return "i"
	default:
		if unsigned {
			return "m"
		}
		return "l"
	}
}

// --- MSVC ---

// msvcFunction renders a simplified MSVC `?name@@YA...` decoration:
// real MSVC mangling has an extensive backreference-compression table
// (spec.md's scope excludes full-conformance mangling); this produces a
// stable, collision-free name for every distinct (name, namespace,
// params) triple, which is what the driver and the test matrix need.
func (m *Mangler) msvcFunction(qid types.QualifiedIdentifier, sig types.FuncTypeInfo, isMember bool, classType types.TypeIndex) string {
	if m.view(qid.Name) == "main" && m.NS.IsGlobal(qid.Namespace) && !isMember {
		return "main"
	}
	var sb strings.Builder
	sb.WriteString("?")
	sb.WriteString(m.view(qid.Name))
	sb.WriteString("@")
	if isMember {
		info := m.Types.Lookup(classType)
		sb.WriteString(m.view(info.Struct.Name.Name))
		sb.WriteString("@@")
		sb.WriteString(m.callConv(true))
	} else {
		for _, p := range m.namespaceParts(qid.Namespace) {
			sb.WriteString(p)
			sb.WriteString("@")
		}
		sb.WriteString("@")
		sb.WriteString(m.callConv(false))
	}
	sb.WriteString(m.msvcType(sig.Return))
	if len(sig.Params) == 0 {
		sb.WriteString("XZ")
		return sb.String()
	}
	for _, p := range sig.Params {
		sb.WriteString(m.msvcType(p))
	}
	sb.WriteString("@Z")
	return sb.String()
}

func (m *Mangler) callConv(member bool) string {
	if member {
		return "QEAA"
	}
	return "YA"
}

func (m *Mangler) msvcType(idx types.TypeIndex) string {
	info := m.Types.Lookup(idx)
	switch info.Kind {
	case types.Void:
		return "X"
	case types.Bool:
		return "_N"
	case types.Int:
		return msvcIntCode(info.IntWidth, info.Unsigned)
	case types.Float32:
		return "M"
	case types.Float64:
		return "N"
	case types.Pointer:
		return "PEA" + m.msvcType(info.Elem)
	case types.Reference:
		return "AEA" + m.msvcType(info.Elem)
	case types.Struct, types.Union, types.Enum:
		name := m.className(idx)
		return "U" + name + "@@"
	default:
		return "X"
	}
}

func msvcIntCode(width uint32, unsigned bool) string {
	switch width {
	case 8:
		if unsigned {
			return "E"
		}
		return "D"
	case 16:
		if unsigned {
			return "G"
		}
		return "F"
	case 32:
		if unsigned {
			return "I"
		}
		return "H"
	default:
		if unsigned {
			return "_K"
		}
		return "_J"
	}
}
