// Package types implements the global type registry (spec.md §3,
// "TypeIndex"/"TypeInfo"): an append-only table of type descriptors.
// Once a TypeIndex is handed out it is never reused for a different
// TypeInfo and the registry never moves or overwrites it, matching the
// "deque-like storage" invariant in spec.md §3.
package types

import (
	"github.com/go-cppc/cppc/internal/intern"
	"github.com/go-cppc/cppc/internal/nsreg"
)

// TypeIndex is a stable, append-only index into the type table.
type TypeIndex uint32

// Kind is the base type tag from spec.md §3.
type Kind int

const (
	Void Kind = iota
	Bool
	Int    // signed/unsigned integer of width IntWidth
	Float32
	Float64
	Pointer
	Reference
	Array
	Struct
	Union
	Enum
	FuncPointer
	TemplateParam
)

// CV holds the const/volatile qualifiers reapplied at each use site via
// TypeSpecifier (spec.md §3: "types are referenced from AST by TypeIndex
// plus an outer TypeSpecifier that adds qualifiers").
type CV uint8

const (
	CVNone     CV = 0
	CVConst    CV = 1 << 0
	CVVolatile CV = 1 << 1
)

// QualifiedIdentifier pairs a namespace with an interned name, carried on
// every identifier created inside a namespace scope (spec.md §3).
type QualifiedIdentifier struct {
	Namespace nsreg.Handle
	Name      intern.Handle
}

// Equal compares two qualified identifiers by value.
func (q QualifiedIdentifier) Equal(o QualifiedIdentifier) bool {
	return q.Namespace == o.Namespace && q.Name == o.Name
}

// FieldInfo describes one data member of a StructInfo.
type FieldInfo struct {
	Name      intern.Handle
	Type      TypeIndex
	BitOffset uint32
	BitWidth  uint32 // 0 means "not a bitfield"; otherwise a bitfield width
}

// Access is a member's C++ access specifier.
type Access int

const (
	Public Access = iota
	Protected
	Private
)

// MethodInfo describes one member function's signature, access and
// flags. It carries no body or token range.
type MethodInfo struct {
	Name       intern.Handle
	Signature  FuncTypeInfo
	Access     Access
	IsVirtual  bool
	IsOverride bool
	IsStatic   bool
	IsCtor     bool
	IsDtor     bool
	VTableSlot int // -1 if non-virtual
}

// BaseInfo describes one base class of a StructInfo.
type BaseInfo struct {
	Type         TypeIndex
	Access       Access
	Virtual      bool
	OffsetInBase uint32 // byte offset of the base subobject within the derived object
}

// VTableEntry is one 8-byte slot in a class's virtual dispatch table.
type VTableEntry struct {
	Method MethodInfo
	// DefiningType is the TypeIndex of the class whose method body this
	// slot currently points at (the most-derived override seen so far).
	DefiningType TypeIndex
}

// VTableLayout is the flattened vtable for a polymorphic class. Entries
// holds only the function-pointer slots; the RTTI pointer slot that
// precedes them in an emitted vtable (spec.md §4.7) is not represented.
type VTableLayout struct {
	Entries []VTableEntry
}

// FuncTypeInfo is a callable signature: parameter types, return type, and
// variadic-ness.
type FuncTypeInfo struct {
	Params   []TypeIndex
	Return   TypeIndex
	Variadic bool
}

// InstantiationInfo records the template this type was produced from, so
// re-instantiating with the same arguments resolves to the same index
// (spec.md §3 invariant).
type InstantiationInfo struct {
	BaseTemplate  QualifiedIdentifier
	TypeArgs      []TypeIndex
	NonTypeArgs   []int64
}

// StructInfo is the payload for Struct/Union-kind types.
type StructInfo struct {
	Name            QualifiedIdentifier
	Fields          []FieldInfo
	StaticFields    []FieldInfo
	Methods         []MethodInfo
	Bases           []BaseInfo
	VTable          *VTableLayout
	HasVTable       bool
	HasUserDtor     bool
	IsUnion         bool
	IsComplete      bool // set only after all bases are complete (cycle-safe)
	SizeBits        uint32
	AlignBits       uint32
}

// EnumInfo is the payload for Enum-kind types.
type EnumInfo struct {
	Name        QualifiedIdentifier
	Underlying  TypeIndex
	Enumerators []EnumeratorInfo
	IsScoped    bool // enum class
}

// EnumeratorInfo is a single `name = value` entry in an enum.
type EnumeratorInfo struct {
	Name  intern.Handle
	Value int64
}

// Info is the full descriptor stored per TypeIndex.
type Info struct {
	Kind       Kind
	SizeBits   uint32
	AlignBits  uint32
	CV         CV
	IntWidth   uint32 // valid when Kind == Int
	Unsigned   bool   // valid when Kind == Int
	Elem       TypeIndex // pointee / referent / array element
	ArrayLen   int64     // -1 if unknown/unbounded
	Struct     *StructInfo
	Enum       *EnumInfo
	Func       *FuncTypeInfo
	Instantiation *InstantiationInfo
	TemplateParamName intern.Handle // valid when Kind == TemplateParam
}

// primitiveKey canonicalizes the built-in scalar kinds so that identical
// built-ins share an index (spec.md §4.2: "structural equality on
// primitive types").
type primitiveKey struct {
	kind     Kind
	intWidth uint32
	unsigned bool
	cv       CV
}

// Registry is the append-only, process-lifetime type table.
type Registry struct {
	table       []Info
	primitives  map[primitiveKey]TypeIndex
	pointers    map[pointerKey]TypeIndex
	instantiations map[instantiationKey]TypeIndex
}

type pointerKey struct {
	elem TypeIndex
	cv   CV
	ref  bool // true for Reference, false for Pointer
}

type instantiationKey struct {
	base     QualifiedIdentifier
	typeArgs string // joined TypeIndex digits, cheap canonical key
	nonType  string
}

// New creates a Registry. TypeIndex 0 is never issued for a real type; it
// is used as "no type" by callers that need a zero value.
func New() *Registry {
	r := &Registry{
		primitives:     make(map[primitiveKey]TypeIndex),
		pointers:       make(map[pointerKey]TypeIndex),
		instantiations: make(map[instantiationKey]TypeIndex),
	}
	r.table = append(r.table, Info{Kind: Void}) // index 0 reserved as "no type"/void
	return r
}

// Lookup returns the TypeInfo for a previously issued TypeIndex. The
// registry's append-only invariant guarantees the same Info is returned
// for the same index for the lifetime of the compilation (spec.md §8).
func (r *Registry) Lookup(idx TypeIndex) Info {
	return r.table[idx]
}

// Len returns the number of distinct types interned, including the
// reserved void-at-0 entry.
func (r *Registry) Len() int { return len(r.table) }

// InternPrimitive interns a scalar built-in type with structural
// deduplication: two requests for `unsigned int` return the same index.
func (r *Registry) InternPrimitive(kind Kind, sizeBits, alignBits, intWidth uint32, unsigned bool, cv CV) TypeIndex {
	key := primitiveKey{kind: kind, intWidth: intWidth, unsigned: unsigned, cv: cv}
	if idx, ok := r.primitives[key]; ok {
		return idx
	}
	idx := r.append(Info{Kind: kind, SizeBits: sizeBits, AlignBits: alignBits, IntWidth: intWidth, Unsigned: unsigned, CV: cv})
	r.primitives[key] = idx
	return idx
}

// InternPointer interns `elem*` or (if ref is true) `elem&`, deduplicating
// on (elem, cv, ref) the same way primitives dedupe.
func (r *Registry) InternPointer(elem TypeIndex, cv CV, ref bool) TypeIndex {
	key := pointerKey{elem: elem, cv: cv, ref: ref}
	if idx, ok := r.pointers[key]; ok {
		return idx
	}
	kind := Pointer
	if ref {
		kind = Reference
	}
	const ptrSizeBits = 64
	idx := r.append(Info{Kind: kind, Elem: elem, CV: cv, SizeBits: ptrSizeBits, AlignBits: ptrSizeBits})
	r.pointers[key] = idx
	return idx
}

// InternArray always allocates a fresh index for T[N]: arrays are not
// deduplicated across unrelated declarations the way scalar primitives
// are, since two array decls of the same shape may still need distinct
// identity once struct member offsets are attached downstream. (A future
// pass may choose to dedupe purely anonymous array types; nothing in the
// AST currently needs that.)
func (r *Registry) InternArray(elem TypeIndex, length int64, elemSizeBits, elemAlignBits uint32) TypeIndex {
	size := elemSizeBits
	if length > 0 {
		size = elemSizeBits * uint32(length)
	}
	return r.append(Info{Kind: Array, Elem: elem, ArrayLen: length, SizeBits: size, AlignBits: elemAlignBits})
}

// DeclareStruct allocates a fresh TypeIndex for a user-defined
// struct/class/union. User-defined types always get fresh indices
// (spec.md §4.2), even if a same-named struct exists in another
// namespace or scope. The returned *StructInfo may be mutated in place
// (fields/bases/vtable filled in later) — TypeIndex stability does not
// mean Info immutability for in-flight struct construction, only that
// the slot is never reassigned to a *different* type.
func (r *Registry) DeclareStruct(name QualifiedIdentifier, isUnion bool) (TypeIndex, *StructInfo) {
	si := &StructInfo{Name: name, IsUnion: isUnion}
	idx := r.append(Info{Kind: Struct, Struct: si})
	if isUnion {
		r.table[idx].Kind = Union
	}
	return idx, si
}

// DeclareEnum allocates a fresh TypeIndex for a user-defined enum.
func (r *Registry) DeclareEnum(name QualifiedIdentifier, underlying TypeIndex, scoped bool) (TypeIndex, *EnumInfo) {
	ei := &EnumInfo{Name: name, Underlying: underlying, IsScoped: scoped}
	idx := r.append(Info{Kind: Enum, Enum: ei, Elem: underlying})
	return idx, ei
}

// DeclareFuncPointer allocates a fresh TypeIndex for a function-pointer type.
func (r *Registry) DeclareFuncPointer(sig FuncTypeInfo) TypeIndex {
	const ptrSizeBits = 64
	return r.append(Info{Kind: FuncPointer, Func: &sig, SizeBits: ptrSizeBits, AlignBits: ptrSizeBits})
}

// DeclareTemplateParam allocates a placeholder TypeIndex for a template
// parameter name, used by the parser while a template-parameter frame is
// pushed (spec.md §4.1).
func (r *Registry) DeclareTemplateParam(name intern.Handle) TypeIndex {
	return r.append(Info{Kind: TemplateParam, TemplateParamName: name})
}

// LookupInstantiation returns the cached instantiation's TypeIndex for
// (base, typeArgs, nonTypeArgs), or false if no such instantiation has
// been registered yet. The template instantiator (internal/template)
// consults this before cloning a pattern, and registers the result with
// RecordInstantiation — the registry itself does not drive substitution,
// it only owns the identity-by-key invariant from spec.md §3.
func (r *Registry) LookupInstantiation(base QualifiedIdentifier, typeArgs []TypeIndex, nonTypeArgs []int64) (TypeIndex, bool) {
	idx, ok := r.instantiations[instantiationKeyOf(base, typeArgs, nonTypeArgs)]
	return idx, ok
}

// RecordInstantiation registers idx as the result for the given cache
// key. It must be called before recursing into the instantiation's own
// body, so that cyclic instantiations terminate (spec.md §4.3 step 6).
// It also stamps idx's own Info.Instantiation so that later passes
// (internal/mangle, in particular) can recover which template and
// arguments produced this type without keeping a second side-table.
func (r *Registry) RecordInstantiation(base QualifiedIdentifier, typeArgs []TypeIndex, nonTypeArgs []int64, idx TypeIndex) {
	r.instantiations[instantiationKeyOf(base, typeArgs, nonTypeArgs)] = idx
	if int(idx) < len(r.table) {
		r.table[idx].Instantiation = &InstantiationInfo{BaseTemplate: base, TypeArgs: append([]TypeIndex(nil), typeArgs...), NonTypeArgs: append([]int64(nil), nonTypeArgs...)}
	}
}

func instantiationKeyOf(base QualifiedIdentifier, typeArgs []TypeIndex, nonTypeArgs []int64) instantiationKey {
	return instantiationKey{base: base, typeArgs: encodeTypeArgs(typeArgs), nonType: encodeNonTypeArgs(nonTypeArgs)}
}

func encodeTypeArgs(args []TypeIndex) string {
	buf := make([]byte, 0, len(args)*5)
	for _, a := range args {
		buf = appendUint32(buf, uint32(a))
	}
	return string(buf)
}

func encodeNonTypeArgs(args []int64) string {
	buf := make([]byte, 0, len(args)*9)
	for _, a := range args {
		buf = appendUint32(buf, uint32(a>>32))
		buf = appendUint32(buf, uint32(a))
	}
	return string(buf)
}

func appendUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v), ',')
}

func (r *Registry) append(info Info) TypeIndex {
	r.table = append(r.table, info)
	return TypeIndex(len(r.table) - 1)
}

// TypeSpecifier is a use-site view of a type: the base TypeIndex
// unchanged plus the CV qualifiers layered on at this use site, per
// spec.md §3 ("an outer TypeSpecifier that adds qualifiers reapplied at
// each use site"). The registry does not mutate Info for this — qualifier
// application is purely a property of the reference, not the referenced
// type.
type TypeSpecifier struct {
	Base TypeIndex
	CV   CV
}

// Size returns idx's own declared SizeBits/8, ignoring
// qualifiers (cv-qualification never changes size/alignment in the C++
// object model).
func (r *Registry) Size(idx TypeIndex) uint32 { return r.table[idx].SizeBits / 8 }

// Align returns alignBits/8 for idx.
func (r *Registry) Align(idx TypeIndex) uint32 { return r.table[idx].AlignBits / 8 }
