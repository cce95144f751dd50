// Package constexpr implements the constant-expression evaluator (spec.md
// §4.4): a tree-walking interpreter over the parsed AST that the parser
// calls into for static_assert conditions, array bounds, non-type template
// arguments, and constexpr/consteval variable initializers and function
// calls.
package constexpr

import (
	"fmt"

	"github.com/go-cppc/cppc/internal/types"
)

// Kind tags a Value's active payload, mirroring the Kind-tagged-Info
// pattern internal/types.Registry already uses for its own closed set of
// type shapes (spec.md §4.4: "tagged value").
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindPointer
	KindStruct
)

// Pointer is a reference into the evaluator's per-evaluation heap: a
// region id plus an element index within it (spec.md §4.4's "pointers carry
// region id and offset").
type Pointer struct {
	Region int
	Offset int64
}

// Value is the tagged union spec.md §4.4 describes: integer (up to 64
// bits, signed or unsigned), float, double, bool, pointer, or struct
// record (field name to Value). Type records the concrete TypeIndex so
// width/signedness/float-vs-double can be recovered without a second
// lookup.
type Value struct {
	Kind   Kind
	Type   types.TypeIndex
	I      int64
	F      float64
	B      bool
	Ptr    Pointer
	Fields map[string]*Value // valid when Kind == KindStruct
}

func IntValue(v int64, ty types.TypeIndex) Value   { return Value{Kind: KindInt, Type: ty, I: v} }
func FloatValue(v float64, ty types.TypeIndex) Value { return Value{Kind: KindFloat, Type: ty, F: v} }
func BoolValue(v bool) Value                        { return Value{Kind: KindBool, B: v} }
func PointerValue(p Pointer, ty types.TypeIndex) Value {
	return Value{Kind: KindPointer, Type: ty, Ptr: p}
}
func StructValue(ty types.TypeIndex) Value {
	return Value{Kind: KindStruct, Type: ty, Fields: make(map[string]*Value)}
}

// Truthy implements the usual C++ contextual-bool-conversion rule used by
// `if`/`&&`/`||`/`!`/the ternary condition: nonzero integer or float,
// true bool, non-null pointer. A struct value reports false; the callers
// do not reject it.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindInt:
		return v.I != 0
	case KindFloat:
		return v.F != 0
	case KindBool:
		return v.B
	case KindPointer:
		return v.Ptr.Region != 0 || v.Ptr.Offset != 0
	default:
		return false
	}
}

// AsFloat widens an int or float Value to float64 for mixed-type
// arithmetic, per the usual arithmetic conversions.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.I), true
	case KindFloat:
		return v.F, true
	default:
		return 0, false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.I)
	case KindFloat:
		return fmt.Sprintf("%g", v.F)
	case KindBool:
		return fmt.Sprintf("%t", v.B)
	case KindPointer:
		return fmt.Sprintf("&region%d+%d", v.Ptr.Region, v.Ptr.Offset)
	case KindStruct:
		return "{struct}"
	default:
		return "<invalid>"
	}
}
