package constexpr

import (
	"fmt"

	"github.com/go-cppc/cppc/internal/types"
)

// region is one `new T[n]` allocation: a flat slice of element Values
// plus enough type information to bounds-check and type-check stores
// (spec.md §4.4: "each new T[n] allocates a virtual region with size and
// element type").
type region struct {
	elemType types.TypeIndex
	elems    []Value
	freed    bool
}

// Heap is the evaluator's per-evaluation compile-time heap. It never
// shares state across separate top-level EvalConst/EvalStaticAssert
// calls — each gets its own Heap, mirroring spec.md §4.4's "per-
// evaluation" heap lifetime. Region 0 is reserved as the null pointer's
// region so a zero-value Pointer is never a valid live allocation.
type Heap struct {
	regions []*region
}

func newHeap() *Heap {
	return &Heap{regions: make([]*region, 1)} // index 0 reserved (null)
}

// Alloc creates a new region of length elements, all zero-valued, and
// returns a Pointer to its first element.
func (h *Heap) Alloc(elemType types.TypeIndex, length int64) (Pointer, error) {
	if length < 0 {
		return Pointer{}, fmt.Errorf("array new with negative size %d", length)
	}
	r := &region{elemType: elemType, elems: make([]Value, length)}
	for i := range r.elems {
		r.elems[i] = Value{Kind: KindInt, Type: elemType}
	}
	id := len(h.regions)
	h.regions = append(h.regions, r)
	return Pointer{Region: id, Offset: 0}, nil
}

// Free releases a region. Freeing an already-freed or unknown region, or
// a pointer that is not to the start of its region, is a compile error
// (spec.md §4.4: "double-frees are compile errors").
func (h *Heap) Free(p Pointer) error {
	r, err := h.region(p.Region)
	if err != nil {
		return err
	}
	if r.freed {
		return fmt.Errorf("double free of region %d", p.Region)
	}
	if p.Offset != 0 {
		return fmt.Errorf("delete of a pointer not to the start of its allocation (region %d, offset %d)", p.Region, p.Offset)
	}
	r.freed = true
	return nil
}

// Load reads the element at p, bounds- and freed-checking first.
func (h *Heap) Load(p Pointer) (Value, error) {
	r, err := h.region(p.Region)
	if err != nil {
		return Value{}, err
	}
	if r.freed {
		return Value{}, fmt.Errorf("use after free: region %d", p.Region)
	}
	if p.Offset < 0 || p.Offset >= int64(len(r.elems)) {
		return Value{}, fmt.Errorf("out-of-bounds read at region %d offset %d (length %d)", p.Region, p.Offset, len(r.elems))
	}
	return r.elems[p.Offset], nil
}

// Store writes v to the element at p, bounds- and freed-checking first.
func (h *Heap) Store(p Pointer, v Value) error {
	r, err := h.region(p.Region)
	if err != nil {
		return err
	}
	if r.freed {
		return fmt.Errorf("use after free: region %d", p.Region)
	}
	if p.Offset < 0 || p.Offset >= int64(len(r.elems)) {
		return fmt.Errorf("out-of-bounds write at region %d offset %d (length %d)", p.Region, p.Offset, len(r.elems))
	}
	r.elems[p.Offset] = v
	return nil
}

func (h *Heap) region(id int) (*region, error) {
	if id <= 0 || id >= len(h.regions) || h.regions[id] == nil {
		return nil, fmt.Errorf("invalid or null pointer (region %d)", id)
	}
	return h.regions[id], nil
}

// Leaks reports the region ids still live (allocated, not freed) at the
// end of an evaluation — spec.md §4.4 treats a leak as a compile error,
// not a warning.
func (h *Heap) Leaks() []int {
	var leaked []int
	for id, r := range h.regions {
		if r != nil && !r.freed {
			leaked = append(leaked, id)
		}
	}
	return leaked
}
