// Package intern implements the process-wide string interner (spec.md §3,
// "StringHandle"). Strings are stored in monotonically growing arena
// chunks; each slot carries its precomputed hash and length so that
// View and Hash are O(1) regardless of string size.
package intern

import (
	"hash/fnv"
)

// Handle is a 32-bit packed identifier into the arena. The zero Handle is
// reserved and never returned by Intern or Create (it means "no string").
type Handle uint32

const invalidHandle Handle = 0

// slot is the logical layout `[hash: u64][length: u32][bytes][\0]` from
// spec.md §3, represented here as parallel arrays rather than a packed
// byte buffer — the packing is an implementation detail of the original;
// what the invariant actually requires is O(1) view/hash, which a slice
// index already gives us.
type slot struct {
	hash   uint64
	data   string
}

// Table is the arena-backed interner. It is not safe for concurrent use;
// the compiler is single-threaded per spec.md §5.
type Table struct {
	slots []slot
	index map[string]Handle // dedup index; absent entries mean "never interned"
}

// New creates an empty Table. Handle 0 is reserved, so the first real
// string gets Handle 1.
func New() *Table {
	t := &Table{index: make(map[string]Handle)}
	t.slots = append(t.slots, slot{}) // slot 0 is the reserved sentinel
	return t
}

// Intern deduplicates: interning the same bytes twice returns the same
// Handle (spec.md §8, "re-interning an identical byte sequence yields the
// same StringHandle").
func (t *Table) Intern(s string) Handle {
	if h, ok := t.index[s]; ok {
		return h
	}
	h := t.create(s)
	t.index[s] = h
	return h
}

// Create always allocates a fresh slot, bypassing deduplication. This is
// useful for compiler-synthesized names (e.g. mangled thunks) that must
// never collide with a user identifier even if the bytes happen to match.
func (t *Table) Create(s string) Handle {
	return t.create(s)
}

func (t *Table) create(s string) Handle {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	t.slots = append(t.slots, slot{hash: h.Sum64(), data: s})
	return Handle(len(t.slots) - 1)
}

// View returns the bytes for h. It panics on an out-of-range or the
// reserved zero handle — callers are expected to hold only handles they
// (or another component in the same compilation) obtained from this
// Table.
func (t *Table) View(h Handle) string {
	t.mustValid(h)
	return t.slots[h].data
}

// Hash returns the precomputed FNV-1a hash for h in O(1).
func (t *Table) Hash(h Handle) uint64 {
	t.mustValid(h)
	return t.slots[h].hash
}

// Len returns the number of handles issued by Intern and Create
// (excluding the reserved sentinel); duplicates made by Create each count.
func (t *Table) Len() int {
	return len(t.slots) - 1
}

func (t *Table) mustValid(h Handle) {
	if h == invalidHandle || int(h) >= len(t.slots) {
		panic("intern: invalid StringHandle")
	}
}

// Valid reports whether h was issued by this Table and is not the
// reserved zero handle.
func (t *Table) Valid(h Handle) bool {
	return h != invalidHandle && int(h) < len(t.slots)
}
