package backend

import (
	"sort"

	"github.com/go-cppc/cppc/internal/ir"
)

// interval is one TempVar's live range, [Start, End] inclusive
// instruction indices, used by the linear-scan allocator below.
type interval struct {
	temp       ir.TempVar
	start, end int
}

// Allocation is the result of register allocation for one function:
// each TempVar is either held in a physical register (InReg true) or
// spilled to a stack slot at StackOffset (relative to RBP, always
// negative).
type Allocation struct {
	InReg       map[ir.TempVar]Reg
	StackOffset map[ir.TempVar]int
	FrameSize   int
}

// allocateRegisters runs a linear-scan pass over fn's instructions
// (Poletto & Sarkar's classic algorithm, the same shape
// other_examples' vslc arm backend's per-function bookkeeping drives
// off of, simplified here to one size class per temp since this target
// has no SIMD/vector registers to special-case).
func allocateRegisters(fn *ir.Function, abi ABI) *Allocation {
	intervals := computeIntervals(fn)
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].start < intervals[j].start })

	pool := scratchRegs(abi)
	alloc := &Allocation{InReg: map[ir.TempVar]Reg{}, StackOffset: map[ir.TempVar]int{}}

	type active struct {
		iv  interval
		reg Reg
	}
	var activeList []active
	free := append([]Reg(nil), pool...)
	spillOffset := 0

	expire := func(pos int) {
		kept := activeList[:0]
		for _, a := range activeList {
			if a.iv.end < pos {
				free = append(free, a.reg)
			} else {
				kept = append(kept, a)
			}
		}
		activeList = kept
	}

	for _, iv := range intervals {
		expire(iv.start)
		if len(free) > 0 {
			r := free[len(free)-1]
			free = free[:len(free)-1]
			alloc.InReg[iv.temp] = r
			activeList = append(activeList, active{iv: iv, reg: r})
			continue
		}
		// spill the temp with the furthest-away end among active+this one
		// (the standard linear-scan spill heuristic); ties favor spilling
		// the newly-introduced interval to keep already-allocated code
		// simple.
		spillOffset -= 8
		far := -1
		for i, a := range activeList {
			if far < 0 || a.iv.end > activeList[far].iv.end {
				far = i
			}
		}
		if far >= 0 && activeList[far].iv.end > iv.end {
			victim := activeList[far]
			delete(alloc.InReg, victim.iv.temp)
			alloc.StackOffset[victim.iv.temp] = spillOffset
			alloc.InReg[iv.temp] = victim.reg
			activeList[far] = active{iv: iv, reg: victim.reg}
			continue
		}
		alloc.StackOffset[iv.temp] = spillOffset
	}

	alloc.FrameSize = -spillOffset
	return alloc
}

// computeIntervals derives [firstDef-or-use, lastUse] per TempVar by a
// single linear scan over fn's instruction list — acceptable since this
// backend has no basic-block CFG analysis pass (spec.md §4.6 scopes
// register allocation to "local reuse", not global live-range
// splitting across loops).
func computeIntervals(fn *ir.Function) []interval {
	first := map[ir.TempVar]int{}
	last := map[ir.TempVar]int{}

	touch := func(t ir.TempVar, idx int) {
		if _, ok := first[t]; !ok {
			first[t] = idx
		}
		last[t] = idx
	}
	touchOperand := func(op ir.Operand, idx int) {
		if op.Kind == ir.OperandTemp {
			touch(op.Temp, idx)
		}
	}

	for i, inst := range fn.Instrs {
		if inst.Dst != 0 || i == 0 {
			touch(inst.Dst, i)
		}
		touchOperand(inst.A, i)
		touchOperand(inst.B, i)
		for _, a := range inst.Args {
			touchOperand(a, i)
		}
	}
	for _, p := range fn.Params {
		touch(p, 0)
	}

	intervals := make([]interval, 0, len(first))
	for t, s := range first {
		intervals = append(intervals, interval{temp: t, start: s, end: last[t]})
	}
	return intervals
}
