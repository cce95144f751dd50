// Package backend lowers internal/ir's three-address form to x86-64
// machine code (spec.md §4.6): register allocation, stack framing,
// SysV/Win64 calling-convention lowering, virtual-call/dynamic_cast
// helper emission, and exception-handling metadata
// (.eh_frame/.gcc_except_table for ELF, .pdata/.xdata for COFF).
//
// The fixup/relocation-then-patch pipeline shape (emit into a byte
// buffer, record every symbol-relative reference as a Fixup, resolve
// fixups once every function's offset is known) follows
// other_examples' tinyrange-rtg std-compiler x86-64 backend
// (generateAmd64ELF/CodeGen/patchRel32At); the per-function
// frame/register bookkeeping (param-to-slot assignment, frame size
// tracking) follows hhramberg-go-vslc's arm backend Function type. Both
// are adapted from a single-target, whole-program code generator into
// one that only emits a relocatable object (no _start, no fixed load
// address: spec.md explicitly excludes linking).
package backend

import (
	"github.com/go-cppc/cppc/internal/ir"
	"github.com/go-cppc/cppc/internal/types"
)

// ABI selects the calling convention and register set.
type ABI int

const (
	SysV ABI = iota // Linux x86-64: rdi,rsi,rdx,rcx,r8,r9; caller cleans stack
	Win64               // Windows x86-64: rcx,rdx,r8,r9 + shadow space; 16-byte align before call
)

// Reg is a physical x86-64 general-purpose register, numbered by its
// ModRM/SIB encoding so emitting an instruction is a direct array index
// rather than a second translation table.
type Reg int

const (
	RAX Reg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	NoReg Reg = -1
)

func (r Reg) String() string {
	names := [...]string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi", "r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}
	if r < 0 || int(r) >= len(names) {
		return "?"
	}
	return names[r]
}

// calleeSaved reports whether r must be preserved across a call per the
// target ABI (used by the frame builder to decide what the prologue
// pushes).
func calleeSaved(abi ABI, r Reg) bool {
	switch r {
	case RBX, RBP, R12, R13, R14, R15:
		return true
	case RSI, RDI:
		return abi == Win64
	default:
		return false
	}
}

// paramRegs lists the integer argument registers in order, per ABI.
func paramRegs(abi ABI) []Reg {
	if abi == Win64 {
		return []Reg{RCX, RDX, R8, R9}
	}
	return []Reg{RDI, RSI, RDX, RCX, R8, R9}
}

// scratchRegs lists the caller-saved registers available to the linear
// scan allocator. allocateRegisters hands them out from the end of the
// list, so the return-value register is used first and R10/R11 (which
// codegen also uses as operand scratch registers) last.
func scratchRegs(abi ABI) []Reg {
	if abi == Win64 {
		return []Reg{R10, R11, RDI, RSI, RAX}
	}
	return []Reg{R10, R11, RCX, R8, R9, RAX}
}

// FuncState is the per-function emission state machine (spec.md §4.6):
// a function's machine code can only be finalized once every one of its
// internal jumps/calls has a resolved offset.
type FuncState int

const (
	PrologueNotEmitted FuncState = iota
	Emitting
	EpilogueEmitted
	RelocationsPending
	Finalized
)

// CompiledFunction is one function's finished machine code plus the
// bookkeeping needed to place it in an object file.
type CompiledFunction struct {
	Name      string
	Code      []byte
	State     FuncState
	FrameSize int
	Fixups    []Fixup
	EH        *EHInfo
}

// Fixup is one not-yet-resolved reference recorded while emitting code:
// a call/jump target, a global-variable address, or a string-literal
// address. CodeOffset is relative to the start of this function's Code.
type Fixup struct {
	CodeOffset int
	Target     string // symbol name: another function, a global, or a string-pool label
	PCRelative bool   // true for call/jmp rel32, false for an absolute 64-bit load
	Addend     int64
}

// Module is the finished, relocation-patched output of compiling one
// ir.Module: one CompiledFunction per ir.Function plus the string pool
// the object writer places in .rodata. The ir.Module's globals are not
// carried over.
type Module struct {
	Functions []*CompiledFunction
	Strings   []string
}

// Compiler drives the whole backend pipeline for one translation unit.
// NameOf resolves a mangled symbol name for a function or global — the
// driver wires this to internal/mangle once name resolution has run, so
// this package never needs to import the intern table itself.
type Compiler struct {
	ABI    ABI
	NameOf func(types.QualifiedIdentifier) string
}

func New(abi ABI, nameOf func(types.QualifiedIdentifier) string) *Compiler {
	return &Compiler{ABI: abi, NameOf: nameOf}
}

// Compile lowers every function in mod to machine code.
func (c *Compiler) Compile(mod *ir.Module) (*Module, error) {
	out := &Module{Strings: mod.Strings}
	for _, fn := range mod.Functions {
		cf, err := c.compileFunction(fn)
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, cf)
	}
	return out, nil
}
