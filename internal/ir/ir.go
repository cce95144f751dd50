// Package ir implements the three-address intermediate representation
// spec.md §4.5 lowers the AST into: a flat instruction sequence per
// function that internal/backend consumes. The opcode/payload shape
// follows the teacher's internal/bytecode.OpCode + fixed-payload
// instruction design (internal/bytecode/instruction.go), adapted from a
// stack machine to a three-address form since the backend needs operands
// named by TempVar rather than implicit stack position.
package ir

import "github.com/go-cppc/cppc/internal/types"

// TempVar numbers one SSA-like intermediate result within a Function.
// Unlike a register, a TempVar is never reused for a different value;
// internal/backend's linear-scan allocator decides which ones share a
// physical register or spill slot.
type TempVar uint32

// ValueCategory classifies what a TempVar denotes, mirroring the C++
// value-category taxonomy a resolved Expr carries (spec.md §4.5).
type ValueCategory int

const (
	PRValue ValueCategory = iota
	LValue
	XValue
)

// LValueKind distinguishes the storage an lvalue TempVar refers to.
type LValueKind int

const (
	StorageNone LValueKind = iota
	StorageDirect                 // a named variable/global, Symbol set
	StorageIndirect                // *ptr, Base holds the pointer TempVar
	StorageMember                  // struct field, Base+Offset
	StorageElement                  // array element, Base+Index
	StorageTemporary                // a compiler-introduced temporary with no source name
)

// LValueInfo describes the storage behind an lvalue-categorized TempVar,
// letting the backend choose load-address vs. load-value without
// re-walking the AST (spec.md §4.5).
type LValueInfo struct {
	Kind    LValueKind
	Symbol  types.QualifiedIdentifier // StorageDirect
	Base    TempVar                   // StorageIndirect/Member/Element
	Offset  int64                     // StorageMember: byte offset
	Index   TempVar                   // StorageElement: index temp, 0 if constant
	ElemSize int64                    // StorageElement: element stride
}

// Opcode tags one IR instruction (spec.md §4.5's opcode list).
type Opcode int

const (
	// --- arithmetic / bitwise / comparison (binary: Dst = A op B) ---
	OpAdd Opcode = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe

	// --- unary (Dst = op A) ---
	OpNeg
	OpNot
	OpBitNot

	// --- data movement ---
	OpCopy           // Dst = A, same-width register move
	OpLoad           // Dst = *A (A is an address-valued TempVar)
	OpStore          // *A = B (store B through address A)
	OpAddr           // Dst = &A (A must be an lvalue TempVar)
	OpDeref          // alias of OpLoad kept distinct for disassembly clarity
	OpElemAddr       // Dst = A + Index*ElemSize (array indexing)
	OpMemberAddr     // Dst = A + Offset (member access, offset known)
	OpComputeAddress // Dst = Base + Index*Scale + Offset, folded in one op

	// --- control flow ---
	OpLabel   // declares a jump target; A holds the label name (LabelOperand)
	OpJmp     // unconditional branch to label A
	OpBranch  // conditional branch: if A == 0 goto label B, else fall through
	OpReturn  // return A (A may be the zero TempVar for `return;`)

	// --- calls ---
	OpCallDirect  // Dst = call Sym(Args...)
	OpCallIndirect // Dst = call *A(Args...)
	OpCallVirtual  // Dst = call vtable[A][Slot](Args...)
	OpCtorCall     // construct Sym on lvalue A with Args...

	// --- dynamic type support ---
	OpDynamicCast // Dst = dynamic_cast<Type>(A)

	// --- heap ---
	OpNew    // Dst = new Type[A] (A is element count, 1 for scalar new)
	OpDelete // delete A (B is the constant 1 for array delete, 0 otherwise)

	// --- exceptions ---
	OpTryBegin   // marks the start of a try region, A names its label
	OpTryEnd     // marks the end of a try region
	OpCatchBegin // marks the entry of one catch handler, Type is the caught type
	OpCatchEnd   // marks the end of a catch handler
	OpThrow      // throw A (A is the zero TempVar for a bare rethrow)
)

// OperandKind tags Operand's active field.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandTemp
	OperandConstInt
	OperandConstFloat
	OperandLabel
	OperandSymbol
	OperandSlot // virtual-call vtable slot index, carried in Int
)

// Operand is an instruction argument: a previously computed TempVar, an
// inline constant, a label name, or a qualified symbol (call target,
// global variable, type name for new/dynamic_cast).
type Operand struct {
	Kind  OperandKind
	Temp  TempVar
	Int   int64
	Float float64
	Label string
	Sym   types.QualifiedIdentifier
	Type  types.TypeIndex
}

func TempOperand(t TempVar) Operand        { return Operand{Kind: OperandTemp, Temp: t} }
func ConstIntOperand(v int64) Operand      { return Operand{Kind: OperandConstInt, Int: v} }
func ConstFloatOperand(v float64) Operand  { return Operand{Kind: OperandConstFloat, Float: v} }
func LabelOperand(name string) Operand     { return Operand{Kind: OperandLabel, Label: name} }
func SymbolOperand(q types.QualifiedIdentifier) Operand {
	return Operand{Kind: OperandSymbol, Sym: q}
}

// Instruction is one three-address IR op: Dst := A <Op> B, with Args
// used only by the call/ctor-call family.
type Instruction struct {
	Op   Opcode
	Dst  TempVar
	A, B Operand
	Args []Operand
	Type types.TypeIndex // result type of Dst, 0 for instructions with no result
}

// Function is one lowered IR function body.
type Function struct {
	Name       types.QualifiedIdentifier
	Params     []TempVar
	Instrs     []Instruction
	NumTemps   TempVar
	Categories map[TempVar]ValueCategory
	LValues    map[TempVar]*LValueInfo
	IsVirtual  bool
	VTableSlot int // -1 if non-virtual
}

// Module is the lowered form of one translation unit: every function
// definition plus the global variables and string literals it needs.
type Module struct {
	Functions []*Function
	Globals   []GlobalVar
	Strings   []string // rodata string-literal pool, indexed by position
}

// GlobalVar is one namespace- or file-scope variable requiring storage.
type GlobalVar struct {
	Name types.QualifiedIdentifier
	Type types.TypeIndex
	Init []Instruction // constant-folded initializer, empty for zero-init
}
