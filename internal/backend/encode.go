package backend

import (
	"encoding/binary"

	"github.com/go-cppc/cppc/internal/ir"
)

// This file is the x86-64 instruction encoder codegen.go drives: each
// method appends a handful of bytes to e.code for one operation. Only
// the register-direct forms are encoded (spec.md §4.6 scopes the
// allocator to registers + rbp-relative spill slots, never general
// memory operands), which keeps ModRM at mod=11 except for the fixed
// rbp-relative load/store helpers and emitVirtualCall, whose vtable
// load and indirect call use memory operands (mod=00/10).

func (e *emitter) emitByte(bs ...byte) { e.code = append(e.code, bs...) }

func regBits(r Reg) (bits byte, ext bool) {
	if r < 0 {
		return 0, false
	}
	return byte(r) & 7, r >= R8
}

// rex builds a REX prefix; w selects 64-bit operand size, r/x/b extend
// the ModRM.reg / SIB.index / ModRM.rm (or opcode+reg) fields.
func rex(w, r, x, b bool) byte {
	v := byte(0x40)
	if w {
		v |= 1 << 3
	}
	if r {
		v |= 1 << 2
	}
	if x {
		v |= 1 << 1
	}
	if b {
		v |= 1
	}
	return v
}

func modrm(mod, regField, rm byte) byte {
	return mod<<6 | (regField&7)<<3 | (rm & 7)
}

func (e *emitter) emitMovRegReg(dst, src Reg) {
	if dst == src {
		return
	}
	sb, sx := regBits(src)
	db, dx := regBits(dst)
	e.emitByte(rex(true, sx, false, dx), 0x89, modrm(3, sb, db))
}

func (e *emitter) emitMovImm64(dst Reg, v int64) {
	db, dx := regBits(dst)
	e.emitByte(rex(true, false, false, dx), 0xB8+db)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	e.emitByte(buf[:]...)
}

func (e *emitter) emitPushReg(r Reg) {
	b, ext := regBits(r)
	if ext {
		e.emitByte(rex(false, false, false, true))
	}
	e.emitByte(0x50 + b)
}

func (e *emitter) emitPopReg(r Reg) {
	b, ext := regBits(r)
	if ext {
		e.emitByte(rex(false, false, false, true))
	}
	e.emitByte(0x58 + b)
}

func (e *emitter) emitSubRspImm(v int32) {
	e.emitByte(rex(true, false, false, false), 0x81, modrm(3, 5, byte(RSP)))
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	e.emitByte(buf[:]...)
}

// emitLoadSpill / emitStoreSpill address a spill slot as [rbp+disp32].
func (e *emitter) emitLoadSpill(dst Reg, offset int) {
	db, dx := regBits(dst)
	e.emitByte(rex(true, dx, false, false), 0x8B, modrm(2, db, byte(RBP)&7))
	e.emitDisp32(offset)
}

func (e *emitter) emitStoreSpill(src Reg, offset int) {
	sb, sx := regBits(src)
	e.emitByte(rex(true, sx, false, false), 0x89, modrm(2, sb, byte(RBP)&7))
	e.emitDisp32(offset)
}

func (e *emitter) emitDisp32(v int) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(int32(v)))
	e.emitByte(buf[:]...)
}

// aluOpcode maps an arithmetic/bitwise IR opcode to its r/m64,r64 ALU
// opcode byte (Intel manual's /r group-1 encodings).
func aluOpcode(op ir.Opcode) byte {
	switch op {
	case ir.OpAdd:
		return 0x01
	case ir.OpOr:
		return 0x09
	case ir.OpAnd:
		return 0x21
	case ir.OpSub:
		return 0x29
	case ir.OpXor:
		return 0x31
	default:
		return 0x01
	}
}

func (e *emitter) emitALU(op ir.Opcode, dst, src Reg) {
	if op == ir.OpMul {
		sb, sx := regBits(src)
		db, dx := regBits(dst)
		e.emitByte(rex(true, dx, false, sx), 0x0F, 0xAF, modrm(3, db, sb))
		return
	}
	sb, sx := regBits(src)
	db, dx := regBits(dst)
	e.emitByte(rex(true, sx, false, dx), aluOpcode(op), modrm(3, sb, db))
}

func (e *emitter) emitCmp(a, b Reg) {
	bb, bx := regBits(b)
	ab, ax := regBits(a)
	e.emitByte(rex(true, bx, false, ax), 0x39, modrm(3, bb, ab))
}

func (e *emitter) emitCmpImm0(r Reg) {
	rb, rx := regBits(r)
	e.emitByte(rex(true, false, false, rx), 0x83, modrm(3, 7, rb), 0x00)
}

func (e *emitter) emitIDiv(divisor Reg) {
	b, ext := regBits(divisor)
	e.emitByte(rex(true, false, false, ext), 0xF7, modrm(3, 7, b))
}

func (e *emitter) emitShift(op ir.Opcode, dst Reg) {
	db, dx := regBits(dst)
	field := byte(4) // shl /4
	if op == ir.OpShr {
		field = 5 // shr /5 (logical)
	}
	e.emitByte(rex(true, false, false, dx), 0xD3, modrm(3, field, db))
}

func (e *emitter) emitUnary(field byte, r Reg) {
	b, ext := regBits(r)
	e.emitByte(rex(true, false, false, ext), 0xF7, modrm(3, field, b))
}

// setccCode maps a comparison IR opcode to the SETcc condition code
// (Intel manual Appendix B condition-code table).
func setccCode(op ir.Opcode) byte {
	switch op {
	case ir.OpLt:
		return 0x9C // setl
	case ir.OpLe:
		return 0x9E // setle
	case ir.OpGt:
		return 0x9F // setg
	case ir.OpGe:
		return 0x9D // setge
	case ir.OpEq:
		return 0x94 // sete
	case ir.OpNe:
		return 0x95 // setne
	default:
		return 0x94
	}
}

func (e *emitter) emitSetcc(op ir.Opcode, r Reg) {
	b, ext := regBits(r)
	e.emitByte(rex(false, false, false, ext), 0x0F, setccCode(op), modrm(3, 0, b))
	e.emitMovzx8(r)
}

func (e *emitter) emitSetccEq(r Reg) {
	b, ext := regBits(r)
	e.emitByte(rex(false, false, false, ext), 0x0F, 0x94, modrm(3, 0, b))
	e.emitMovzx8(r)
}

// emitMovzx8 zero-extends r's low byte (as SETcc wrote it) across the
// rest of the 64-bit register so it is safe to use as a boolean value.
func (e *emitter) emitMovzx8(r Reg) {
	b, ext := regBits(r)
	e.emitByte(rex(true, ext, false, ext), 0x0F, 0xB6, modrm(3, b, b))
}

func (e *emitter) emitTestReg(r Reg) {
	b, ext := regBits(r)
	e.emitByte(rex(true, ext, false, ext), 0x85, modrm(3, b, b))
}

// emitJmp / emitJccFalse append a 5-byte (or 6-byte for jcc) branch
// with a placeholder rel32, recording a pendingJump resolved once every
// label in the function has a known offset.
func (e *emitter) emitJmp(label string) {
	e.emitByte(0xE9, 0, 0, 0, 0)
	e.recordPending(label, 4)
}

func (e *emitter) emitJccFalse(label string) {
	e.emitByte(0x0F, 0x84, 0, 0, 0, 0) // je rel32: branch taken when ZF=1, i.e. cond==0
	e.recordPending(label, 4)
}

func (e *emitter) recordPending(label string, fieldBytes int) {
	fieldOff := len(e.code) - fieldBytes
	e.pending = append(e.pending, pendingJump{fieldOffset: fieldOff, instrEnd: len(e.code), label: label})
}

func (e *emitter) patchI32(offset int, v int32) {
	binary.LittleEndian.PutUint32(e.code[offset:offset+4], uint32(v))
}

// emitCallSymbol emits a call rel32 against an external/global symbol,
// recording a Fixup the object writer resolves against the function's
// final placement in .text (spec.md §4.7 relocation handling).
func (e *emitter) emitCallSymbol(target string) {
	off := len(e.code)
	e.emitByte(0xE8, 0, 0, 0, 0)
	e.fixups = append(e.fixups, Fixup{CodeOffset: off + 1, Target: target, PCRelative: true, Addend: -4})
}

func (e *emitter) emitCallReg(r Reg) {
	b, ext := regBits(r)
	e.emitByte(rex(false, false, false, ext), 0xFF, modrm(3, 2, b))
}

// emitVirtualCall loads the object's vtable pointer, indexes slot, and
// calls through it: mov r11, [obj]; call [r11+slot*8].
func (e *emitter) emitVirtualCall(obj Reg, slot int) {
	ob, ox := regBits(obj)
	r11b, r11x := regBits(R11)
	e.emitByte(rex(true, r11x, false, ox), 0x8B, modrm(0, r11b, ob))
	e.emitByte(rex(true, false, false, r11x), 0xFF, modrm(2, 2, r11b))
	e.emitDisp32(slot * 8)
}
