package backend

import (
	"encoding/binary"
	"fmt"
)

// Disassemble decodes code (normally a CompiledFunction.Code) back into
// one text line per instruction, in the subset this package's own
// encoder in encode.go emits. It exists for the `compile --disassemble`
// CLI flag and for tests that want to assert on emitted instruction
// shape without hand-decoding bytes; it is not a general x86-64
// disassembler and falls back to a raw .byte directive on anything it
// doesn't recognize rather than guessing.
func Disassemble(code []byte) []string {
	var lines []string
	i := 0
	for i < len(code) {
		start := i
		n, text := decodeOne(code[i:])
		if n == 0 {
			text = fmt.Sprintf(".byte 0x%02x", code[i])
			n = 1
		}
		lines = append(lines, fmt.Sprintf("%04x: %s", start, text))
		i += n
	}
	return lines
}

func decodeOne(b []byte) (int, string) {
	if len(b) == 0 {
		return 0, ""
	}

	i := 0
	var r rexBits
	if b[i]&0xF0 == 0x40 {
		r = decodeRex(b[i])
		i++
	}
	if i >= len(b) {
		return 0, ""
	}

	op := b[i]
	switch op {
	case 0xC3:
		return i + 1, "ret"
	case 0x99:
		return i + 1, "cqo"
	}

	if op >= 0x50 && op <= 0x57 {
		reg := regName(op-0x50, r.b)
		return i + 1, "push " + reg
	}
	if op >= 0x58 && op <= 0x5F {
		reg := regName(op-0x58, r.b)
		return i + 1, "pop " + reg
	}
	if op >= 0xB8 && op <= 0xBF {
		if len(b) < i+1+8 {
			return 0, ""
		}
		v := binary.LittleEndian.Uint64(b[i+1 : i+9])
		return i + 9, fmt.Sprintf("mov %s, 0x%x", regName(op-0xB8, r.b), v)
	}

	switch op {
	case 0x89, 0x01, 0x09, 0x21, 0x29, 0x31, 0x39, 0x8B:
		if len(b) < i+2 {
			return 0, ""
		}
		mreg, mrm, mod := decodeModRM(b[i+1])
		mnemonic := map[byte]string{0x89: "mov", 0x01: "add", 0x09: "or", 0x21: "and", 0x29: "sub", 0x31: "xor", 0x39: "cmp", 0x8B: "mov"}[op]
		if mod == 3 {
			return i + 2, fmt.Sprintf("%s %s, %s", mnemonic, regName(mrm, r.b), regName(mreg, r.r))
		}
		return 0, ""
	case 0x0F:
		if len(b) < i+2 {
			return 0, ""
		}
		sub := b[i+1]
		if sub == 0xAF {
			mreg, mrm, mod := decodeModRM(b[i+2])
			if mod == 3 {
				return i + 3, fmt.Sprintf("imul %s, %s", regName(mreg, r.r), regName(mrm, r.b))
			}
		}
		if sub == 0xB6 {
			mreg, mrm, mod := decodeModRM(b[i+2])
			if mod == 3 {
				return i + 3, fmt.Sprintf("movzx %s, %sb", regName(mreg, r.r), regName(mrm, r.b))
			}
		}
		if sub >= 0x90 && sub <= 0x9F {
			return i + 3, fmt.Sprintf("set%s %s", ccSuffix(sub), "reg")
		}
		if sub == 0x84 {
			if len(b) < i+6 {
				return 0, ""
			}
			rel := int32(binary.LittleEndian.Uint32(b[i+2 : i+6]))
			return i + 6, fmt.Sprintf("je %+d", rel)
		}
	case 0x81:
		if len(b) < i+6 {
			return 0, ""
		}
		_, mrm, mod := decodeModRM(b[i+1])
		if mod == 3 {
			imm := int32(binary.LittleEndian.Uint32(b[i+2 : i+6]))
			return i + 6, fmt.Sprintf("sub %s, 0x%x", regName(mrm, r.b), imm)
		}
	case 0x83:
		if len(b) < i+3 {
			return 0, ""
		}
		_, mrm, mod := decodeModRM(b[i+1])
		if mod == 3 {
			return i + 3, fmt.Sprintf("cmp %s, 0x%x", regName(mrm, r.b), b[i+2])
		}
	case 0xD3:
		if len(b) < i+2 {
			return 0, ""
		}
		reg, mrm, mod := decodeModRM(b[i+1])
		if mod == 3 {
			mn := "shl"
			if reg == 5 {
				mn = "shr"
			}
			return i + 2, fmt.Sprintf("%s %s, cl", mn, regName(mrm, r.b))
		}
	case 0xF7:
		if len(b) < i+2 {
			return 0, ""
		}
		reg, mrm, mod := decodeModRM(b[i+1])
		if mod == 3 {
			switch reg {
			case 2:
				return i + 2, "not " + regName(mrm, r.b)
			case 3:
				return i + 2, "neg " + regName(mrm, r.b)
			case 7:
				return i + 2, "idiv " + regName(mrm, r.b)
			}
		}
	case 0x85:
		if len(b) < i+2 {
			return 0, ""
		}
		reg, mrm, mod := decodeModRM(b[i+1])
		if mod == 3 {
			return i + 2, fmt.Sprintf("test %s, %s", regName(mrm, r.b), regName(reg, r.r))
		}
	case 0xE8:
		if len(b) < i+5 {
			return 0, ""
		}
		rel := int32(binary.LittleEndian.Uint32(b[i+1 : i+5]))
		return i + 5, fmt.Sprintf("call %+d", rel)
	case 0xE9:
		if len(b) < i+5 {
			return 0, ""
		}
		rel := int32(binary.LittleEndian.Uint32(b[i+1 : i+5]))
		return i + 5, fmt.Sprintf("jmp %+d", rel)
	case 0xFF:
		if len(b) < i+2 {
			return 0, ""
		}
		reg, mrm, mod := decodeModRM(b[i+1])
		if reg == 2 && mod == 3 {
			return i + 2, "call " + regName(mrm, r.b)
		}
		if reg == 2 && mod == 2 {
			if len(b) < i+6 {
				return 0, ""
			}
			disp := int32(binary.LittleEndian.Uint32(b[i+2 : i+6]))
			return i + 6, fmt.Sprintf("call [%s+%d]", regName(mrm, r.b), disp)
		}
	}
	return 0, ""
}

type rexBits struct{ w, r, x, b bool }

func decodeRex(v byte) rexBits {
	return rexBits{w: v&8 != 0, r: v&4 != 0, x: v&2 != 0, b: v&1 != 0}
}

func decodeModRM(v byte) (reg, rm, mod byte) {
	return (v >> 3) & 7, v & 7, (v >> 6) & 3
}

var reg64Names = [...]string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi", "r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}

func regName(bits byte, ext bool) string {
	idx := int(bits)
	if ext {
		idx += 8
	}
	if idx < 0 || idx >= len(reg64Names) {
		return "?"
	}
	return reg64Names[idx]
}

func ccSuffix(op byte) string {
	names := map[byte]string{0x94: "e", 0x95: "ne", 0x9C: "l", 0x9D: "ge", 0x9E: "le", 0x9F: "g"}
	if s, ok := names[op]; ok {
		return s
	}
	return "?"
}
