package backend

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/go-cppc/cppc/internal/ir"
	"github.com/go-cppc/cppc/internal/types"
)

// addFunc builds the IR for `int add(int a, int b) { return a + b; }` by
// hand, the same shape internal/ir/lower.go would produce for it.
func addFunc() *ir.Function {
	const a, b, sum ir.TempVar = 1, 2, 3
	return &ir.Function{
		Params: []ir.TempVar{a, b},
		Instrs: []ir.Instruction{
			{Op: ir.OpAdd, Dst: sum, A: ir.TempOperand(a), B: ir.TempOperand(b)},
			{Op: ir.OpReturn, A: ir.TempOperand(sum)},
		},
		NumTemps: 4,
	}
}

func fixedName(name string) func(types.QualifiedIdentifier) string {
	return func(types.QualifiedIdentifier) string { return name }
}

func TestCompileFunctionProducesCodeAndReturn(t *testing.T) {
	c := New(SysV, fixedName("add"))
	cf, err := c.compileFunction(addFunc())
	if err != nil {
		t.Fatalf("compileFunction: %v", err)
	}
	if cf.Name != "add" {
		t.Fatalf("Name = %q, want add", cf.Name)
	}
	if cf.State != Finalized {
		t.Fatalf("State = %v, want Finalized", cf.State)
	}
	if len(cf.Code) == 0 {
		t.Fatal("expected non-empty machine code")
	}
	if cf.Code[len(cf.Code)-1] != 0xC3 {
		t.Fatalf("function must end in ret (0xC3), got 0x%02x", cf.Code[len(cf.Code)-1])
	}
}

func TestCompileModuleWalksEveryFunction(t *testing.T) {
	c := New(Win64, fixedName("f"))
	mod := &ir.Module{Functions: []*ir.Function{addFunc(), addFunc()}, Strings: []string{"hi"}}
	out, err := c.Compile(mod)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(out.Functions) != 2 {
		t.Fatalf("got %d compiled functions, want 2", len(out.Functions))
	}
	if len(out.Strings) != 1 || out.Strings[0] != "hi" {
		t.Fatalf("string pool not threaded through: %v", out.Strings)
	}
}

func TestAllocateRegistersAssignsParamsAndResult(t *testing.T) {
	alloc := allocateRegisters(addFunc(), SysV)
	for _, tv := range []ir.TempVar{1, 2, 3} {
		_, inReg := alloc.InReg[tv]
		_, spilled := alloc.StackOffset[tv]
		if !inReg && !spilled {
			t.Fatalf("temp %d was neither allocated a register nor spilled", tv)
		}
	}
}

func TestDisassembleRoundTripsEmittedReturn(t *testing.T) {
	c := New(SysV, fixedName("add"))
	cf, err := c.compileFunction(addFunc())
	if err != nil {
		t.Fatalf("compileFunction: %v", err)
	}
	lines := Disassemble(cf.Code)
	if len(lines) == 0 {
		t.Fatal("Disassemble returned no instructions")
	}
	last := lines[len(lines)-1]
	if !strings.Contains(last, "ret") {
		t.Fatalf("last disassembled line = %q, want it to mention ret", last)
	}
}

func TestBranchesResolveToValidOffsets(t *testing.T) {
	const cond, one ir.TempVar = 1, 2
	fn := &ir.Function{
		Params: []ir.TempVar{cond},
		Instrs: []ir.Instruction{
			{Op: ir.OpBranch, A: ir.TempOperand(cond), B: ir.LabelOperand("else")},
			{Op: ir.OpReturn, A: ir.ConstIntOperand(1)},
			{Op: ir.OpJmp, A: ir.LabelOperand("end")},
			{Op: ir.OpLabel, A: ir.LabelOperand("else")},
			{Op: ir.OpReturn, A: ir.ConstIntOperand(0)},
			{Op: ir.OpLabel, A: ir.LabelOperand("end")},
		},
		NumTemps: 3,
	}
	c := New(SysV, fixedName("branchy"))
	cf, err := c.compileFunction(fn)
	if err != nil {
		t.Fatalf("compileFunction: %v", err)
	}
	if len(cf.Code) == 0 {
		t.Fatal("expected emitted code for a function with control flow")
	}
	i := bytes.Index(cf.Code, []byte{0x0F, 0x84})
	if i < 0 || i+6 > len(cf.Code) {
		t.Fatalf("no je rel32 emitted for the OpBranch: % x", cf.Code)
	}
	target := i + 6 + int(int32(binary.LittleEndian.Uint32(cf.Code[i+2:i+6])))
	if target <= i+6 || target >= len(cf.Code) {
		t.Fatalf("je at %d targets %d, want a forward offset inside the %d-byte function", i, target, len(cf.Code))
	}
}

func TestCalleeSavedDiffersByABI(t *testing.T) {
	if calleeSaved(SysV, RSI) {
		t.Fatal("RSI is caller-saved under SysV")
	}
	if !calleeSaved(Win64, RSI) {
		t.Fatal("RSI is callee-saved under Win64")
	}
	if !calleeSaved(SysV, RBX) || !calleeSaved(Win64, RBX) {
		t.Fatal("RBX is callee-saved under both ABIs")
	}
}

func TestBuildEHInfoNilWithoutTryBlocks(t *testing.T) {
	if eh := buildEHInfo(addFunc(), "add"); eh != nil {
		t.Fatalf("expected nil EHInfo for a function without try blocks, got %+v", eh)
	}
}

func TestBuildEHInfoCapturesTryRegion(t *testing.T) {
	fn := &ir.Function{
		Instrs: []ir.Instruction{
			{Op: ir.OpTryBegin, A: ir.LabelOperand("try0")},
			{Op: ir.OpTryEnd, A: ir.LabelOperand("try0")},
			{Op: ir.OpCatchBegin},
			{Op: ir.OpCatchEnd},
		},
	}
	eh := buildEHInfo(fn, "f")
	if eh == nil || len(eh.Regions) != 1 {
		t.Fatalf("expected one try region, got %+v", eh)
	}
}
