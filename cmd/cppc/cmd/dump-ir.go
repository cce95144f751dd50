package cmd

import (
	"fmt"
	"os"

	"github.com/go-cppc/cppc/internal/config"
	"github.com/go-cppc/cppc/internal/driver"
	"github.com/go-cppc/cppc/internal/ir"
	"github.com/spf13/cobra"
)

var dumpIRCmd = &cobra.Command{
	Use:   "dump-ir [file]",
	Short: "Compile a translation unit and print its lowered IR",
	Long: `dump-ir runs a translation unit through driver.Compile, the full
pipeline (template instantiation, constexpr evaluation, internal/ir
lowering (spec.md §4.5), mangling and codegen), then prints every
lowered function's instruction list. A diagnostic from any phase, the
backend included, makes it print the diagnostics and exit with the
compile-error code without printing the IR.`,
	Args: cobra.ExactArgs(1),
	RunE: runDumpIR,
}

func init() {
	rootCmd.AddCommand(dumpIRCmd)
}

func runDumpIR(cmd *cobra.Command, args []string) error {
	filename := args[0]
	src, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	d := driver.New(defaultDumpIROptions(filename))
	res, errs := d.Compile(string(src), filename)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.Format())
		}
		os.Exit(int(driver.ExitCompile))
	}

	mod := res.Module
	fmt.Printf("module: %d function(s), %d global(s), %d string(s)\n", len(mod.Functions), len(mod.Globals), len(mod.Strings))
	for _, fn := range mod.Functions {
		dumpFunction(fn)
	}
	return nil
}

func defaultDumpIROptions(filename string) config.Options {
	opts := config.Default()
	opts.InputPath = filename
	return opts
}

func dumpFunction(fn *ir.Function) {
	fmt.Printf("\nfunc %s (%d param(s), %d temp(s), virtual=%v slot=%d)\n",
		funcLabel(fn), len(fn.Params), fn.NumTemps, fn.IsVirtual, fn.VTableSlot)
	for i, inst := range fn.Instrs {
		fmt.Printf("  %4d: %s\n", i, dumpInstr(inst))
	}
}

// funcLabel prints a function's name. Name is a types.QualifiedIdentifier,
// which (unlike most AST/IR payloads) carries no human-readable String()
// of its own -- it's resolved only by internal/mangle, which needs a
// live intern/nsreg table this command doesn't build. The raw handle
// pair is still useful to tell functions apart.
func funcLabel(fn *ir.Function) string {
	return fmt.Sprintf("ns#%d/name#%d", fn.Name.Namespace, fn.Name.Name)
}

func dumpInstr(inst ir.Instruction) string {
	name, ok := opcodeNames[inst.Op]
	if !ok {
		name = fmt.Sprintf("op(%d)", inst.Op)
	}
	s := name
	if inst.Dst != 0 {
		s = fmt.Sprintf("t%d = %s", inst.Dst, name)
	}
	if inst.A.Kind != ir.OperandNone {
		s += " " + dumpOperand(inst.A)
	}
	if inst.B.Kind != ir.OperandNone {
		s += ", " + dumpOperand(inst.B)
	}
	for _, a := range inst.Args {
		s += " " + dumpOperand(a)
	}
	return s
}

func dumpOperand(op ir.Operand) string {
	switch op.Kind {
	case ir.OperandTemp:
		return fmt.Sprintf("t%d", op.Temp)
	case ir.OperandConstInt:
		return fmt.Sprintf("#%d", op.Int)
	case ir.OperandConstFloat:
		return fmt.Sprintf("#%g", op.Float)
	case ir.OperandLabel:
		return op.Label
	case ir.OperandSymbol:
		return fmt.Sprintf("ns#%d/name#%d", op.Sym.Namespace, op.Sym.Name)
	case ir.OperandSlot:
		return fmt.Sprintf("slot#%d", op.Int)
	default:
		return "-"
	}
}

var opcodeNames = map[ir.Opcode]string{
	ir.OpAdd: "add", ir.OpSub: "sub", ir.OpMul: "mul", ir.OpDiv: "div", ir.OpMod: "mod",
	ir.OpAnd: "and", ir.OpOr: "or", ir.OpXor: "xor", ir.OpShl: "shl", ir.OpShr: "shr",
	ir.OpLt: "lt", ir.OpLe: "le", ir.OpGt: "gt", ir.OpGe: "ge", ir.OpEq: "eq", ir.OpNe: "ne",
	ir.OpNeg: "neg", ir.OpNot: "not", ir.OpBitNot: "bitnot",
	ir.OpCopy: "copy", ir.OpLoad: "load", ir.OpStore: "store", ir.OpAddr: "addr", ir.OpDeref: "deref",
	ir.OpElemAddr: "elem-addr", ir.OpMemberAddr: "member-addr", ir.OpComputeAddress: "compute-address",
	ir.OpLabel: "label", ir.OpJmp: "jmp", ir.OpBranch: "branch", ir.OpReturn: "return",
	ir.OpCallDirect: "call-direct", ir.OpCallIndirect: "call-indirect", ir.OpCallVirtual: "call-virtual", ir.OpCtorCall: "ctor-call",
	ir.OpDynamicCast: "dynamic-cast", ir.OpNew: "new", ir.OpDelete: "delete",
	ir.OpTryBegin: "try-begin", ir.OpTryEnd: "try-end", ir.OpCatchBegin: "catch-begin", ir.OpCatchEnd: "catch-end",
	ir.OpThrow: "throw",
}
