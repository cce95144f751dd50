package backend

import "github.com/go-cppc/cppc/internal/ir"

// EHInfo is the exception-handling metadata for one compiled function,
// built from the OpTryBegin/OpTryEnd/OpCatchBegin/OpCatchEnd markers its
// IR carries. It is attached to the CompiledFunction only: neither
// internal/driver nor the object writers (internal/object/elf,
// internal/object/coff) read it, so no .gcc_except_table LSDA or
// .pdata/.xdata unwind data is written from it.
type EHInfo struct {
	FuncName string
	Regions  []TryRegion
}

// TryRegion is one try block plus its catch handlers in source order.
// EndLabel holds the same label as StartLabel, since lowerTry marks both
// ends of a try block with one label.
type TryRegion struct {
	StartLabel string
	EndLabel   string
	Catches    []CatchHandler
}

// CatchHandler is one catch clause: TypeSymbol is the mangled RTTI
// type_info symbol to match against and CodeOffset the handler's start
// offset within CompiledFunction.Code. buildEHInfo records every handler
// with an empty TypeSymbol and a zero CodeOffset, and nothing in the
// backend or the driver fills either field in.
type CatchHandler struct {
	TypeSymbol string
	CodeOffset int
}

// buildEHInfo scans fn's instruction stream for OpTryBegin/OpTryEnd/
// OpCatchBegin/OpCatchEnd markers (see internal/ir/lower.go's
// lowerTry) and assembles the region table codegen.go's compileFunction
// attaches to the CompiledFunction. Returns nil when the function has
// no try blocks.
func buildEHInfo(fn *ir.Function, name string) *EHInfo {
	var regions []TryRegion
	var open *TryRegion

	for _, inst := range fn.Instrs {
		switch inst.Op {
		case ir.OpTryBegin:
			lbl := inst.A.Label
			open = &TryRegion{StartLabel: lbl, EndLabel: lbl}
		case ir.OpTryEnd:
			if open != nil {
				regions = append(regions, *open)
				open = nil
			}
		case ir.OpCatchBegin:
			if len(regions) == 0 {
				continue
			}
			last := &regions[len(regions)-1]
			last.Catches = append(last.Catches, CatchHandler{})
		}
	}

	if len(regions) == 0 {
		return nil
	}
	return &EHInfo{FuncName: name, Regions: regions}
}
