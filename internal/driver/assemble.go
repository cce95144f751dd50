package driver

import (
	stdelf "debug/elf"
	"fmt"

	"github.com/go-cppc/cppc/internal/backend"
	"github.com/go-cppc/cppc/internal/config"
	"github.com/go-cppc/cppc/internal/object/coff"
	"github.com/go-cppc/cppc/internal/object/elf"
)

// SectionInfo is the target-agnostic view of one output section, used
// by `cppc compile --dump-sections` so the CLI doesn't need to know
// which object format produced it (spec.md §4.7 supplement).
type SectionInfo struct {
	Name  string
	Size  int
	Align uint64
}

// Assemble concatenates every compiled function's code into one .text
// section, places the module's string-literal pool in .rodata/.rdata,
// and translates each function's Fixups into section-relative
// relocations, then hands the result to the target's object writer
// (spec.md §4.7). This is the one place backend.Module's per-function
// view gets flattened into the single-section-per-kind shape an object
// file actually stores. It also returns each section's dump-sections
// summary alongside the serialized bytes.
func Assemble(mod *backend.Module, target config.Target) ([]byte, []SectionInfo, error) {
	text, textSyms, relocs, err := layoutText(mod)
	if err != nil {
		return nil, nil, err
	}
	rodata := layoutStrings(mod.Strings)

	if target == config.TargetCOFF {
		return assembleCOFF(text, rodata, textSyms, relocs)
	}
	return assembleELF(text, rodata, textSyms, relocs)
}

type textSymbol struct {
	name   string
	offset int
	size   int
}

type textReloc struct {
	offset     int
	target     string
	pcRelative bool
	addend     int64
}

// layoutText concatenates every CompiledFunction.Code in module order
// and rewrites its Fixups from function-relative to .text-relative
// offsets.
func layoutText(mod *backend.Module) ([]byte, []textSymbol, []textReloc, error) {
	var code []byte
	var syms []textSymbol
	var relocs []textReloc

	for _, fn := range mod.Functions {
		if fn.State != backend.Finalized {
			return nil, nil, nil, fmt.Errorf("function %s was not finalized by the backend", fn.Name)
		}
		base := len(code)
		code = append(code, fn.Code...)
		syms = append(syms, textSymbol{name: fn.Name, offset: base, size: len(fn.Code)})
		for _, fx := range fn.Fixups {
			relocs = append(relocs, textReloc{
				offset:     base + fx.CodeOffset,
				target:     fx.Target,
				pcRelative: fx.PCRelative,
				addend:     fx.Addend,
			})
		}
	}
	return code, syms, relocs, nil
}

// layoutStrings concatenates the module's string-literal pool as
// NUL-terminated bytes in pool order. No symbol is defined for the
// individual strings.
func layoutStrings(strs []string) []byte {
	var out []byte
	for _, s := range strs {
		out = append(out, s...)
		out = append(out, 0)
	}
	return out
}

// definedSymbols is the set of names layoutText placed in .text —
// everything else referenced by a relocation is external (a runtime
// helper like __cppc_new, or a libc function).
func definedSymbols(syms []textSymbol) map[string]bool {
	set := make(map[string]bool, len(syms))
	for _, s := range syms {
		set[s.name] = true
	}
	return set
}

func assembleELF(text, rodata []byte, syms []textSymbol, relocs []textReloc) ([]byte, []SectionInfo, error) {
	defined := definedSymbols(syms)

	obj := &elf.Object{
		Sections: []elf.Section{
			{Name: ".text", Type: stdelf.SHT_PROGBITS, Flags: stdelf.SHF_ALLOC | stdelf.SHF_EXECINSTR, Data: text, Align: 16},
		},
	}
	if len(rodata) > 0 {
		obj.Sections = append(obj.Sections, elf.Section{Name: ".rodata", Type: stdelf.SHT_PROGBITS, Flags: stdelf.SHF_ALLOC, Data: rodata, Align: 1})
	}

	for _, s := range syms {
		obj.Symbols = append(obj.Symbols, elf.Symbol{Name: s.name, Value: uint64(s.offset), Size: uint64(s.size), Section: ".text", Binding: elf.BindGlobal, Type: elf.TypeFunc})
	}
	for name := range externalTargets(relocs, defined) {
		obj.Symbols = append(obj.Symbols, elf.Symbol{Name: name, Binding: elf.BindGlobal, Type: elf.TypeFunc})
	}

	for _, r := range relocs {
		typ := elf.R_X86_64_64
		if r.pcRelative {
			if defined[r.target] {
				typ = elf.R_X86_64_PC32
			} else {
				typ = elf.R_X86_64_PLT32
			}
		}
		obj.Relocs = append(obj.Relocs, elf.Relocation{Section: ".text", Offset: uint64(r.offset), Symbol: r.target, Type: typ, Addend: r.addend})
	}

	data, err := obj.Write()
	if err != nil {
		return nil, nil, err
	}
	return data, elfSectionInfo(obj), nil
}

func elfSectionInfo(obj *elf.Object) []SectionInfo {
	secs := obj.Sections()
	out := make([]SectionInfo, len(secs))
	for i, s := range secs {
		out[i] = SectionInfo{Name: s.Name, Size: s.Size, Align: s.Align}
	}
	return out
}

func assembleCOFF(text, rodata []byte, syms []textSymbol, relocs []textReloc) ([]byte, []SectionInfo, error) {
	defined := definedSymbols(syms)

	obj := &coff.Object{
		Sections: []coff.Section{
			{Name: ".text", Characteristics: coff.IMAGE_SCN_CNT_CODE | coff.IMAGE_SCN_MEM_EXECUTE | coff.IMAGE_SCN_MEM_READ, Data: text, Align: 16},
		},
	}
	if len(rodata) > 0 {
		obj.Sections = append(obj.Sections, coff.Section{Name: ".rdata", Characteristics: coff.IMAGE_SCN_CNT_INITIALIZED_DATA | coff.IMAGE_SCN_MEM_READ, Data: rodata, Align: 1})
	}

	for _, s := range syms {
		obj.Symbols = append(obj.Symbols, coff.Symbol{Name: s.name, Value: uint32(s.offset), Section: ".text", Class: coff.ClassExternal, IsFunc: true})
	}
	for name := range externalTargets(relocs, defined) {
		obj.Symbols = append(obj.Symbols, coff.Symbol{Name: name, Class: coff.ClassExternal})
	}

	for _, r := range relocs {
		typ := coff.RelAddr64
		if r.pcRelative {
			typ = coff.RelRel32
		}
		obj.Relocs = append(obj.Relocs, coff.Relocation{Section: ".text", Offset: uint32(r.offset), Symbol: r.target, Type: typ})
	}

	data, err := obj.Write()
	if err != nil {
		return nil, nil, err
	}
	return data, coffSectionInfo(obj), nil
}

func coffSectionInfo(obj *coff.Object) []SectionInfo {
	secs := obj.Sections()
	out := make([]SectionInfo, len(secs))
	for i, s := range secs {
		out[i] = SectionInfo{Name: s.Name, Size: s.Size, Align: uint64(s.Align)}
	}
	return out
}

func externalTargets(relocs []textReloc, defined map[string]bool) map[string]bool {
	out := map[string]bool{}
	for _, r := range relocs {
		if !defined[r.target] {
			out[r.target] = true
		}
	}
	return out
}
