// Package elf writes an ELF64 relocatable object file (ET_REL) for the
// Linux/SysV target, per spec.md §4.7: a fixed section list
// (.text/.rodata/.data/.data.rel.ro/.bss/.eh_frame/.gcc_except_table/
// .symtab/.strtab/.shstrtab) plus R_X86_64_64/PC32/PLT32 relocations. It
// has no vtable or RTTI layout logic of its own. Section/symbol/relocation struct layouts reuse the
// standard library's debug/elf fixed-size types (Header64, Section64,
// Sym64, Rela64) so the byte layout matches the format debug/elf itself
// parses back, rather than hand-rolling a second struct definition for
// the same wire shape.
package elf

import (
	"bytes"
	"encoding/binary"
	"debug/elf"
)

// Section is one input section this writer will place in the object
// file, in the fixed order spec.md §4.7 names.
type Section struct {
	Name  string
	Type  elf.SectionType
	Flags elf.SectionFlag
	Data  []byte
	Align uint64
}

// RelocType enumerates the three relocation kinds spec.md §4.7 requires.
type RelocType int

const (
	R_X86_64_64 RelocType = iota
	R_X86_64_PC32
	R_X86_64_PLT32
)

func (r RelocType) elfType() elf.R_X86_64 {
	switch r {
	case R_X86_64_64:
		return elf.R_X86_64_64
	case R_X86_64_PC32:
		return elf.R_X86_64_PC32
	default:
		return elf.R_X86_64_PLT32
	}
}

// Relocation is one entry to be applied against Section at Offset,
// targeting Symbol with Addend (spec.md §4.7's RELA convention — ELF
// x86-64 objects always carry explicit addends).
type Relocation struct {
	Section string
	Offset  uint64
	Symbol  string
	Type    RelocType
	Addend  int64
}

// SymBinding/SymType mirror the subset of STB_*/STT_* this writer emits.
type SymBinding int

const (
	BindLocal SymBinding = iota
	BindGlobal
	BindWeak
)

type SymType int

const (
	TypeNone SymType = iota
	TypeObject
	TypeFunc
	TypeSection
)

// Symbol is one entry destined for .symtab.
type Symbol struct {
	Name    string
	Value   uint64
	Size    uint64
	Section string // empty means SHN_UNDEF (an external reference)
	Binding SymBinding
	Type    SymType
}

// Object accumulates sections, symbols, and relocations for one
// translation unit's output, then serializes them with Write.
type Object struct {
	Sections []Section
	Symbols  []Symbol
	Relocs   []Relocation
}

// sectionOrder is the fixed layout spec.md §4.7 names; sections the
// caller never populated are simply omitted rather than emitted empty,
// except .symtab/.strtab/.shstrtab which this writer always builds.
var sectionOrder = []string{
	".text", ".rodata", ".data", ".data.rel.ro", ".bss",
	".eh_frame", ".gcc_except_table",
}

// SectionSummary is the dump-sections/go-snaps introspection view of one
// section: enough to golden-test layout without comparing raw bytes.
type SectionSummary struct {
	Name  string
	Size  int
	Align uint64
	Flags elf.SectionFlag
}

// Sections reports the object's sections in the same fixed order Write
// emits them, for `cppc compile --dump-sections` and golden tests.
func (o *Object) Sections() []SectionSummary {
	ordered := o.orderedSections()
	out := make([]SectionSummary, len(ordered))
	for i, s := range ordered {
		out[i] = SectionSummary{Name: s.Name, Size: len(s.Data), Align: s.Align, Flags: s.Flags}
	}
	return out
}

// orderedSections returns the accumulated sections in spec.md §4.7's
// fixed layout, with any caller-supplied section outside that list
// appended afterward.
func (o *Object) orderedSections() []*Section {
	byName := make(map[string]*Section, len(o.Sections))
	for i := range o.Sections {
		byName[o.Sections[i].Name] = &o.Sections[i]
	}

	var ordered []*Section
	for _, name := range sectionOrder {
		if s, ok := byName[name]; ok {
			ordered = append(ordered, s)
		}
	}
	seen := make(map[string]bool, len(ordered))
	for _, s := range ordered {
		seen[s.Name] = true
	}
	for i := range o.Sections {
		if !seen[o.Sections[i].Name] {
			ordered = append(ordered, &o.Sections[i])
		}
	}
	return ordered
}

// Write serializes the accumulated object into an ELF64 ET_REL image.
func (o *Object) Write() ([]byte, error) {
	// any caller-supplied section outside the canonical list (e.g. a
	// second .rodata-like pool) still gets emitted, appended after the
	// canonical ones so section-index lookups for the fixed names stay
	// predictable.
	ordered := o.orderedSections()

	shstrtab := newStrtab()
	strtab := newStrtab()

	// section index 0 is SHN_UNDEF; real sections start at 1.
	secIndex := map[string]uint16{}
	for i, s := range ordered {
		secIndex[s.Name] = uint16(i + 1)
	}

	symtabLocal, symtabGlobal := splitSymbols(o.Symbols)
	allSyms := append(append([]Symbol{{}}, symtabLocal...), symtabGlobal...) // index 0 is the null symbol

	var symtabBuf bytes.Buffer
	for _, sym := range allSyms {
		var shndx uint16
		if sym.Section != "" {
			shndx = secIndex[sym.Section]
		}
		nameOff := uint32(0)
		if sym.Name != "" {
			nameOff = strtab.add(sym.Name)
		}
		entry := elf.Sym64{
			Name:  nameOff,
			Info:  elf.ST_INFO(elfBinding(sym.Binding), elfSymType(sym.Type)),
			Other: 0,
			Shndx: shndx,
			Value: sym.Value,
			Size:  sym.Size,
		}
		_ = binary.Write(&symtabBuf, binary.LittleEndian, &entry)
	}

	relaBySection := map[string][]Relocation{}
	for _, r := range o.Relocs {
		relaBySection[r.Section] = append(relaBySection[r.Section], r)
	}
	symIndex := map[string]uint32{}
	for i, sym := range allSyms {
		if sym.Name != "" {
			symIndex[sym.Name] = uint32(i)
		}
	}

	type built struct {
		name  string
		typ   elf.SectionType
		flags elf.SectionFlag
		data  []byte
		link  uint32
		info  uint32
		align uint64
		entsz uint64
	}

	var built_ []built
	for _, s := range ordered {
		built_ = append(built_, built{name: s.Name, typ: s.Type, flags: s.Flags, data: s.Data, align: align1(s.Align)})
	}
	built_ = append(built_, built{name: ".symtab", typ: elf.SHT_SYMTAB, data: symtabBuf.Bytes(), link: 0, info: uint32(len(symtabLocal) + 1), align: 8, entsz: 24})
	built_ = append(built_, built{name: ".strtab", typ: elf.SHT_STRTAB, data: strtab.bytes(), align: 1})

	symtabSecIdx := len(built_) - 2 // index within built_ (0-based, +1 once NULL section is prepended)
	for name, relocs := range relaBySection {
		targetIdx, ok := secIndex[name]
		if !ok {
			continue
		}
		var buf bytes.Buffer
		for _, r := range relocs {
			entry := elf.Rela64{
				Off:    r.Offset,
				Info:   elf.R_INFO(symIndex[r.Symbol], uint32(r.Type.elfType())),
				Addend: r.Addend,
			}
			_ = binary.Write(&buf, binary.LittleEndian, &entry)
		}
		built_ = append(built_, built{
			name: ".rela" + name, typ: elf.SHT_RELA, flags: elf.SHF_INFO_LINK,
			data: buf.Bytes(), link: uint32(symtabSecIdx + 1), info: uint32(targetIdx), align: 8, entsz: 24,
		})
	}

	// fix .symtab's sh_link after all sections (including .rela*) are
	// known, since sh_link must point at .strtab's final index.
	strtabIdx := uint32(0)
	for i, b := range built_ {
		if b.name == ".strtab" {
			strtabIdx = uint32(i + 1)
		}
	}
	for i := range built_ {
		if built_[i].name == ".symtab" {
			built_[i].link = strtabIdx
		}
	}

	var out bytes.Buffer
	const ehsize = 64
	shnum := len(built_) + 2 // NULL section + .shstrtab
	shstrtabIdx := uint32(shnum - 1)

	// Every section name must be registered before shstrtab's size is
	// read below — names are added lazily by .add's cache check, but the
	// table's byte length has to be final before it's used to lay out
	// the file offsets that follow it.
	for _, b := range built_ {
		shstrtab.add(b.name)
	}
	shstrtab.add(".shstrtab")

	// compute section file offsets: header, then each section's bytes in
	// order, section-header table last.
	offsets := make([]uint64, len(built_))
	cur := uint64(ehsize)
	for i, b := range built_ {
		cur = alignUp(cur, b.align)
		offsets[i] = cur
		cur += uint64(len(b.data))
	}
	shstrtabOff := cur
	cur += uint64(len(shstrtab.bytes()))
	shoff := alignUp(cur, 8)

	hdr := elf.Header64{
		Ident:     [elf.EI_NIDENT]byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)},
		Type:      uint16(elf.ET_REL),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     shoff,
		Ehsize:    ehsize,
		Shentsize: 64,
		Shnum:     uint16(shnum),
		Shstrndx:  uint16(shstrtabIdx),
	}
	_ = binary.Write(&out, binary.LittleEndian, &hdr)

	for i, b := range built_ {
		for uint64(out.Len()) < offsets[i] {
			out.WriteByte(0)
		}
		out.Write(b.data)
	}
	for uint64(out.Len()) < shstrtabOff {
		out.WriteByte(0)
	}
	out.Write(shstrtab.bytes())
	for uint64(out.Len()) < shoff {
		out.WriteByte(0)
	}

	writeShdr(&out, elf.Section64{}) // SHN_UNDEF
	for i, b := range built_ {
		sh := elf.Section64{
			Name:    shstrtab.add(b.name),
			Type:    uint32(b.typ),
			Flags:   uint64(b.flags),
			Off:     offsets[i],
			Size:    uint64(len(b.data)),
			Link:    b.link,
			Info:    b.info,
			Addralign: b.align,
			Entsize: b.entsz,
		}
		writeShdr(&out, sh)
	}
	writeShdr(&out, elf.Section64{Name: shstrtab.add(".shstrtab"), Type: uint32(elf.SHT_STRTAB), Off: shstrtabOff, Size: uint64(len(shstrtab.bytes())), Addralign: 1})

	return out.Bytes(), nil
}

func writeShdr(buf *bytes.Buffer, sh elf.Section64) {
	_ = binary.Write(buf, binary.LittleEndian, &sh)
}

func align1(a uint64) uint64 {
	if a == 0 {
		return 1
	}
	return a
}

func alignUp(v, a uint64) uint64 {
	if a <= 1 {
		return v
	}
	if rem := v % a; rem != 0 {
		v += a - rem
	}
	return v
}

func splitSymbols(syms []Symbol) (local, global []Symbol) {
	for _, s := range syms {
		if s.Binding == BindLocal {
			local = append(local, s)
		} else {
			global = append(global, s)
		}
	}
	return
}

func elfBinding(b SymBinding) elf.SymBind {
	switch b {
	case BindGlobal:
		return elf.STB_GLOBAL
	case BindWeak:
		return elf.STB_WEAK
	default:
		return elf.STB_LOCAL
	}
}

func elfSymType(t SymType) elf.SymType {
	switch t {
	case TypeObject:
		return elf.STT_OBJECT
	case TypeFunc:
		return elf.STT_FUNC
	case TypeSection:
		return elf.STT_SECTION
	default:
		return elf.STT_NOTYPE
	}
}

// strtab accumulates a null-separated string table, matching
// .strtab/.shstrtab's on-disk format (offset 0 is the empty string).
type strtabBuilder struct {
	buf    bytes.Buffer
	offset map[string]uint32
}

func newStrtab() *strtabBuilder {
	s := &strtabBuilder{offset: map[string]uint32{}}
	s.buf.WriteByte(0)
	return s
}

func (s *strtabBuilder) add(str string) uint32 {
	if off, ok := s.offset[str]; ok {
		return off
	}
	off := uint32(s.buf.Len())
	s.buf.WriteString(str)
	s.buf.WriteByte(0)
	s.offset[str] = off
	return off
}

func (s *strtabBuilder) bytes() []byte { return s.buf.Bytes() }
