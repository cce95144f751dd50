package elf

import (
	"bytes"
	"debug/elf"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"
)

func TestWriteProducesParsableRelocatable(t *testing.T) {
	obj := &Object{
		Sections: []Section{
			{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Data: []byte{0x55, 0x48, 0x89, 0xe5, 0xc3}, Align: 16},
			{Name: ".rodata", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC, Data: []byte("hello\x00"), Align: 1},
		},
		Symbols: []Symbol{
			{Name: "main", Value: 0, Size: 5, Section: ".text", Binding: BindGlobal, Type: TypeFunc},
			{Name: "puts", Binding: BindGlobal, Type: TypeFunc}, // external, Section left empty
		},
		Relocs: []Relocation{
			{Section: ".text", Offset: 1, Symbol: "puts", Type: R_X86_64_PLT32, Addend: -4},
		},
	}

	data, err := obj.Write()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := elf.NewFile(bytes.NewReader(data))
	require.NoError(t, err, "the bytes this writer emits must parse back with debug/elf")
	require.Equal(t, elf.ET_REL, f.Type)
	require.Equal(t, elf.EM_X86_64, f.Machine)

	text := f.Section(".text")
	require.NotNil(t, text, ".text section must be present")
	textData, err := text.Data()
	require.NoError(t, err)
	require.Equal(t, []byte{0x55, 0x48, 0x89, 0xe5, 0xc3}, textData)

	syms, err := f.Symbols()
	require.NoError(t, err)
	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	require.Contains(t, names, "main")
	require.Contains(t, names, "puts")

	rels := f.Section(".rela.text")
	require.NotNil(t, rels, "relocations against .text must produce a .rela.text section")
}

func TestSectionsReportsFixedOrderAndSizes(t *testing.T) {
	obj := &Object{
		Sections: []Section{
			{Name: ".bss", Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Data: nil, Align: 8},
			{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Data: []byte{0x55, 0xc3}, Align: 16},
			{Name: ".rodata", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC, Data: []byte("x\x00"), Align: 1},
		},
	}

	snaps.MatchSnapshot(t, "elf_section_order_and_sizes", obj.Sections())
}

func TestWriteWithNoRelocationsStillParses(t *testing.T) {
	obj := &Object{
		Sections: []Section{{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Data: []byte{0xc3}, Align: 1}},
		Symbols:  []Symbol{{Name: "f", Section: ".text", Binding: BindGlobal, Type: TypeFunc}},
	}
	data, err := obj.Write()
	require.NoError(t, err)
	_, err = elf.NewFile(bytes.NewReader(data))
	require.NoError(t, err)
}
