package coff

import (
	"encoding/binary"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"
)

func TestWriteProducesWellFormedFileHeader(t *testing.T) {
	obj := &Object{
		Sections: []Section{
			{Name: ".text", Characteristics: IMAGE_SCN_CNT_CODE | IMAGE_SCN_MEM_EXECUTE | IMAGE_SCN_MEM_READ, Data: []byte{0xc3}, Align: 16},
			{Name: ".rdata", Characteristics: IMAGE_SCN_CNT_INITIALIZED_DATA | IMAGE_SCN_MEM_READ, Data: []byte("hi\x00"), Align: 1},
		},
		Symbols: []Symbol{
			{Name: "f", Section: ".text", Class: ClassExternal, IsFunc: true},
			{Name: "g", Class: ClassExternal}, // external/undefined
		},
		Relocs: []Relocation{
			{Section: ".text", Offset: 0, Symbol: "g", Type: RelRel32},
		},
	}

	data, err := obj.Write()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	machine := binary.LittleEndian.Uint16(data[0:2])
	require.Equal(t, uint16(IMAGE_FILE_MACHINE_AMD64), machine)

	numSections := binary.LittleEndian.Uint16(data[2:4])
	require.Equal(t, uint16(2), numSections)

	numSyms := binary.LittleEndian.Uint32(data[12:16])
	require.Equal(t, uint32(2), numSyms)
}

func TestSectionsReportsFixedOrderAndSizes(t *testing.T) {
	obj := &Object{
		Sections: []Section{
			{Name: ".bss", Characteristics: IMAGE_SCN_CNT_UNINITIALIZED_DATA, Data: nil, Align: 1},
			{Name: ".text", Characteristics: IMAGE_SCN_CNT_CODE | IMAGE_SCN_MEM_EXECUTE, Data: []byte{0xc3, 0x90}, Align: 16},
			{Name: ".rdata", Characteristics: IMAGE_SCN_CNT_INITIALIZED_DATA, Data: []byte("x\x00"), Align: 1},
		},
	}

	snaps.MatchSnapshot(t, "coff_section_order_and_sizes", obj.Sections())
}

func TestLongNamesOverflowIntoStringTable(t *testing.T) {
	obj := &Object{
		Sections: []Section{{Name: ".text", Characteristics: IMAGE_SCN_CNT_CODE, Data: []byte{0x90}, Align: 1}},
		Symbols:  []Symbol{{Name: "a_symbol_name_longer_than_eight_bytes", Section: ".text", Class: ClassExternal}},
	}
	data, err := obj.Write()
	require.NoError(t, err)
	require.NotEmpty(t, data)
}
