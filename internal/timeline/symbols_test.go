package timeline

import (
	"debug/elf"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSymbols() *Symbols {
	return NewSymbols([]Symbol{
		{Name: "main.fish2", Addr: 0x401200, Size: 0x40},
		{Name: "main.main", Addr: 0x401000},
		{Name: ".text", Addr: 0x400f00},
		{Name: "main.fish3", Addr: 0x401300, Size: 0x80},
	})
}

func TestSymbols_Lookup(t *testing.T) {
	s := testSymbols()
	assert.Equal(t, 3, s.Len())

	tests := []struct {
		addr uint32
		name string
		ok   bool
	}{
		{0x401000, "main.main", true},
		// Sizeless symbols extend to the next one.
		{0x4011ff, "main.main", true},
		{0x401200, "main.fish2", true},
		{0x40123f, "main.fish2", true},
		{0x401240, "", false},
		{0x40137f, "main.fish3", true},
		{0x401380, "", false},
		{0x400f00, "", false},
	}

	for _, tt := range tests {
		name, ok := s.Lookup(tt.addr)
		assert.Equal(t, tt.ok, ok, "%#x", tt.addr)
		assert.Equal(t, tt.name, name, "%#x", tt.addr)
	}
}

func TestSymbols_TruncatedAddresses(t *testing.T) {
	s := NewSymbols([]Symbol{
		{Name: "high", Addr: 0x7f00_0040_1000, Size: 0x10},
	})

	name, ok := s.Lookup(0x0040_1008)
	require.True(t, ok)
	assert.Equal(t, "high", name)
}

func TestSymbols_Name(t *testing.T) {
	s := testSymbols()

	assert.Equal(t, "main.fish3", s.Name(0x401300))
	assert.Equal(t, "UNKNOWN_00401380", s.Name(0x401380))

	var none *Symbols
	assert.Equal(t, 0, none.Len())
	assert.Equal(t, "UNKNOWN_DEADBEEF", none.Name(0xdeadbeef))
}

func TestLoadSymbols_TestBinary(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("test binary is only ELF on linux")
	}

	exe, err := os.Executable()
	require.NoError(t, err)

	s, err := LoadSymbols(exe)
	require.NoError(t, err)
	require.Positive(t, s.Len())

	const want = "github.com/ethpandaops/fntrace/internal/timeline.TestLoadSymbols_TestBinary"

	var found *Symbol

	for i := range s.syms {
		if s.syms[i].Name == want {
			found = &s.syms[i]
		}
	}

	require.NotNil(t, found)

	name, ok := s.Lookup(uint32(found.Addr) + 1)
	require.True(t, ok)
	assert.Equal(t, want, name)
}

func TestGoSymbols_StrippedTestBinary(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("test binary is only ELF on linux")
	}

	exe, err := os.Executable()
	require.NoError(t, err)

	f, err := elf.Open(exe)
	require.NoError(t, err)
	defer f.Close()

	// Read from the Go line table alone, as for a binary built with -s.
	syms, err := goSymbols(f)
	require.NoError(t, err)

	s := NewSymbols(syms)
	require.Positive(t, s.Len())

	const want = "github.com/ethpandaops/fntrace/internal/timeline.TestGoSymbols_StrippedTestBinary"

	var found *Symbol

	for i := range s.syms {
		if s.syms[i].Name == want {
			found = &s.syms[i]
		}
	}

	require.NotNil(t, found)
	assert.Positive(t, found.Size)

	name, ok := s.Lookup(uint32(found.Addr) + 1)
	require.True(t, ok)
	assert.Equal(t, want, name)

	next, _ := s.Lookup(uint32(found.Addr + found.Size))
	assert.NotEqual(t, want, next)
}

func TestGoSymbols_NoLineTable(t *testing.T) {
	f := &elf.File{}

	_, err := goSymbols(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .gopclntab section")
}

func TestLoadSymbols_NotELF(t *testing.T) {
	path := t.TempDir() + "/trace.out"
	require.NoError(t, os.WriteFile(path, []byte{1, 0, 0, 0}, 0o644))

	_, err := LoadSymbols(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening program")
}
