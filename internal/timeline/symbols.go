package timeline

import (
	"debug/elf"
	"debug/gosym"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Symbol is a function in the traced program.
type Symbol struct {
	Name string
	Addr uint64
	Size uint64
}

// Symbols resolves recorded function identifiers to names. Records keep
// only the low 32 bits of an address, so lookups compare truncated
// addresses and programs mapped above 4GiB may resolve ambiguously.
type Symbols struct {
	syms []Symbol
}

// NewSymbols indexes syms for lookup.
func NewSymbols(syms []Symbol) *Symbols {
	sorted := make([]Symbol, 0, len(syms))

	for _, s := range syms {
		if s.Name == "" || strings.HasPrefix(s.Name, ".") {
			continue
		}

		sorted = append(sorted, s)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return uint32(sorted[i].Addr) < uint32(sorted[j].Addr)
	})

	return &Symbols{syms: sorted}
}

// LoadSymbols reads the function symbols of an ELF executable. Stripped
// Go executables have no symbol table; their functions are read from the
// Go line table instead.
func LoadSymbols(path string) (*Symbols, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening program %s: %w", path, err)
	}
	defer f.Close()

	raw, err := f.Symbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		syms, gerr := goSymbols(f)
		if gerr != nil {
			return nil, fmt.Errorf("reading symbols of %s: %w", path, errors.Join(err, gerr))
		}

		return NewSymbols(syms), nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading symbols of %s: %w", path, err)
	}

	syms := make([]Symbol, 0, len(raw))

	for _, s := range raw {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC || s.Value == 0 {
			continue
		}

		syms = append(syms, Symbol{
			Name: s.Name,
			Addr: s.Value,
			Size: s.Size,
		})
	}

	return NewSymbols(syms), nil
}

// goSymbols reads function ranges from the .gopclntab section, which the
// Go linker keeps even in stripped binaries.
func goSymbols(f *elf.File) ([]Symbol, error) {
	pcln := f.Section(".gopclntab")
	if pcln == nil {
		return nil, errors.New("no .gopclntab section")
	}

	pclnData, err := pcln.Data()
	if err != nil {
		return nil, fmt.Errorf("reading .gopclntab: %w", err)
	}

	var textStart uint64
	if text := f.Section(".text"); text != nil {
		textStart = text.Addr
	}

	var symtabData []byte
	if symtab := f.Section(".gosymtab"); symtab != nil {
		if symtabData, err = symtab.Data(); err != nil {
			return nil, fmt.Errorf("reading .gosymtab: %w", err)
		}
	}

	table, err := gosym.NewTable(symtabData, gosym.NewLineTable(pclnData, textStart))
	if err != nil {
		return nil, fmt.Errorf("parsing .gopclntab: %w", err)
	}

	syms := make([]Symbol, 0, len(table.Funcs))

	for _, fn := range table.Funcs {
		syms = append(syms, Symbol{
			Name: fn.Name,
			Addr: fn.Entry,
			Size: fn.End - fn.Entry,
		})
	}

	return syms, nil
}

// Len returns the number of indexed functions.
func (s *Symbols) Len() int {
	if s == nil {
		return 0
	}

	return len(s.syms)
}

// Lookup returns the function containing addr. Symbols without a size
// extend to the next symbol.
func (s *Symbols) Lookup(addr uint32) (string, bool) {
	if s == nil || len(s.syms) == 0 {
		return "", false
	}

	i := sort.Search(len(s.syms), func(i int) bool {
		return uint32(s.syms[i].Addr) > addr
	}) - 1
	if i < 0 {
		return "", false
	}

	sym := s.syms[i]
	if sym.Size > 0 && uint64(addr-uint32(sym.Addr)) >= sym.Size {
		return "", false
	}

	return sym.Name, true
}

// Name returns the function name for addr, or a placeholder carrying
// the address when it cannot be resolved.
func (s *Symbols) Name(addr uint32) string {
	if name, ok := s.Lookup(addr); ok {
		return name
	}

	return fmt.Sprintf("UNKNOWN_%08X", addr)
}
