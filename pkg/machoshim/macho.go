// Package machoshim adapts github.com/blacktop/go-macho into the
// object-format-agnostic view pkg/disasm's driver needs: sections as
// RegionMap entries, the symbol table as a disasm.SymbolTable and
// disasm.Symbolizer, and LC_MAIN / __mod_init_func / __mod_exit_func as
// the driver's root addresses.
package machoshim

import (
	"fmt"

	macho "github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/types"
	"github.com/pkg/errors"

	"github.com/pwnzen-mobile/ios-app-to-ir/pkg/disasm"
	"github.com/pwnzen-mobile/ios-app-to-ir/pkg/symbols"
)

// Mach-O section-type constants (the low byte of a section's Flags
// field, SECTION_TYPE in loader.h) needed to find symbol-stub sections.
// go-macho's types.SectionFlag carries the bits but doesn't name them, so
// they're masked out directly rather than through a constant that isn't
// exported.
const (
	sectionTypeMask        = 0xff
	sectionTypeSymbolStubs = 0x8

	// INDIRECT_SYMBOL_LOCAL / INDIRECT_SYMBOL_ABS: indirect symbol table
	// slots that don't name a real symtab entry.
	indirectSymbolLocal = 0x80000000
	indirectSymbolAbs   = 0x40000000
)

// Shim wraps an open Mach-O file and exposes it through disasm's format
// interfaces. Every address it hands out and accepts is effective
// (post-slide), matching the addresses a decoder sees when reading
// section bytes; ToOriginal converts back to the file's on-disk addresses
// for symbol-table lookups (§3 "Address").
type Shim struct {
	File *macho.File

	funcStarts []disasm.Addr
	symsByAddr map[disasm.Addr]string
}

// Open loads a Mach-O file from path and parses its symbol table and
// export trie into an address-keyed index once, up front, the same way
// MachoDisass.parseSymbols does.
func Open(path string) (*Shim, error) {
	f, err := macho.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "machoshim: opening %s", path)
	}
	s := &Shim{File: f, symsByAddr: make(map[disasm.Addr]string)}
	s.indexSymbols()
	return s, nil
}

func (s *Shim) Close() error { return s.File.Close() }

func (s *Shim) indexSymbols() {
	if s.File.Symtab != nil {
		for _, sym := range s.File.Symtab.Syms {
			if sym.Value > 0 && len(sym.Name) > 0 {
				s.symsByAddr[disasm.Addr(sym.Value)] = sym.Name
			}
		}
	}
	if exports, err := s.File.GetExports(); err == nil {
		for _, sym := range exports {
			if sym.Address > 0 {
				s.symsByAddr[disasm.Addr(sym.Address)] = sym.Name
			}
		}
	}
	for _, fn := range s.File.GetFunctions() {
		s.funcStarts = append(s.funcStarts, disasm.Addr(fn.StartAddr))
	}
	s.indexStubs()
}

// indexStubs resolves every __stub-section trampoline to the symbol it
// jumps to via the indirect symbol table (Reserved1 is the slot offset,
// Reserved2 the per-entry byte stride), the way a linker-produced PLT
// stub is named in every other disassembler: j_<target>. This is the
// only enrichment prefix this shim produces — a GOT/lazy-pointer slot
// is a data address, never a branch target EvaluateBranch can resolve
// to, so there is nothing in this codebase that would ever look one up.
func (s *Shim) indexStubs() {
	if s.File.Dysymtab == nil || s.File.Symtab == nil {
		return
	}
	indirect := s.File.Dysymtab.IndirectSyms
	for _, sec := range s.File.Sections {
		if uint32(sec.Flags)&sectionTypeMask != sectionTypeSymbolStubs {
			continue
		}
		stride := uint64(sec.Reserved2)
		if stride == 0 {
			continue
		}
		count := sec.Size / stride
		for i := uint64(0); i < count; i++ {
			slot := int(sec.Reserved1) + int(i)
			if slot < 0 || slot >= len(indirect) {
				continue
			}
			symIdx := indirect[slot]
			if symIdx&(indirectSymbolLocal|indirectSymbolAbs) != 0 {
				continue
			}
			if int(symIdx) >= len(s.File.Symtab.Syms) {
				continue
			}
			target := s.File.Symtab.Syms[symIdx].Name
			if target == "" {
				continue
			}
			stubAddr := disasm.Addr(sec.Addr) + disasm.Addr(i*stride)
			s.symsByAddr[stubAddr] = symbols.PrefixJump + target
		}
	}
}

// ToOriginal translates an effective (post-slide) address back to the
// file's on-disk address, matching §3's "effective address = original
// address + slide" definition, for symbol-table lookups that index by
// on-disk address. A static executable has a slide of zero, in which
// case this is the identity.
func (s *Shim) ToOriginal(addr disasm.Addr) disasm.Addr {
	return disasm.Addr(s.File.SlidePointer(uint64(addr)))
}

// FunctionSymbols implements disasm.SymbolTable.
func (s *Shim) FunctionSymbols() []disasm.Addr {
	return append([]disasm.Addr(nil), s.funcStarts...)
}

// FindExternalFunctionAt implements disasm.Symbolizer: addr is an
// original (pre-slide) address, matching what the builder passes after
// calling ToOriginal.
func (s *Shim) FindExternalFunctionAt(addr disasm.Addr) (string, bool) {
	name, ok := s.symsByAddr[addr]
	if !ok {
		return "", false
	}
	if s.File.HasFixups() {
		if bindName, err := s.File.GetBindName(uint64(addr)); err == nil {
			return bindName, true
		}
	}
	return name, true
}

// PopulateRegions inserts one Region per non-empty section whose contents
// can be read, in any segment, and installs no fallback — point lookups
// outside a known section legitimately have no region (§4.A).
func (s *Shim) PopulateRegions(regions *disasm.RegionMap) {
	for _, sec := range s.File.Sections {
		if sec.Size == 0 {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			continue
		}
		regions.Insert(disasm.Addr(sec.Addr), data, fmt.Sprintf("%s.%s", sec.Seg, sec.Name))
	}
}

// EntryPoint resolves LC_MAIN's file offset to a virtual address via the
// containing segment, the way every other load-command-to-address
// translation in this codebase works (§4.A "Entry point").
func (s *Shim) EntryPoint() (disasm.Addr, bool) {
	for _, l := range s.File.Loads {
		ep, ok := l.(*macho.EntryPoint)
		if !ok {
			continue
		}
		if seg := s.File.Segment("__TEXT"); seg != nil {
			return disasm.Addr(seg.Addr + ep.EntryOffset), true
		}
	}
	return 0, false
}

// StaticInitializers and StaticDestructors return the function pointers
// recorded in the __mod_init_func / __mod_exit_func sections: arrays of
// pointer-sized VM addresses, one
// per static C++ constructor/destructor the Mach-O linker collected.
func (s *Shim) StaticInitializers() []disasm.Addr {
	return s.readFuncPointerSection("__mod_init_func")
}

func (s *Shim) StaticDestructors() []disasm.Addr {
	return s.readFuncPointerSection("__mod_exit_func")
}

func (s *Shim) readFuncPointerSection(name string) []disasm.Addr {
	var sec *types.Section
	for _, candidate := range s.File.Sections {
		if candidate.Name == name {
			sec = candidate
			break
		}
	}
	if sec == nil {
		return nil
	}
	data, err := sec.Data()
	if err != nil {
		return nil
	}
	const ptrSize = 8
	out := make([]disasm.Addr, 0, len(data)/ptrSize)
	for off := 0; off+ptrSize <= len(data); off += ptrSize {
		var v uint64
		for i := 0; i < ptrSize; i++ {
			v |= uint64(data[off+i]) << (8 * i)
		}
		out = append(out, disasm.Addr(s.File.SlidePointer(v)))
	}
	return out
}
