// Package disasm implements the Object Disassembler: it turns a loaded
// object image and its symbol table into a module of text atoms, basic
// blocks, and functions via iterative, cache-accelerated recursive
// disassembly.
//
// The package is format- and architecture-agnostic. Format specifics
// (Mach-O section/symbol/load-command iteration, slide translation,
// entrypoint discovery) live in sibling shim packages such as
// pkg/machoshim; architecture specifics (instruction decoding and branch
// analysis) live behind the Decoder and Oracle interfaces and are
// implemented by pkg/arm64dec and pkg/x86dec.
package disasm

import "slices"

// Addr is an effective virtual address: one already adjusted by a
// format's load-time slide. buildModule and everything it calls only ever
// see effective addresses; the slide translation happens once, at the
// shim boundary (see pkg/machoshim). It is a distinct named type, not an
// alias for uint64, so a plain word-sized value can't be passed where an
// address is expected without an explicit conversion.
type Addr uint64

// dedupeSorted sorts addrs in place and removes duplicates, matching
// RemoveDupsFromAddressVector's sort-then-unique sweep.
func dedupeSorted(addrs []Addr) []Addr {
	if len(addrs) < 2 {
		return addrs
	}
	slices.Sort(addrs)
	return slices.Compact(addrs)
}
