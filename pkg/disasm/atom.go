package disasm

import (
	"fmt"
	"sort"
)

// DecodedInst is one instruction inside a text atom: its address, its
// encoded size, and the opaque decoded form the Oracle can reason about.
type DecodedInst struct {
	Address Addr
	Size    int
	Inst    Inst
}

// Atom is a contiguous, homogeneous range of a loaded section: either a
// TextAtom (successfully decoded instructions) or a DataAtom (raw bytes
// the decoder could not make sense of, or that were never code to begin
// with). Begin/End are inclusive, per §3; Atom.End() + 1 is the address
// one past the atom.
type Atom interface {
	Begin() Addr
	End() Addr
	Name() string
	SetName(string)
	isAtom()
}

type atomCommon struct {
	begin, end Addr // inclusive range
	name       string
}

func (a *atomCommon) Begin() Addr      { return a.begin }
func (a *atomCommon) End() Addr        { return a.end }
func (a *atomCommon) Name() string     { return a.name }
func (a *atomCommon) SetName(n string) { a.name = n }
func (a *atomCommon) isAtom()          {}

// TextAtom holds an ordered, contiguous run of decoded instructions.
// Invariant (§3): insts[i+1].Address == insts[i].Address + insts[i].Size,
// insts[0].Address == Begin(), and the last instruction's end is End()+1.
type TextAtom struct {
	atomCommon
	insts []DecodedInst
}

// DataAtom holds raw bytes that were not decoded as instructions.
type DataAtom struct {
	atomCommon
	data []byte
}

func (t *TextAtom) Instructions() []DecodedInst { return t.insts }

// addInst appends a decoded instruction, extending the atom's range.
// Callers are responsible for contiguity; AtomStore.GrowText is the only
// caller.
func (t *TextAtom) addInst(d DecodedInst) {
	if len(t.insts) == 0 {
		t.begin = d.Address
	}
	t.insts = append(t.insts, d)
	t.end = d.Address + Addr(d.Size) - 1
}

func (d *DataAtom) Data() []byte { return d.data }

// AtomStore owns the atoms of a Module: their creation, their splitting,
// and address-range queries over them. Atoms are created monotonically —
// split only grows the atom count, it never removes one (§3 Lifecycle).
type AtomStore struct {
	// atoms is kept sorted by Begin() for binary-search containment and
	// successor queries. Module.FindAtomContaining /
	// Module.FindFirstAtomAfter delegate here.
	atoms []Atom
}

// NewTextAtom creates and inserts a fresh, empty text atom that callers
// populate via GrowText before it is visible to containment queries in a
// way that matters — in practice the builder always adds at least one
// instruction before any other atom could observe it, since nothing else
// runs between creation and the first addInst.
func (s *AtomStore) NewTextAtom(begin Addr, name string) *TextAtom {
	t := &TextAtom{atomCommon: atomCommon{begin: begin, end: begin, name: name}}
	s.insert(t)
	return t
}

// NewDataAtom creates, fills, and inserts a data atom spanning
// [begin, begin+len(data)-1].
func (s *AtomStore) NewDataAtom(begin Addr, data []byte, name string) *DataAtom {
	d := &DataAtom{
		atomCommon: atomCommon{begin: begin, end: begin + Addr(len(data)) - 1, name: name},
		data:       data,
	}
	s.insert(d)
	return d
}

// GrowText appends a decoded instruction to t and keeps the store's
// ordering invariant (t's position in the sorted slice never moves,
// since growth only extends End(), never changes Begin()).
func (s *AtomStore) GrowText(t *TextAtom, d DecodedInst) {
	t.addInst(d)
}

func (s *AtomStore) insert(a Atom) {
	i := sort.Search(len(s.atoms), func(i int) bool { return s.atoms[i].Begin() >= a.Begin() })
	s.atoms = append(s.atoms, nil)
	copy(s.atoms[i+1:], s.atoms[i:])
	s.atoms[i] = a
}

// FindAtomContaining returns the atom whose [Begin, End] range contains
// addr, or nil. Atom disjointness (§8) means this is unambiguous.
func (s *AtomStore) FindAtomContaining(addr Addr) Atom {
	i := sort.Search(len(s.atoms), func(i int) bool { return s.atoms[i].Begin() > addr })
	if i == 0 {
		return nil
	}
	a := s.atoms[i-1]
	if addr <= a.End() {
		return a
	}
	return nil
}

// FindFirstAtomAfter returns the lowest-addressed atom whose Begin() is
// strictly greater than addr, or nil if there is none. The builder uses
// this to bound linear disassembly so it stops before colliding with an
// atom discovered from another entry point (§4.D, "disjointness").
func (s *AtomStore) FindFirstAtomAfter(addr Addr) Atom {
	i := sort.Search(len(s.atoms), func(i int) bool { return s.atoms[i].Begin() > addr })
	if i == len(s.atoms) {
		return nil
	}
	return s.atoms[i]
}

// Atoms returns all atoms in address order.
func (s *AtomStore) Atoms() []Atom { return s.atoms }

// ErrMidInstructionSplit is returned by Split when a split point does not
// land on an instruction boundary. §7 calls this a builder bug: it
// should not occur by construction, since every split point originates
// from an EvaluateBranch target already aligned to a decoded instruction
// inside a discovered atom.
type ErrMidInstructionSplit struct {
	Addr Addr
}

func (e *ErrMidInstructionSplit) Error() string {
	return fmt.Sprintf("disasm: split at %#x does not land on an instruction boundary", e.Addr)
}

// Split implements the §4.B split contract: given a text atom t with
// t.Begin() < a <= t.End(), it returns a new text atom covering
// [a, t.End()] and truncates t to [t.Begin(), a-1]. The instruction list
// is partitioned at the unique instruction whose address equals a; if no
// such instruction exists, the split fails with ErrMidInstructionSplit
// and t is left untouched.
func (s *AtomStore) Split(t *TextAtom, a Addr) (*TextAtom, error) {
	idx := -1
	for i, inst := range t.insts {
		if inst.Address == a {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &ErrMidInstructionSplit{Addr: a}
	}

	upper := &TextAtom{
		atomCommon: atomCommon{begin: a, end: t.end, name: t.name},
		insts:      append([]DecodedInst(nil), t.insts[idx:]...),
	}
	t.insts = t.insts[:idx]
	t.end = t.insts[len(t.insts)-1].Address + Addr(t.insts[len(t.insts)-1].Size) - 1

	s.insert(upper)
	return upper, nil
}
