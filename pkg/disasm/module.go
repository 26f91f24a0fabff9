package disasm

import (
	"sort"

	"github.com/dominikbraun/graph"
)

// BasicBlock is a maximal single-entry, single-exit instruction sequence
// within a function, backed by exactly one text atom. Predecessor and
// successor sets normally hold blocks of the owning function; a block
// truncated when another function's entry splits its atom gets that
// function's new block as its successor (§8 scenario 3).
type BasicBlock struct {
	fn   *Function
	atom *TextAtom

	preds map[Addr]*BasicBlock
	succs map[Addr]*BasicBlock

	// tailCall marks a block whose terminator resolved to an external
	// function and was therefore recorded as a tail call rather than an
	// intra-function edge.
	tailCall bool
}

func newBasicBlock(fn *Function, atom *TextAtom) *BasicBlock {
	return &BasicBlock{
		fn:    fn,
		atom:  atom,
		preds: make(map[Addr]*BasicBlock),
		succs: make(map[Addr]*BasicBlock),
	}
}

// Atom returns the text atom this block is backed by.
func (b *BasicBlock) Atom() *TextAtom { return b.atom }

// Begin is the block's entry address, and its identity within the
// owning function.
func (b *BasicBlock) Begin() Addr { return b.atom.Begin() }

func (b *BasicBlock) IsTailCall() bool { return b.tailCall }
func (b *BasicBlock) SetTailCall(v bool) { b.tailCall = v }

// Predecessors and Successors return the block's edges. The returned
// slices are freshly built and safe for the caller to retain.
func (b *BasicBlock) Predecessors() []*BasicBlock { return sortedBlocks(b.preds) }
func (b *BasicBlock) Successors() []*BasicBlock   { return sortedBlocks(b.succs) }

func sortedBlocks(m map[Addr]*BasicBlock) []*BasicBlock {
	out := make([]*BasicBlock, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Begin() < out[j].Begin() })
	return out
}

// addEdge records pred -> succ in both directions (§8 edge symmetry) and
// mirrors the edge into the function's graph.Graph for structural
// queries (reachability, dominance, printing order) that the plain
// pred/succ maps aren't suited for.
func addEdge(pred, succ *BasicBlock) {
	pred.succs[succ.Begin()] = succ
	succ.preds[pred.Begin()] = pred
	if pred.fn != nil && pred.fn.g != nil {
		_ = pred.fn.g.AddEdge(pred.Begin(), succ.Begin())
	}
}

// rewireSoleSuccessor clears pred's existing successor edges (removing
// the predecessor side on each old successor too) and returns their
// addresses, then wires pred -> succ as pred's only successor. Used when
// an atom split truncates a block that another, already-finished
// function owns (§8 scenario 3).
func rewireSoleSuccessor(pred, succ *BasicBlock) []Addr {
	old := make([]Addr, 0, len(pred.succs))
	for addr, s := range pred.succs {
		old = append(old, addr)
		delete(s.preds, pred.Begin())
		if pred.fn != nil && pred.fn.g != nil {
			_ = pred.fn.g.RemoveEdge(pred.Begin(), addr)
		}
	}
	pred.succs = make(map[Addr]*BasicBlock)
	addEdge(pred, succ)
	sortAddrsAsc(old)
	return old
}

func sortAddrsAsc(a []Addr) {
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
}

// Function owns its basic blocks, has an optional name, and exactly one
// entry block at its entry address.
type Function struct {
	name      string
	entry     Addr
	external  bool // true for PLT/stub bindings — no CFG was recovered
	blocksBy  map[Addr]*BasicBlock
	entryBB   *BasicBlock
	g         graph.Graph[Addr, *BasicBlock]
}

func newFunction(entry Addr) *Function {
	fn := &Function{
		entry:    entry,
		blocksBy: make(map[Addr]*BasicBlock),
	}
	fn.g = graph.New(func(b *BasicBlock) Addr { return b.Begin() }, graph.Directed())
	return fn
}

func (f *Function) Name() string    { return f.name }
func (f *Function) SetName(n string) { f.name = n }
func (f *Function) Entry() Addr     { return f.entry }
func (f *Function) IsExternal() bool { return f.external }
func (f *Function) EntryBlock() *BasicBlock { return f.entryBB }

// Graph exposes the function's basic-block graph for callers that need
// structural queries beyond simple pred/succ walks (e.g. the tail-call
// pass, or a printer wanting a stable traversal order).
func (f *Function) Graph() graph.Graph[Addr, *BasicBlock] { return f.g }

// Blocks returns the function's basic blocks in address order.
func (f *Function) Blocks() []*BasicBlock {
	out := make([]*BasicBlock, 0, len(f.blocksBy))
	for _, b := range f.blocksBy {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Begin() < out[j].Begin() })
	return out
}

// BlockAt returns the basic block beginning exactly at addr, if any.
func (f *Function) BlockAt(addr Addr) *BasicBlock { return f.blocksBy[addr] }

// createBlock materializes a basic block for atom and registers it in
// the function, or returns the existing block if one is already there.
func (f *Function) createBlock(atom *TextAtom) *BasicBlock {
	if bb, ok := f.blocksBy[atom.Begin()]; ok {
		return bb
	}
	bb := newBasicBlock(f, atom)
	f.blocksBy[atom.Begin()] = bb
	_ = f.g.AddVertex(bb)
	if atom.Begin() == f.entry {
		f.entryBB = bb
	}
	return bb
}

// Module owns every atom and function recovered from an object file. It
// is created monotonically: atoms are split, never deleted, and at most
// one function exists per entry address (§3).
type Module struct {
	Atoms     AtomStore
	Regions   RegionMap
	Entry     Addr
	StaticInit []Addr
	StaticExit []Addr

	funcsByEntry map[Addr]*Function
	funcOrder    []Addr

	// blocksByAtomBegin indexes every materialized basic block by its
	// atom's begin address, across every function. The builder consults
	// this when a later call splits an atom that already backs a block
	// from an earlier, already-finished call (§8 scenario 3: a second
	// function symbol landing inside a previously built function's
	// atom) — the owning block isn't part of the current call's
	// worklist, so its successor edges must be rewired directly rather
	// than through the transient, call-scoped BBInfo map.
	blocksByAtomBegin map[Addr]*BasicBlock
}

// NewModule returns an empty module. Atom/region population and CFG
// recovery are the driver's job (driver.go).
func NewModule() *Module {
	return &Module{
		funcsByEntry:      make(map[Addr]*Function),
		blocksByAtomBegin: make(map[Addr]*BasicBlock),
	}
}

// registerBlock records bb as the block backing the atom beginning at
// atomBegin, for future cross-call split rewiring.
func (m *Module) registerBlock(atomBegin Addr, bb *BasicBlock) {
	m.blocksByAtomBegin[atomBegin] = bb
}

// blockAtAtomBegin returns the block already materialized for the atom
// that used to begin at atomBegin, if any.
func (m *Module) blockAtAtomBegin(atomBegin Addr) *BasicBlock {
	return m.blocksByAtomBegin[atomBegin]
}

// FindFunctionAt returns the function whose entry address is addr, or
// nil.
func (m *Module) FindFunctionAt(addr Addr) *Function { return m.funcsByEntry[addr] }

// CreateFunction registers and returns a new, empty function at addr.
// Callers (the Function Factory, function.go) must check FindFunctionAt
// first — the module enforces at most one function per entry address by
// panicking on a duplicate, since that indicates a builder bug rather
// than a recoverable condition.
func (m *Module) CreateFunction(addr Addr, name string) *Function {
	if _, exists := m.funcsByEntry[addr]; exists {
		panic("disasm: duplicate function at same entry address")
	}
	fn := newFunction(addr)
	fn.name = name
	m.funcsByEntry[addr] = fn
	m.funcOrder = append(m.funcOrder, addr)
	return fn
}

// Functions returns every function in discovery order (the order they
// were created in, which for the module driver is the seed functions in
// ascending address order followed by fixpoint discovery order).
func (m *Module) Functions() []*Function {
	out := make([]*Function, len(m.funcOrder))
	for i, a := range m.funcOrder {
		out[i] = m.funcsByEntry[a]
	}
	return out
}

// FindAtomContaining and FindFirstAtomAfter delegate to the atom store;
// Module is the stable, long-lived handle callers hold onto.
func (m *Module) FindAtomContaining(addr Addr) Atom    { return m.Atoms.FindAtomContaining(addr) }
func (m *Module) FindFirstAtomAfter(addr Addr) Atom     { return m.Atoms.FindFirstAtomAfter(addr) }

// FindFunctionStarts returns the sorted set of every function's entry
// address, grounded on MCObjectDisassembler::AddressSetTy
// findFunctionStarts() / llvm-dec.cpp's FunctionNamePass consumer.
func (m *Module) FindFunctionStarts() []Addr {
	starts := append([]Addr(nil), m.funcOrder...)
	return dedupeSorted(starts)
}
