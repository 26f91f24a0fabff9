package disasm

import "github.com/apex/log"

// SymbolTable is the minimal view of an object file's symbol table the
// driver needs to seed function discovery, independent of the concrete
// object format (pkg/machoshim implements this over go-macho).
type SymbolTable interface {
	// FunctionSymbols returns the effective addresses of every symbol
	// the format's symbol table marks as a function.
	FunctionSymbols() []Addr
}

// Driver runs the module-level recovery loop described in §4.F
// ("buildModule"): seed function discovery from the symbol table and entry
// point, then drain newly discovered call targets until none remain. The
// caller populates Module.Regions from the object's sections beforehand;
// the Driver does not.
type Driver struct {
	Module     *Module
	Factory    *Factory
	Symbols    SymbolTable
	Passes     []Pass

	// Decoder is only consulted by BuildSectionAtoms; Run's recursive
	// build gets its decoding from Factory.Builder.Decoder instead.
	Decoder Decoder

	// Legacy reproduces the reference implementation's fixpoint-loop bug
	// verbatim: the loop checks whether the discovered-targets set is
	// empty before anything has been added to it, so it never executes
	// and only the initial seed set of functions is ever built. Defaults
	// to false, which runs the corrected fixpoint loop instead.
	Legacy bool
}

// Run executes the full build. entry, staticInit, and staticExit seed the
// module's well-known roots; d.Symbols, when set, seeds everything else
// the symbol table already knows is a function. Seeds are built in
// ascending address order.
func (d *Driver) Run(entry Addr, staticInit, staticExit []Addr) error {
	d.Module.Entry = entry
	d.Module.StaticInit = append([]Addr(nil), staticInit...)
	d.Module.StaticExit = append([]Addr(nil), staticExit...)

	seeds := dedupeSorted(append([]Addr{entry}, append(append([]Addr{}, staticInit...), staticExit...)...))
	if d.Symbols != nil {
		seeds = dedupeSorted(append(seeds, d.Symbols.FunctionSymbols()...))
	}

	var callTargets, tailCallTargets []Addr
	for _, addr := range seeds {
		if _, err := d.Factory.CreateFunction(addr, &callTargets, &tailCallTargets); err != nil {
			log.WithField("addr", addr).WithError(err).Warn("disasm: failed to build seed function")
		}
	}

	if !d.Legacy {
		// Fixed fixpoint: keep draining callTargets until a pass over it
		// adds nothing new. The reference implementation's
		// `while (!NewCallTargets.empty())` never runs because
		// NewCallTargets is tested before CreateFunction has had a
		// chance to populate it (§7); this corrects that by checking
		// after each pass completes instead of before the first one.
		for len(callTargets) > 0 {
			pending := callTargets
			callTargets = nil
			seen := make(map[Addr]bool, len(pending))
			for _, addr := range pending {
				if seen[addr] {
					continue
				}
				seen[addr] = true
				if _, err := d.Factory.CreateFunction(addr, &callTargets, &tailCallTargets); err != nil {
					log.WithField("addr", addr).WithError(err).Warn("disasm: failed to build discovered function")
				}
			}
		}
	}

	for _, p := range d.Passes {
		if err := p.Run(d.Module); err != nil {
			return err
		}
	}
	return nil
}

// BuildSectionAtoms performs the flat, linear sweep over every region
// that Run's recursive, symbol-seeded recovery deliberately skips: no
// function or block is created, no branch is followed, and no edge is
// recorded. Each maximal run of instructions the Decoder can make sense
// of becomes one TextAtom; each maximal run it can't becomes one
// DataAtom covering the bytes the decoder reported skipping. Comparing
// the code this recovers against Run's gives a cheap measure of how much
// of a binary's text is reachable only by following control flow.
func (d *Driver) BuildSectionAtoms() {
	for _, region := range d.Module.Regions.Regions() {
		d.sweepRegion(region)
	}
}

// sweepRegion implements one region's worth of BuildSectionAtoms: walk
// it byte by byte (per the Decoder's own idea of instruction length),
// coalescing consecutive successes into a TextAtom and consecutive
// failures into a DataAtom, flushing whichever is open when the other
// kind is seen or the region ends.
func (d *Driver) sweepRegion(region *Region) {
	var (
		text     *TextAtom
		dataBase Addr
		dataBuf  []byte
	)
	flushData := func() {
		if len(dataBuf) > 0 {
			d.Module.Atoms.NewDataAtom(dataBase, dataBuf, region.Name)
			dataBuf = nil
		}
	}

	for cur := region.Base; cur < region.End(); {
		inst, size, ok := d.Decoder.GetInstruction(region, cur)
		if size <= 0 {
			size = 1
		}
		if ok {
			flushData()
			if text == nil {
				text = d.Module.Atoms.NewTextAtom(cur, region.Name)
			}
			d.Module.Atoms.GrowText(text, DecodedInst{Address: cur, Size: size, Inst: inst})
		} else {
			text = nil
			if dataBuf == nil {
				dataBase = cur
			}
			dataBuf = append(dataBuf, region.ByteRange(cur, size)...)
		}
		cur += Addr(size)
	}
	flushData()
}

// Pass is a post-processing step over a fully built Module — naming,
// tail-call annotation, and similar analyses that only make sense once
// every function the fixpoint loop can find has been discovered.
type Pass interface {
	Run(m *Module) error
}
