package disasm

import (
	"fmt"

	"github.com/apex/log"
	"github.com/pkg/errors"
)

// Builder recovers the CFG of a single function at a time, pulling
// regions from a Module's RegionMap, decoding via a Decoder (accelerated
// by a DecodeCache), and consulting an Oracle for branch semantics. It
// is the "CFG Builder" of §4.D — the heart of the Object Disassembler.
//
// A Builder is not safe for concurrent use: it mutates the module's atom
// store and decode cache directly (§5).
type Builder struct {
	Module     *Module
	Cache      *DecodeCache
	Decoder    Decoder
	Oracle     Oracle
	Symbolizer Symbolizer

	// ToOriginal converts an effective address back to the object
	// file's original address, for symbolizer lookups (§3 "Address").
	// Left nil for formats with no slide, in which case it is the
	// identity function.
	ToOriginal func(Addr) Addr
}

func (b *Builder) toOriginal(addr Addr) Addr {
	if b.ToOriginal == nil {
		return addr
	}
	return b.ToOriginal(addr)
}

// bbInfo is the per-address work record BBInfo describes in §3: it
// lives only for the duration of one GetBBAt call and is never leaked
// into Module or Function state (§9 "BBInfo as transient index").
type bbInfo struct {
	atom      *TextAtom
	bb        *BasicBlock
	succAddrs []Addr
	failed    bool
	tailCall  bool
}

// addrWorklist is an in-memory, deduplicating FIFO with index-based
// iteration: appending during iteration is observed on later loop turns,
// matching §5's "for i in 0..W.len() with late insertions observed on
// subsequent iterations".
type addrWorklist struct {
	order []Addr
	seen  map[Addr]bool
}

func newAddrWorklist(seed Addr) *addrWorklist {
	w := &addrWorklist{seen: make(map[Addr]bool)}
	w.push(seed)
	return w
}

func (w *addrWorklist) push(addr Addr) {
	if w.seen[addr] {
		return
	}
	w.seen[addr] = true
	w.order = append(w.order, addr)
}

// GetBBAt returns the basic block containing beginAddr inside fn,
// discovering and splitting atoms and recording successor edges as it
// goes (§4.D). Newly discovered call targets are appended to
// callTargets and tailCallTargets, which the caller (the Function
// Factory, or the module driver's fixpoint loop) owns.
func (b *Builder) GetBBAt(fn *Function, beginAddr Addr, callTargets, tailCallTargets *[]Addr) (*BasicBlock, error) {
	infos := make(map[Addr]*bbInfo)
	wl := newAddrWorklist(beginAddr)

	// Phase 1: atom discovery and successor recording, combined into one
	// index-based pass over the worklist so that a fallthrough/branch
	// target discovered while recording address i's successors is itself
	// walked for atom discovery on a later iteration (§5's "late
	// insertions observed on subsequent iterations").
	for i := 0; i < len(wl.order); i++ {
		addr := wl.order[i]
		info := &bbInfo{}
		infos[addr] = info

		if existing := b.Module.FindAtomContaining(addr); existing != nil {
			ta, ok := existing.(*TextAtom)
			if !ok {
				log.WithField("addr", fmt.Sprintf("%#x", addr)).
					Warn("disasm: worklist address falls inside a data atom; skipping (see §9 data-atoms-inside-text)")
				info.failed = true
				continue
			}
			if ta.Begin() == addr {
				// An atom from an earlier, unrelated discovery already
				// covers this address exactly; its successors were never
				// computed from this function's perspective, unlike a
				// split (which transfers them from the atom it came
				// from), so compute them here.
				info.atom = ta
				if len(ta.insts) > 0 {
					b.recordSuccessors(info, wl, callTargets, tailCallTargets)
				}
				continue
			}
			if err := b.split(fn, infos, info, ta, addr); err != nil {
				return nil, err
			}
			continue
		}

		if err := b.disassembleNewAtom(fn, info, addr, callTargets); err != nil {
			return nil, err
		}
		if info.failed || info.atom == nil || len(info.atom.insts) == 0 {
			continue
		}
		b.recordSuccessors(info, wl, callTargets, tailCallTargets)
	}

	// Phase 2: block materialization.
	for _, addr := range wl.order {
		info := infos[addr]
		if info.failed || info.atom == nil {
			continue
		}
		if bb := fn.BlockAt(addr); bb != nil {
			info.bb = bb
			continue
		}
		bb := fn.createBlock(info.atom)
		b.Module.registerBlock(info.atom.Begin(), bb)
		info.bb = bb
		if info.tailCall {
			bb.SetTailCall(true)
		}
	}

	// Phase 3: edge wiring. A successor address inherited from a cross-call
	// split (see split, below) names a block that belongs to this call's
	// own worklist most of the time, but when the split truncated a block
	// another, already-finished function owns, the inherited successors
	// are that other function's blocks instead — not present in infos at
	// all. Module.blockAtAtomBegin resolves those directly.
	for _, addr := range wl.order {
		info := infos[addr]
		if info.bb == nil {
			continue
		}
		for _, succAddr := range dedupeSorted(append([]Addr(nil), info.succAddrs...)) {
			if succInfo := infos[succAddr]; succInfo != nil && succInfo.bb != nil {
				addEdge(info.bb, succInfo.bb)
				continue
			}
			if succBB := b.Module.blockAtAtomBegin(succAddr); succBB != nil {
				addEdge(info.bb, succBB)
			}
		}
	}

	result := infos[beginAddr]
	if result == nil || result.bb == nil {
		return nil, errors.Errorf("disasm: failed to disassemble entry block at %#x", beginAddr)
	}
	return result.bb, nil
}

// split handles the "atom exists but doesn't begin at addr" branch of
// phase 1: it splits the atom and transfers successor state from
// whichever record currently owns it — a transient bbInfo from earlier
// in this same call, or an already-materialized BasicBlock from a prior,
// finished call (§8 scenario 3).
func (b *Builder) split(fn *Function, infos map[Addr]*bbInfo, info *bbInfo, ta *TextAtom, addr Addr) error {
	originalBegin := ta.Begin()
	sectionName := baseAtomName(ta.Name())

	newAtom, err := b.Module.Atoms.Split(ta, addr)
	if err != nil {
		return errors.Wrapf(err, "disasm: builder bug splitting atom at %#x", addr)
	}
	newAtom.SetName(fmt.Sprintf("%s:%x", sectionName, addr))
	info.atom = newAtom

	if prior, ok := infos[originalBegin]; ok && prior.atom != nil {
		info.succAddrs = prior.succAddrs
		info.tailCall = prior.tailCall
		prior.succAddrs = []Addr{addr}
		prior.tailCall = false
		return nil
	}

	if existingBB := b.Module.blockAtAtomBegin(originalBegin); existingBB != nil {
		newBB := fn.createBlock(newAtom)
		b.Module.registerBlock(addr, newBB)
		info.bb = newBB
		info.succAddrs = rewireSoleSuccessor(existingBB, newBB)
		existingBB.SetTailCall(false)
	}
	return nil
}

func baseAtomName(name string) string {
	if i := lastIndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}

func lastIndexByte(s string, c byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == c {
			return i
		}
	}
	return -1
}

// disassembleNewAtom implements the "no atom exists at addr" branch of
// phase 1: decode linearly from addr until a terminator, a decode
// failure, the region end, or the start of the next atom.
func (b *Builder) disassembleNewAtom(fn *Function, info *bbInfo, addr Addr, callTargets *[]Addr) error {
	region := b.Module.Regions.Lookup(addr)
	if region == nil {
		log.WithField("addr", fmt.Sprintf("%#x", addr)).
			Warn("disasm: no region covers worklist address; skipping (§7 missing region)")
		info.failed = true
		return nil
	}

	end := region.End()
	if next := b.Module.FindFirstAtomAfter(addr); next != nil && next.Begin() < end {
		end = next.Begin()
	}

	var atom *TextAtom
	cur := addr
	for cur < end {
		inst, size, ok := b.Cache.Lookup(region, cur)
		if !ok {
			inst, size, ok = b.Decoder.GetInstruction(region, cur)
			if ok {
				b.Cache.AddTemp(region.ByteRange(cur, size), inst)
			}
		}
		if !ok {
			log.WithField("addr", fmt.Sprintf("%#x", cur)).
				Debug("disasm: decode failure; stopping atom extension (§7 recoverable)")
			info.failed = atom == nil
			break
		}

		if atom == nil {
			atom = b.Module.Atoms.NewTextAtom(cur, region.Name)
		}
		d := DecodedInst{Address: cur, Size: size, Inst: inst}
		b.Module.Atoms.GrowText(atom, d)

		if b.Oracle.IsCall(inst) {
			if target, ok := b.Oracle.EvaluateBranch(inst, cur, size); ok {
				*callTargets = append(*callTargets, target)
			}
		}

		cur += Addr(size)
		if b.Oracle.IsTerminator(inst) || b.Oracle.IsBranch(inst) {
			break
		}
	}

	info.atom = atom
	return nil
}

// recordSuccessors implements phase-1 item 3: once an atom is fixed,
// decide its fallthrough and branch successors.
func (b *Builder) recordSuccessors(info *bbInfo, wl *addrWorklist, callTargets, tailCallTargets *[]Addr) {
	last := info.atom.insts[len(info.atom.insts)-1]
	region := b.Module.Regions.Lookup(info.atom.Begin())
	if region == nil {
		return
	}
	regionEnd := region.End()

	if b.Oracle.IsConditionalBranch(last.Inst) || !b.Oracle.IsTerminator(last.Inst) {
		fallthroughAddr := last.Address + Addr(last.Size)
		if fallthroughAddr < regionEnd {
			info.succAddrs = append(info.succAddrs, fallthroughAddr)
			wl.push(fallthroughAddr)
		}
	}

	if b.Oracle.IsCall(last.Inst) {
		// A call's target was already pushed to callTargets above, as its
		// own function (§8): BL satisfies both IsCall and IsBranch on the
		// real arm64 oracle, but a callee is never this function's
		// successor, only the fallthrough after the call is.
		return
	}

	if !b.Oracle.IsBranch(last.Inst) {
		return
	}
	target, ok := b.Oracle.EvaluateBranch(last.Inst, last.Address, last.Size)
	if !ok {
		return // unresolvable indirect branch: no edge, CFG stays conservative (§7)
	}

	if b.Symbolizer != nil {
		if _, extOK := b.Symbolizer.FindExternalFunctionAt(b.toOriginal(target)); extOK {
			*tailCallTargets = append(*tailCallTargets, target)
			*callTargets = append(*callTargets, target)
			info.tailCall = true
			return
		}
	}
	info.succAddrs = append(info.succAddrs, target)
	wl.push(target)
}
