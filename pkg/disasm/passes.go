package disasm

import (
	"fmt"

	"github.com/pwnzen-mobile/ios-app-to-ir/pkg/symbols"
)

// NamingPass assigns a display name to every function that the builder
// left unnamed (internal functions discovered only by address, never
// bound to a symbol). It mirrors llvm-dec.cpp's FunctionNamePass: walk
// Module.FindFunctionStarts()'s sorted address set, exactly as
// findFunctionStarts() feeds FunctionNamePass in the original, rather
// than Functions()'s discovery order — naming is deterministic across
// runs regardless of which order the fixpoint loop happened to discover
// functions in. Each function gets a deterministic fn_<hexaddr> fallback,
// or Swift/C++ demangling applied to a symbol name that already looks
// mangled, enrichment prefixes preserved around the demangled core.
type NamingPass struct{}

func (NamingPass) Run(m *Module) error {
	for _, addr := range m.FindFunctionStarts() {
		fn := m.FindFunctionAt(addr)
		if fn == nil {
			continue
		}
		if fn.name == "" {
			fn.name = fmt.Sprintf("fn_%x", fn.entry)
			continue
		}
		fn.name = symbols.Name(fn.name)
	}
	return nil
}

// TailCallPass marks blocks whose terminator branches to an external
// function as tail calls rather than leaving them as dangling, edgeless
// exits (SUPPLEMENTED FEATURES #3). Builder.recordSuccessors already does
// this for every block it creates; this pass exists for callers that
// build a Module through some other path — e.g. loading one from a
// serialized form in a future milestone — where that detection never
// ran, so it carries its own Oracle to re-evaluate the terminator rather
// than trusting a stale flag.
type TailCallPass struct {
	Symbolizer Symbolizer
	Oracle     Oracle
	ToOriginal func(Addr) Addr
}

func (p TailCallPass) Run(m *Module) error {
	if p.Symbolizer == nil || p.Oracle == nil {
		return nil
	}
	toOriginal := p.ToOriginal
	if toOriginal == nil {
		toOriginal = func(a Addr) Addr { return a }
	}
	for _, fn := range m.Functions() {
		for _, bb := range fn.Blocks() {
			if len(bb.Successors()) != 0 || bb.IsTailCall() {
				continue
			}
			insts := bb.Atom().Instructions()
			if len(insts) == 0 {
				continue
			}
			last := insts[len(insts)-1]
			if !p.Oracle.IsBranch(last.Inst) {
				continue
			}
			target, ok := p.Oracle.EvaluateBranch(last.Inst, last.Address, last.Size)
			if !ok {
				continue
			}
			if _, ok := p.Symbolizer.FindExternalFunctionAt(toOriginal(target)); ok {
				bb.SetTailCall(true)
			}
		}
	}
	return nil
}
