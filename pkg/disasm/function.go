package disasm

// Factory turns an address into a *Function: it returns any function the
// module already has at that address, otherwise resolves an external
// binding there, and otherwise invokes a Builder to recover its CFG from
// scratch (§4.E "createFunction"). Checking the existing function first
// keeps a second request for an external address from creating a
// duplicate function.
type Factory struct {
	Module     *Module
	Builder    *Builder
	Symbolizer Symbolizer

	// ToOriginal mirrors Builder.ToOriginal: addresses arriving here are
	// effective (post-slide) addresses, but the Symbolizer's symbol
	// table is keyed by the object file's original addresses.
	ToOriginal func(Addr) Addr
}

func (f *Factory) toOriginal(addr Addr) Addr {
	if f.ToOriginal == nil {
		return addr
	}
	return f.ToOriginal(addr)
}

// CreateFunction returns the function at addr, creating it if necessary.
// Newly discovered call targets found while recovering its CFG are
// appended to callTargets and tailCallTargets, exactly as GetBBAt
// produces them — the module driver's fixpoint loop is the only caller
// that consumes these slices across many CreateFunction calls.
func (f *Factory) CreateFunction(addr Addr, callTargets, tailCallTargets *[]Addr) (*Function, error) {
	if fn := f.Module.FindFunctionAt(addr); fn != nil {
		return fn, nil
	}

	if f.Symbolizer != nil {
		if name, ok := f.Symbolizer.FindExternalFunctionAt(f.toOriginal(addr)); ok {
			fn := f.Module.CreateFunction(addr, name)
			fn.external = true
			return fn, nil
		}
	}

	fn := f.Module.CreateFunction(addr, "")
	bb, err := f.Builder.GetBBAt(fn, addr, callTargets, tailCallTargets)
	if err != nil {
		return nil, err
	}
	fn.entryBB = bb
	return fn, nil
}
