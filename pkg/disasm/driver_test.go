package disasm

import "testing"

type fakeSymbolTable []Addr

func (f fakeSymbolTable) FunctionSymbols() []Addr { return f }

// Scenario 6: the fixed fixpoint loop discovers a call target that isn't
// in the symbol table; Legacy reproduces the original bug and misses it.
func TestDriver_FixpointDiscoversCallTarget(t *testing.T) {
	m, b := newTestBuilder(nil)
	writeFixture(m, 0x1000, call(0x3000), ret())
	writeFixture(m, 0x3000, ret())

	f := &Factory{Module: m, Builder: b}
	d := &Driver{
		Module:  m,
		Factory: f,
		Symbols: fakeSymbolTable{0x1000},
	}
	if err := d.Run(0x1000, nil, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.FindFunctionAt(0x3000) == nil {
		t.Fatalf("function at 0x3000 not discovered by fixpoint loop")
	}
	if len(m.Functions()) != 2 {
		t.Fatalf("functions = %d, want 2", len(m.Functions()))
	}
}

func TestDriver_LegacyMissesDiscoveredCallTarget(t *testing.T) {
	m, b := newTestBuilder(nil)
	writeFixture(m, 0x1000, call(0x3000), ret())
	writeFixture(m, 0x3000, ret())

	f := &Factory{Module: m, Builder: b}
	d := &Driver{
		Module:  m,
		Factory: f,
		Symbols: fakeSymbolTable{0x1000},
		Legacy:  true,
	}
	if err := d.Run(0x1000, nil, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.FindFunctionAt(0x3000) != nil {
		t.Fatalf("legacy driver should not have discovered 0x3000")
	}
	if len(m.Functions()) != 1 {
		t.Fatalf("functions = %d, want 1 (legacy behavior)", len(m.Functions()))
	}
}

func TestDriver_BuildSectionAtoms(t *testing.T) {
	m, _ := newTestBuilder(nil)
	writeFixture(m, 0x1000, mov(), add(), ret())

	d := &Driver{Module: m, Decoder: fixtureDecoder{}}
	d.BuildSectionAtoms()

	atoms := m.Atoms.Atoms()
	if len(atoms) != 2 {
		t.Fatalf("atoms = %d, want 2 (one text run, one data run)", len(atoms))
	}
	text, ok := atoms[0].(*TextAtom)
	if !ok || text.Begin() != 0x1000 {
		t.Fatalf("first atom = %+v, want a text atom at 0x1000", atoms[0])
	}
	if len(text.Instructions()) != 3 {
		t.Fatalf("instructions = %d, want 3", len(text.Instructions()))
	}
	data, ok := atoms[1].(*DataAtom)
	if !ok {
		t.Fatalf("second atom = %+v, want a data atom", atoms[1])
	}
	if data.Begin() != text.End()+1 {
		t.Fatalf("data atom begin = %#x, want %#x", data.Begin(), text.End()+1)
	}
	if data.End() != 0x1000+0x8000-1 {
		t.Fatalf("data atom end = %#x, want region end - 1", data.End())
	}
}

func TestCompareCodeSize(t *testing.T) {
	sweep, _ := newTestBuilder(nil)
	writeFixture(sweep, 0x1000, mov(), add(), ret())
	(&Driver{Module: sweep, Decoder: fixtureDecoder{}}).BuildSectionAtoms()

	recursive, b := newTestBuilder(nil)
	writeFixture(recursive, 0x1000, mov(), add(), ret())
	fn := recursive.CreateFunction(0x1000, "")
	var calls, tailCalls []Addr
	if _, err := b.GetBBAt(fn, 0x1000, &calls, &tailCalls); err != nil {
		t.Fatalf("GetBBAt: %v", err)
	}

	cmp := CompareCodeSize(sweep, recursive)
	if cmp.LinearSweepBytes != 3 {
		t.Fatalf("linear sweep bytes = %d, want 3", cmp.LinearSweepBytes)
	}
	if cmp.RecursiveBytes != 3 {
		t.Fatalf("recursive bytes = %d, want 3", cmp.RecursiveBytes)
	}
}

func TestDriver_RunsNamingAndTailCallPasses(t *testing.T) {
	sym := fakeSymbolizer{0x9000: "printf"}
	m, b := newTestBuilder(sym)
	writeFixture(m, 0x1000, cmp(), jmp(0x9000))

	f := &Factory{Module: m, Builder: b, Symbolizer: sym}
	d := &Driver{
		Module:  m,
		Factory: f,
		Symbols: fakeSymbolTable{0x1000},
		Passes: []Pass{
			NamingPass{},
			TailCallPass{Symbolizer: sym, Oracle: fixtureOracle{}},
		},
	}
	if err := d.Run(0x1000, nil, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	fn := m.FindFunctionAt(0x1000)
	if fn == nil {
		t.Fatalf("function at 0x1000 not found")
	}
	if fn.Name() != "fn_1000" {
		t.Fatalf("name = %q, want fn_1000", fn.Name())
	}

	ext := m.FindFunctionAt(0x9000)
	if ext == nil || !ext.IsExternal() || ext.Name() != "printf" {
		t.Fatalf("external function at 0x9000 not recorded correctly: %+v", ext)
	}

	starts := m.FindFunctionStarts()
	if len(starts) != 2 || starts[0] != 0x1000 || starts[1] != 0x9000 {
		t.Fatalf("FindFunctionStarts() = %v, want sorted {0x1000, 0x9000} (the set NamingPass walked above)", starts)
	}
}
