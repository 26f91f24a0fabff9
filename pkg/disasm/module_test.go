package disasm

import "testing"

func TestAddEdge_IsSymmetric(t *testing.T) {
	fn := newFunction(0x1000)
	var s AtomStore
	a := s.NewTextAtom(0x1000, "__text")
	s.GrowText(a, DecodedInst{Address: 0x1000, Size: 1, Inst: fixtureInst{op: opNop}})
	b := s.NewTextAtom(0x1001, "__text")
	s.GrowText(b, DecodedInst{Address: 0x1001, Size: 1, Inst: fixtureInst{op: opRet}})

	bbA := fn.createBlock(a)
	bbB := fn.createBlock(b)
	addEdge(bbA, bbB)

	if succ := bbA.Successors(); len(succ) != 1 || succ[0] != bbB {
		t.Fatalf("bbA successors = %v, want [bbB]", succ)
	}
	if pred := bbB.Predecessors(); len(pred) != 1 || pred[0] != bbA {
		t.Fatalf("bbB predecessors = %v, want [bbA]", pred)
	}
}

func TestRewireSoleSuccessor_ReplacesOldEdges(t *testing.T) {
	fn := newFunction(0x1000)
	var s AtomStore
	a := s.NewTextAtom(0x1000, "__text")
	s.GrowText(a, DecodedInst{Address: 0x1000, Size: 1})
	oldSucc := s.NewTextAtom(0x1001, "__text")
	s.GrowText(oldSucc, DecodedInst{Address: 0x1001, Size: 1})
	newSucc := s.NewTextAtom(0x1002, "__text")
	s.GrowText(newSucc, DecodedInst{Address: 0x1002, Size: 1})

	bbA := fn.createBlock(a)
	bbOld := fn.createBlock(oldSucc)
	bbNew := fn.createBlock(newSucc)
	addEdge(bbA, bbOld)

	replaced := rewireSoleSuccessor(bbA, bbNew)
	if len(replaced) != 1 || replaced[0] != 0x1001 {
		t.Fatalf("replaced = %v, want [0x1001]", replaced)
	}
	if succ := bbA.Successors(); len(succ) != 1 || succ[0] != bbNew {
		t.Fatalf("bbA successors after rewire = %v, want [bbNew]", succ)
	}
	if pred := bbOld.Predecessors(); len(pred) != 0 {
		t.Fatalf("bbOld should have lost its predecessor edge, got %v", pred)
	}
}

func TestModule_CreateFunctionDuplicateEntryPanics(t *testing.T) {
	m := NewModule()
	m.CreateFunction(0x1000, "")

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate function entry")
		}
	}()
	m.CreateFunction(0x1000, "")
}

func TestModule_FunctionsPreservesDiscoveryOrder(t *testing.T) {
	m := NewModule()
	m.CreateFunction(0x3000, "c")
	m.CreateFunction(0x1000, "a")
	m.CreateFunction(0x2000, "b")

	fns := m.Functions()
	if len(fns) != 3 {
		t.Fatalf("functions = %d, want 3", len(fns))
	}
	want := []Addr{0x3000, 0x1000, 0x2000}
	for i, fn := range fns {
		if fn.Entry() != want[i] {
			t.Fatalf("functions[%d].Entry() = %#x, want %#x", i, fn.Entry(), want[i])
		}
	}
}
