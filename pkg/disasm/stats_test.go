package disasm

import "testing"

func TestStats_LinearAndBranchingFunctions(t *testing.T) {
	m, b := newTestBuilder(nil)
	writeFixture(m, 0x1000, mov(), ret())             // linear
	writeFixture(m, 0x2000, cmp(), je(0x2100))         // branching
	writeFixture(m, 0x2100, nop(), ret())

	var calls, tailCalls []Addr
	fnLinear := m.CreateFunction(0x1000, "")
	if _, err := b.GetBBAt(fnLinear, 0x1000, &calls, &tailCalls); err != nil {
		t.Fatalf("GetBBAt linear: %v", err)
	}
	fnBranch := m.CreateFunction(0x2000, "")
	if _, err := b.GetBBAt(fnBranch, 0x2000, &calls, &tailCalls); err != nil {
		t.Fatalf("GetBBAt branch: %v", err)
	}

	stats := m.Stats()
	if stats.Functions != 2 {
		t.Fatalf("functions = %d, want 2", stats.Functions)
	}
	if stats.LinearFunctions != 1 {
		t.Fatalf("linear functions = %d, want 1", stats.LinearFunctions)
	}
	if stats.Blocks <= stats.LinearFunctions {
		t.Fatalf("blocks = %d, want more than the linear function count", stats.Blocks)
	}
}

func TestStats_ExternalFunctionsExcludedFromBlockCounts(t *testing.T) {
	m := NewModule()
	fn := m.CreateFunction(0x9000, "printf")
	fn.external = true

	stats := m.Stats()
	if stats.Functions != 1 || stats.ExternalFunctions != 1 {
		t.Fatalf("stats = %+v, want 1 function, 1 external", stats)
	}
	if stats.Blocks != 0 {
		t.Fatalf("blocks = %d, want 0 for an external function", stats.Blocks)
	}
}
