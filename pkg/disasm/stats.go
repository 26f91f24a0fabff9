package disasm

// ModuleStats reports aggregate recovery results for a recursively built
// module (grounded on llvm-dec.cpp's end-of-run summary print): how many
// functions and blocks were recovered, how many functions turned out to
// be external bindings with no CFG, and how many functions are a single
// block with no internal branching versus self-recursive.
type ModuleStats struct {
	Functions          int
	ExternalFunctions  int
	Blocks             int
	LinearFunctions    int // exactly one block, no internal branching
	RecursiveFunctions int // entry block is reachable from itself through successor edges
}

// Stats walks every function in m and tallies ModuleStats.
func (m *Module) Stats() ModuleStats {
	var s ModuleStats
	for _, fn := range m.Functions() {
		s.Functions++
		if fn.IsExternal() {
			s.ExternalFunctions++
			continue
		}
		blocks := fn.Blocks()
		s.Blocks += len(blocks)
		if len(blocks) == 1 {
			s.LinearFunctions++
		}
		if isRecursive(fn) {
			s.RecursiveFunctions++
		}
	}
	return s
}

// CodeSizeComparison reports how many code bytes a flat linear sweep
// (Driver.BuildSectionAtoms) found versus how many bytes a full
// recursive CFG build (Driver.Run) reached for the same object —
// llvm-dec.cpp's "linear disassembled code size" vs. "recursive
// disassembled code size" summary numbers.
type CodeSizeComparison struct {
	LinearSweepBytes int
	RecursiveBytes   int
}

// CompareCodeSize sums text-atom bytes in sweep (expected to come from
// BuildSectionAtoms) and basic-block bytes in recursive (expected to
// come from Run), letting a caller report how much more code the
// recursive pass reached by following control flow instead of sweeping
// every region blindly.
func CompareCodeSize(sweep, recursive *Module) CodeSizeComparison {
	var c CodeSizeComparison
	for _, atom := range sweep.Atoms.Atoms() {
		if text, ok := atom.(*TextAtom); ok {
			c.LinearSweepBytes += textAtomSize(text)
		}
	}
	for _, fn := range recursive.Functions() {
		for _, bb := range fn.Blocks() {
			c.RecursiveBytes += codeSize(bb)
		}
	}
	return c
}

func textAtomSize(t *TextAtom) int {
	insts := t.Instructions()
	if len(insts) == 0 {
		return 0
	}
	last := insts[len(insts)-1]
	return int(last.Address+Addr(last.Size)) - int(t.Begin())
}

func codeSize(bb *BasicBlock) int {
	insts := bb.Atom().Instructions()
	if len(insts) == 0 {
		return 0
	}
	last := insts[len(insts)-1]
	return int(last.Address+Addr(last.Size)) - int(bb.Begin())
}

// isRecursive reports whether fn contains a block that can reach its own
// entry block through one or more successor edges — a cheap proxy for
// "this function calls or branches back into itself" without needing a
// full call graph.
func isRecursive(fn *Function) bool {
	entry := fn.EntryBlock()
	if entry == nil {
		return false
	}
	visited := map[Addr]bool{}
	var stack []*BasicBlock
	for _, s := range entry.Successors() {
		stack = append(stack, s)
	}
	for len(stack) > 0 {
		bb := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if bb.Begin() == entry.Begin() {
			return true
		}
		if visited[bb.Begin()] {
			continue
		}
		visited[bb.Begin()] = true
		stack = append(stack, bb.Successors()...)
	}
	return false
}
