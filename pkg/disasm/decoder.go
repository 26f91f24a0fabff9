package disasm

// Inst is an opaque decoded instruction. The Object Disassembler never
// looks inside it; it only threads it through to atoms and, eventually,
// to IR lowering (internal/irlower), asking the Oracle for everything it
// needs to know about control flow.
type Inst any

// Decoder decodes a single instruction from r at addr. On success it
// reports the instruction and the number of bytes consumed. On failure it
// still reports a nonzero advance (the number of bytes to skip as
// invalid data), matching §6's "on failure, size still reports a nonzero
// advance amount".
//
// Implementations: pkg/arm64dec (production, backs the Mach-O/ARM64 path)
// and pkg/x86dec (x86-64; not used by the CLI and has no tests of its
// own).
type Decoder interface {
	GetInstruction(r *Region, addr Addr) (inst Inst, size int, ok bool)
}

// Oracle answers the instruction-level analysis predicates the CFG
// Builder needs: is this instruction a branch, a call, a terminator, and
// if it is a branch, what (if anything) does it statically resolve to.
//
// Implementations live alongside their Decoder, since both are derived
// from the same decoded-instruction representation.
type Oracle interface {
	IsBranch(i Inst) bool
	IsConditionalBranch(i Inst) bool
	IsCall(i Inst) bool
	IsTerminator(i Inst) bool
	// EvaluateBranch decides, at decode time, whether a branch has a
	// statically known target. addr and size are the branch's own
	// address and encoded length.
	EvaluateBranch(i Inst, addr Addr, size int) (target Addr, ok bool)
}
