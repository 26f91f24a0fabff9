package disasm

// A minimal fixture ISA used across this package's tests, in the spirit
// of §8's "hand-assembled x86-64-style pseudo-encodings; implementations
// may adapt to a chosen test architecture." One opcode byte, optionally
// followed by an 8-byte little-endian absolute target address for
// control-flow instructions.
const (
	opMov  = 0x01
	opAdd  = 0x02
	opCmp  = 0x03
	opRet  = 0x04
	opNop  = 0x05
	opJe   = 0x06 // conditional branch, 9 bytes
	opJmp  = 0x07 // unconditional branch (terminator), 9 bytes
	opCall = 0x08 // call, 9 bytes

	// opBl models arm64's BL: both IsCall and IsBranch report true for it,
	// the same as instructions.IsBranchOp(ARM64_BL) on the real oracle.
	opBl = 0x09
)

type fixtureInst struct {
	op     byte
	target Addr
}

func fixtureSize(op byte) int {
	switch op {
	case opJe, opJmp, opCall, opBl:
		return 9
	default:
		return 1
	}
}

// fixtureDecoder decodes the fixture ISA above.
type fixtureDecoder struct{}

func (fixtureDecoder) GetInstruction(r *Region, addr Addr) (Inst, int, bool) {
	b := r.ByteRange(addr, 1)
	if len(b) == 0 {
		return nil, 1, false
	}
	op := b[0]
	size := fixtureSize(op)
	raw := r.ByteRange(addr, size)
	if len(raw) < size {
		return nil, size, false
	}
	switch op {
	case opMov, opAdd, opCmp, opRet, opNop:
		return fixtureInst{op: op}, size, true
	case opJe, opJmp, opCall, opBl:
		var target uint64
		for i := 0; i < 8; i++ {
			target |= uint64(raw[1+i]) << (8 * i)
		}
		return fixtureInst{op: op, target: Addr(target)}, size, true
	default:
		return nil, 1, false
	}
}

type fixtureOracle struct{}

func (fixtureOracle) IsBranch(i Inst) bool {
	op := i.(fixtureInst).op
	return op == opJe || op == opJmp || op == opBl
}

func (fixtureOracle) IsConditionalBranch(i Inst) bool {
	return i.(fixtureInst).op == opJe
}

func (fixtureOracle) IsCall(i Inst) bool {
	op := i.(fixtureInst).op
	return op == opCall || op == opBl
}

func (fixtureOracle) IsTerminator(i Inst) bool {
	op := i.(fixtureInst).op
	return op == opRet || op == opJmp
}

func (fixtureOracle) EvaluateBranch(i Inst, addr Addr, size int) (Addr, bool) {
	fi := i.(fixtureInst)
	if fi.op != opJe && fi.op != opJmp && fi.op != opCall && fi.op != opBl {
		return 0, false
	}
	return fi.target, true
}

// fixtureBytes assembles a sequence of fixture instructions into the byte
// slice meant to be placed at base (base itself does not affect the
// encoding, since targets are absolute).
func fixtureBytes(base Addr, insts ...fixtureInst) []byte {
	var out []byte
	for _, fi := range insts {
		out = append(out, fi.op)
		switch fi.op {
		case opJe, opJmp, opCall, opBl:
			for i := 0; i < 8; i++ {
				out = append(out, byte(fi.target>>(8*i)))
			}
		}
	}
	return out
}

func mov() fixtureInst  { return fixtureInst{op: opMov} }
func add() fixtureInst  { return fixtureInst{op: opAdd} }
func cmp() fixtureInst  { return fixtureInst{op: opCmp} }
func ret() fixtureInst  { return fixtureInst{op: opRet} }
func nop() fixtureInst  { return fixtureInst{op: opNop} }
func je(target Addr) fixtureInst   { return fixtureInst{op: opJe, target: target} }
func jmp(target Addr) fixtureInst  { return fixtureInst{op: opJmp, target: target} }
func call(target Addr) fixtureInst { return fixtureInst{op: opCall, target: target} }
func bl(target Addr) fixtureInst   { return fixtureInst{op: opBl, target: target} }
