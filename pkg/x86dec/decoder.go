// Package x86dec adapts golang.org/x/arch/x86/x86asm into the
// disasm.Decoder/disasm.Oracle pair. It is not wired into the CLI's
// Mach-O pipeline (Apple silicon binaries are AArch64), but it gives the
// Object Disassembler a second, genuinely third-party-backed decoder
// pair alongside pkg/arm64dec, covering x86-64 Mach-O slices for a
// future fat-binary or Rosetta-targeted build.
package x86dec

import (
	"golang.org/x/arch/x86/x86asm"

	"github.com/pwnzen-mobile/ios-app-to-ir/pkg/disasm"
)

// Decoder wraps x86asm.Decode. Mode is the addressing width (32 or 64).
type Decoder struct {
	Mode int
}

func (d Decoder) GetInstruction(r *disasm.Region, addr disasm.Addr) (disasm.Inst, int, bool) {
	window := r.ByteRange(addr, 15) // longest possible x86 instruction
	if len(window) == 0 {
		return nil, 1, false
	}
	inst, err := x86asm.Decode(window, d.mode())
	if err != nil || inst.Len == 0 || inst.Op == 0 {
		return nil, 1, false
	}
	return &inst, inst.Len, true
}

func (d Decoder) mode() int {
	if d.Mode == 0 {
		return 64
	}
	return d.Mode
}

// Oracle classifies x86asm.Inst values, following the same Op-based
// control-flow switch an x86 GoSyntax-style disassembler already uses.
type Oracle struct{}

func (Oracle) IsBranch(i disasm.Inst) bool {
	inst := i.(*x86asm.Inst)
	switch inst.Op {
	case x86asm.JMP, x86asm.LJMP,
		x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JCXZ, x86asm.JE, x86asm.JECXZ,
		x86asm.JG, x86asm.JGE, x86asm.JL, x86asm.JLE, x86asm.JNE, x86asm.JNO, x86asm.JNP,
		x86asm.JNS, x86asm.JO, x86asm.JP, x86asm.JRCXZ, x86asm.JS,
		x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE:
		return true
	}
	return false
}

func (Oracle) IsConditionalBranch(i disasm.Inst) bool {
	inst := i.(*x86asm.Inst)
	switch inst.Op {
	case x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JCXZ, x86asm.JE, x86asm.JECXZ,
		x86asm.JG, x86asm.JGE, x86asm.JL, x86asm.JLE, x86asm.JNE, x86asm.JNO, x86asm.JNP,
		x86asm.JNS, x86asm.JO, x86asm.JP, x86asm.JRCXZ, x86asm.JS,
		x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE:
		return true
	}
	return false
}

func (Oracle) IsCall(i disasm.Inst) bool {
	inst := i.(*x86asm.Inst)
	return inst.Op == x86asm.CALL || inst.Op == x86asm.LCALL
}

func (Oracle) IsTerminator(i disasm.Inst) bool {
	inst := i.(*x86asm.Inst)
	switch inst.Op {
	case x86asm.RET, x86asm.LRET, x86asm.JMP, x86asm.LJMP, x86asm.UD1, x86asm.UD2:
		return true
	}
	return false
}

func (Oracle) EvaluateBranch(i disasm.Inst, addr disasm.Addr, size int) (disasm.Addr, bool) {
	inst := i.(*x86asm.Inst)
	if len(inst.Args) == 0 || inst.Args[0] == nil {
		return 0, false
	}
	rel, ok := inst.Args[0].(x86asm.Rel)
	if !ok {
		return 0, false // indirect jump/call through a register or memory operand
	}
	return disasm.Addr(int64(addr) + int64(size) + int64(rel)), true
}
