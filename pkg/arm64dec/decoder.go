// Package arm64dec adapts github.com/blacktop/arm64-cgo/disassemble into
// the disasm.Decoder/disasm.Oracle pair, backing the Mach-O/ARM64 path
// through the Object Disassembler.
package arm64dec

import (
	"github.com/blacktop/arm64-cgo/disassemble"
	"github.com/blacktop/arm64-cgo/emulate/instructions"
	"github.com/pwnzen-mobile/ios-app-to-ir/pkg/disasm"
)

// Decoder decodes one AArch64 instruction at a time via
// disassemble.Decompose. ARM64 is fixed-width, so a decode failure still
// reports a 4-byte advance per disasm.Decoder's "nonzero advance on
// failure" contract.
type Decoder struct{}

func (Decoder) GetInstruction(r *disasm.Region, addr disasm.Addr) (disasm.Inst, int, bool) {
	raw := r.ByteRange(addr, 4)
	if len(raw) < 4 {
		return nil, 4, false
	}
	value := uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24

	var results [1024]byte
	instr, err := disassemble.Decompose(uint64(addr), value, &results)
	if err != nil {
		return nil, 4, false
	}
	return instr, 4, true
}

// Oracle classifies disassemble.Instruction values for the CFG builder.
// Branch targets are read from a direct branch's immediate or label
// operand; register-indirect branches are reported as unresolvable. The
// printer does not use it.
type Oracle struct{}

func (Oracle) IsBranch(i disasm.Inst) bool {
	instr := i.(*disassemble.Instruction)
	return instructions.IsBranchOp(instr) || isReturn(instr)
}

func (Oracle) IsConditionalBranch(i disasm.Inst) bool {
	instr := i.(*disassemble.Instruction)
	if instr.Encoding == disassemble.ENC_CBZ_64_COMPBRANCH {
		return true
	}
	switch instr.Operation {
	case disassemble.ARM64_CBZ, disassemble.ARM64_CBNZ, disassemble.ARM64_TBZ, disassemble.ARM64_TBNZ:
		return true
	}
	return false
}

func (Oracle) IsCall(i disasm.Inst) bool {
	instr := i.(*disassemble.Instruction)
	return instr.Operation == disassemble.ARM64_BL || instr.Operation == disassemble.ARM64_BLR
}

func (Oracle) IsTerminator(i disasm.Inst) bool {
	instr := i.(*disassemble.Instruction)
	if isReturn(instr) {
		return true
	}
	switch instr.Operation {
	case disassemble.ARM64_B, disassemble.ARM64_BR, disassemble.ARM64_BRAA, disassemble.ARM64_BRAAZ,
		disassemble.ARM64_BRAB, disassemble.ARM64_BRABZ:
		return true
	}
	return false
}

func (Oracle) EvaluateBranch(i disasm.Inst, addr disasm.Addr, size int) (disasm.Addr, bool) {
	instr := i.(*disassemble.Instruction)
	switch instr.Encoding {
	case disassemble.ENC_BL_ONLY_BRANCH_IMM, disassemble.ENC_B_ONLY_BRANCH_IMM:
		return disasm.Addr(instr.Operands[0].Immediate), true
	case disassemble.ENC_CBZ_64_COMPBRANCH:
		return disasm.Addr(instr.Operands[1].Immediate), true
	}
	for _, op := range instr.Operands {
		if op.Class == disassemble.LABEL {
			return disasm.Addr(op.Immediate), true
		}
	}
	return 0, false // indirect branch (BR/BLR through a register): unresolvable statically
}

func isReturn(instr *disassemble.Instruction) bool {
	switch instr.Operation {
	case disassemble.ARM64_RET, disassemble.ARM64_RETAA, disassemble.ARM64_RETAB:
		return true
	}
	return false
}
