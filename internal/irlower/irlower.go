// Package irlower is the boundary between the Object Disassembler and
// the rest of a static binary translator: lowering a recovered
// Module/Function/BasicBlock into compiler IR. IR lowering internals
// live in a separately-scoped system; this package gives that boundary
// a narrow Go interface rather than leaving callers to reach into
// pkg/disasm's types directly.
package irlower

import "github.com/pwnzen-mobile/ios-app-to-ir/pkg/disasm"

// Lowerer turns one recovered function into whatever IR representation
// a downstream translator uses. No implementation ships here — the DC
// translator this models ("RawDC" in llvm-dec.cpp) is a distinct,
// separately-scoped system.
type Lowerer interface {
	LowerFunction(fn *disasm.Function) error
}

// Noop satisfies Lowerer for callers that don't need real IR lowering.
type Noop struct{}

func (Noop) LowerFunction(*disasm.Function) error { return nil }
