// Package printer renders a recovered Module as colorized, demangled
// text — the "what a human reads" counterpart to irlower's "what a
// compiler reads". Generalizes a single-function colorized disassembly
// printer up to a whole module's worth of basic blocks.
package printer

import (
	"fmt"
	"io"
	"regexp"

	"github.com/fatih/color"

	"github.com/pwnzen-mobile/ios-app-to-ir/internal/utils"
	"github.com/pwnzen-mobile/ios-app-to-ir/pkg/disasm"
	"github.com/pwnzen-mobile/ios-app-to-ir/pkg/symbols"
)

var (
	colorAddr     = color.New(color.Bold, color.FgMagenta).SprintfFunc()
	colorFuncName = color.New(color.Bold, color.FgHiGreen).SprintfFunc()
	colorLabel    = color.New(color.FgHiYellow).SprintfFunc()
	colorComment  = color.New(color.Faint).SprintfFunc()

	immPattern = regexp.MustCompile(`#?-?0x[0-9a-fA-F]+`)
	regPattern = regexp.MustCompile(`\W([wxvbhsdqzp][0-9]{1,2}|(c|s)psr(_c)?|pc|sl|sb|fp|ip|sp|lr)\b`)
)

// Printer renders modules to a writer, optionally colorizing output
// (whether w is a TTY is the caller's call, surfaced as the CLI's
// --color flag).
type Printer struct {
	Color bool
	Out   io.Writer
}

// PrintModule writes every recovered function's disassembly in address
// order. Function names already went through NamingPass's Swift/C++
// demangling; symbols.Display leaves such a name as it is, so a j_-prefixed
// stub prints as j_<demangled target> with no further annotation.
func (p *Printer) PrintModule(m *disasm.Module) {
	for _, addr := range m.FindFunctionStarts() {
		if fn := m.FindFunctionAt(addr); fn != nil {
			p.printFunction(fn)
		}
	}
}

func (p *Printer) printFunction(fn *disasm.Function) {
	name := symbols.Display(fn.Name(), true)
	if p.Color {
		fmt.Fprintf(p.Out, "%s:\n", colorFuncName(name))
	} else {
		fmt.Fprintf(p.Out, "%s:\n", name)
	}

	if fn.IsExternal() {
		fmt.Fprintf(p.Out, "  ; external binding, no CFG recovered\n")
		return
	}

	for _, bb := range fn.Blocks() {
		p.printBlock(bb)
	}
}

func (p *Printer) printBlock(bb *disasm.BasicBlock) {
	label := fmt.Sprintf("loc_%x", bb.Begin())
	if p.Color {
		fmt.Fprintf(p.Out, "%s:\n", colorLabel(label))
	} else {
		fmt.Fprintf(p.Out, "%s:\n", label)
	}

	for _, inst := range bb.Atom().Instructions() {
		p.printInst(inst)
	}

	if bb.IsTailCall() {
		fmt.Fprintf(p.Out, "  %s\n", p.comment("; tail call"))
	}
}

func (p *Printer) printInst(inst disasm.DecodedInst) {
	addr := fmt.Sprintf("%#08x", inst.Address)
	text := fmt.Sprintf("%v", inst.Inst)
	if p.Color {
		addr = colorAddr(addr)
		text = immPattern.ReplaceAllStringFunc(text, func(s string) string {
			return color.New(color.FgMagenta).Sprint(s)
		})
		text = regPattern.ReplaceAllStringFunc(text, func(s string) string {
			return string(s[0]) + color.New(color.FgHiBlue).Sprint(s[1:])
		})
	}
	fmt.Fprintf(p.Out, "  %s:  %s\n", addr, text)
}

func (p *Printer) comment(s string) string {
	if p.Color {
		return colorComment(s)
	}
	return s
}

// PrintTextAtoms writes one address-labeled instruction listing per text
// atom in m, in address order — the flat-sweep counterpart to PrintModule
// for a module built with Driver.BuildSectionAtoms, which has no basic
// blocks or functions to walk.
func (p *Printer) PrintTextAtoms(m *disasm.Module) {
	for _, atom := range m.Atoms.Atoms() {
		text, ok := atom.(*disasm.TextAtom)
		if !ok {
			continue
		}
		label := fmt.Sprintf("atom_%x", text.Begin())
		if p.Color {
			fmt.Fprintf(p.Out, "%s:\n", colorLabel(label))
		} else {
			fmt.Fprintf(p.Out, "%s:\n", label)
		}
		for _, inst := range text.Instructions() {
			p.printInst(inst)
		}
	}
}

// PrintDataAtoms writes one line per data atom in m that decodes as a
// printable ASCII run — a lightweight "strings" view of the literals a
// module's functions reference.
func (p *Printer) PrintDataAtoms(m *disasm.Module) {
	for _, atom := range m.Atoms.Atoms() {
		data, ok := atom.(*disasm.DataAtom)
		if !ok {
			continue
		}
		text := string(data.Data())
		if !utils.IsASCII(text) || len(text) == 0 {
			continue
		}
		addr := fmt.Sprintf("%#08x", data.Begin())
		if p.Color {
			addr = colorAddr(addr)
		}
		fmt.Fprintf(p.Out, "  %s:  %q\n", addr, text)
	}
}
