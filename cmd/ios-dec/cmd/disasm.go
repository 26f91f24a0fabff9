/*
Copyright © 2024-2026 the ios-app-to-ir authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pwnzen-mobile/ios-app-to-ir/internal/printer"
	"github.com/pwnzen-mobile/ios-app-to-ir/internal/timing"
	"github.com/pwnzen-mobile/ios-app-to-ir/internal/utils"
	"github.com/pwnzen-mobile/ios-app-to-ir/pkg/arm64dec"
	"github.com/pwnzen-mobile/ios-app-to-ir/pkg/disasm"
	"github.com/pwnzen-mobile/ios-app-to-ir/pkg/machoshim"
)

var (
	entryOverride  uint64
	legacyFixpoint bool
	withCFG        bool
	showStrings    bool
)

func init() {
	disasmCmd.Flags().Uint64Var(&entryOverride, "entry", 0, "override the recovered LC_MAIN entry point")
	disasmCmd.Flags().BoolVar(&legacyFixpoint, "legacy-fixpoint", false, "reproduce the original fixpoint-loop bug (only the seed functions are built)")
	disasmCmd.Flags().BoolVar(&withCFG, "with-cfg", true, "recover control flow (disable for a flat, linear-only sweep)")
	disasmCmd.Flags().BoolVar(&showStrings, "strings", false, "print ASCII string literals found in data atoms")
	rootCmd.AddCommand(disasmCmd)
}

var disasmCmd = &cobra.Command{
	Use:   "disasm <macho>",
	Short: "Recover a module's control-flow graph from a Mach-O binary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := uuid.New()
		log.WithField("run", runID).Info("starting disassembly")

		tg := timing.NewGroup("ios-dec module time report")
		loadTimer := tg.NewTimer("Bin load overhead")
		buildTimer := tg.NewTimer("CFG build overhead")
		defer tg.Report(os.Stderr)

		var shim *machoshim.Shim
		if err := timing.Time(loadTimer, func() error {
			var err error
			shim, err = machoshim.Open(args[0])
			return err
		}); err != nil {
			return errors.Wrapf(err, "opening %s", args[0])
		}
		defer shim.Close()

		module := disasm.NewModule()
		shim.PopulateRegions(&module.Regions)

		symbolizer := disasm.CacheSymbolizer(shim, 4096)
		builder := &disasm.Builder{
			Module:     module,
			Cache:      &disasm.DecodeCache{},
			Decoder:    arm64dec.Decoder{},
			Oracle:     arm64dec.Oracle{},
			Symbolizer: symbolizer,
			ToOriginal: shim.ToOriginal,
		}
		factory := &disasm.Factory{
			Module:     module,
			Builder:    builder,
			Symbolizer: symbolizer,
			ToOriginal: shim.ToOriginal,
		}
		driver := &disasm.Driver{
			Module:  module,
			Factory: factory,
			Symbols: shim,
			Decoder: arm64dec.Decoder{},
			Legacy:  legacyFixpoint,
			Passes: []disasm.Pass{
				disasm.NamingPass{},
				disasm.TailCallPass{Symbolizer: symbolizer, Oracle: arm64dec.Oracle{}, ToOriginal: shim.ToOriginal},
			},
		}

		entry, ok := shim.EntryPoint()
		if entryOverride != 0 {
			entry, ok = disasm.Addr(entryOverride), true
		}
		if !ok {
			return errors.New("no LC_MAIN entry point found; pass --entry")
		}

		// sweep always runs: it's the --strings data-atom source and the
		// flat-sweep half of the code-size comparison below. When
		// --with-cfg is off, it's also the only build module has.
		sweep := disasm.NewModule()
		shim.PopulateRegions(&sweep.Regions)
		sweepDriver := &disasm.Driver{Module: sweep, Decoder: arm64dec.Decoder{}}

		s := spinner.New(spinner.CharSets[38], 100*time.Millisecond)
		s.Prefix = color.BlueString("   • Recovering CFG... ")
		if Color {
			s.Start()
		}
		err := timing.Time(buildTimer, func() error {
			sweepDriver.BuildSectionAtoms()
			if !withCFG {
				return nil
			}
			return driver.Run(entry, shim.StaticInitializers(), shim.StaticDestructors())
		})
		s.Stop()
		if err != nil {
			return errors.Wrap(err, "building module")
		}

		p := &printer.Printer{Color: Color, Out: os.Stdout}
		if withCFG {
			p.PrintModule(module)
		} else {
			p.PrintTextAtoms(sweep)
		}
		if showStrings {
			fmt.Fprintln(os.Stdout, "strings:")
			p.PrintDataAtoms(sweep)
		}

		stats := module.Stats()
		cacheStats := builder.Cache.Stats()
		comparison := disasm.CompareCodeSize(sweep, module)
		log.Info("module summary")
		utils.Indent(log.Info, 2)(fmt.Sprintf("functions: %d (external: %d)  blocks: %d  linear: %d  recursive: %d",
			stats.Functions, stats.ExternalFunctions, stats.Blocks, stats.LinearFunctions, stats.RecursiveFunctions))
		utils.Indent(log.Info, 2)(fmt.Sprintf("code size: %d bytes linear sweep, %d bytes recursive CFG",
			comparison.LinearSweepBytes, comparison.RecursiveBytes))
		utils.Indent(log.Info, 2)(fmt.Sprintf("decode cache: %d cached, %d uniqued, %d translated",
			cacheStats.Cached, cacheStats.Uniqued, cacheStats.Translated))

		return nil
	},
}
