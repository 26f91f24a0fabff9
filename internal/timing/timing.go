// Package timing implements a small timer-group report, modeled on
// llvm-dec.cpp's TimerGroup: wrap named phases of a run (binary load,
// Mach-O parse, CFG build, IR lowering) and print a summary at the end.
package timing

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// Group collects named Timers for one run and prints them together,
// mirroring llvm-dec.cpp's `TimerGroup TG("... llvm-dec module time
// report ...")`.
type Group struct {
	name   string
	timers []*Timer
}

func NewGroup(name string) *Group {
	return &Group{name: name}
}

// Timer tracks one phase's wall-clock duration. Start/Stop bracket the
// phase the same way llvm-dec.cpp calls startTimer()/stopTimer() around
// bin-load, MachO-parse, MC-build, and DC-translate.
type Timer struct {
	name     string
	started  time.Time
	elapsed  time.Duration
	running  bool
}

// NewTimer registers and returns a new timer inside g.
func (g *Group) NewTimer(name string) *Timer {
	t := &Timer{name: name}
	g.timers = append(g.timers, t)
	return t
}

func (t *Timer) Start() {
	t.started = time.Now()
	t.running = true
}

func (t *Timer) Stop() {
	if !t.running {
		return
	}
	t.elapsed += time.Since(t.started)
	t.running = false
}

func (t *Timer) Elapsed() time.Duration { return t.elapsed }

// Time runs fn while the timer is started, stopping it regardless of
// whether fn returns an error.
func Time(t *Timer, fn func() error) error {
	t.Start()
	defer t.Stop()
	return fn()
}

// Report prints every timer in g to w, sorted by descending elapsed time
// — the phase that cost the most wall-clock appears first, same as
// llvm-dec.cpp's report ordering.
func (g *Group) Report(w io.Writer) {
	sorted := append([]*Timer(nil), g.timers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].elapsed > sorted[j].elapsed })

	fmt.Fprintf(w, "=== %s ===\n", g.name)
	var total time.Duration
	for _, t := range sorted {
		fmt.Fprintf(w, "  %-32s %s\n", t.name, t.elapsed)
		total += t.elapsed
	}
	fmt.Fprintf(w, "  %-32s %s\n", "Total", total)
}
