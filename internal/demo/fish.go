// Package demo is a small instrumented program used to exercise the
// recorder end to end.
package demo

import (
	"fmt"
	"io"
	"time"

	"github.com/ethpandaops/fntrace/internal/instrument"
)

// Program is the traced program: Run calls Fish, which calls Fish2, which
// recurses through Fish3.
type Program struct {
	h         instrument.Handler
	out       io.Writer
	depth     int
	sleepUnit time.Duration
}

// NewProgram returns a Program reporting its calls to h.
func NewProgram(h instrument.Handler, out io.Writer, depth int, sleepUnit time.Duration) *Program {
	return &Program{
		h:         h,
		out:       out,
		depth:     depth,
		sleepUnit: sleepUnit,
	}
}

// Run executes the program.
//
//go:noinline
func (p *Program) Run() {
	defer instrument.Enter(p.h).Exit()

	fmt.Fprintln(p.out, "Main")
	p.Fish()
}

// Fish prints around the call to Fish2.
//
//go:noinline
func (p *Program) Fish() {
	defer instrument.Enter(p.h).Exit()

	fmt.Fprint(p.out, "Starting to fish...")
	p.Fish2()
	fmt.Fprintln(p.out, "Done!")
}

// Fish2 starts the recursion.
//
//go:noinline
func (p *Program) Fish2() {
	defer instrument.Enter(p.h).Exit()

	p.Fish3(p.depth)
}

// Fish3 recurses down to zero, then each level sleeps i sleep units on
// the way back up.
//
//go:noinline
func (p *Program) Fish3(i int) {
	defer instrument.Enter(p.h).Exit()

	if i > 0 {
		p.Fish3(i - 1)
		time.Sleep(time.Duration(i) * p.sleepUnit)
	}
}
