// Package timeline rebuilds call timelines from decoded trace events.
package timeline

import (
	"sort"
	"time"

	"github.com/ethpandaops/fntrace/internal/event"
)

// Call is one function invocation recovered from an ENTER/EXIT pair.
type Call struct {
	Function uint32
	CallSite uint32
	Depth    int
	Start    time.Duration
	End      time.Duration

	// Open is set when the matching exit was never seen. End is then
	// the time the call was abandoned: the end of the trace, or the exit
	// of an enclosing call.
	Open bool
}

// Duration returns how long the call was active.
func (c Call) Duration() time.Duration {
	return c.End - c.Start
}

// Timeline is the result of Reconstruct.
type Timeline struct {
	// Calls in order of entry.
	Calls []Call

	// Unmatched counts exits with no corresponding entry.
	Unmatched int

	MaxDepth int
	End      time.Duration
}

// Reconstruct pairs entries and exits in LIFO order. An exit that does
// not match the innermost open call closes the nearest enclosing call of
// the same function and marks everything inside it as open.
func Reconstruct(events []event.Event) Timeline {
	tl := Timeline{
		Calls: make([]Call, 0, len(events)/2),
	}

	stack := make([]int, 0, 64)

	for _, ev := range events {
		tl.End = ev.Elapsed

		switch ev.Kind {
		case event.KindEnter:
			tl.Calls = append(tl.Calls, Call{
				Function: ev.Function,
				CallSite: ev.CallSite,
				Depth:    len(stack),
				Start:    ev.Elapsed,
			})
			stack = append(stack, len(tl.Calls)-1)

			if len(stack) > tl.MaxDepth {
				tl.MaxDepth = len(stack)
			}
		case event.KindExit:
			match := -1

			for i := len(stack) - 1; i >= 0; i-- {
				if tl.Calls[stack[i]].Function == ev.Function {
					match = i

					break
				}
			}

			if match < 0 {
				tl.Unmatched++

				continue
			}

			for i := len(stack) - 1; i > match; i-- {
				tl.Calls[stack[i]].End = ev.Elapsed
				tl.Calls[stack[i]].Open = true
			}

			tl.Calls[stack[match]].End = ev.Elapsed
			stack = stack[:match]
		}
	}

	for _, idx := range stack {
		tl.Calls[idx].End = tl.End
		tl.Calls[idx].Open = true
	}

	return tl
}

// FunctionSummary aggregates all calls of one function.
type FunctionSummary struct {
	Function uint32
	Calls    int
	Total    time.Duration
	Max      time.Duration
}

// Summarize aggregates calls per function, ordered by total time
// descending. Recursive calls count towards the total at every level.
func Summarize(calls []Call) []FunctionSummary {
	byFn := make(map[uint32]*FunctionSummary, 64)

	for _, c := range calls {
		s, ok := byFn[c.Function]
		if !ok {
			s = &FunctionSummary{Function: c.Function}
			byFn[c.Function] = s
		}

		d := c.Duration()
		s.Calls++
		s.Total += d

		if d > s.Max {
			s.Max = d
		}
	}

	out := make([]FunctionSummary, 0, len(byFn))
	for _, s := range byFn {
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}

		return out[i].Function < out[j].Function
	})

	return out
}
