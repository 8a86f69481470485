// Package instrument stands in for compiler-inserted function hooks. A
// traced function opens with
//
//	defer instrument.Enter(h).Exit()
//
// which reports the function's entry address and its call site to h on
// entry and again on return.
//
// Nothing in this package may itself call Enter.
package instrument

import "runtime"

// Handler receives function boundary events.
type Handler interface {
	OnEnter(fn, callSite uintptr)
	OnExit(fn, callSite uintptr)
}

// Frame identifies one active call.
type Frame struct {
	h        Handler
	fn       uintptr
	callSite uintptr
}

// Enter reports entry into its caller and returns the frame to close on
// return. A nil handler yields a frame whose Exit does nothing; a typed
// nil handler is still called and must tolerate a nil receiver.
//
//go:noinline
func Enter(h Handler) Frame {
	if h == nil {
		return Frame{}
	}

	// pcs[0] is inside the traced function, pcs[1] is the return
	// address in its caller.
	var pcs [2]uintptr

	n := runtime.Callers(2, pcs[:])
	if n == 0 {
		return Frame{}
	}

	f := Frame{
		h:  h,
		fn: entry(pcs[0]),
	}

	if n > 1 {
		f.callSite = pcs[1]
	}

	h.OnEnter(f.fn, f.callSite)

	return f
}

// Exit reports the return of the frame's function.
func (f Frame) Exit() {
	if f.h == nil {
		return
	}

	f.h.OnExit(f.fn, f.callSite)
}

// Function returns the entry address of the traced function.
func (f Frame) Function() uintptr {
	return f.fn
}

// CallSite returns the return address in the caller.
func (f Frame) CallSite() uintptr {
	return f.callSite
}

func entry(pc uintptr) uintptr {
	fn := runtime.FuncForPC(pc - 1)
	if fn == nil {
		return pc
	}

	return fn.Entry()
}
