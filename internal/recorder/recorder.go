// Package recorder turns function entry and exit hooks into a binary
// trace file.
//
// A Recorder is driven by exactly one thread of control. The hook
// handlers take no locks, never allocate and never log, so they can run
// on every call and return of the traced program. The handlers must
// themselves be excluded from instrumentation.
package recorder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/fntrace/internal/buffer"
	"github.com/ethpandaops/fntrace/internal/clock"
	"github.com/ethpandaops/fntrace/internal/event"
	"github.com/ethpandaops/fntrace/internal/export"
)

// State is the recorder lifecycle state.
type State uint32

const (
	StateUninitialized State = iota
	StateReady
	StateShutdown
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

var (
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("recorder already started")
	// ErrRecorderActive is returned when another recorder in the
	// process is ready.
	ErrRecorderActive = errors.New("another recorder is active in this process")
)

// active is the recorder currently in StateReady, if any.
var active atomic.Pointer[Recorder]

// Output is the destination of flushed records.
type Output interface {
	io.Writer
	io.Closer
}

// Opener opens the trace file for writing.
type Opener func(path string) (Output, error)

// OpenFile creates or truncates path for writing.
func OpenFile(path string) (Output, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Hooks is the callback pair an instrumentation layer invokes around
// every function body.
type Hooks struct {
	Enter func(fn, callSite uintptr)
	Exit  func(fn, callSite uintptr)
}

// Stats summarises what a recorder has written so far.
type Stats struct {
	Flushes      uint64
	FlushedBytes uint64
	WriteErrors  uint64
	Buffered     int
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(r *Recorder) {
		r.clock = c
	}
}

// WithOpener replaces how the trace file is opened.
func WithOpener(open Opener) Option {
	return func(r *Recorder) {
		r.open = open
	}
}

// WithHealth reports flushes and lifecycle changes to h.
func WithHealth(h *export.HealthMetrics) Option {
	return func(r *Recorder) {
		r.health = h
	}
}

// Recorder owns the trace buffer, the encoder and the output file.
type Recorder struct {
	log    logrus.FieldLogger
	cfg    Config
	clock  clock.Clock
	open   Opener
	health *export.HealthMetrics

	state   State
	started bool
	out     Output
	buf     *buffer.Buffer
	enc     event.Encoder
	width   int

	flushes      uint64
	flushedBytes uint64
	writeErrors  uint64
	lastWriteErr error
}

// New creates a Recorder in StateUninitialized. Nothing is opened or
// allocated until Start.
func New(log logrus.FieldLogger, cfg Config, opts ...Option) *Recorder {
	r := &Recorder{
		log:   log.WithField("component", "recorder"),
		cfg:   cfg,
		clock: clock.Real(),
		open:  OpenFile,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start opens the output file and allocates the buffer. It must run
// before the first traced call. Start is attempted once: on failure the
// recorder stays uninitialized for good and every hook is a no-op.
func (r *Recorder) Start() error {
	if r.started || r.state == StateShutdown {
		return ErrAlreadyStarted
	}

	r.started = true

	if err := r.start(); err != nil {
		if r.health != nil {
			r.health.InitFailures.Inc()
		}

		return err
	}

	return nil
}

func (r *Recorder) start() error {
	if err := r.cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	if !active.CompareAndSwap(nil, r) {
		return ErrRecorderActive
	}

	// The buffer comes first so a failure leaves no file to close.
	buf, err := buffer.New(r.cfg.Capacity, r.cfg.Threshold)
	if err != nil {
		active.CompareAndSwap(r, nil)

		return fmt.Errorf("allocating buffer: %w", err)
	}

	out, err := r.open(r.cfg.OutputPath)
	if err != nil {
		active.CompareAndSwap(r, nil)

		return fmt.Errorf("opening trace file %s: %w", r.cfg.OutputPath, err)
	}

	r.out = out
	r.buf = buf
	r.enc = event.NewEncoder(r.cfg.Generation, r.clock.Now())
	r.width = r.enc.Width()

	if r.health != nil {
		r.health.BufferCapacityBytes.Set(float64(buf.Cap()))
	}

	r.setState(StateReady)

	r.log.WithFields(logrus.Fields{
		"path":       r.cfg.OutputPath,
		"generation": r.enc.Generation().String(),
		"threshold":  r.cfg.Threshold,
		"capacity":   buf.Cap(),
	}).Info("Recorder started")

	return nil
}

// Stop flushes what is buffered, syncs and closes the file and releases
// the buffer. Hooks called afterwards do nothing. Stop is idempotent.
func (r *Recorder) Stop() error {
	switch r.state {
	case StateShutdown:
		return nil
	case StateUninitialized:
		r.setState(StateShutdown)

		return nil
	}

	r.flush()

	var errs []error

	if err := syncOutput(r.out); err != nil {
		errs = append(errs, fmt.Errorf("syncing trace file: %w", err))
	}

	if err := r.out.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing trace file: %w", err))
	}

	r.out = nil
	r.buf = nil

	r.setState(StateShutdown)
	active.CompareAndSwap(r, nil)

	fields := logrus.Fields{
		"flushes": r.flushes,
		"bytes":   r.flushedBytes,
	}

	if r.writeErrors > 0 {
		r.log.WithFields(fields).
			WithField("write_errors", r.writeErrors).
			WithError(r.lastWriteErr).
			Warn("Trace file writes failed, trace is incomplete")
	}

	r.log.WithFields(fields).Info("Recorder stopped")

	return errors.Join(errs...)
}

// OnEnter records a function entry. A nil Recorder ignores the call.
func (r *Recorder) OnEnter(fn, callSite uintptr) {
	r.record(event.KindEnter, fn, callSite)
}

// OnExit records a function return.
func (r *Recorder) OnExit(fn, callSite uintptr) {
	r.record(event.KindExit, fn, callSite)
}

func (r *Recorder) record(kind event.Kind, fn, callSite uintptr) {
	if r == nil || r.state != StateReady {
		return
	}

	r.enc.Encode(r.buf.Next(r.width), kind, fn, callSite, r.clock.Now())

	if r.buf.IsFull() {
		r.flush()
	}
}

// Hooks returns the handler pair for registration with an
// instrumentation layer.
func (r *Recorder) Hooks() Hooks {
	return Hooks{
		Enter: r.OnEnter,
		Exit:  r.OnExit,
	}
}

// State returns the lifecycle state.
func (r *Recorder) State() State {
	return r.state
}

// Stats returns the recorder's write counters.
func (r *Recorder) Stats() Stats {
	s := Stats{
		Flushes:      r.flushes,
		FlushedBytes: r.flushedBytes,
		WriteErrors:  r.writeErrors,
	}

	if r.buf != nil {
		s.Buffered = r.buf.Len()
	}

	return s
}

func (r *Recorder) setState(s State) {
	r.state = s

	if r.health != nil {
		r.health.RecorderState.Set(float64(s))
	}
}
