package event

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"
)

const readBufferSize = 16 << 10

// Reader decodes a trace stream record by record and accumulates the
// time axis.
type Reader struct {
	r     *bufio.Reader
	gen   Generation
	width int
	buf   [MaxRecordWidth]byte

	// Limit stops the reader after this many records. Zero means no
	// limit.
	Limit int

	index     int
	elapsed   time.Duration
	firstSecs uint32
	stats     *Stats
}

// NewReader returns a Reader for a trace written with gen.
func NewReader(r io.Reader, gen Generation) *Reader {
	return &Reader{
		r:     bufio.NewReaderSize(r, readBufferSize),
		gen:   gen,
		width: gen.Width(),
	}
}

// WithStats makes the reader count every decoded event in s.
func (r *Reader) WithStats(s *Stats) *Reader {
	r.stats = s

	return r
}

// Next returns the next event. It returns io.EOF when the stream ends on
// a record boundary or the limit is reached.
func (r *Reader) Next() (Event, error) {
	if r.width == 0 {
		return Event{}, fmt.Errorf("%w: %d", ErrUnknownGeneration, r.gen)
	}

	if r.Limit > 0 && r.index >= r.Limit {
		return Event{}, io.EOF
	}

	n, err := io.ReadFull(r.r, r.buf[:r.width])
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Event{}, io.EOF
		}

		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Event{}, fmt.Errorf(
				"record %d: %w: trailing %d bytes", r.index, ErrShortRecord, n,
			)
		}

		return Event{}, fmt.Errorf("reading record %d: %w", r.index, err)
	}

	rec, err := r.gen.Decode(r.buf[:r.width])
	if err != nil {
		return Event{}, fmt.Errorf("record %d: %w", r.index, err)
	}

	if r.gen == GenerationV3 {
		r.elapsed += time.Duration(rec.DeltaNs)
	} else {
		if r.index == 0 {
			r.firstSecs = rec.Seconds
		}

		// Signed so a wall clock stepping back yields a negative offset
		// rather than a wrapped one.
		r.elapsed = time.Duration(int32(rec.Seconds-r.firstSecs)) * time.Second
	}

	ev := Event{
		Record:  rec,
		Index:   r.index,
		Elapsed: r.elapsed,
	}

	r.index++

	if r.stats != nil {
		r.stats.Record(rec.Kind)
	}

	return ev, nil
}

// ReadAll decodes every remaining event.
func (r *Reader) ReadAll() ([]Event, error) {
	events := make([]Event, 0, 1024)

	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}

		if err != nil {
			return events, err
		}

		events = append(events, ev)
	}
}
