// Package buffer holds encoded trace records until they are flushed.
package buffer

import (
	"fmt"

	"github.com/ethpandaops/fntrace/internal/event"
)

// Headroom is the space reserved past the capacity so that the record
// which trips the threshold always fits.
const Headroom = event.MaxRecordWidth

const (
	// DefaultThreshold is the flush boundary in bytes.
	DefaultThreshold = 1 << 16
	// DefaultCapacity is the arena size excluding headroom.
	DefaultCapacity = 1 << 18
)

// Buffer is a fixed byte arena with a write cursor. It performs no bounds
// checks: callers rely on the threshold and headroom to keep writes inside
// the arena, and must flush as soon as IsFull reports true.
//
// A Buffer is not safe for concurrent use.
type Buffer struct {
	arena     []byte
	cursor    int
	threshold int
}

// New allocates a Buffer. The threshold must be a power of two no smaller
// than the widest record, so that every record width divides it and the
// cursor lands on it exactly.
func New(capacity, threshold int) (*Buffer, error) {
	if err := Validate(capacity, threshold); err != nil {
		return nil, err
	}

	return &Buffer{
		arena:     make([]byte, capacity+Headroom),
		threshold: threshold,
	}, nil
}

// Validate checks a capacity and threshold pair without allocating.
func Validate(capacity, threshold int) error {
	if threshold <= 0 || threshold&(threshold-1) != 0 {
		return fmt.Errorf("threshold %d is not a power of two", threshold)
	}

	if threshold < event.MaxRecordWidth {
		return fmt.Errorf(
			"threshold %d is smaller than a record (%d bytes)",
			threshold, event.MaxRecordWidth,
		)
	}

	if threshold > capacity {
		return fmt.Errorf(
			"threshold %d exceeds capacity %d", threshold, capacity,
		)
	}

	return nil
}

// Append copies p at the cursor and advances it by len(p).
func (b *Buffer) Append(p []byte) {
	b.cursor += copy(b.arena[b.cursor:], p)
}

// Next reserves n bytes at the cursor for in-place encoding and advances
// the cursor past them.
func (b *Buffer) Next(n int) []byte {
	p := b.arena[b.cursor : b.cursor+n]
	b.cursor += n

	return p
}

// IsFull reports whether the cursor has reached the threshold bit. The
// test is a single AND; the arena between the threshold and its real end
// is never used.
func (b *Buffer) IsFull() bool {
	return b.cursor&b.threshold != 0
}

// Drain returns the filled bytes and resets the cursor. The returned slice
// aliases the arena and is only valid until the next write.
func (b *Buffer) Drain() []byte {
	p := b.arena[:b.cursor]
	b.cursor = 0

	return p
}

// Len returns the number of bytes written since the last drain.
func (b *Buffer) Len() int {
	return b.cursor
}

// Cap returns the arena size including headroom.
func (b *Buffer) Cap() int {
	return len(b.arena)
}

// Threshold returns the flush boundary.
func (b *Buffer) Threshold() int {
	return b.threshold
}
