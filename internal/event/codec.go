package event

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Encoder writes records of one generation and carries the last clock
// reading needed for delta encoding. The zero value is not usable; use
// NewEncoder.
type Encoder struct {
	gen   Generation
	width int
	last  time.Time
}

// NewEncoder returns an Encoder whose first delta is measured from start.
func NewEncoder(gen Generation, start time.Time) Encoder {
	return Encoder{
		gen:   gen,
		width: gen.Width(),
		last:  start,
	}
}

// Generation returns the layout the encoder produces.
func (e *Encoder) Generation() Generation {
	return e.gen
}

// Width returns the size of every record the encoder produces.
func (e *Encoder) Width() int {
	return e.width
}

// Encode writes one record for the observation into dst, which must hold
// at least Width bytes, and returns the number of bytes written.
//
// Identifiers are truncated to 32 bits. On 64-bit platforms the high half
// of an address is lost.
func (e *Encoder) Encode(
	dst []byte,
	kind Kind,
	fn, cs uintptr,
	now time.Time,
) int {
	if e.gen == GenerationV3 {
		delta := uint32(now.Sub(e.last)) & DeltaMask
		e.last = now

		binary.LittleEndian.PutUint32(dst[0:4], uint32(kind)<<24|delta)
		binary.LittleEndian.PutUint32(dst[4:8], uint32(fn))

		return compactWidth
	}

	e.last = now

	binary.LittleEndian.PutUint32(dst[0:4], uint32(kind))
	binary.LittleEndian.PutUint32(dst[4:8], uint32(fn))
	binary.LittleEndian.PutUint32(dst[8:12], uint32(cs))
	binary.LittleEndian.PutUint32(dst[12:16], uint32(now.Unix()))

	return wideWidth
}

// Decode parses the first record in src.
func (g Generation) Decode(src []byte) (Record, error) {
	width := g.Width()
	if width == 0 {
		return Record{}, fmt.Errorf("%w: %d", ErrUnknownGeneration, g)
	}

	if len(src) < width {
		return Record{}, fmt.Errorf(
			"%w: have %d bytes, need %d", ErrShortRecord, len(src), width,
		)
	}

	var rec Record

	if g == GenerationV3 {
		word := binary.LittleEndian.Uint32(src[0:4])
		rec.Kind = Kind(word >> 24)
		rec.DeltaNs = word & DeltaMask
		rec.Function = binary.LittleEndian.Uint32(src[4:8])
	} else {
		tag := binary.LittleEndian.Uint32(src[0:4])
		if tag > uint32(MaxKind) {
			return Record{}, fmt.Errorf("%w: tag %d", ErrBadKind, tag)
		}

		rec.Kind = Kind(tag)
		rec.Function = binary.LittleEndian.Uint32(src[4:8])
		rec.CallSite = binary.LittleEndian.Uint32(src[8:12])
		rec.Seconds = binary.LittleEndian.Uint32(src[12:16])
	}

	if rec.Kind != KindEnter && rec.Kind != KindExit {
		return Record{}, fmt.Errorf("%w: tag %d", ErrBadKind, rec.Kind)
	}

	return rec, nil
}
