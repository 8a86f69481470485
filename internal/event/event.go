package event

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies which side of a call boundary an event observed.
type Kind uint8

const (
	KindEnter Kind = 1
	KindExit  Kind = 2
)

// MaxKind is the largest valid Kind value.
const MaxKind = KindExit

// String returns the human-readable name of the event kind.
func (k Kind) String() string {
	switch k {
	case KindEnter:
		return "enter"
	case KindExit:
		return "exit"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Generation identifies the on-disk record layout. Trace files carry no
// header, so readers must be told the generation out of band.
type Generation uint8

const (
	// GenerationV1 is tag, function, call site and absolute seconds,
	// each a 32-bit word.
	GenerationV1 Generation = 1
	// GenerationV2 has the same layout as GenerationV1.
	GenerationV2 Generation = 2
	// GenerationV3 packs the tag and a 24-bit nanosecond delta into one
	// word, followed by the function word. Call sites are not recorded.
	GenerationV3 Generation = 3
)

// DefaultGeneration is the most compact layout.
const DefaultGeneration = GenerationV3

const (
	wideWidth    = 16
	compactWidth = 8

	// MaxRecordWidth is the widest record of any generation.
	MaxRecordWidth = wideWidth
)

// DeltaMask keeps the low 24 bits of a GenerationV3 time delta. Larger
// gaps wrap silently.
const DeltaMask = 1<<24 - 1

var (
	// ErrShortRecord is returned when fewer bytes than one record remain.
	ErrShortRecord = errors.New("short record")
	// ErrBadKind is returned when a record carries an unknown tag.
	ErrBadKind = errors.New("bad event kind")
	// ErrUnknownGeneration is returned for generations outside V1..V3.
	ErrUnknownGeneration = errors.New("unknown generation")
)

// Width returns the encoded size of one record in bytes, or 0 for an
// unknown generation.
func (g Generation) Width() int {
	switch g {
	case GenerationV1, GenerationV2:
		return wideWidth
	case GenerationV3:
		return compactWidth
	default:
		return 0
	}
}

// String returns the name used in config files and CLI flags.
func (g Generation) String() string {
	switch g {
	case GenerationV1:
		return "v1"
	case GenerationV2:
		return "v2"
	case GenerationV3:
		return "v3"
	default:
		return fmt.Sprintf("unknown(%d)", g)
	}
}

// ParseGeneration parses a generation name as produced by String.
func ParseGeneration(name string) (Generation, error) {
	switch name {
	case "v1", "1":
		return GenerationV1, nil
	case "v2", "2":
		return GenerationV2, nil
	case "v3", "3", "":
		return GenerationV3, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownGeneration, name)
	}
}

// MarshalYAML encodes the generation by name.
func (g Generation) MarshalYAML() (any, error) {
	return g.String(), nil
}

// UnmarshalYAML accepts a generation name or number.
func (g *Generation) UnmarshalYAML(unmarshal func(any) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}

	parsed, err := ParseGeneration(name)
	if err != nil {
		return err
	}

	*g = parsed

	return nil
}

// Record is one decoded record. Fields that the generation does not carry
// are zero.
type Record struct {
	Kind     Kind
	Function uint32
	CallSite uint32
	// Seconds is the absolute Unix time in seconds (V1, V2).
	Seconds uint32
	// DeltaNs is the truncated nanosecond delta since the previous
	// event (V3).
	DeltaNs uint32
}

// Event is a decoded record placed on the trace's time axis.
type Event struct {
	Record

	// Index is the zero-based record position in the trace.
	Index int

	// Elapsed is the time since the trace origin. For V3 the origin is
	// the recorder start; V1 and V2 do not record it, so the first event
	// is used instead.
	Elapsed time.Duration
}
