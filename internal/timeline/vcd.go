package timeline

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ethpandaops/fntrace/internal/event"
)

// Namer maps a recorded function identifier to a display name.
type Namer interface {
	Name(fn uint32) string
}

// VCDOptions controls the VCD header.
type VCDOptions struct {
	// Date is written to the $date section. Defaults to now.
	Date time.Time
	// Version is written to the $version section.
	Version string
	// Scope names the module holding the wires. Defaults to "top".
	Scope string
}

const (
	vcdIDLow   = '!'
	vcdIDRange = '~' - '!' + 1
)

// vcdIdentifier returns the i'th short identifier built from printable
// ASCII characters.
func vcdIdentifier(i int) string {
	id := []byte{byte(vcdIDLow + i%vcdIDRange)}

	for i /= vcdIDRange; i > 0; i /= vcdIDRange {
		i--
		id = append([]byte{byte(vcdIDLow + i%vcdIDRange)}, id...)
	}

	return string(id)
}

type signal struct {
	id     string
	name   string
	active int
}

// WriteVCD writes events as a Value Change Dump with one wire per
// function, high while at least one call of the function is active. The
// time axis is in nanoseconds; events that land on the same instant are
// pushed one nanosecond apart so every change keeps its own timestamp.
func WriteVCD(w io.Writer, events []event.Event, names Namer, opts VCDOptions) error {
	if opts.Date.IsZero() {
		opts.Date = time.Now()
	}

	if opts.Scope == "" {
		opts.Scope = "top"
	}

	byName := make(map[string]*signal, 64)
	byFn := make(map[uint32]*signal, 64)

	for _, ev := range events {
		if _, ok := byFn[ev.Function]; ok {
			continue
		}

		name := sanitizeName(names.Name(ev.Function))

		sig, ok := byName[name]
		if !ok {
			sig = &signal{name: name}
			byName[name] = sig
		}

		byFn[ev.Function] = sig
	}

	sorted := make([]*signal, 0, len(byName))
	for _, sig := range byName {
		sorted = append(sorted, sig)
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].name < sorted[j].name
	})

	for i, sig := range sorted {
		sig.id = vcdIdentifier(i)
	}

	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "$date %s $end\n", opts.Date.Format("Jan 02 2006 15:04:05"))
	fmt.Fprintf(bw, "$version %s $end\n", opts.Version)
	fmt.Fprintf(bw, "$timescale 1 ns $end\n")
	fmt.Fprintf(bw, "$scope module %s $end\n", opts.Scope)

	for _, sig := range sorted {
		fmt.Fprintf(bw, "$var wire 1 %s %s $end\n", sig.id, sig.name)
	}

	fmt.Fprintf(bw, "$upscope $end\n")
	fmt.Fprintf(bw, "$enddefinitions $end\n")

	// All wires start low.
	fmt.Fprintf(bw, "#0\n$dumpvars\n")

	for _, sig := range sorted {
		fmt.Fprintf(bw, "0%s\n", sig.id)
	}

	fmt.Fprintf(bw, "$end\n")

	var (
		now  int64 = 1
		last time.Duration
	)

	for _, ev := range events {
		delta := int64(ev.Elapsed - last)
		last = ev.Elapsed

		next := now + delta
		if next <= now {
			next = now + 1
		}

		now = next

		sig := byFn[ev.Function]

		var value byte

		switch ev.Kind {
		case event.KindEnter:
			sig.active++
			if sig.active != 1 {
				continue
			}

			value = '1'
		case event.KindExit:
			if sig.active == 0 {
				continue
			}

			sig.active--
			if sig.active != 0 {
				continue
			}

			value = '0'
		default:
			continue
		}

		fmt.Fprintf(bw, "#%d\n%c%s\n", now, value, sig.id)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing vcd: %w", err)
	}

	return nil
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if r <= ' ' || r > '~' {
			return '_'
		}

		return r
	}, name)
}
