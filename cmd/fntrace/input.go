package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/fntrace/internal/event"
	"github.com/ethpandaops/fntrace/internal/export"
	"github.com/ethpandaops/fntrace/internal/timeline"
)

// traceInput selects a recorded trace and how to decode it.
type traceInput struct {
	path       string
	generation string
	limit      int
}

// traceFile is an opened trace, transparently decompressed.
type traceFile struct {
	io.ReadCloser
	f *os.File
}

func (t *traceFile) Close() error {
	return errors.Join(t.ReadCloser.Close(), t.f.Close())
}

func openTrace(path string) (*traceFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace %s: %w", path, err)
	}

	rc, err := export.NewReader(f, export.CompressionFromPath(path))
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("opening trace %s: %w", path, err)
	}

	return &traceFile{ReadCloser: rc, f: f}, nil
}

// decodeErrorType labels reader errors for the decode_errors metric.
func decodeErrorType(err error) string {
	switch {
	case errors.Is(err, event.ErrShortRecord):
		return "short_record"
	case errors.Is(err, event.ErrBadKind):
		return "bad_kind"
	case errors.Is(err, event.ErrUnknownGeneration):
		return "unknown_generation"
	default:
		return "io"
	}
}

// readTrace decodes the trace described by in and returns its events with
// per-kind counts. A trailing partial record is reported and dropped;
// every other decode error is fatal.
func readTrace(
	log logrus.FieldLogger,
	in traceInput,
	health *export.HealthMetrics,
) ([]event.Event, map[event.Kind]uint64, error) {
	gen, err := event.ParseGeneration(in.generation)
	if err != nil {
		return nil, nil, err
	}

	tf, err := openTrace(in.path)
	if err != nil {
		return nil, nil, err
	}
	defer tf.Close()

	stats := event.NewStats()

	r := event.NewReader(tf, gen).WithStats(stats)
	r.Limit = in.limit

	events, err := r.ReadAll()

	counts := stats.Snapshot()

	if health != nil {
		for kind, n := range counts {
			health.EventsDecoded.WithLabelValues(kind.String()).Add(float64(n))
		}
	}

	if err != nil {
		if health != nil {
			health.DecodeErrors.WithLabelValues(decodeErrorType(err)).Inc()
		}

		if !errors.Is(err, event.ErrShortRecord) {
			return nil, nil, fmt.Errorf("decoding trace %s: %w", in.path, err)
		}

		log.WithError(err).Warn("Trace ends with a partial record")
	}

	log.WithFields(logrus.Fields{
		"trace":      in.path,
		"generation": gen.String(),
		"events":     len(events),
	}).Debug("Decoded trace")

	return events, counts, nil
}

// loadInputs decodes the trace and loads the program's symbols
// concurrently. An empty program yields a nil symbol table, which names
// every function UNKNOWN_<addr>.
func loadInputs(
	log logrus.FieldLogger,
	in traceInput,
	program string,
	health *export.HealthMetrics,
) ([]event.Event, *timeline.Symbols, error) {
	var (
		eg      errgroup.Group
		events  []event.Event
		symbols *timeline.Symbols
	)

	eg.Go(func() error {
		var err error

		events, _, err = readTrace(log, in, health)

		return err
	})

	if program != "" {
		eg.Go(func() error {
			var err error

			symbols, err = timeline.LoadSymbols(program)
			if err != nil {
				return err
			}

			log.WithFields(logrus.Fields{
				"program":   program,
				"functions": symbols.Len(),
			}).Debug("Loaded symbols")

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	return events, symbols, nil
}
