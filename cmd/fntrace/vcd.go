package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/fntrace/internal/event"
	"github.com/ethpandaops/fntrace/internal/export"
	"github.com/ethpandaops/fntrace/internal/timeline"
	"github.com/ethpandaops/fntrace/internal/version"
)

func vcdCmd() *cobra.Command {
	var (
		in      traceInput
		program string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "vcd",
		Short: "Convert a trace to a Value Change Dump waveform",
		Long: `vcd converts a recorded trace into a VCD file with one wire per
function, high while the function is active. The output is compressed
when its name ends in .gz, .zst, .sz or .lz4.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd, "")
			if err != nil {
				return err
			}

			health := export.NewHealthMetrics(log, export.HealthConfig{})

			events, symbols, err := loadInputs(log, in, program, health)
			if err != nil {
				return err
			}

			if err := writeVCDFile(output, events, symbols); err != nil {
				return err
			}

			log.WithField("output", output).
				WithField("events", len(events)).
				Info("Wrote VCD")

			return nil
		},
	}

	traceFlags(cmd, &in)
	cmd.Flags().StringVar(&program, "program", "", "ELF executable that produced the trace")
	cmd.Flags().StringVar(&output, "output", "", "VCD file to write")

	for _, name := range []string{"program", "output"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			fmt.Fprintf(os.Stderr, "error marking flag required: %v\n", err)
			os.Exit(1)
		}
	}

	return cmd
}

func writeVCDFile(path string, events []event.Event, symbols *timeline.Symbols) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	defer func() {
		err = errors.Join(err, f.Close())
	}()

	w, err := export.NewWriter(f, export.CompressionFromPath(path))
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := timeline.WriteVCD(w, events, symbols, timeline.VCDOptions{
		Version: version.Producer(),
	}); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
