package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/fntrace/internal/event"
	"github.com/ethpandaops/fntrace/internal/export"
)

func traceFlags(cmd *cobra.Command, in *traceInput) {
	cmd.Flags().StringVar(&in.path, "trace", "trace.out", "path to the recorded trace")
	cmd.Flags().StringVar(
		&in.generation, "generation", event.DefaultGeneration.String(),
		"record layout of the trace (v1, v2, v3)",
	)
	cmd.Flags().IntVar(&in.limit, "limit", 0, "stop after this many records (0 reads all)")
}

func dumpCmd() *cobra.Command {
	var in traceInput

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print decoded trace records",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd, "")
			if err != nil {
				return err
			}

			health := export.NewHealthMetrics(log, export.HealthConfig{})

			events, counts, err := readTrace(log, in, health)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			for _, ev := range events {
				fmt.Fprintf(out, "%8d %-5s fn=0x%08x cs=0x%08x t=%v\n",
					ev.Index, ev.Kind, ev.Function, ev.CallSite, ev.Elapsed)
			}

			for k := event.KindEnter; k <= event.MaxKind; k++ {
				fmt.Fprintf(out, "%s: %d\n", k, counts[k])
			}

			return nil
		},
	}

	traceFlags(cmd, &in)

	return cmd
}
