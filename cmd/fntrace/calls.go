package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/fntrace/internal/export"
	"github.com/ethpandaops/fntrace/internal/timeline"
)

func callsCmd() *cobra.Command {
	var (
		in      traceInput
		program string
	)

	cmd := &cobra.Command{
		Use:   "calls",
		Short: "Print the call timeline reconstructed from a trace",
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

			tl := timeline.Reconstruct(events)

			if tl.Unmatched > 0 {
				log.WithField("unmatched", tl.Unmatched).
					Warn("Trace holds exits without a matching entry")
			}

			out := cmd.OutOrStdout()

			for _, c := range tl.Calls {
				suffix := ""
				if c.Open {
					suffix = " (open)"
				}

				fmt.Fprintf(out, "%12v %s%s %v%s\n",
					c.Start, strings.Repeat("  ", c.Depth),
					symbols.Name(c.Function), c.Duration(), suffix)
			}

			fmt.Fprintln(out)

			tw := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
			fmt.Fprintln(tw, "FUNCTION\tCALLS\tTOTAL\tMAX")

			for _, s := range timeline.Summarize(tl.Calls) {
				fmt.Fprintf(tw, "%s\t%d\t%v\t%v\n",
					symbols.Name(s.Function), s.Calls, s.Total, s.Max)
			}

			return tw.Flush()
		},
	}

	traceFlags(cmd, &in)
	cmd.Flags().StringVar(&program, "program", "", "ELF executable that produced the trace")

	return cmd
}
