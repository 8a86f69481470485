package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/fntrace/internal/version"
)

var logLevel string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fntrace",
		Short: "Function entry/exit tracer",
		Long: `fntrace records function entry and exit events of an instrumented
program into a compact binary trace, and turns recorded traces into
call timelines and VCD waveforms.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "",
		"override log level (debug, info, warn, error)",
	)

	cmd.AddCommand(
		recordCmd(),
		dumpCmd(),
		callsCmd(),
		vcdCmd(),
		versionCmd(),
	)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.FullWithPlatform())
		},
	}
}

// newLogger builds the command logger. level is the configured level,
// overridden by --log-level when set.
func newLogger(cmd *cobra.Command, level string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// CLI flag overrides config file.
	if logLevel != "" {
		level = logLevel
	}

	if level == "" {
		level = "info"
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}

	log.SetLevel(lvl)

	return log, nil
}
