package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/fntrace/internal/config"
	"github.com/ethpandaops/fntrace/internal/demo"
	"github.com/ethpandaops/fntrace/internal/export"
	"github.com/ethpandaops/fntrace/internal/recorder"
)

func recordCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Run the built-in demo program under the recorder",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd, cfgFile)
		},
	}

	cmd.Flags().StringVar(
		&cfgFile, "config", "",
		"path to config file (defaults apply when unset)",
	)

	return cmd
}

func runRecord(cmd *cobra.Command, cfgFile string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := newLogger(cmd, cfg.LogLevel)
	if err != nil {
		return err
	}

	health := export.NewHealthMetrics(log, cfg.Health)

	if err := health.Start(cmd.Context()); err != nil {
		return fmt.Errorf("starting health metrics: %w", err)
	}

	defer func() {
		if err := health.Stop(); err != nil {
			log.WithError(err).Warn("Error stopping health metrics server")
		}
	}()

	rec := recorder.New(log, cfg.Recorder, recorder.WithHealth(health))

	// A failed start leaves tracing disabled; the program still runs.
	if err := rec.Start(); err != nil {
		log.WithError(err).Warn("Tracing disabled")
	}

	demo.NewProgram(rec, cmd.OutOrStdout(), cfg.Demo.Depth, cfg.Demo.SleepUnit).Run()

	if err := rec.Stop(); err != nil {
		return fmt.Errorf("stopping recorder: %w", err)
	}

	if exe, err := os.Executable(); err == nil {
		log.WithField("program", exe).
			WithField("trace", cfg.Recorder.OutputPath).
			Info("Trace recorded")
	}

	return nil
}
