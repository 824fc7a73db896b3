// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianStrips/pkg/logging"
	"github.com/AleutianAI/AleutianStrips/pkg/ux"
	"github.com/AleutianAI/AleutianStrips/services/planner"
	"github.com/AleutianAI/AleutianStrips/services/planner/archive"
	"github.com/AleutianAI/AleutianStrips/services/planner/storage/badger"
	"github.com/AleutianAI/AleutianStrips/services/planner/telemetry"
)

// Exit codes.
const (
	exitOK         = 0
	exitError      = 1
	exitExhausted  = 2
	exitIncomplete = 3
)

// exitCodeError carries a non-zero exit code out of a command. err may be
// nil when the command already reported the outcome.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

// options holds the persistent flags.
type options struct {
	configPath    string
	strategy      string
	maxExpansions int
	timeLimit     time.Duration
	archive       bool
	json          bool
	trace         string
	logLevel      string
}

// app is the per-invocation wiring shared by all subcommands.
type app struct {
	opts   options
	stdout io.Writer
	stderr io.Writer
	out    *ux.Printer
	errOut *ux.Printer

	config   planner.Config
	logger   *logging.Logger
	db       *badger.DB
	svc      *planner.Service
	shutdown telemetry.ShutdownFunc
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{
		stdout: stdout,
		stderr: stderr,
		out:    printerFor(stdout),
		errOut: printerFor(stderr),
	}
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		if ec.err != nil {
			a.errOut.Error(ec.err.Error())
		}
		return ec.code
	}
	a.errOut.Error(err.Error())
	return exitError
}

func printerFor(w io.Writer) *ux.Printer {
	if f, ok := w.(*os.File); ok {
		return ux.NewPrinter(f)
	}
	return ux.NewPlainPrinter(w)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "planner",
		Short:         "Forward-chaining STRIPS planner",
		Long:          "planner reads a STRIPS task (YAML or JSON) and searches for a sequence of actions that reaches the goal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.opts.configPath, "config", "", "path to a YAML or JSON config file")
	f.StringVar(&a.opts.strategy, "strategy", "", "search strategy: breadth_first or best_first")
	f.IntVar(&a.opts.maxExpansions, "max-expansions", 0, "expansion budget (0 = unlimited)")
	f.DurationVar(&a.opts.timeLimit, "time-limit", 0, "wall clock budget per search (0 = config default)")
	f.BoolVar(&a.opts.archive, "archive", false, "record runs in the on-disk archive")
	f.BoolVar(&a.opts.json, "json", false, "print results as JSON")
	f.StringVar(&a.opts.trace, "trace", "", "trace exporter: none, stdout or otlp")
	f.StringVar(&a.opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		a.planCmd(),
		a.compareCmd(),
		a.validateCmd(),
		a.watchCmd(),
		a.serveCmd(),
		a.historyCmd(),
	)
	return root
}

// setup loads config, applies flag overrides and builds the service.
func (a *app) setup(cmd *cobra.Command) error {
	config, err := planner.LoadConfig(a.opts.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("strategy") {
		config.Search.Strategy = a.opts.strategy
	}
	if flags.Changed("max-expansions") {
		config.Search.MaxExpansions = a.opts.maxExpansions
	}
	if flags.Changed("time-limit") {
		config.Search.TimeLimit = a.opts.timeLimit
	}
	if flags.Changed("trace") {
		config.Observability.TraceExporter = a.opts.trace
	}
	if flags.Changed("log-level") {
		config.Observability.LogLevel = a.opts.logLevel
	}
	if a.opts.archive || cmd.Annotations["archive"] == "required" {
		config.Archive.Enabled = true
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.config = config

	logCfg := config.Observability.LoggingConfig("planner")
	logCfg.Output = a.stderr
	a.logger = logging.New(logCfg)

	telCfg := config.Observability.TelemetryConfig("planner")
	telCfg.Output = a.stderr
	if cmd.Annotations["server"] != "true" && telCfg.MetricExporter == telemetry.ExporterPrometheus {
		// Nothing scrapes a one-shot CLI run.
		telCfg.MetricExporter = telemetry.ExporterNone
	}
	a.shutdown, err = telemetry.Init(cmd.Context(), telCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	var arch *archive.Archive
	if config.Archive.Enabled {
		dbCfg := badger.DefaultConfig(config.Archive.Path)
		dbCfg.InMemory = config.Archive.InMemory
		dbCfg.Logger = a.logger.Slog()
		a.db, err = badger.Open(dbCfg)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		arch = archive.New(a.db)
	}

	a.svc = planner.NewService(config, a.logger.Slog(), arch)
	return nil
}

func (a *app) close() {
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdown(ctx); err != nil && a.logger != nil {
			a.logger.Warn("telemetry shutdown failed", "error", err)
		}
		cancel()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && a.logger != nil {
			a.logger.Warn("archive close failed", "error", err)
		}
	}
	if a.logger != nil {
		_ = a.logger.Close()
	}
}
