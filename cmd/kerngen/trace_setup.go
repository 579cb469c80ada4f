package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"kerngen/internal/trace"
)

// activeTracer is kept for dumpTraceOnPanic.
var activeTracer trace.Tracer = trace.Nop

type traceFlags struct {
	output    string
	level     string
	mode      string
	ringSize  int
	heartbeat time.Duration
}

func readTraceFlags(cmd *cobra.Command) (traceFlags, error) {
	var f traceFlags
	var err error
	flags := cmd.Root().PersistentFlags()
	for name, dst := range map[string]*string{"trace": &f.output, "trace-level": &f.level, "trace-mode": &f.mode} {
		if *dst, err = flags.GetString(name); err != nil {
			return f, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
	}
	if f.ringSize, err = flags.GetInt("trace-ring-size"); err != nil {
		return f, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	if f.heartbeat, err = flags.GetDuration("trace-heartbeat"); err != nil {
		return f, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}
	return f, nil
}

// config turns the flags into a tracer configuration. A --trace path
// without --trace-level traces phases.
func (f traceFlags) config() (trace.Config, error) {
	level, err := trace.ParseLevel(f.level)
	if err != nil {
		return trace.Config{}, err
	}
	if level == trace.LevelOff && f.output != "" {
		level = trace.LevelPhase
	}
	cfg := trace.Config{Level: level, OutputPath: f.output, RingSize: f.ringSize}
	if level == trace.LevelOff {
		return cfg, nil
	}
	if cfg.Mode, err = trace.ParseMode(f.mode); err != nil {
		return trace.Config{}, err
	}
	return cfg, nil
}

// setupTracing installs the tracer into the command context and returns
// the cleanup that stops the heartbeat and flushes the output.
func setupTracing(cmd *cobra.Command) (func(), error) {
	flags, err := readTraceFlags(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := flags.config()
	if err != nil {
		return nil, err
	}
	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	activeTracer = tracer
	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)
	if !tracer.Enabled() {
		return func() {}, nil
	}

	heartbeat := trace.StartHeartbeat(tracer, flags.heartbeat)
	return func() {
		heartbeat.Stop()
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
		activeTracer = trace.Nop
	}, nil
}

// dumpTraceOnPanic writes the ring buffer to stderr before re-panicking.
func dumpTraceOnPanic() {
	r := recover()
	if r == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "panic: %v\n", r)
	if ring := trace.RingOf(activeTracer); ring != nil {
		fmt.Fprintf(os.Stderr, "== trace ring (%d older events overwritten) ==\n", ring.Overwritten())
		_ = ring.Dump(os.Stderr, trace.FormatText)
	}
	panic(r)
}
