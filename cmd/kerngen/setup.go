package main

import (
	"fmt"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"kerngen/internal/diag"
)

var (
	cleanupMu sync.Mutex
	cleanups  []func()
)

func addCleanup(fn func()) {
	cleanupMu.Lock()
	cleanups = append(cleanups, fn)
	cleanupMu.Unlock()
}

// runCleanups runs registered cleanups in reverse order, once.
func runCleanups() {
	cleanupMu.Lock()
	list := cleanups
	cleanups = nil
	cleanupMu.Unlock()
	for i := len(list) - 1; i >= 0; i-- {
		list[i]()
	}
}

func setupRun(cmd *cobra.Command, _ []string) error {
	useColor, err := colorEnabled(cmd)
	if err != nil {
		return err
	}
	color.NoColor = !useColor

	traceCleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	addCleanup(traceCleanup)

	profCleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	addCleanup(profCleanup)
	return nil
}

func finishRun(*cobra.Command, []string) error {
	runCleanups()
	return nil
}

// colorEnabled resolves --color; auto follows the stdout terminal and NO_COLOR.
func colorEnabled(cmd *cobra.Command) (bool, error) {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	state, err := parseTristate("color", value)
	if err != nil {
		return false, err
	}
	return state.resolve(stdoutColor), nil
}

type globalFlags struct {
	quiet          bool
	timings        bool
	maxDiagnostics int
	minSeverity    diag.Severity
	color          bool
}

func readGlobalFlags(cmd *cobra.Command) (globalFlags, error) {
	var g globalFlags
	var err error
	flags := cmd.Root().PersistentFlags()
	if g.quiet, err = flags.GetBool("quiet"); err != nil {
		return g, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if g.timings, err = flags.GetBool("timings"); err != nil {
		return g, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if g.maxDiagnostics, err = flags.GetInt("max-diagnostics"); err != nil {
		return g, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	sev, err := flags.GetString("min-severity")
	if err != nil {
		return g, fmt.Errorf("failed to get min-severity flag: %w", err)
	}
	if g.minSeverity, err = diag.ParseSeverity(sev); err != nil {
		return g, err
	}
	if g.color, err = colorEnabled(cmd); err != nil {
		return g, err
	}
	return g, nil
}
