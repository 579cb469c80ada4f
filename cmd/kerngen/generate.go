package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"kerngen/internal/buildpipeline"
	"kerngen/internal/diagfmt"
	"kerngen/internal/driver"
)

const cacheAppName = "kerngen"

var generateCmd = &cobra.Command{
	Use:   "generate [flags] <config>",
	Short: "Generate the C kernel source for one configuration file",
	Long: `Generate loads a kernel configuration (.cfg INI or .toml), expands every
KERNEL into its variants and writes <source-dir>/<module>-kernels.c, or the
file named by --output. --output stdout writes the source to standard output.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringP("output", "o", "", "target file, or \"stdout\"")
	generateCmd.Flags().String("source-dir", "", "directory for the default target (default: current directory)")
	generateCmd.Flags().String("support-dir", "", "directory with support headers and *.c sources")
	generateCmd.Flags().Bool("cache", false, "reuse module data from the on-disk cache")
	generateCmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json)")
	generateCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	generateCmd.Flags().Bool("fullpath", false, "emit absolute file paths in diagnostics")
	generateCmd.Flags().Bool("dry-run", false, "render but do not write the target")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	global, err := readGlobalFlags(cmd)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	sourceDir, err := cmd.Flags().GetString("source-dir")
	if err != nil {
		return fmt.Errorf("failed to get source-dir flag: %w", err)
	}
	supportDir, err := cmd.Flags().GetString("support-dir")
	if err != nil {
		return fmt.Errorf("failed to get support-dir flag: %w", err)
	}
	useCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return fmt.Errorf("failed to get cache flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if err := checkDiagFormat(format); err != nil {
		return err
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return fmt.Errorf("failed to get dry-run flag: %w", err)
	}

	opts := driver.GenerateOptions{
		ConfigFile:     args[0],
		TargetFile:     output,
		Stdout:         cmd.OutOrStdout(),
		SourceDir:      sourceDir,
		SupportDir:     supportDir,
		MaxDiagnostics: global.maxDiagnostics,
		DryRun:         dryRun,
	}
	if useCache {
		cache, err := driver.OpenDiskCache(cacheAppName)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		opts.Cache = cache
	}
	var rec buildpipeline.Recorder
	opts.Sink = &rec

	res, genErr := driver.Generate(cmd.Context(), opts)

	// исходник ушёл в stdout, всё остальное пишем в stderr
	status := cmd.OutOrStdout()
	if output == driver.TargetStdout {
		status = cmd.ErrOrStderr()
	}
	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	if res != nil {
		if err := printDiagnostics(status, res.Bag, res.FileSet, diagOutput{
			format:      format,
			withNotes:   withNotes,
			pathMode:    pathMode,
			color:       global.color && output != driver.TargetStdout,
			minSeverity: global.minSeverity,
		}); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	}
	if genErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", genErr)
		return genErr
	}

	if !global.quiet && format != "json" {
		if err := printSources(status, res); err != nil {
			return err
		}
	}
	if global.timings {
		if err := printStageTimings(cmd.ErrOrStderr(), rec.Timings()); err != nil {
			return err
		}
	}
	return nil
}

// printSources lists the generated file followed by the module sources.
func printSources(w io.Writer, res *driver.GenerateResult) error {
	for i, src := range res.Sources {
		prefix := "source"
		if i == 0 {
			prefix = "generated"
			if res.Cached {
				prefix = "generated (cached)"
			}
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", prefix, src); err != nil {
			return err
		}
	}
	return nil
}
