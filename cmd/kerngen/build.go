package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"kerngen/internal/buildpipeline"
	"kerngen/internal/diagfmt"
	"kerngen/internal/driver"
	"kerngen/internal/project"
)

const noManifestMessage = "no kerngen.toml found\nrun `kerngen init` or generate a single file with `kerngen generate <config>`"

var buildCmd = &cobra.Command{
	Use:   "build [flags] [path]",
	Short: "Generate every configuration listed in kerngen.toml",
	Long: `Build finds kerngen.toml in path or one of its parents, expands the
[generate].configs patterns and generates each configuration in parallel.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().Int("jobs", -1, "max parallel generations (0=auto, -1=use kerngen.toml)")
	buildCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
	buildCmd.Flags().Bool("cache", false, "reuse module data from the on-disk cache (also [generate].cache)")
	buildCmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json)")
	buildCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
}

func runBuild(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	global, err := readGlobalFlags(cmd)
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := parseTristate("ui", uiValue)
	if err != nil {
		return err
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

	start := "."
	if len(args) > 0 && args[0] != "" {
		start = args[0]
	}
	manifest, found, err := project.Load(start)
	if err != nil {
		return err
	}
	if !found {
		return errors.New(noManifestMessage)
	}
	files, err := manifest.ConfigFiles()
	if err != nil {
		return err
	}
	if jobs < 0 {
		jobs = manifest.Jobs
	}

	var cache *driver.DiskCache
	if useCache || manifest.Cache {
		if cache, err = driver.OpenDiskCache(cacheAppName); err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
	}

	runs := make([]driver.GenerateOptions, len(files))
	rows := make([]string, len(files))
	display := make(map[string]string, len(files))
	for i, file := range files {
		runs[i] = driver.GenerateOptions{
			ConfigFile:     file,
			SourceDir:      manifest.SourceDir,
			SupportDir:     manifest.SupportDir,
			Cache:          cache,
			MaxDiagnostics: global.maxDiagnostics,
		}
		rows[i] = formatPathForOutput(manifest.Root, file)
		display[file] = rows[i]
	}

	var rec buildpipeline.Recorder
	var items []driver.BatchItem
	if mode.resolve(stdoutInteractive) && !global.quiet && format != "json" {
		items, err = runBatchWithUI(cmd.Context(), "kerngen build", rows, display, runs, jobs, &rec)
	} else {
		items, err = driver.GenerateAll(cmd.Context(), runs, jobs, &rec)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for i, it := range items {
		if it.Result != nil {
			if perr := printDiagnostics(out, it.Result.Bag, it.Result.FileSet, diagOutput{
				format:      format,
				withNotes:   withNotes,
				pathMode:    diagfmt.PathModeRelative,
				color:       global.color,
				minSeverity: global.minSeverity,
			}); perr != nil {
				return perr
			}
		}
		if it.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %s: %v\n", rows[i], it.Err)
			continue
		}
		if !global.quiet && format != "json" {
			cached := ""
			if it.Result.Cached {
				cached = " (cached)"
			}
			fmt.Fprintf(out, "generated %s%s\n", formatPathForOutput(manifest.Root, it.Result.Output), cached)
		}
	}
	if global.timings {
		if err := printStageTimings(cmd.ErrOrStderr(), rec.Timings()); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d configurations failed", failed, len(items))
	}
	return nil
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	if strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
