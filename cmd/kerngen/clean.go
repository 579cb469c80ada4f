package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kerngen/internal/driver"
	"kerngen/internal/project"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Remove generated sources of a kerngen project",
	Long:  "Remove the [generate].source_dir of the project containing path. --cache also drops the module data cache.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().Bool("cache", false, "also drop the on-disk module data cache")
}

func runClean(cmd *cobra.Command, args []string) error {
	dropCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return fmt.Errorf("failed to get cache flag: %w", err)
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
	out := cmd.OutOrStdout()

	dir := manifest.SourceDir
	// не удаляем корень проекта и каталоги вне его
	if dir == manifest.Root || !manifest.Within(dir) {
		return fmt.Errorf("refusing to remove %q: not inside the project root", dir)
	}
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(out, "source directory not found\n")
	case err != nil:
		return fmt.Errorf("failed to stat %q: %w", dir, err)
	case !info.IsDir():
		return fmt.Errorf("%q is not a directory", dir)
	default:
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %q: %w", dir, err)
		}
		fmt.Fprintf(out, "removed %s\n", formatPathForOutput(manifest.Root, dir))
	}

	if dropCache {
		cache, err := driver.OpenDiskCache(cacheAppName)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		if err := cache.DropAll(); err != nil {
			return err
		}
		fmt.Fprintf(out, "dropped cache %s\n", cache.Dir())
	}
	return nil
}
