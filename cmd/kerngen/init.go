package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"kerngen/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a kerngen project",
	Long: `Initialize a kerngen project by creating a manifest (kerngen.toml) and a
sample configuration (kernels/<name>.cfg). If [dir] is omitted the current
directory is used; a missing directory is created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

// runInit refuses to overwrite an existing kerngen.toml; an existing sample
// configuration is kept as is.
func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	target := wd
	if len(args) > 0 && args[0] != "." {
		target = args[0]
		if !filepath.IsAbs(target) {
			target = filepath.Join(wd, target)
		}
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name := moduleName(filepath.Base(target))
	manifestPath := filepath.Join(target, project.ManifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("project already initialized: %s exists", manifestPath)
	}
	if err := os.WriteFile(manifestPath, []byte(defaultManifest()), 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	cfgRel := filepath.Join("kernels", name+".cfg")
	cfgPath := filepath.Join(target, cfgRel)
	createdCfg := false
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(cfgPath), err)
		}
		if err := os.WriteFile(cfgPath, []byte(defaultConfig(name)), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", cfgRel, err)
		}
		createdCfg = true
	}

	rel := target
	if r, err := filepath.Rel(wd, target); err == nil {
		rel = r
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized kerngen project in %s\n", rel)
	fmt.Fprintf(out, "  - %s\n", project.ManifestName)
	if createdCfg {
		fmt.Fprintf(out, "  - %s\n", filepath.ToSlash(cfgRel))
	} else {
		fmt.Fprintf(out, "  - %s (existing)\n", filepath.ToSlash(cfgRel))
	}
	return nil
}

// moduleName turns a directory name into a C identifier.
func moduleName(dir string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(dir) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "kernels"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "m" + name
	}
	return name
}

func defaultManifest() string {
	return `# kerngen project manifest
[generate]
configs = ["kernels/*.cfg"]
source_dir = "gen"
support_dir = ""
jobs = 0
cache = false
`
}

func defaultConfig(name string) string {
	return fmt.Sprintf(`[MODULE %s]
typemaps =
  double: float64
  int: int32
includes = math.h
kinds = Xnd, C
ellipses = none, ...
arraytypes = symbolic

[KERNEL axpy]
description = y <- a*x + y
prototypes =
  void axpy(double a, double *x, double *y, int n);
inplace_arguments = y
hide_arguments = n
dimension = x(n), y(n)
`, name)
}
