package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"kerngen/internal/config"
	"kerngen/internal/diag"
	"kerngen/internal/diagfmt"
	"kerngen/internal/driver"
	"kerngen/internal/kernel"
	"kerngen/internal/source"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] <config>",
	Short: "Print the module data of a configuration without rendering",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	inspectCmd.Flags().String("support-dir", "", "directory with support headers and *.c sources")
}

type inspectPayload struct {
	Config      string                    `json:"config"`
	Module      *kernel.ModuleData        `json:"module"`
	Wrappers    []inspectWrapper          `json:"wrappers"`
	Skipped     []string                  `json:"skipped,omitempty"`
	Diagnostics diagfmt.DiagnosticsOutput `json:"diagnostics"`
}

type inspectWrapper struct {
	Name      string `json:"name"`
	Kernel    string `json:"kernel"`
	Signature string `json:"signature"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	global, err := readGlobalFlags(cmd)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format %q (expected pretty|json)", format)
	}
	supportDir, err := cmd.Flags().GetString("support-dir")
	if err != nil {
		return fmt.Errorf("failed to get support-dir flag: %w", err)
	}

	abs, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	fs := source.NewFileSet()
	fs.SetBaseDir(filepath.Dir(abs))
	bag := diag.NewBag(global.maxDiagnostics)
	reporter := diag.BagReporter{Bag: bag}

	cfg, err := config.Load(abs, fs, reporter)
	if err == nil {
		var data *kernel.ModuleData
		data, err = driver.BuildModuleData(cmd.Context(), cfg, driver.BuildOptions{SupportDir: supportDir}, reporter)
		if err == nil {
			if format == "json" {
				return writeInspectJSON(cmd.OutOrStdout(), cfg, data, bag, fs)
			}
			writeInspectPretty(cmd.OutOrStdout(), cfg, data)
		}
	}

	if printErr := printDiagnostics(cmd.ErrOrStderr(), bag, fs, diagOutput{
		format:      "pretty",
		pathMode:    diagfmt.PathModeAuto,
		color:       global.color,
		minSeverity: global.minSeverity,
	}); printErr != nil {
		return printErr
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
	}
	return err
}

func wrappers(data *kernel.ModuleData) []inspectWrapper {
	names, _ := data.WrapperNames()
	out := make([]inspectWrapper, len(data.Kernels))
	for i := range data.Kernels {
		k := &data.Kernels[i]
		out[i] = inspectWrapper{
			Name:      names[i],
			Kernel:    k.Prototype.KernelName,
			Signature: kernel.Signature(k),
		}
	}
	return out
}

func writeInspectJSON(w io.Writer, cfg *config.Config, data *kernel.ModuleData, bag *diag.Bag, fs *source.FileSet) error {
	bag.Sort()
	payload := inspectPayload{
		Config:      cfg.Path,
		Module:      data,
		Wrappers:    wrappers(data),
		Skipped:     cfg.Skipped,
		Diagnostics: diagfmt.BuildDiagnosticsOutput(bag, fs, diagfmt.JSONOpts{IncludePositions: true, IncludeNotes: true}),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writeInspectPretty(w io.Writer, cfg *config.Config, data *kernel.ModuleData) {
	heading := color.New(color.Bold)
	name := color.New(color.FgCyan)

	fmt.Fprintf(w, "%s %s\n", heading.Sprint("module"), data.ModuleName)
	list := func(label string, items []string) {
		if len(items) > 0 {
			fmt.Fprintf(w, "  %-13s %s\n", label+":", strings.Join(items, ", "))
		}
	}
	list("includes", data.Includes)
	list("include_dirs", data.IncludeDirs)
	list("sources", data.Sources)
	list("skipped", cfg.Skipped)

	fmt.Fprintf(w, "\n%s (%d)\n", heading.Sprint("wrappers"), len(data.Kernels))
	for _, wr := range wrappers(data) {
		fmt.Fprintf(w, "  %s  [%s]\n      %s\n", name.Sprint(wr.Name), wr.Kernel, wr.Signature)
	}

	if len(data.TypemapTests) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading.Sprint("typemap tests"))
		for _, t := range data.TypemapTests {
			fmt.Fprintf(w, "  %s -> %s_t\n", t.OrigType, t.NormalType)
		}
	}
}
