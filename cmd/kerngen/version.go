package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"kerngen/internal/version"
)

type versionOptions struct {
	format   string
	showHash bool
	showDate bool
	full     bool
}

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	Go        string `json:"go,omitempty"`
}

var versionOpts versionOptions

func init() {
	f := versionCmd.Flags()
	f.BoolVar(&versionOpts.showHash, "hash", false, "include git commit hash")
	f.BoolVar(&versionOpts.showDate, "date", false, "include build timestamp")
	f.BoolVar(&versionOpts.full, "full", false, "show every recorded bit of build metadata")
	f.StringVar(&versionOpts.format, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show kerngen build metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := versionOpts
		if opts.full {
			opts.showHash, opts.showDate = true, true
		}
		switch strings.ToLower(opts.format) {
		case "pretty":
			renderVersionPretty(cmd.OutOrStdout(), opts)
			return nil
		case "json":
			return renderVersionJSON(cmd.OutOrStdout(), opts)
		}
		return fmt.Errorf("unsupported format %q (must be pretty or json)", opts.format)
	},
}

func versionFields(opts versionOptions) versionPayload {
	info := version.Collect()
	p := versionPayload{Tool: "kerngen", Version: info.Version}
	if opts.showHash {
		p.GitCommit = orUnknown(info.Commit)
		p.Dirty = info.Dirty
	}
	if opts.showDate {
		p.BuildDate = orUnknown(info.Date)
	}
	if opts.full {
		p.Go = info.Go
	}
	return p
}

func renderVersionPretty(out io.Writer, opts versionOptions) {
	p := versionFields(opts)
	fmt.Fprintf(out, "kerngen %s\n", version.Colored())
	if p.GitCommit != "" {
		suffix := ""
		if p.Dirty {
			suffix = " (modified)"
		}
		fmt.Fprintf(out, "commit: %s%s\n", p.GitCommit, suffix)
	}
	if p.BuildDate != "" {
		fmt.Fprintf(out, "built:  %s\n", p.BuildDate)
	}
	if p.Go != "" {
		fmt.Fprintf(out, "go:     %s\n", p.Go)
	}
}

func renderVersionJSON(out io.Writer, opts versionOptions) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(versionFields(opts))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
