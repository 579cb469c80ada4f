package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"kerngen/internal/prof"
)

// setupProfiling starts the profiles named by --cpu-profile, --mem-profile
// and --runtime-trace. The cleanup may run twice (PostRun and main).
func setupProfiling(cmd *cobra.Command) (func(), error) {
	flags := cmd.Root().PersistentFlags()
	var paths [3]string
	for i, name := range []string{"cpu-profile", "mem-profile", "runtime-trace"} {
		v, err := flags.GetString(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		paths[i] = v
	}
	if paths == [3]string{} {
		return func() {}, nil
	}
	session, err := prof.Start(paths[0], paths[1], paths[2])
	if err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := session.Stop(); err != nil {
				fmt.Fprintf(os.Stderr, "profiling: %v\n", err)
			}
		})
	}, nil
}
