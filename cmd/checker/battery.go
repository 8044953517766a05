package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"checker/internal/regression"
)

func newBatteryCmd(a *app) *cobra.Command {
	var failFast bool
	cmd := &cobra.Command{
		Use:   "battery [FILE]",
		Short: "Run every dump/source pair listed in a YAML battery",
		Long: `Runs each task of a battery file in order. A task names a dump, a source
path and optionally the target architecture and debuggable mode:

  version: 1
  tasks:
    - id: add
      dump: out/graph.cfg
      source: src/Main.java
      arch: ARM64`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := regression.DefaultBatteryPath(".")
			if len(args) == 1 {
				path = args[0]
			}
			b, err := regression.LoadBattery(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			check := func(ctx context.Context, task regression.Task) error {
				cfg := *a.cfg
				if task.Arch != "" {
					cfg.TargetArch = task.Arch
				}
				cfg.Debuggable = task.Debuggable
				if err := cfg.Validate(); err != nil {
					return err
				}
				if !a.quiet {
					fmt.Fprintf(out, "=== %s\n", task.ID)
				}
				return runChecks(ctx, &cfg, a.quiet, task.Dump, task.Source, out)
			}

			results, err := regression.RunBattery(cmd.Context(), b, check, failFast)
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				if !r.Success {
					failed++
				}
			}
			fmt.Fprintf(out, "battery: %d/%d tasks passed\n", len(results)-failed, len(results))
			if failed > 0 {
				return errChecksFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first failing task")
	return cmd
}
