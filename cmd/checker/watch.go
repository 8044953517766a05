package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"checker/internal/logging"
	"checker/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch DUMP SOURCE",
		Short: "Re-run the checks whenever the dump or sources change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			dumpPath, sourcePath := args[0], args[1]
			log := logging.Get(logging.CategoryWatch)

			rerun := func(ctx context.Context, changed []string) {
				if len(changed) > 0 {
					fmt.Fprintf(out, "\n--- change detected: %v\n", changed)
				}
				err := runChecks(ctx, cfg, a.quiet, dumpPath, sourcePath, out)
				var reported *reportedError
				switch {
				case err == nil, errors.Is(err, errChecksFailed), errors.As(err, &reported):
				default:
					fmt.Fprintf(out, "error: %v\n", err)
				}
				log.Debugw("run finished", "error", err)
			}

			w, err := watch.New([]string{dumpPath, sourcePath}, cfg.SourceExtensions, cfg.GetWatchDebounce(), rerun)
			if err != nil {
				return err
			}
			rerun(ctx, nil)
			if err := w.Start(ctx); err != nil {
				return err
			}
			log.Debugw("watching", "dirs", len(w.GetWatchedDirs()))

			<-ctx.Done()
			w.Stop()
			stats := w.GetStats()
			log.Debugw("watch stopped", "events", stats.Events, "runs", stats.Runs,
				"errors", stats.Errors, "last_path", stats.LastEventPath)
			return nil
		},
	}
}
