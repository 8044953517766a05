package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"checker/internal/c1visualizer"
	"checker/internal/checkfile"
	"checker/internal/config"
	"checker/internal/history"
	"checker/internal/logging"
	"checker/internal/match"
	"checker/internal/report"
	"checker/internal/sources"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		prefix      string
		arch        string
		debuggable  bool
		printDump   bool
		noPrintDump bool
		workers     int
		allowEnv    bool
		historyPath string
	)

	cmd := &cobra.Command{
		Use:   "run DUMP [SOURCE]",
		Short: "Verify the annotations in SOURCE against the dump",
		Long: `Parses the C1visualizer dump and every annotated file under SOURCE (a file,
or a directory scanned for the configured extensions), then matches each
selected test case against its pass.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			flags := cmd.Flags()
			if flags.Changed("check-prefix") {
				cfg.CheckPrefix = prefix
			}
			if flags.Changed("arch") {
				cfg.TargetArch = arch
			}
			if flags.Changed("debuggable") {
				cfg.Debuggable = debuggable
			}
			if flags.Changed("print-dump") {
				cfg.PrintDump = printDump
			}
			if flags.Changed("no-print-dump") {
				cfg.PrintDump = !noPrintDump
			}
			if flags.Changed("workers") {
				cfg.Workers = workers
			}
			if flags.Changed("allow-env") {
				cfg.Conditions.AllowEnv = allowEnv
			}
			if flags.Changed("history") {
				cfg.History.Path = historyPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if len(args) < 2 {
				return fmt.Errorf("no source path provided")
			}
			return runChecks(cmd.Context(), cfg, a.quiet, args[0], args[1], cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&prefix, "check-prefix", "CHECK", "prefix of checks in the test files")
	f.StringVar(&arch, "arch", "", "run tests for the specified target architecture")
	f.BoolVar(&debuggable, "debuggable", false, "run tests for debuggable code")
	f.BoolVar(&printDump, "print-dump", true, "print the whole dump in case of test failure")
	f.BoolVar(&noPrintDump, "no-print-dump", false, "don't print the dump in case of test failure")
	f.IntVar(&workers, "workers", 0, "concurrent test cases per file (0 = one per CPU)")
	f.BoolVar(&allowEnv, "allow-env", false, "allow os.environ.get in conditions")
	f.StringVar(&historyPath, "history", "", "record the run in this SQLite database")
	return cmd
}

func parseDump(path string) (*c1visualizer.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return c1visualizer.Parse(path, f)
}

func parseSource(p *checkfile.Parser, path string) (*checkfile.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.Parse(filepath.Base(path), f)
}

// runChecks verifies every annotated file under sourcePath against the dump.
// Failures are reported and yield errChecksFailed; the first fatal error
// stops the run.
func runChecks(ctx context.Context, cfg *config.Config, quiet bool, dumpPath, sourcePath string, out io.Writer) error {
	log := logging.Get(logging.CategoryBoot)

	dump, err := parseDump(dumpPath)
	if err != nil {
		return err
	}
	files, err := sources.Find(sourcePath, cfg.SourceExtensions)
	if err != nil {
		return err
	}
	parser, err := checkfile.NewParser(cfg.ParserOptions())
	if err != nil {
		return err
	}

	var store *history.Store
	if cfg.History.Path != "" {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	reporter := report.NewConsole(out, report.Options{
		PrintDump: cfg.PrintDump,
		DumpLines: dump.Lines,
		Quiet:     quiet,
	})
	runner := match.NewRunner(match.Config{
		TargetArch: cfg.TargetArch,
		Debuggable: cfg.Debuggable,
		Workers:    cfg.Workers,
		AllowEnv:   cfg.Conditions.AllowEnv,
		LookupEnv:  os.LookupEnv,
	}, reporter)

	failed := false
	for _, path := range files {
		source, err := parseSource(parser, path)
		if err != nil {
			reporter.Fatal(err)
			return &reportedError{err}
		}
		if len(source.TestCases) == 0 {
			log.Debugw("no test cases", "file", path)
			continue
		}

		summary, runErr := runner.Run(ctx, source, dump)
		if store != nil {
			if _, err := store.Record(ctx, summary, cfg.TargetArch, cfg.Debuggable); err != nil {
				log.Warnw("failed to record run", "error", err)
			}
		}
		if runErr != nil {
			return &reportedError{runErr}
		}
		if !summary.OK() {
			failed = true
		}
	}
	if failed {
		return errChecksFailed
	}
	return nil
}
