// Command checker verifies CHECK annotations in test sources against a
// C1visualizer compiler dump.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"checker/internal/config"
	"checker/internal/logging"
)

// errChecksFailed marks a run whose failures were already reported.
var errChecksFailed = errors.New("checks failed")

// reportedError wraps a fatal error the reporter has already printed.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// app holds global flag values and the loaded configuration.
type app struct {
	configPath string
	quiet      bool
	logLevel   string
	logFormat  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "checker",
		Short: "Match CHECK annotations against compiler pass dumps",
		Long: `checker reads CHECK directives embedded in test sources and verifies them
against a C1visualizer dump (.cfg) produced by the optimizing compiler.

Each "CHECK-START: <method> <pass>" block is a test case matched against the
pass of the same name in the dump.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = a.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Logging.Format = a.logFormat
			}
			if err := logging.Initialize(cfg.Logging.Options(a.quiet)); err != nil {
				return err
			}
			atexit.Register(func() { _ = logging.Sync() })
			a.cfg = cfg
			logging.Get(logging.CategoryBoot).Debugw("configuration loaded", "path", a.configPath, "prefix", cfg.CheckPrefix)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "checker.yaml", "path to the YAML config file")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "print only errors")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "console", "log format (console, json)")

	root.AddCommand(
		newRunCmd(a),
		newListPassesCmd(a),
		newDumpPassCmd(a),
		newWatchCmd(a),
		newHistoryCmd(a),
		newBatteryCmd(a),
	)
	return root
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	var reported *reportedError
	if err != nil && !errors.Is(err, errChecksFailed) && !errors.As(err, &reported) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	atexit.Exit(exitCode(err))
}
