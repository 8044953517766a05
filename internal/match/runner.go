package match

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"checker/internal/c1visualizer"
	"checker/internal/checkfile"
	"checker/internal/logging"
)

//go:generate mockgen -destination=mock_reporter_test.go -package=match checker/internal/match Reporter

// Reporter receives the outcome of a run as it is produced.
type Reporter interface {
	StartFile(source, dump string)
	CaseResult(Result)
	Fatal(error)
	Summary(Summary)
}

// Result is the outcome of one test case.
type Result struct {
	TestCase *checkfile.TestCase
	Pass     *c1visualizer.Pass
	Bindings Bindings
	Failure  *Failure // nil when the case passed
	Duration time.Duration
}

// Passed reports whether the case matched.
func (r Result) Passed() bool {
	return r.Failure == nil
}

// DumpLine is the dump file line of the failure.
func (r Result) DumpLine() int {
	if r.Failure == nil || r.Pass == nil {
		return 0
	}
	return r.Pass.StartLine + r.Failure.LineNo
}

// Summary aggregates a run over one annotation file.
type Summary struct {
	Source   string
	Dump     string
	Total    int
	Selected int
	Passed   int
	Failed   int
	Results  []Result
	Fatal    error
	Duration time.Duration
}

// OK reports whether every selected case passed and nothing was fatal.
func (s Summary) OK() bool {
	return s.Fatal == nil && s.Failed == 0
}

// Config selects test cases and sizes the worker pool.
type Config struct {
	TargetArch string
	Debuggable bool
	Workers    int // defaults to runtime.NumCPU()
	AllowEnv   bool
	LookupEnv  func(string) (string, bool)
}

// Runner matches the selected test cases of an annotation file against a
// dump on a bounded worker pool.
type Runner struct {
	cfg      Config
	reporter Reporter
}

// NewRunner creates a runner reporting to reporter.
func NewRunner(cfg Config, reporter Reporter) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Runner{cfg: cfg, reporter: reporter}
}

// Select returns the test cases that run for the target architecture and
// debuggable mode. Untagged cases run for every architecture.
func Select(file *checkfile.File, arch string, debuggable bool) []*checkfile.TestCase {
	var selected []*checkfile.TestCase
	for _, tc := range file.TestCases {
		if tc.Arch != "" && tc.Arch != arch {
			continue
		}
		if tc.Debuggable != debuggable {
			continue
		}
		selected = append(selected, tc)
	}
	return selected
}

// Run matches source against dump. Match failures are recorded in the
// summary; the returned error is the fatal problem of the earliest test
// case that raised one, if any.
func (r *Runner) Run(ctx context.Context, source *checkfile.File, dump *c1visualizer.File) (Summary, error) {
	log := logging.Get(logging.CategoryMatch)
	start := time.Now()

	cases := Select(source, r.cfg.TargetArch, r.cfg.Debuggable)
	summary := Summary{
		Source:   source.Name,
		Dump:     dump.BaseName,
		Total:    len(source.TestCases),
		Selected: len(cases),
	}
	r.reporter.StartFile(source.Name, dump.BaseName)

	if dups := dump.DuplicatePasses(); len(dups) > 0 {
		log.Warnw("dump contains repeated passes; matching against the first occurrence", "passes", dups)
	}

	passes := make([]*c1visualizer.Pass, len(cases))
	for i, tc := range cases {
		passes[i] = dump.FindPass(tc.Name)
		if passes[i] == nil {
			return r.finish(summary, start, &MissingPassError{TestCase: tc, Dump: dump.BaseName})
		}
	}

	opts := Options{
		ISAFeatures: dump.ISAFeatures,
		AllowEnv:    r.cfg.AllowEnv,
		LookupEnv:   r.cfg.LookupEnv,
	}
	results := make([]Result, len(cases))
	errs := make([]error, len(cases))

	// Lowest index that raised a fatal error so far. Cases after it are
	// never reported, so they are skipped once it is known.
	var fatalAt atomic.Int64
	fatalAt.Store(int64(len(cases)))
	lowerFatal := func(i int) {
		for {
			cur := fatalAt.Load()
			if int64(i) >= cur || fatalAt.CompareAndSwap(cur, int64(i)) {
				return
			}
		}
	}

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for i := range cases {
		g.Go(func() error {
			if int64(i) > fatalAt.Load() {
				return nil
			}
			if err := ctx.Err(); err != nil {
				errs[i] = err
				lowerFatal(i)
				return nil
			}
			caseStart := time.Now()
			vars, err := TestCase(cases[i], passes[i], opts)
			res := Result{TestCase: cases[i], Pass: passes[i], Bindings: vars, Duration: time.Since(caseStart)}

			var failure *Failure
			switch {
			case errors.As(err, &failure):
				res.Failure = failure
			case err != nil:
				errs[i] = err
				lowerFatal(i)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	// Report in test case order, stopping at the first case that raised a fatal error.
	var err error
	for i := range cases {
		if errs[i] != nil {
			err = errs[i]
			break
		}
		res := results[i]
		summary.Results = append(summary.Results, res)
		if res.Passed() {
			summary.Passed++
		} else {
			summary.Failed++
			log.Debugw("test case failed", "case", res.TestCase.Name, "line", res.DumpLine())
		}
		r.reporter.CaseResult(res)
	}
	return r.finish(summary, start, err)
}

func (r *Runner) finish(summary Summary, start time.Time, err error) (Summary, error) {
	summary.Duration = time.Since(start)
	if err != nil {
		summary.Fatal = err
		r.reporter.Fatal(err)
	}
	r.reporter.Summary(summary)
	if err != nil {
		return summary, fmt.Errorf("checking %s against %s: %w", summary.Source, summary.Dump, err)
	}
	return summary, nil
}
