package match

import (
	"context"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"checker/internal/c1visualizer"
	"checker/internal/checkfile"
)

const runnerSource = `
/// CHECK-START: Main.add() pass_a
/// CHECK: add

/// CHECK-START-ARM64: Main.add() pass_a
/// CHECK: madd

/// CHECK-START: Main.add() pass_b
/// CHECK: missing

/// CHECK-START-DEBUGGABLE: Main.add() pass_b
/// CHECK: sub
`

const runnerDump = `
begin_compilation
  method "Main.add()"
end_compilation
begin_cfg
  name "pass_a"
  add madd
end_cfg
begin_cfg
  name "pass_b"
  sub
end_cfg
`

func parseRunnerInputs(t *testing.T, source, dump string) (*checkfile.File, *c1visualizer.File) {
	t.Helper()
	p, err := checkfile.NewParser(checkfile.Options{})
	require.NoError(t, err)
	sf, err := p.ParseString("Main.java", source)
	require.NoError(t, err)
	df, err := c1visualizer.ParseString("/tmp/out/graph.cfg", dump)
	require.NoError(t, err)
	return sf, df
}

func TestSelect(t *testing.T) {
	sf, _ := parseRunnerInputs(t, runnerSource, runnerDump)

	names := func(cases []*checkfile.TestCase) []int {
		var lines []int
		for _, tc := range cases {
			lines = append(lines, tc.StartLine)
		}
		return lines
	}
	assert.Equal(t, []int{2, 8}, names(Select(sf, "X86", false)))
	assert.Equal(t, []int{2, 5, 8}, names(Select(sf, "ARM64", false)))
	assert.Equal(t, []int{11}, names(Select(sf, "ARM64", true)))
}

func TestRunner_ReportsInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctrl := gomock.NewController(t)
	reporter := NewMockReporter(ctrl)

	sf, df := parseRunnerInputs(t, runnerSource, runnerDump)

	var results []Result
	gomock.InOrder(
		reporter.EXPECT().StartFile("Main.java", "graph.cfg"),
		reporter.EXPECT().CaseResult(gomock.Any()).Times(3).Do(func(r Result) {
			results = append(results, r)
		}),
		reporter.EXPECT().Summary(gomock.Any()),
	)

	summary, err := NewRunner(Config{TargetArch: "ARM64", Workers: 2}, reporter).Run(context.Background(), sf, df)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 3, summary.Selected)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.OK())

	require.Len(t, results, 3)
	assert.True(t, results[0].Passed())
	assert.True(t, results[1].Passed())
	require.False(t, results[2].Passed())
	assert.Equal(t, "Main.add() pass_b", results[2].TestCase.Name)
	// pass_b body starts on dump line 11.
	assert.Equal(t, 11, results[2].DumpLine())
	assert.Equal(t, "Statement could not be matched starting from line 11",
		results[2].Failure.Message(results[2].DumpLine()))
}

func TestRunner_MissingPassIsFatal(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctrl := gomock.NewController(t)
	reporter := NewMockReporter(ctrl)

	sf, df := parseRunnerInputs(t, `
/// CHECK-START: Main.add() pass_a
/// CHECK: add
/// CHECK-START: Main.add() pass_c
/// CHECK: add
`, runnerDump)

	reporter.EXPECT().StartFile(gomock.Any(), gomock.Any())
	reporter.EXPECT().Fatal(gomock.Any())
	reporter.EXPECT().Summary(gomock.Any())

	summary, err := NewRunner(Config{}, reporter).Run(context.Background(), sf, df)
	var missing *MissingPassError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Main.add() pass_c", missing.TestCase.Name)
	assert.Empty(t, summary.Results)
	assert.False(t, summary.OK())
}

func TestRunner_FatalStopsReporting(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctrl := gomock.NewController(t)
	reporter := NewMockReporter(ctrl)

	sf, df := parseRunnerInputs(t, `
/// CHECK-START: Main.add() pass_a
/// CHECK: add
/// CHECK-START: Main.add() pass_b
/// CHECK-FI:
/// CHECK-START: Main.add() pass_a
/// CHECK: madd
`, runnerDump)

	var reported []Result
	reporter.EXPECT().StartFile(gomock.Any(), gomock.Any())
	reporter.EXPECT().CaseResult(gomock.Any()).Do(func(r Result) {
		reported = append(reported, r)
	})
	reporter.EXPECT().Fatal(gomock.Any())
	reporter.EXPECT().Summary(gomock.Any())

	_, err := NewRunner(Config{Workers: 1}, reporter).Run(context.Background(), sf, df)
	var serr *StructureError
	require.ErrorAs(t, err, &serr)
	require.Len(t, reported, 1)
	assert.Equal(t, 2, reported[0].TestCase.StartLine)
}

func TestRunner_FatalKeepsEarlierCasesAcrossWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	var src strings.Builder
	for i := 0; i < 7; i++ {
		src.WriteString("/// CHECK-START: Main.add() pass_a\n/// CHECK: add\n")
	}
	src.WriteString("/// CHECK-START: Main.add() pass_b\n/// CHECK-NEXT: sub\n")
	sf, df := parseRunnerInputs(t, src.String(), runnerDump)

	for round := 0; round < 50; round++ {
		ctrl := gomock.NewController(t)
		reporter := NewMockReporter(ctrl)
		var reported []Result
		reporter.EXPECT().StartFile(gomock.Any(), gomock.Any())
		reporter.EXPECT().CaseResult(gomock.Any()).AnyTimes().Do(func(r Result) {
			reported = append(reported, r)
		})
		reporter.EXPECT().Fatal(gomock.Any())
		reporter.EXPECT().Summary(gomock.Any())

		summary, err := NewRunner(Config{Workers: 8}, reporter).Run(context.Background(), sf, df)
		var serr *StructureError
		require.ErrorAs(t, err, &serr)
		require.Len(t, reported, 7, "round %d", round)
		for i, r := range reported {
			assert.Equal(t, 1+2*i, r.TestCase.StartLine)
			assert.True(t, r.Passed())
		}
		assert.Equal(t, 7, summary.Passed)
		ctrl.Finish()
	}
}

func TestRunner_EarliestFatalWins(t *testing.T) {
	defer goleak.VerifyNone(t)

	var src strings.Builder
	src.WriteString("/// CHECK-START: Main.add() pass_a\n/// CHECK: add\n")
	src.WriteString("/// CHECK-START: Main.add() pass_a\n/// CHECK-NEXT: add\n")
	for i := 0; i < 6; i++ {
		src.WriteString("/// CHECK-START: Main.add() pass_b\n/// CHECK-FI:\n")
	}
	sf, df := parseRunnerInputs(t, src.String(), runnerDump)

	for round := 0; round < 50; round++ {
		ctrl := gomock.NewController(t)
		reporter := NewMockReporter(ctrl)
		reporter.EXPECT().StartFile(gomock.Any(), gomock.Any())
		reporter.EXPECT().CaseResult(gomock.Any())
		reporter.EXPECT().Fatal(gomock.Any())
		reporter.EXPECT().Summary(gomock.Any())

		_, err := NewRunner(Config{Workers: 8}, reporter).Run(context.Background(), sf, df)
		var serr *StructureError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, 4, serr.LineNo, "round %d", round)
		ctrl.Finish()
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctrl := gomock.NewController(t)
	reporter := NewMockReporter(ctrl)
	sf, df := parseRunnerInputs(t, runnerSource, runnerDump)

	reporter.EXPECT().StartFile(gomock.Any(), gomock.Any())
	reporter.EXPECT().CaseResult(gomock.Any()).AnyTimes()
	reporter.EXPECT().Fatal(gomock.Any())
	reporter.EXPECT().Summary(gomock.Any())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(Config{}, reporter).Run(ctx, sf, df)
	assert.ErrorIs(t, err, context.Canceled)
}
