package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"checker/internal/history"
	"checker/internal/report"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit  int
		dbPath string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.History.Path
			if cmd.Flags().Changed("db") {
				path = dbPath
			}
			if path == "" {
				return fmt.Errorf("no history database configured (set history.path or --db)")
			}
			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show (0 = all)")
	cmd.Flags().StringVar(&dbPath, "db", "", "history database (defaults to history.path)")
	return cmd
}

func printRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	r := lipgloss.NewRenderer(w)
	styles := report.NewStyles(r)

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		status := "OK"
		if !run.OK() {
			status = "FAILED"
		}
		arch := run.TargetArch
		if arch == "" {
			arch = "-"
		}
		rows = append(rows, []string{
			run.ID[:8],
			run.StartedAt.Local().Format(time.DateTime),
			run.Source,
			run.Dump,
			arch,
			strconv.Itoa(run.Passed) + "/" + strconv.Itoa(run.Selected),
			status,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Foreground(report.Info)).
		Headers("RUN", "STARTED", "SOURCE", "DUMP", "ARCH", "PASSED", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styles.Header
			case row < 0 || row >= len(rows):
				return styles.Muted
			case col == 6 && rows[row][6] == "OK":
				return styles.Pass.Padding(0, 1)
			case col == 6:
				return styles.Fail.Padding(0, 1)
			}
			return styles.Muted
		})
	fmt.Fprintln(w, t.Render())
}
