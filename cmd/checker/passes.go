package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"checker/internal/c1visualizer"
)

func newListPassesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-passes DUMP",
		Short: "Print the passes found in the dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dump, err := parseDump(args[0])
			if err != nil {
				return err
			}
			listPasses(cmd.OutOrStdout(), dump)
			return nil
		},
	}
}

func listPasses(w io.Writer, dump *c1visualizer.File) {
	for _, p := range dump.Passes {
		fmt.Fprintln(w, p.Name)
	}
}

func newDumpPassCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump-pass DUMP PASS",
		Short: "Print one pass of the dump with line numbers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dump, err := parseDump(args[0])
			if err != nil {
				return err
			}
			return dumpPass(cmd.OutOrStdout(), dump, args[1])
		},
	}
}

// dumpPass prints the body of the named pass, each line prefixed with its
// dump line number padded to a common width.
func dumpPass(w io.Writer, dump *c1visualizer.File, name string) error {
	pass := dump.FindPass(name)
	if pass == nil {
		return fmt.Errorf("pass %q not found in the output", name)
	}
	maxLine := pass.StartLine + len(pass.Body)
	width := len(strconv.Itoa(maxLine)) + 2
	for i, line := range pass.Body {
		label := strconv.Itoa(pass.StartLine+i) + ":"
		fmt.Fprintf(w, "%s%s%s\n", label, strings.Repeat(" ", width-len(label)), line)
	}
	return nil
}
