// Package match runs parsed test cases against compiler pass dumps.
package match

import (
	"checker/internal/c1visualizer"
	"checker/internal/checkfile"
	"checker/internal/condition"
	"checker/internal/logging"
)

// Options carry what conditions may observe.
type Options struct {
	ISAFeatures map[string]bool
	AllowEnv    bool
	LookupEnv   func(string) (string, bool)
}

func (o Options) env() condition.Env {
	return condition.Env{ISAFeatures: o.ISAFeatures, AllowEnv: o.AllowEnv, LookupEnv: o.LookupEnv}
}

// scope is an inclusive range of matched body lines.
type scope struct {
	start, end int
}

// state is the execution state of one test case against one pass.
type state struct {
	tc       *checkfile.TestCase
	body     []string
	opts     Options
	cursor   int
	vars     Bindings
	dagQueue []*checkfile.Statement
	notQueue []*checkfile.Statement
	branches BranchStack
	last     checkfile.Variant
	hasLast  bool
}

// TestCase matches tc against pass and returns the final bindings. A
// statement that cannot be satisfied yields a *Failure; authoring errors
// yield a *StructureError or *StatementError.
func TestCase(tc *checkfile.TestCase, pass *c1visualizer.Pass, opts Options) (Bindings, error) {
	s := &state{tc: tc, body: pass.Body, opts: opts}
	for _, stmt := range tc.Statements {
		if err := s.handle(stmt); err != nil {
			return s.vars, err
		}
	}
	if err := s.handleEOF(); err != nil {
		return s.vars, err
	}
	logging.Match("%s: matched %d statements, %d bindings", tc.Name, len(tc.Statements), s.vars.Len())
	return s.vars, nil
}

func (s *state) handle(stmt *checkfile.Statement) error {
	if stmt.Variant.IsBranch() {
		return s.branches.Handle(stmt, func() (bool, error) {
			return Evaluate(stmt, s.vars, s.opts.env())
		})
	}
	if !s.branches.CanExecute() {
		return nil
	}

	if stmt.Variant != checkfile.DAG {
		if err := s.flushDAG(); err != nil {
			return err
		}
	}

	var err error
	switch stmt.Variant {
	case checkfile.InOrder:
		err = s.handleInOrder(stmt)
	case checkfile.NextLine:
		err = s.handleNextLine(stmt)
	case checkfile.DAG:
		s.dagQueue = append(s.dagQueue, stmt)
	case checkfile.Not:
		s.notQueue = append(s.notQueue, stmt)
	case checkfile.Eval:
		err = s.handleEval(stmt)
	}
	if err != nil {
		return err
	}
	s.last, s.hasLast = stmt.Variant, true
	return nil
}

func (s *state) handleEOF() error {
	if err := s.branches.EOF(s.tc.File); err != nil {
		return err
	}
	if err := s.flushDAG(); err != nil {
		return err
	}
	return s.moveCursor(scope{len(s.body), len(s.body)}, s.vars)
}

// moveCursor checks the pending NOT statements against the lines skipped on
// the way to m, then advances past it.
func (s *state) moveCursor(m scope, vars Bindings) error {
	if err := s.checkNotQueue(s.cursor, m.start); err != nil {
		return err
	}
	s.cursor = m.end + 1
	s.vars = vars
	return nil
}

func (s *state) checkNotQueue(start, end int) error {
	for _, stmt := range s.notQueue {
		for i := start; i < end; i++ {
			_, ok, err := Line(stmt, s.body[i], s.vars)
			if err != nil {
				return err
			}
			if ok {
				return &Failure{Statement: stmt, LineNo: i, Bindings: s.vars}
			}
		}
	}
	s.notQueue = nil
	return nil
}

// findLine returns the first line in [start, end) not in exclude that
// matches stmt.
func (s *state) findLine(stmt *checkfile.Statement, start, end int, vars Bindings, exclude map[int]bool) (int, Bindings, error) {
	for i := start; i < end; i++ {
		if exclude[i] {
			continue
		}
		next, ok, err := Line(stmt, s.body[i], vars)
		if err != nil {
			return 0, vars, err
		}
		if ok {
			return i, next, nil
		}
	}
	return 0, vars, &Failure{Statement: stmt, LineNo: start, Bindings: vars}
}

// flushDAG matches the queued DAG statements in order, each on a distinct
// line at or after the cursor, then moves the cursor past the last of them.
func (s *state) flushDAG() error {
	if len(s.dagQueue) == 0 {
		return nil
	}
	matched := make(map[int]bool, len(s.dagQueue))
	vars := s.vars
	m := scope{start: len(s.body), end: -1}

	for _, stmt := range s.dagQueue {
		i, next, err := s.findLine(stmt, s.cursor, len(s.body), vars, matched)
		if err != nil {
			return err
		}
		vars = next
		matched[i] = true
		m.start = min(m.start, i)
		m.end = max(m.end, i)
	}
	s.dagQueue = nil
	return s.moveCursor(m, vars)
}

func (s *state) handleInOrder(stmt *checkfile.Statement) error {
	i, vars, err := s.findLine(stmt, s.cursor, len(s.body), s.vars, nil)
	if err != nil {
		return err
	}
	return s.moveCursor(scope{i, i}, vars)
}

func (s *state) handleNextLine(stmt *checkfile.Statement) error {
	if !s.hasLast || (s.last != checkfile.InOrder && s.last != checkfile.NextLine) {
		return &StructureError{
			Msg:    "A next-line statement can only be placed after an in-order statement or another next-line statement.",
			File:   stmt.File,
			LineNo: stmt.LineNo,
		}
	}
	i, vars, err := s.findLine(stmt, s.cursor, min(s.cursor+1, len(s.body)), s.vars, nil)
	if err != nil {
		return err
	}
	return s.moveCursor(scope{i, i}, vars)
}

func (s *state) handleEval(stmt *checkfile.Statement) error {
	ok, err := Evaluate(stmt, s.vars, s.opts.env())
	if err != nil {
		return err
	}
	if !ok {
		return &Failure{Statement: stmt, LineNo: s.cursor, Bindings: s.vars}
	}
	return nil
}
