package match

import (
	"fmt"

	"checker/internal/checkfile"
)

// Failure is a statement that could not be satisfied. It fails its test case
// but not the run.
type Failure struct {
	Statement *checkfile.Statement
	LineNo    int // index into the pass body
	Bindings  Bindings
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s:%d: %s statement failed at body line %d",
		f.Statement.File, f.Statement.LineNo, f.Statement.Variant, f.LineNo)
}

// Message is the diagnostic shown for a failure. dumpLine is the dump file
// line number of the offending body line.
func (f *Failure) Message(dumpLine int) string {
	if f.Statement.Variant == checkfile.Not {
		return fmt.Sprintf("NOT statement matched line %d", dumpLine)
	}
	return fmt.Sprintf("Statement could not be matched starting from line %d", dumpLine)
}

// StructureError reports misuse of branch or NEXT statements. It is fatal.
type StructureError struct {
	Msg    string
	File   string
	LineNo int // source line, -1 at end of input
}

func (e *StructureError) Error() string {
	if e.LineNo < 0 {
		return fmt.Sprintf("%s: %s", e.File, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.LineNo, e.Msg)
}

// StatementError is a fatal authoring error in one statement, such as an
// undefined variable or a condition that does not evaluate.
type StatementError struct {
	Statement *checkfile.Statement
	Msg       string
	Bindings  Bindings
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Statement.File, e.Statement.LineNo, e.Msg)
}

// MissingPassError reports a test case with no pass of the same name in the
// dump. It is fatal.
type MissingPassError struct {
	TestCase *checkfile.TestCase
	Dump     string
}

func (e *MissingPassError) Error() string {
	return fmt.Sprintf("%s:%d: Test case not found in the CFG file %s: %q",
		e.TestCase.File, e.TestCase.StartLine, e.Dump, e.TestCase.Name)
}
