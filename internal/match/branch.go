package match

import (
	"checker/internal/checkfile"
)

// BranchState is the activation of one IF level.
type BranchState int

const (
	// Taken: this branch's condition held and its parent was taken.
	Taken BranchState = iota + 1
	// NotTaken: the parent was not taken, or an earlier branch already was.
	NotTaken
	// NotTakenYet: the parent was taken but no branch has held so far.
	NotTakenYet
)

func (s BranchState) String() string {
	switch s {
	case Taken:
		return "Taken"
	case NotTaken:
		return "NotTaken"
	case NotTakenYet:
		return "NotTakenYet"
	}
	return "BranchState(?)"
}

type branchFrame struct {
	state BranchState
	spent bool // ELSE seen at this level
}

// BranchStack tracks nested IF/ELIF/ELSE/FI blocks.
type BranchStack struct {
	frames []branchFrame
}

// CanExecute reports whether statements at the current position run.
func (b *BranchStack) CanExecute() bool {
	for _, f := range b.frames {
		if f.state != Taken {
			return false
		}
	}
	return true
}

// Depth returns the nesting level.
func (b *BranchStack) Depth() int {
	return len(b.frames)
}

// Handle applies a branch statement. cond is evaluated only when the
// statement's condition decides the outcome.
func (b *BranchStack) Handle(stmt *checkfile.Statement, cond func() (bool, error)) error {
	switch stmt.Variant {
	case checkfile.If:
		return b.handleIf(cond)
	case checkfile.Elif:
		return b.handleElif(stmt, cond)
	case checkfile.Else:
		return b.handleElse(stmt)
	case checkfile.Fi:
		return b.handleFi(stmt)
	}
	return b.fail(stmt, "not a branch statement")
}

// EOF checks that every IF was closed.
func (b *BranchStack) EOF(file string) error {
	if len(b.frames) > 0 {
		return &StructureError{Msg: "Missing CHECK-FI", File: file, LineNo: -1}
	}
	return nil
}

func (b *BranchStack) top() *branchFrame {
	return &b.frames[len(b.frames)-1]
}

func (b *BranchStack) handleIf(cond func() (bool, error)) error {
	if len(b.frames) > 0 && b.top().state != Taken {
		b.frames = append(b.frames, branchFrame{state: NotTaken})
		return nil
	}
	ok, err := cond()
	if err != nil {
		return err
	}
	state := NotTakenYet
	if ok {
		state = Taken
	}
	b.frames = append(b.frames, branchFrame{state: state})
	return nil
}

func (b *BranchStack) handleElif(stmt *checkfile.Statement, cond func() (bool, error)) error {
	if len(b.frames) == 0 {
		return b.fail(stmt, "CHECK-ELIF must be after CHECK-IF or CHECK-ELIF")
	}
	top := b.top()
	if top.spent {
		return b.fail(stmt, "CHECK-ELIF cannot be after CHECK-ELSE")
	}
	switch top.state {
	case Taken:
		top.state = NotTaken
	case NotTakenYet:
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			top.state = Taken
		}
	}
	return nil
}

func (b *BranchStack) handleElse(stmt *checkfile.Statement) error {
	if len(b.frames) == 0 {
		return b.fail(stmt, "CHECK-ELSE must be after CHECK-IF or CHECK-ELIF")
	}
	top := b.top()
	if top.spent {
		return b.fail(stmt, "Consecutive CHECK-ELSE statements")
	}
	top.spent = true
	if top.state == NotTakenYet {
		top.state = Taken
	} else {
		top.state = NotTaken
	}
	return nil
}

func (b *BranchStack) handleFi(stmt *checkfile.Statement) error {
	if len(b.frames) == 0 {
		return b.fail(stmt, "CHECK-FI does not have a matching CHECK-IF")
	}
	b.frames = b.frames[:len(b.frames)-1]
	return nil
}

func (b *BranchStack) fail(stmt *checkfile.Statement, msg string) error {
	return &StructureError{Msg: msg, File: stmt.File, LineNo: stmt.LineNo}
}
