// Package checkfile parses CHECK annotations embedded in test sources into
// test cases, statements and expressions.
package checkfile

import (
	"fmt"
	"strings"

	"github.com/coregx/coregex"
)

// Variant identifies the kind of a CHECK statement.
type Variant int

const (
	InOrder Variant = iota
	NextLine
	DAG
	Not
	Eval
	If
	Elif
	Else
	Fi
)

var variantNames = [...]string{
	InOrder:  "IN_ORDER",
	NextLine: "NEXT",
	DAG:      "DAG",
	Not:      "NOT",
	Eval:     "EVAL",
	If:       "IF",
	Elif:     "ELIF",
	Else:     "ELSE",
	Fi:       "FI",
}

func (v Variant) String() string {
	if v < 0 || int(v) >= len(variantNames) {
		return fmt.Sprintf("Variant(%d)", int(v))
	}
	return variantNames[v]
}

// IsPatternMatch reports whether statements of this variant are matched
// against dump lines.
func (v Variant) IsPatternMatch() bool {
	return v == InOrder || v == NextLine || v == DAG || v == Not
}

// IsEvalContent reports whether the statement body is a condition.
func (v Variant) IsEvalContent() bool {
	return v == Eval || v == If || v == Elif
}

// IsNoContent reports whether the statement must have an empty body.
func (v Variant) IsNoContent() bool {
	return v == Else || v == Fi
}

// IsBranch reports whether the variant drives the branch stack.
func (v Variant) IsBranch() bool {
	return v == If || v == Elif || v == Else || v == Fi
}

// ExpressionVariant identifies the kind of a token inside a statement.
type ExpressionVariant int

const (
	PlainText ExpressionVariant = iota
	Pattern
	VarRef
	VarDef
	Separator
)

func (v ExpressionVariant) String() string {
	switch v {
	case PlainText:
		return "PlainText"
	case Pattern:
		return "Pattern"
	case VarRef:
		return "VarRef"
	case VarDef:
		return "VarDef"
	case Separator:
		return "Separator"
	}
	return fmt.Sprintf("ExpressionVariant(%d)", int(v))
}

// Expression is one token of a statement.
//
// For Pattern and VarDef the Text holds regex source; literal text of
// pattern-matching statements is stored as an escaped Pattern. For condition
// statements literal text is kept verbatim as PlainText.
type Expression struct {
	Variant ExpressionVariant
	Name    string
	Text    string

	re *coregex.Regex
}

// Regex returns the compiled, start-anchored form of a Pattern or VarDef.
func (e Expression) Regex() *coregex.Regex {
	return e.re
}

// NewSeparator returns a word separator.
func NewSeparator() Expression {
	return Expression{Variant: Separator}
}

// NewPlainText returns literal condition text.
func NewPlainText(text string) Expression {
	return Expression{Variant: PlainText, Text: text}
}

// NewPatternFromPlainText escapes text into an exact-match pattern.
func NewPatternFromPlainText(text string) (Expression, error) {
	return NewPattern(coregex.QuoteMeta(text))
}

// NewPattern compiles an inline {{regex}}.
func NewPattern(pattern string) (Expression, error) {
	re, err := compileAnchored(pattern)
	if err != nil {
		return Expression{}, err
	}
	return Expression{Variant: Pattern, Text: pattern, re: re}, nil
}

// NewVarRef returns a <<NAME>> reference.
func NewVarRef(name string) Expression {
	return Expression{Variant: VarRef, Name: name}
}

// NewVarDef compiles a <<NAME:regex>> definition.
func NewVarDef(name, pattern string) (Expression, error) {
	re, err := compileAnchored(pattern)
	if err != nil {
		return Expression{}, err
	}
	return Expression{Variant: VarDef, Name: name, Text: pattern, re: re}, nil
}

func compileAnchored(pattern string) (*coregex.Regex, error) {
	re, err := coregex.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

// Statement is one parsed directive.
type Statement struct {
	Variant      Variant
	Expressions  []Expression
	LineNo       int
	OriginalText string
	File         string
	Case         string
}

// ToRegex renders the statement as a readable regex summary, with separators
// shown as ", ".
func (s *Statement) ToRegex() string {
	var b strings.Builder
	for _, e := range s.Expressions {
		if e.Variant == Separator {
			b.WriteString(", ")
			continue
		}
		b.WriteString("(")
		b.WriteString(e.Text)
		b.WriteString(")")
	}
	return b.String()
}

// Words splits the expressions at separators. Each word must consume one
// whole word of a dump line.
func (s *Statement) Words() [][]Expression {
	var words [][]Expression
	start := 0
	for i, e := range s.Expressions {
		if e.Variant == Separator {
			words = append(words, s.Expressions[start:i])
			start = i + 1
		}
	}
	return append(words, s.Expressions[start:])
}

// TestCase is one CHECK-START group.
type TestCase struct {
	Name       string
	File       string
	StartLine  int
	Arch       string // empty means every architecture
	Debuggable bool
	Statements []*Statement
}

// File is a parsed annotation source.
type File struct {
	Name      string
	TestCases []*TestCase
}

// ParseError is a fatal problem in an annotation file.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}
