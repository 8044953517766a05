package checkfile

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
	"github.com/coregx/coregex"
)

const (
	rName    = `([a-zA-Z][a-zA-Z0-9]*)`
	rBody    = `(.+?)`
	rPattern = `^\{\{` + rBody + `\}\}`
	rVarRef  = `^<<` + rName + `>>`
	rVarDef  = `^<<` + rName + `:` + rBody + `>>`
)

// ExpressionCompiler tokenizes the text of one directive.
//
// Marker candidates ({{ and <<) are located with an Aho-Corasick scan and
// confirmed with anchored regexes. Whitespace splits words.
type ExpressionCompiler struct {
	markers *ahocorasick.Automaton
	pattern *coregex.Regex
	varRef  *coregex.Regex
	varDef  *coregex.Regex
}

// NewExpressionCompiler builds the marker automaton and regexes.
func NewExpressionCompiler() (*ExpressionCompiler, error) {
	builder := ahocorasick.NewBuilder()
	builder.AddPattern([]byte("{{"))
	builder.AddPattern([]byte("<<"))
	markers, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build marker automaton: %w", err)
	}
	return &ExpressionCompiler{
		markers: markers,
		pattern: coregex.MustCompile(rPattern),
		varRef:  coregex.MustCompile(rVarRef),
		varDef:  coregex.MustCompile(rVarDef),
	}, nil
}

type token struct {
	variant ExpressionVariant
	name    string
	body    string
	n       int // bytes consumed
}

// Compile splits text into expressions. With evalContent set only variable
// references are recognized and everything else stays verbatim.
func (c *ExpressionCompiler) Compile(text string, evalContent bool) ([]Expression, error) {
	var exprs []Expression
	for text != "" {
		if tok, ok := c.tokenAt(text, evalContent); ok {
			expr, err := tok.expression()
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, expr)
			text = text[tok.n:]
			continue
		}

		next := c.nextMarker(text, evalContent)
		literal := text[:next]
		text = text[next:]
		if evalContent {
			exprs = append(exprs, NewPlainText(literal))
			continue
		}
		expr, err := NewPatternFromPlainText(literal)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

// tokenAt recognizes a marker starting at offset 0. Ties go to whitespace,
// then patterns, then references, then definitions.
func (c *ExpressionCompiler) tokenAt(s string, evalContent bool) (token, bool) {
	if !evalContent {
		if r, _ := utf8.DecodeRuneInString(s); unicode.IsSpace(r) {
			end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) })
			if end < 0 {
				end = len(s)
			}
			return token{variant: Separator, n: end}, true
		}
		if m := c.pattern.FindStringSubmatchIndex(s); m != nil {
			return token{variant: Pattern, body: s[m[2]:m[3]], n: m[1]}, true
		}
	}
	if m := c.varRef.FindStringSubmatchIndex(s); m != nil {
		return token{variant: VarRef, name: s[m[2]:m[3]], n: m[1]}, true
	}
	if !evalContent {
		if m := c.varDef.FindStringSubmatchIndex(s); m != nil {
			return token{variant: VarDef, name: s[m[2]:m[3]], body: s[m[4]:m[5]], n: m[1]}, true
		}
	}
	return token{}, false
}

// nextMarker returns the offset of the earliest marker after offset 0, or
// len(s) when there is none.
func (c *ExpressionCompiler) nextMarker(s string, evalContent bool) int {
	limit := len(s)
	if !evalContent {
		if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
			limit = i
		}
	}

	haystack := []byte(s)
	at := 1
	for at < limit {
		m := c.markers.Find(haystack, at)
		if m == nil || m.Start >= limit {
			break
		}
		if _, ok := c.tokenAt(s[m.Start:], evalContent); ok {
			return m.Start
		}
		at = m.Start + 1
	}
	return limit
}

func (t token) expression() (Expression, error) {
	switch t.variant {
	case Separator:
		return NewSeparator(), nil
	case Pattern:
		return NewPattern(t.body)
	case VarRef:
		return NewVarRef(t.name), nil
	case VarDef:
		return NewVarDef(t.name, t.body)
	}
	return Expression{}, fmt.Errorf("unexpected token %s", t.variant)
}
