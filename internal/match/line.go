package match

import (
	"fmt"
	"strings"

	"checker/internal/checkfile"
	"checker/internal/condition"
)

// Line matches a pattern statement against one dump line. Every word of the
// statement must consume a whole whitespace-delimited word of the line, in
// order, with arbitrary words in between. It returns the extended bindings
// and true on success. The input bindings are never modified.
func Line(stmt *checkfile.Statement, line string, vars Bindings) (Bindings, bool, error) {
	words := stmt.Words()
	outWords := strings.Fields(line)

	for _, word := range words {
		matched := false
		for len(outWords) > 0 {
			out := outWords[0]
			outWords = outWords[1:]
			next, ok, err := matchWord(stmt, word, out, vars)
			if err != nil {
				return vars, false, err
			}
			if ok {
				vars = next
				matched = true
				break
			}
		}
		if !matched {
			return Bindings{}, false, nil
		}
	}
	return vars, true, nil
}

// matchWord consumes out with the expressions of one statement word.
func matchWord(stmt *checkfile.Statement, word []checkfile.Expression, out string, vars Bindings) (Bindings, bool, error) {
	for _, expr := range word {
		var n int
		switch expr.Variant {
		case checkfile.VarRef:
			value, err := lookup(stmt, expr.Name, vars)
			if err != nil {
				return vars, false, err
			}
			if !strings.HasPrefix(out, value) {
				return vars, false, nil
			}
			n = len(value)

		case checkfile.Pattern, checkfile.VarDef:
			loc := expr.Regex().FindStringIndex(out)
			if loc == nil {
				return vars, false, nil
			}
			n = loc[1]
			if expr.Variant == checkfile.VarDef {
				if vars.Has(expr.Name) {
					return vars, false, &StatementError{
						Statement: stmt,
						Msg:       fmt.Sprintf("Multiple definitions of variable %q", expr.Name),
						Bindings:  vars,
					}
				}
				vars = vars.With(expr.Name, out[:n])
			}

		default:
			return vars, false, &StatementError{
				Statement: stmt,
				Msg:       fmt.Sprintf("unexpected %s expression in pattern statement", expr.Variant),
				Bindings:  vars,
			}
		}
		out = out[n:]
	}
	return vars, out == "", nil
}

func lookup(stmt *checkfile.Statement, name string, vars Bindings) (string, error) {
	if v, ok := vars.Get(name); ok {
		return v, nil
	}
	return "", &StatementError{
		Statement: stmt,
		Msg:       fmt.Sprintf("Missing definition of variable %q", name),
		Bindings:  vars,
	}
}

// EvalText substitutes variable references into the condition text.
func EvalText(stmt *checkfile.Statement, vars Bindings) (string, error) {
	var b strings.Builder
	for _, expr := range stmt.Expressions {
		switch expr.Variant {
		case checkfile.PlainText:
			b.WriteString(expr.Text)
		case checkfile.VarRef:
			v, err := lookup(stmt, expr.Name, vars)
			if err != nil {
				return "", err
			}
			b.WriteString(v)
		default:
			return "", &StatementError{
				Statement: stmt,
				Msg:       fmt.Sprintf("unexpected %s expression in condition", expr.Variant),
				Bindings:  vars,
			}
		}
	}
	return b.String(), nil
}

// Evaluate reports whether an EVAL, IF or ELIF condition holds.
func Evaluate(stmt *checkfile.Statement, vars Bindings, env condition.Env) (bool, error) {
	text, err := EvalText(stmt, vars)
	if err != nil {
		return false, err
	}
	ok, err := condition.Evaluate(text, env)
	if err != nil {
		return false, &StatementError{Statement: stmt, Msg: err.Error(), Bindings: vars}
	}
	return ok, nil
}
