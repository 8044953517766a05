package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checker/internal/checkfile"
)

func newStatement(t *testing.T, text string) *checkfile.Statement {
	t.Helper()
	p, err := checkfile.NewParser(checkfile.Options{})
	require.NoError(t, err)
	f, err := p.ParseString("<checker-file>", "/// CHECK-START: TestMethod TestPass\n/// CHECK: "+text)
	require.NoError(t, err)
	require.Len(t, f.TestCases, 1)
	require.Len(t, f.TestCases[0].Statements, 1)
	return f.TestCases[0].Statements[0]
}

func tryLine(t *testing.T, checker, line string, vars map[string]string) (Bindings, bool, error) {
	t.Helper()
	return Line(newStatement(t, checker), line, NewBindings(vars))
}

func assertLineMatches(t *testing.T, checker, line string, vars map[string]string) {
	t.Helper()
	_, ok, err := tryLine(t, checker, line, vars)
	require.NoError(t, err)
	assert.True(t, ok, "%q should match %q", checker, line)
}

func assertLineDoesNotMatch(t *testing.T, checker, line string, vars map[string]string) {
	t.Helper()
	_, ok, err := tryLine(t, checker, line, vars)
	require.NoError(t, err)
	assert.False(t, ok, "%q should not match %q", checker, line)
}

func TestLine_TextAndWhitespace(t *testing.T) {
	assertLineMatches(t, "foo", "foo", nil)
	assertLineMatches(t, "foo", "  foo  ", nil)
	assertLineMatches(t, "foo", "foo bar", nil)
	assertLineDoesNotMatch(t, "foo", "XfooX", nil)
	assertLineDoesNotMatch(t, "foo", "Xfoo", nil)
	assertLineDoesNotMatch(t, "foo", "fooX", nil)
	assertLineDoesNotMatch(t, "foo", "zoo", nil)

	assertLineMatches(t, "foo bar", "foo   bar", nil)
	assertLineMatches(t, "foo bar", "abc foo bar def", nil)
	assertLineMatches(t, "foo bar", "foo foo bar bar", nil)

	assertLineMatches(t, "foo bar", "foo X bar", nil)
	assertLineDoesNotMatch(t, "foo bar", "foo Xbar", nil)
	assertLineDoesNotMatch(t, "foo bar", "fooXbar", nil)
}

func TestLine_Pattern(t *testing.T) {
	assertLineMatches(t, "foo{{A|B}}bar", "fooAbar", nil)
	assertLineMatches(t, "foo{{A|B}}bar", "fooBbar", nil)
	assertLineDoesNotMatch(t, "foo{{A|B}}bar", "fooCbar", nil)
}

func TestLine_VariableReference(t *testing.T) {
	assertLineMatches(t, "foo<<X>>bar", "foobar", map[string]string{"X": ""})
	assertLineMatches(t, "foo<<X>>bar", "fooAbar", map[string]string{"X": "A"})
	assertLineMatches(t, "foo<<X>>bar", "fooBbar", map[string]string{"X": "B"})
	assertLineDoesNotMatch(t, "foo<<X>>bar", "foobar", map[string]string{"X": "A"})
	assertLineDoesNotMatch(t, "foo<<X>>bar", "foo bar", map[string]string{"X": "A"})

	_, _, err := tryLine(t, "foo<<X>>bar", "foobar", nil)
	var serr *StatementError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Msg, "Missing definition of variable")
}

func TestLine_VariableDefinition(t *testing.T) {
	assertLineMatches(t, "foo<<X:A|B>>bar", "fooAbar", nil)
	assertLineMatches(t, "foo<<X:A|B>>bar", "fooBbar", nil)
	assertLineDoesNotMatch(t, "foo<<X:A|B>>bar", "fooCbar", nil)

	vars, ok, err := tryLine(t, "foo<<X:A.*B>>bar", "fooABbar", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"X": "AB"}, vars.Map())

	vars, ok, err = tryLine(t, "foo<<X:A.*B>>bar", "fooAxxBbar", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"X": "AxxB"}, vars.Map())

	assertLineMatches(t, "foo<<X:A|B>>bar<<X>>baz", "fooAbarAbaz", nil)
	assertLineMatches(t, "foo<<X:A|B>>bar<<X>>baz", "fooBbarBbaz", nil)
	assertLineDoesNotMatch(t, "foo<<X:A|B>>bar<<X>>baz", "fooAbarBbaz", nil)

	vars, ok, err = tryLine(t, "<<X:[0-9]+>>", "42", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assertLineMatches(t, "<<X>>", "42", vars.Map())
	assertLineDoesNotMatch(t, "<<X>>", "43", vars.Map())
}

func TestLine_NoVariableRedefinition(t *testing.T) {
	_, _, err := tryLine(t, "<<X:...>><<X>><<X:...>><<X>>", "foofoobarbar", nil)
	var serr *StatementError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Msg, "Multiple definitions of variable")

	_, _, err = tryLine(t, "<<X:...>>", "foo", map[string]string{"X": "bar"})
	require.ErrorAs(t, err, &serr)
}

func TestLine_EnvNotChangedOnPartialMatch(t *testing.T) {
	env := NewBindings(map[string]string{"Y": "foo"})
	_, ok, err := Line(newStatement(t, "<<X:A>>bar"), "Abaz", env)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, env.Has("X"))
	assert.Equal(t, []string{"Y"}, env.Names())
}

func TestLine_VariableContentEscaped(t *testing.T) {
	assertLineMatches(t, "<<X:..>>foo<<X>>", ".*foo.*", nil)
	assertLineDoesNotMatch(t, "<<X:..>>foo<<X>>", ".*fooAAAA", nil)
}

func TestBindings_CopyOnWrite(t *testing.T) {
	base := NewBindings(map[string]string{"B": "2", "A": "1"})
	ext := base.With("C", "3")

	assert.Equal(t, 2, base.Len())
	assert.Equal(t, 3, ext.Len())
	assert.False(t, base.Has("C"))
	assert.Equal(t, []string{"A", "B", "C"}, ext.Names())

	m := ext.Map()
	m["A"] = "changed"
	v, _ := ext.Get("A")
	assert.Equal(t, "1", v)
}
