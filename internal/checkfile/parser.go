package checkfile

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/coregx/coregex"

	"checker/internal/logging"
)

// DefaultArchitectures is the architecture enumeration used when none is
// configured.
var DefaultArchitectures = []string{"ARM", "ARM64", "X86", "X86_64", "RISCV64"}

const commentMarkers = `(?:///|##|;;)`

var suffixVariants = map[string]Variant{
	"":      InOrder,
	"-NEXT": NextLine,
	"-DAG":  DAG,
	"-NOT":  Not,
	"-EVAL": Eval,
	"-IF":   If,
	"-ELIF": Elif,
	"-ELSE": Else,
	"-FI":   Fi,
}

// Options configure a Parser.
type Options struct {
	Prefix        string   // directive keyword, CHECK by default
	Architectures []string // valid -START-ARCH tags
	TargetArch    string   // resolves -START-{a,b} sets
}

// Parser turns annotated sources into Files.
type Parser struct {
	opts      Options
	compiler  *ExpressionCompiler
	candidate *coregex.Regex
	directive *coregex.Regex
}

// NewParser validates opts and compiles the directive regexes.
func NewParser(opts Options) (*Parser, error) {
	if opts.Prefix == "" {
		opts.Prefix = "CHECK"
	}
	if len(opts.Architectures) == 0 {
		opts.Architectures = DefaultArchitectures
	}
	if opts.TargetArch != "" && !slices.Contains(opts.Architectures, opts.TargetArch) {
		return nil, fmt.Errorf("unknown target architecture %q", opts.TargetArch)
	}

	compiler, err := NewExpressionCompiler()
	if err != nil {
		return nil, err
	}
	prefix := coregex.QuoteMeta(opts.Prefix)
	candidate, err := coregex.Compile(`^` + commentMarkers + `\s*` + prefix + `(?:[^A-Za-z0-9_]|$)`)
	if err != nil {
		return nil, fmt.Errorf("invalid check prefix %q: %w", opts.Prefix, err)
	}
	directive, err := coregex.Compile(`^` + commentMarkers + `\s*` + prefix + `([^\s:]*):(.*)$`)
	if err != nil {
		return nil, fmt.Errorf("invalid check prefix %q: %w", opts.Prefix, err)
	}

	return &Parser{
		opts:      opts,
		compiler:  compiler,
		candidate: candidate,
		directive: directive,
	}, nil
}

// Parse reads the whole of r and parses it as the annotation file name.
func (p *Parser) Parse(name string, r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return p.ParseString(name, string(data))
}

// ParseString parses annotation text. The first fatal problem is returned as
// a *ParseError.
func (p *Parser) ParseString(name, text string) (*File, error) {
	file := &File{Name: name}
	var current *TestCase

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || !p.candidate.MatchString(line) {
			continue
		}

		d, err := p.classify(line)
		if err != nil {
			return nil, &ParseError{File: name, Line: lineNo, Msg: err.Error()}
		}

		if d.start {
			if d.body == "" {
				return nil, &ParseError{File: name, Line: lineNo, Msg: "Test case does not have a name"}
			}
			current = &TestCase{
				Name:       d.body,
				File:       name,
				StartLine:  lineNo,
				Arch:       d.arch,
				Debuggable: d.debuggable,
			}
			file.TestCases = append(file.TestCases, current)
			continue
		}

		if current == nil {
			return nil, &ParseError{File: name, Line: lineNo, Msg: "Checker line not inside a group"}
		}
		stmt, err := p.parseStatement(current, d.variant, d.body, lineNo)
		if err != nil {
			return nil, err
		}
		current.Statements = append(current.Statements, stmt)
	}

	logging.Parse("parsed %s: %d test cases", name, len(file.TestCases))
	return file, nil
}

type directiveLine struct {
	start      bool
	arch       string
	debuggable bool
	variant    Variant
	body       string
}

var errUnparsable = errors.New("unparsable")

func (p *Parser) classify(line string) (directiveLine, error) {
	m := p.directive.FindStringSubmatch(line)
	if m == nil {
		return directiveLine{}, fmt.Errorf("Checker statement could not be parsed: '%s'", line)
	}
	suffix, body := m[1], strings.TrimSpace(m[2])

	if suffix == "-START" || strings.HasPrefix(suffix, "-START-") {
		arch, debuggable, err := p.startAttributes(strings.TrimPrefix(suffix, "-START"))
		if err != nil {
			return directiveLine{}, fmt.Errorf("Checker statement could not be parsed: '%s'", line)
		}
		return directiveLine{start: true, arch: arch, debuggable: debuggable, body: body}, nil
	}

	variant, ok := suffixVariants[suffix]
	if !ok {
		return directiveLine{}, fmt.Errorf("Checker statement could not be parsed: '%s'", line)
	}
	return directiveLine{variant: variant, body: body}, nil
}

// startAttributes decodes the part after -START: [-ARCH|-{A,B}][-DEBUGGABLE].
func (p *Parser) startAttributes(rest string) (string, bool, error) {
	debuggable := false
	if strings.HasSuffix(rest, "-DEBUGGABLE") {
		debuggable = true
		rest = strings.TrimSuffix(rest, "-DEBUGGABLE")
	}
	if rest == "" {
		return "", debuggable, nil
	}
	if !strings.HasPrefix(rest, "-") {
		return "", false, errUnparsable
	}
	tag := rest[1:]

	if strings.HasPrefix(tag, "{") && strings.HasSuffix(tag, "}") {
		arch, err := p.resolveArchSet(tag[1 : len(tag)-1])
		return arch, debuggable, err
	}
	if !slices.Contains(p.opts.Architectures, tag) {
		return "", false, errUnparsable
	}
	return tag, debuggable, nil
}

// resolveArchSet picks the target architecture from a -START-{a,b,c} set,
// falling back to the first candidate. Every candidate must be known.
func (p *Parser) resolveArchSet(set string) (string, error) {
	candidates := strings.Split(set, ",")
	for _, arch := range candidates {
		if !slices.Contains(p.opts.Architectures, arch) {
			return "", errUnparsable
		}
	}
	if p.opts.TargetArch != "" && slices.Contains(candidates, p.opts.TargetArch) {
		return p.opts.TargetArch, nil
	}
	return candidates[0], nil
}

func (p *Parser) parseStatement(tc *TestCase, variant Variant, body string, lineNo int) (*Statement, error) {
	stmt := &Statement{
		Variant:      variant,
		LineNo:       lineNo,
		OriginalText: body,
		File:         tc.File,
		Case:         tc.Name,
	}
	if variant.IsNoContent() {
		if body != "" {
			return nil, &ParseError{File: tc.File, Line: lineNo, Msg: fmt.Sprintf("Expected empty statement: '%s'", body)}
		}
		return stmt, nil
	}

	exprs, err := p.compiler.Compile(body, variant.IsEvalContent())
	if err != nil {
		return nil, &ParseError{File: tc.File, Line: lineNo, Msg: err.Error()}
	}
	if variant == Not {
		for _, e := range exprs {
			if e.Variant == VarDef {
				return nil, &ParseError{File: tc.File, Line: lineNo, Msg: "NOT statements cannot define variables"}
			}
		}
	}
	stmt.Expressions = exprs
	return stmt, nil
}
