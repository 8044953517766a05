package c1visualizer

import (
	"fmt"
	"io"
	"strings"

	"github.com/coregx/coregex"

	"checker/internal/logging"
)

type parserState int

const (
	outsideBlock parserState = iota
	inCompilation
	startingCFG
	inCFG
)

var (
	passNameRe    = coregex.MustCompile(`^name\s+"[^"]+"`)
	methodNameRe  = coregex.MustCompile(`^method\s+"[^"]*"`)
	isaFeaturesRe = coregex.MustCompile(`isa_features:([\w,-]+)`)
)

type parser struct {
	file       *File
	state      parserState
	lastMethod string
	current    *Pass
}

// Parse reads the whole of r and parses it as the dump name.
func Parse(name string, r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return ParseString(name, string(data))
}

// ParseString parses dump text. Body lines are trimmed and blank lines are
// dropped. The first structural problem is returned as a *ParseError.
func ParseString(name, text string) (*File, error) {
	p := &parser{file: newFile(name)}
	raw := strings.Split(text, "\n")
	p.file.Lines = raw

	for i, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := p.line(line, i+1); err != nil {
			return nil, err
		}
	}
	if err := p.flush(); err != nil {
		return nil, err
	}

	logging.Dump("parsed %s: %d passes, %d isa features",
		p.file.BaseName, len(p.file.Passes), len(p.file.ISAFeatures))
	return p.file, nil
}

func (p *parser) fail(lineNo int, msg string) error {
	return &ParseError{File: p.file.BaseName, Line: lineNo, Msg: msg}
}

func (p *parser) line(line string, lineNo int) error {
	switch p.state {
	case startingCFG:
		if !passNameRe.MatchString(line) {
			return p.fail(lineNo, "Expected output group name")
		}
		p.state = inCFG
		p.current = &Pass{
			Name:      p.lastMethod + " " + strings.Split(line, `"`)[1],
			StartLine: lineNo + 1,
		}
		return nil

	case inCFG:
		if line == "end_cfg" {
			p.state = outsideBlock
			return p.flush()
		}
		p.current.Body = append(p.current.Body, line)
		return nil

	case inCompilation:
		if methodNameRe.MatchString(line) {
			return p.method(line, lineNo)
		}
		if line == "end_compilation" {
			p.state = outsideBlock
		}
		return nil
	}

	switch line {
	case "begin_cfg":
		if p.lastMethod == "" {
			return p.fail(lineNo, "Expected method header")
		}
		p.state = startingCFG
	case "begin_compilation":
		p.state = inCompilation
	default:
		return p.fail(lineNo, "C1visualizer line not inside a group")
	}
	return nil
}

// method records the active method, or the file-wide ISA features when the
// name carries an isa_features: list.
func (p *parser) method(line string, lineNo int) error {
	name := strings.TrimSpace(strings.Split(line, `"`)[1])
	if name == "" {
		return p.fail(lineNo, "Empty method name in output")
	}

	m := isaFeaturesRe.FindStringSubmatch(name)
	if m == nil {
		p.lastMethod = name
		return nil
	}

	features := make(map[string]bool)
	for _, raw := range strings.Split(m[1], ",") {
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "-") {
			features[raw[1:]] = false
			continue
		}
		features[raw] = true
	}
	p.file.ISAFeatures = features
	return nil
}

func (p *parser) flush() error {
	if p.current == nil {
		return nil
	}
	pass := p.current
	p.current = nil
	if len(pass.Body) == 0 {
		return p.fail(pass.StartLine, "C1visualizer pass does not have a body")
	}
	p.file.Passes = append(p.file.Passes, pass)
	return nil
}
