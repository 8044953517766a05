package condition

import (
	"fmt"
	"strconv"
)

// Error reports a condition that cannot be parsed or evaluated.
type Error struct {
	Expr string
	Pos  int // byte offset, -1 when unknown
	Msg  string
}

func (e *Error) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("condition %q: %s at offset %d", e.Expr, e.Msg, e.Pos)
	}
	return fmt.Sprintf("condition %q: %s", e.Expr, e.Msg)
}

var builtins = map[string]bool{
	"hasIsaFeature":  true,
	"len":            true,
	"set":            true,
	"os.environ.get": true,
}

type parser struct {
	src  string
	toks []token
	pos  int
}

// Parse builds the expression tree for src.
func Parse(src string) (Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %s", tok)
	}
	return expr, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) isOp(text string) bool {
	tok := p.peek()
	return tok.kind == tokOp && tok.text == text
}

func (p *parser) isKeyword(word string) bool {
	tok := p.peek()
	return tok.kind == tokIdent && tok.text == word
}

func (p *parser) expectOp(text string) error {
	if !p.isOp(text) {
		tok := p.peek()
		return p.errorf(tok, "expected %q, found %s", text, tok)
	}
	p.next()
	return nil
}

func (p *parser) errorf(tok token, format string, args ...interface{}) error {
	return &Error{Expr: p.src, Pos: tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.isKeyword("not") {
		p.next()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "not", X: x}, nil
	}
	return p.parseComparison()
}

// compareOp consumes a comparison operator, including the two-word "not in".
func (p *parser) compareOp() (string, bool) {
	tok := p.peek()
	if tok.kind == tokOp {
		switch tok.text {
		case "==", "!=", "<", "<=", ">", ">=":
			p.next()
			return tok.text, true
		}
		return "", false
	}
	if tok.kind != tokIdent {
		return "", false
	}
	switch tok.text {
	case "in":
		p.next()
		return "in", true
	case "not":
		if after := p.toks[p.pos+1]; after.kind == tokIdent && after.text == "in" {
			p.pos += 2
			return "not in", true
		}
	}
	return "", false
}

func (p *parser) parseComparison() (Expr, error) {
	first, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	cmp := CompareExpr{Operands: []Expr{first}}
	for {
		op, ok := p.compareOp()
		if !ok {
			break
		}
		operand, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		cmp.Ops = append(cmp.Ops, op)
		cmp.Operands = append(cmp.Operands, operand)
	}
	if len(cmp.Ops) == 0 {
		return first, nil
	}
	return cmp, nil
}

func (p *parser) parseSum() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := p.next().text
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") || p.isOp("/") || p.isOp("//") || p.isOp("%") {
		op := p.next().text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.isOp("-") {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "-", X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.next()
	switch tok.kind {
	case tokInt:
		v, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid integer %s", tok.text)
		}
		return IntLit{Value: v}, nil

	case tokString:
		return StrLit{Value: tok.text}, nil

	case tokIdent:
		switch tok.text {
		case "True":
			return BoolLit{Value: true}, nil
		case "False":
			return BoolLit{Value: false}, nil
		case "None":
			return NoneLit{}, nil
		}
		if !builtins[tok.text] {
			return nil, p.errorf(tok, "unknown name %q", tok.text)
		}
		args, err := p.parseList("(", ")")
		if err != nil {
			return nil, err
		}
		return FuncCall{Name: tok.text, Args: args}, nil

	case tokOp:
		switch tok.text {
		case "(":
			inner, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return ParenExpr{Inner: inner}, nil
		case "[":
			p.pos--
			elems, err := p.parseList("[", "]")
			if err != nil {
				return nil, err
			}
			return ListLit{Elems: elems}, nil
		}
	}
	return nil, p.errorf(tok, "unexpected %s", tok)
}

// parseList reads open expr, expr, ... close. A trailing comma is allowed.
func (p *parser) parseList(open, close string) ([]Expr, error) {
	if err := p.expectOp(open); err != nil {
		return nil, err
	}
	var elems []Expr
	for !p.isOp(close) {
		elem, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	if err := p.expectOp(close); err != nil {
		return nil, err
	}
	return elems, nil
}
