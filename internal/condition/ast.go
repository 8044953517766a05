package condition

// Expr represents a condition expression node.
type Expr interface {
	exprNode()
}

// IntLit is a decimal integer literal.
type IntLit struct {
	Value int64
}

func (IntLit) exprNode() {}

// StrLit is a quoted string literal.
type StrLit struct {
	Value string
}

func (StrLit) exprNode() {}

// BoolLit is True or False.
type BoolLit struct {
	Value bool
}

func (BoolLit) exprNode() {}

// NoneLit is None.
type NoneLit struct{}

func (NoneLit) exprNode() {}

// ListLit is [a, b, ...].
type ListLit struct {
	Elems []Expr
}

func (ListLit) exprNode() {}

// UnaryExpr is "not x" or "-x".
type UnaryExpr struct {
	Op string
	X  Expr
}

func (UnaryExpr) exprNode() {}

// BinaryExpr is an arithmetic operation or a boolean connective.
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

func (BinaryExpr) exprNode() {}

// CompareExpr is a comparison chain: a < b <= c holds when every adjacent
// pair holds.
type CompareExpr struct {
	Operands []Expr
	Ops      []string // len(Ops) == len(Operands)-1
}

func (CompareExpr) exprNode() {}

// FuncCall is a call to one of the built-in functions.
type FuncCall struct {
	Name string
	Args []Expr
}

func (FuncCall) exprNode() {}

// ParenExpr is a parenthesized expression.
type ParenExpr struct {
	Inner Expr
}

func (ParenExpr) exprNode() {}
