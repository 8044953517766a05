package condition

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Env is what a condition can observe besides its own literals.
type Env struct {
	ISAFeatures map[string]bool
	// AllowEnv enables os.environ.get. Without it the call is an error.
	AllowEnv bool
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Value is the result of evaluating an expression: int64, string, bool,
// nil (None), []Value (list) or Set.
type Value interface{}

// Set is an unordered collection of hashable values (ints, strings, bools).
type Set map[interface{}]struct{}

// Evaluate parses src and reports the truthiness of its value.
func Evaluate(src string, env Env) (bool, error) {
	expr, err := Parse(src)
	if err != nil {
		return false, err
	}
	v, err := Eval(expr, env)
	if err != nil {
		return false, &Error{Expr: src, Pos: -1, Msg: err.Error()}
	}
	return Truthy(v), nil
}

// Eval computes the value of expr.
func Eval(expr Expr, env Env) (Value, error) {
	e := &evaluator{env: env}
	return e.eval(expr)
}

// Truthy follows the usual rules: zero, empty and None are false.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case string:
		return x != ""
	case []Value:
		return len(x) > 0
	case Set:
		return len(x) > 0
	}
	return true
}

type evaluator struct {
	env Env
}

func (e *evaluator) eval(expr Expr) (Value, error) {
	switch n := expr.(type) {
	case IntLit:
		return n.Value, nil
	case StrLit:
		return n.Value, nil
	case BoolLit:
		return n.Value, nil
	case NoneLit:
		return nil, nil
	case ParenExpr:
		return e.eval(n.Inner)
	case ListLit:
		list := make([]Value, 0, len(n.Elems))
		for _, elem := range n.Elems {
			v, err := e.eval(elem)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case UnaryExpr:
		return e.unary(n)
	case BinaryExpr:
		return e.binary(n)
	case CompareExpr:
		return e.compare(n)
	case FuncCall:
		return e.call(n)
	}
	return nil, fmt.Errorf("unsupported expression %T", expr)
}

func (e *evaluator) unary(n UnaryExpr) (Value, error) {
	x, err := e.eval(n.X)
	if err != nil {
		return nil, err
	}
	if n.Op == "not" {
		return !Truthy(x), nil
	}
	i, ok := asInt(x)
	if !ok {
		return nil, fmt.Errorf("bad operand type for unary -: %s", typeName(x))
	}
	return -i, nil
}

func (e *evaluator) binary(n BinaryExpr) (Value, error) {
	left, err := e.eval(n.Left)
	if err != nil {
		return nil, err
	}

	// Connectives short-circuit and yield an operand, not a bool.
	switch n.Op {
	case "and":
		if !Truthy(left) {
			return left, nil
		}
		return e.eval(n.Right)
	case "or":
		if Truthy(left) {
			return left, nil
		}
		return e.eval(n.Right)
	}

	right, err := e.eval(n.Right)
	if err != nil {
		return nil, err
	}
	return arith(n.Op, left, right)
}

func arith(op string, left, right Value) (Value, error) {
	if op == "+" {
		switch l := left.(type) {
		case string:
			if r, ok := right.(string); ok {
				return l + r, nil
			}
		case []Value:
			if r, ok := right.([]Value); ok {
				return append(append([]Value{}, l...), r...), nil
			}
		}
	}
	if op == "*" {
		if s, ok := left.(string); ok {
			if n, ok := asInt(right); ok {
				if n < 0 {
					n = 0
				}
				return strings.Repeat(s, int(n)), nil
			}
		}
	}

	l, lok := asInt(left)
	r, rok := asInt(right)
	if !lok || !rok {
		return nil, fmt.Errorf("unsupported operand types for %s: %s and %s", op, typeName(left), typeName(right))
	}
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		if l%r != 0 {
			return nil, fmt.Errorf("non-integer division %d / %d", l, r)
		}
		return l / r, nil
	case "//":
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return floorDiv(l, r), nil
	case "%":
		if r == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return l - floorDiv(l, r)*r, nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func (e *evaluator) compare(n CompareExpr) (Value, error) {
	left, err := e.eval(n.Operands[0])
	if err != nil {
		return nil, err
	}
	for i, op := range n.Ops {
		right, err := e.eval(n.Operands[i+1])
		if err != nil {
			return nil, err
		}
		ok, err := compareValues(op, left, right)
		if err != nil {
			return nil, err
		}
		if !ok {
			return false, nil
		}
		left = right
	}
	return true, nil
}

func compareValues(op string, left, right Value) (bool, error) {
	switch op {
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	case "in":
		return contains(right, left)
	case "not in":
		ok, err := contains(right, left)
		return !ok, err
	}

	c, err := order(left, right)
	if err != nil {
		return false, fmt.Errorf("'%s' not supported between %s and %s", op, typeName(left), typeName(right))
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, fmt.Errorf("unknown comparison %s", op)
}

func equal(a, b Value) bool {
	if ai, ok := asInt(a); ok {
		bi, ok := asInt(b)
		return ok && ai == bi
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	case []Value:
		y, ok := b.([]Value)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Set:
		y, ok := b.(Set)
		if !ok || len(x) != len(y) {
			return false
		}
		for k := range x {
			if _, ok := y[k]; !ok {
				return false
			}
		}
		return true
	}
	return false
}

func order(a, b Value) (int, error) {
	if ai, ok := asInt(a); ok {
		if bi, ok := asInt(b); ok {
			switch {
			case ai < bi:
				return -1, nil
			case ai > bi:
				return 1, nil
			}
			return 0, nil
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), nil
		}
	}
	return 0, fmt.Errorf("unordered")
}

func contains(container, item Value) (bool, error) {
	switch c := container.(type) {
	case string:
		s, ok := item.(string)
		if !ok {
			return false, fmt.Errorf("'in <string>' requires string as left operand, not %s", typeName(item))
		}
		return strings.Contains(c, s), nil
	case []Value:
		for _, v := range c {
			if equal(v, item) {
				return true, nil
			}
		}
		return false, nil
	case Set:
		key, err := setKey(item)
		if err != nil {
			return false, err
		}
		_, ok := c[key]
		return ok, nil
	}
	return false, fmt.Errorf("argument of type %s is not iterable", typeName(container))
}

func (e *evaluator) call(n FuncCall) (Value, error) {
	args := make([]Value, 0, len(n.Args))
	for _, a := range n.Args {
		v, err := e.eval(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	switch n.Name {
	case "hasIsaFeature":
		if len(args) != 1 {
			return nil, fmt.Errorf("hasIsaFeature() takes 1 argument, got %d", len(args))
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("hasIsaFeature() argument must be a string, not %s", typeName(args[0]))
		}
		return e.env.ISAFeatures[name], nil

	case "len":
		if len(args) != 1 {
			return nil, fmt.Errorf("len() takes 1 argument, got %d", len(args))
		}
		switch x := args[0].(type) {
		case string:
			return int64(len(x)), nil
		case []Value:
			return int64(len(x)), nil
		case Set:
			return int64(len(x)), nil
		}
		return nil, fmt.Errorf("object of type %s has no len()", typeName(args[0]))

	case "set":
		return makeSet(args)

	case "os.environ.get":
		if !e.env.AllowEnv {
			return nil, fmt.Errorf("environment access is disabled")
		}
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("os.environ.get() takes 1 or 2 arguments, got %d", len(args))
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("os.environ.get() key must be a string, not %s", typeName(args[0]))
		}
		lookup := e.env.LookupEnv
		if lookup == nil {
			lookup = os.LookupEnv
		}
		if v, ok := lookup(name); ok {
			return v, nil
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return nil, nil
	}
	return nil, fmt.Errorf("unknown function %s", n.Name)
}

func makeSet(args []Value) (Value, error) {
	set := Set{}
	if len(args) == 0 {
		return set, nil
	}
	if len(args) > 1 {
		return nil, fmt.Errorf("set() takes at most 1 argument, got %d", len(args))
	}

	var items []Value
	switch x := args[0].(type) {
	case []Value:
		items = x
	case Set:
		for k := range x {
			items = append(items, k)
		}
	case string:
		for _, r := range x {
			items = append(items, string(r))
		}
	default:
		return nil, fmt.Errorf("%s object is not iterable", typeName(args[0]))
	}
	for _, item := range items {
		key, err := setKey(item)
		if err != nil {
			return nil, err
		}
		set[key] = struct{}{}
	}
	return set, nil
}

// setKey normalizes bools to ints so that True and 1 collide.
func setKey(v Value) (interface{}, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case int64, string, nil:
		return x, nil
	}
	return nil, fmt.Errorf("unhashable type: %s", typeName(v))
}

func asInt(v Value) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func typeName(v Value) string {
	switch v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int64:
		return "int"
	case string:
		return "str"
	case []Value:
		return "list"
	case Set:
		return "set"
	}
	return fmt.Sprintf("%T", v)
}

// String renders a value for diagnostics. Sets print sorted.
func String(v Value) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return fmt.Sprintf("'%s'", x)
	case []Value:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = String(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Set:
		parts := make([]string, 0, len(x))
		for k := range x {
			parts = append(parts, String(k))
		}
		sort.Strings(parts)
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}
