package expr

import (
	"strconv"
)

type Op uint8

const (
	OpInvalid Op = iota
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var opStrings = [...]string{
	OpInvalid: "?",
	OpEq:      "==",
	OpNe:      "!=",
	OpLt:      "<",
	OpLe:      "<=",
	OpGt:      ">",
	OpGe:      ">=",
}

func (op Op) String() string {
	if int(op) < len(opStrings) {
		return opStrings[op]
	}
	return "Op(" + strconv.Itoa(int(op)) + ")"
}

// Flip returns the operator that gives the same result with swapped operands.
func (op Op) Flip() Op {
	switch op {
	case OpLt:
		return OpGt
	case OpLe:
		return OpGe
	case OpGt:
		return OpLt
	case OpGe:
		return OpLe
	default:
		return op
	}
}

// ParseOp recognizes comparison operators. IS and IS NOT are handled separately
// because they only apply to null.
func ParseOp(s string) Op {
	switch s {
	case "==", "=":
		return OpEq
	case "!=", "<>":
		return OpNe
	case "<":
		return OpLt
	case "<=":
		return OpLe
	case ">":
		return OpGt
	case ">=":
		return OpGe
	default:
		return OpInvalid
	}
}

// Expr is a boolean predicate over the columns of a row.
type Expr interface {
	String() string
	exprNode()
}

// Operand is either a field reference or a literal.
type Operand struct {
	IsField bool
	Name    string
	Col     int // set by Bind
	Kind    Kind
	Lit     Value
}

func FieldRef(name string) Operand { return Operand{IsField: true, Name: name, Col: -1} }
func Literal(v Value) Operand      { return Operand{Lit: v, Kind: v.Kind} }

func (o Operand) String() string {
	if o.IsField {
		return o.Name
	}
	return o.Lit.String()
}

type Cmp struct {
	Op   Op
	L, R Operand
}

type NullTest struct {
	X      Operand
	Negate bool
}

type And struct{ L, R Expr }
type Or struct{ L, R Expr }
type Not struct{ X Expr }

// True matches every row. It is the lowering of an empty condition list.
type True struct{}

func (*Cmp) exprNode()      {}
func (*NullTest) exprNode() {}
func (*And) exprNode()      {}
func (*Or) exprNode()       {}
func (*Not) exprNode()      {}
func (True) exprNode()      {}

func (e *Cmp) String() string { return e.L.String() + " " + e.Op.String() + " " + e.R.String() }
func (e *NullTest) String() string {
	if e.Negate {
		return e.X.String() + " IS NOT NULL"
	}
	return e.X.String() + " IS NULL"
}
func (e *And) String() string { return "(" + e.L.String() + " and " + e.R.String() + ")" }
func (e *Or) String() string  { return "(" + e.L.String() + " or " + e.R.String() + ")" }
func (e *Not) String() string { return "not " + e.X.String() }
func (True) String() string   { return "true" }

// AllOf conjoins the given expressions left to right.
func AllOf(exprs ...Expr) Expr {
	var result Expr
	for _, e := range exprs {
		if result == nil {
			result = e
		} else {
			result = &And{result, e}
		}
	}
	if result == nil {
		return True{}
	}
	return result
}

// Conjuncts flattens top-level ANDs.
func Conjuncts(e Expr) []Expr {
	var out []Expr
	var walk func(e Expr)
	walk = func(e Expr) {
		if a, ok := e.(*And); ok {
			walk(a.L)
			walk(a.R)
		} else {
			out = append(out, e)
		}
	}
	walk(e)
	return out
}
