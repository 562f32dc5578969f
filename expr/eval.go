package expr

import "fmt"

// Row gives access to projected column values by position.
type Row interface {
	Column(col int) Value
}

// Values is the simplest Row.
type Values []Value

func (vs Values) Column(col int) Value { return vs[col] }

// Eval evaluates a bound expression against row.
//
// Any comparison that involves a null is false, except != which is defined
// as the negation of ==. As a consequence `x != x` holds exactly when x is
// null, the same as `x IS NULL`.
func Eval(e Expr, row Row) bool {
	switch e := e.(type) {
	case *Cmp:
		l, r := e.L.value(row), e.R.value(row)
		if e.Op == OpNe {
			return !Equal(l, r)
		}
		c, ok := Compare(l, r)
		if !ok {
			return false
		}
		return e.Op.Holds(c)
	case *NullTest:
		return e.X.value(row).IsNull() != e.Negate
	case *And:
		return Eval(e.L, row) && Eval(e.R, row)
	case *Or:
		return Eval(e.L, row) || Eval(e.R, row)
	case *Not:
		return !Eval(e.X, row)
	case True:
		return true
	default:
		panic(fmt.Errorf("unexpected expression %T", e))
	}
}

func (o Operand) value(row Row) Value {
	if !o.IsField {
		return o.Lit
	}
	if o.Col < 0 {
		panic(fmt.Errorf("field %q is not bound", o.Name))
	}
	return row.Column(o.Col)
}

// Holds reports whether the ordering result c satisfies op.
func (op Op) Holds(c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	default:
		panic(fmt.Errorf("invalid operator %v", op))
	}
}
