package objidx

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/andreyvit/objidx/expr"
)

// Predicate is a filter accepted by Index.Find: a raw Where expression, a
// single Condition, or a Conds list. A nil Predicate matches everything.
type Predicate interface {
	// lower validates the predicate and binds it to scm. A nil result with no
	// error means no filter.
	lower(scm *Schema) (expr.Expr, error)
}

// Where is a raw filter expression, e.g. `x == 3 and (name = 'a' or y IS NULL)`.
type Where string

func (w Where) lower(scm *Schema) (expr.Expr, error) {
	if strings.TrimSpace(string(w)) == "" {
		return nil, nil
	}
	e, err := expr.Parse(string(w))
	if err != nil {
		return nil, err
	}
	return expr.Bind(e, scm)
}

// Condition compares one field with a value. Op is one of < > == = != >= <=
// IS and IS NOT, case-insensitive; IS and IS NOT only take a nil Value.
type Condition struct {
	Field string
	Op    string
	Value any
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}

func (c Condition) lower(scm *Schema) (expr.Expr, error) {
	return Conds{c}.lower(scm)
}

// Conds is a list of conditions that must all hold. An empty list matches
// everything.
type Conds []Condition

func (cs Conds) lower(scm *Schema) (expr.Expr, error) {
	if len(cs) == 0 {
		return nil, nil
	}
	exprs := make([]expr.Expr, 0, len(cs))
	for i, c := range cs {
		e, err := validateCondition(scm, i, c)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return expr.AllOf(exprs...), nil
}

const (
	opIs    = "IS"
	opIsNot = "IS NOT"
)

func normalizeOp(op string) string {
	return strings.ToUpper(strings.Join(strings.Fields(op), " "))
}

// validateCondition checks the operator, then the field, then the value, and
// returns the condition as a bound expression.
func validateCondition(scm *Schema, pos int, c Condition) (expr.Expr, error) {
	op := normalizeOp(c.Op)
	var cmpOp expr.Op
	switch op {
	case opIs, opIsNot:
	case "<", ">", "==", "=", "!=", ">=", "<=":
		cmpOp = expr.ParseOp(op)
	default:
		return nil, queryErrf(pos, c, ErrBadOperator, "expected one of < > == = != >= <= IS, IS NOT")
	}

	col, kind, ok := scm.Resolve(c.Field)
	if !ok {
		return nil, queryErrf(pos, c, ErrUnknownField, "indexed fields are %s", strings.Join(scm.Names(), ", "))
	}
	field := expr.Operand{IsField: true, Name: c.Field, Col: col, Kind: kind}

	lit, err := literalValue(c.Value)
	if err != nil {
		return nil, queryErrf(pos, c, ErrTypeMismatch, "%v", err)
	}
	if lit.IsNull() {
		if cmpOp != expr.OpInvalid {
			return nil, queryErrf(pos, c, ErrBadNullComparator, "")
		}
		return &expr.NullTest{X: field, Negate: op == opIsNot}, nil
	}
	if cmpOp == expr.OpInvalid {
		return nil, queryErrf(pos, c, ErrBadNullComparator, "%s requires a nil value", op)
	}
	if lit.Kind.Family() != kind.Family() {
		return nil, queryErrf(pos, c, ErrTypeMismatch, "field is %v, value is %v", kind, lit.Kind)
	}
	return &expr.Cmp{Op: cmpOp, L: field, R: expr.Literal(lit)}, nil
}

// literalValue converts a condition value into a scalar. nil, nil pointers
// and NaN become null.
func literalValue(v any) (expr.Value, error) {
	switch v := v.(type) {
	case nil:
		return expr.Null, nil
	case expr.Value:
		return v, nil
	case string:
		return expr.String(v), nil
	case bool:
		return expr.Bool(v), nil
	case int:
		return expr.Int(int64(v)), nil
	case int64:
		return expr.Int(v), nil
	case float64:
		if math.IsNaN(v) {
			return expr.Null, nil
		}
		return expr.Float(v), nil
	}
	rv, ok := indirect(reflect.ValueOf(v))
	if !ok {
		return expr.Null, nil
	}
	switch {
	case rv.CanInt():
		return expr.Int(rv.Int()), nil
	case rv.CanUint():
		u := rv.Uint()
		if u > math.MaxInt64 {
			return expr.Float(float64(u)), nil
		}
		return expr.Int(int64(u)), nil
	case rv.CanFloat():
		if math.IsNaN(rv.Float()) {
			return expr.Null, nil
		}
		return expr.Float(rv.Float()), nil
	case rv.Kind() == reflect.Bool:
		return expr.Bool(rv.Bool()), nil
	case rv.Kind() == reflect.String:
		return expr.String(rv.String()), nil
	default:
		return expr.Null, fmt.Errorf("unsupported value type %T", v)
	}
}
