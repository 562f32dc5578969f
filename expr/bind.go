package expr

import "fmt"

// Resolver maps a field name to its column position and declared kind.
type Resolver interface {
	Resolve(name string) (col int, kind Kind, ok bool)
}

// Bind returns a copy of e with every field operand resolved to a column.
// Unknown names fail with ErrUnknownField. Comparisons whose operands belong
// to different type families fail with ErrTypeMismatch; null literals are
// compatible with everything.
func Bind(e Expr, r Resolver) (Expr, error) {
	switch e := e.(type) {
	case *Cmp:
		l, err := bindOperand(e, e.L, r)
		if err != nil {
			return nil, err
		}
		rr, err := bindOperand(e, e.R, r)
		if err != nil {
			return nil, err
		}
		fl, fr := l.Kind.Family(), rr.Kind.Family()
		if fl != FamilyNone && fr != FamilyNone && fl != fr {
			return nil, &BindError{e.String(), fmt.Sprintf("cannot compare %v with %v", l.Kind, rr.Kind), ErrTypeMismatch}
		}
		return &Cmp{Op: e.Op, L: l, R: rr}, nil
	case *NullTest:
		x, err := bindOperand(e, e.X, r)
		if err != nil {
			return nil, err
		}
		return &NullTest{X: x, Negate: e.Negate}, nil
	case *And:
		l, err := Bind(e.L, r)
		if err != nil {
			return nil, err
		}
		rr, err := Bind(e.R, r)
		if err != nil {
			return nil, err
		}
		return &And{l, rr}, nil
	case *Or:
		l, err := Bind(e.L, r)
		if err != nil {
			return nil, err
		}
		rr, err := Bind(e.R, r)
		if err != nil {
			return nil, err
		}
		return &Or{l, rr}, nil
	case *Not:
		x, err := Bind(e.X, r)
		if err != nil {
			return nil, err
		}
		return &Not{x}, nil
	case True:
		return e, nil
	default:
		panic(fmt.Errorf("unexpected expression %T", e))
	}
}

func bindOperand(parent Expr, o Operand, r Resolver) (Operand, error) {
	if !o.IsField {
		return o, nil
	}
	col, kind, ok := r.Resolve(o.Name)
	if !ok {
		return o, &BindError{parent.String(), fmt.Sprintf("%q is not an indexed field", o.Name), ErrUnknownField}
	}
	o.Col = col
	o.Kind = kind
	return o, nil
}
