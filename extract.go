package objidx

import (
	"fmt"
	"math"
	"reflect"

	"github.com/andreyvit/objidx/expr"
)

// lookup returns the raw attribute or key of a record. ok is false when the
// record has no such attribute or key, or a pointer on the way is nil.
func lookup(record any, name string, kind ExtractorKind) (reflect.Value, bool) {
	rv, ok := indirect(reflect.ValueOf(record))
	if !ok {
		return reflect.Value{}, false
	}
	switch rv.Kind() {
	case reflect.Struct:
		if kind == ExtractKey {
			return reflect.Value{}, false
		}
		v := reflectStruct(rv.Type()).attr(rv, name)
		return v, v.IsValid()
	case reflect.Map:
		if kind == ExtractAttr || rv.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		return v, v.IsValid()
	default:
		return reflect.Value{}, false
	}
}

func extractRaw(record any, f Field) (reflect.Value, bool) {
	switch f.Extractor.Kind {
	case ExtractFunc:
		v := f.Extractor.Func(record)
		if v == nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(v), true
	default:
		return lookup(record, f.Extractor.Name, f.Extractor.Kind)
	}
}

// extract projects one field. Absent values become null; a present value of
// an incompatible kind is a type mismatch.
func extract(record any, f Field) (expr.Value, error) {
	rv, ok := extractRaw(record, f)
	if !ok {
		return expr.Null, nil
	}
	return coerce(rv, f.Type, f.Name)
}

func coerce(rv reflect.Value, typ Type, name string) (expr.Value, error) {
	rv, ok := indirect(rv)
	if !ok {
		return expr.Null, nil
	}
	switch typ {
	case Int64:
		switch {
		case rv.CanInt():
			return expr.Int(rv.Int()), nil
		case rv.CanUint():
			u := rv.Uint()
			if u > math.MaxInt64 {
				return expr.Null, fieldErrf(name, -1, ErrTypeMismatch, "%d overflows int64", u)
			}
			return expr.Int(int64(u)), nil
		case rv.CanFloat():
			f := rv.Float()
			if math.IsNaN(f) {
				return expr.Null, nil
			}
			if f != math.Trunc(f) || f < -(1<<63) || f >= (1<<63) {
				return expr.Null, fieldErrf(name, -1, ErrTypeMismatch, "%v is not an int64", f)
			}
			return expr.Int(int64(f)), nil
		}
	case Float64:
		switch {
		case rv.CanFloat():
			f := rv.Float()
			if math.IsNaN(f) {
				return expr.Null, nil
			}
			return expr.Float(f), nil
		case rv.CanInt():
			return expr.Float(float64(rv.Int())), nil
		case rv.CanUint():
			return expr.Float(float64(rv.Uint())), nil
		}
	case Bool:
		if rv.Kind() == reflect.Bool {
			return expr.Bool(rv.Bool()), nil
		}
	case String:
		if rv.Kind() == reflect.String {
			return expr.String(rv.String()), nil
		}
	}
	return expr.Null, fieldErrf(name, -1, ErrTypeMismatch, "expected %v, got %v", typ, rv.Type())
}

// project extracts every schema field of record, in schema order.
func (scm *Schema) project(record any) ([]expr.Value, error) {
	vals := make([]expr.Value, len(scm.fields))
	for i, f := range scm.fields {
		v, err := extract(record, f)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// Extract returns the projected value of one field of record, for debugging
// and tests.
func (scm *Schema) Extract(record any, name string) (expr.Value, error) {
	f, ok := scm.FieldNamed(name)
	if !ok {
		return expr.Null, fieldErrf(name, -1, ErrUnknownField, "")
	}
	return extract(record, f)
}

type assignment struct {
	target reflect.Value // settable struct field, or the map itself
	key    reflect.Value // map key, invalid for struct fields
	value  reflect.Value
}

// prepareOverrides checks that every override can be written into record
// without modifying anything yet.
func prepareOverrides(record any, updates map[string]any) ([]assignment, error) {
	if len(updates) == 0 {
		return nil, nil
	}
	rv, ok := indirect(reflect.ValueOf(record))
	if !ok {
		return nil, fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	var result []assignment
	switch rv.Kind() {
	case reflect.Struct:
		if !rv.CanAddr() {
			return nil, fmt.Errorf("%w: struct record is not addressable", ErrInvalidRecord)
		}
		si := reflectStruct(rv.Type())
		for name, val := range updates {
			fv := si.attr(rv, name)
			if !fv.IsValid() || !fv.CanSet() {
				return nil, fieldErrf(name, -1, ErrUnknownField, "%v has no settable attribute %q", rv.Type(), name)
			}
			v, err := assignable(val, fv.Type(), name)
			if err != nil {
				return nil, err
			}
			result = append(result, assignment{target: fv, value: v})
		}
	case reflect.Map:
		kt, et := rv.Type().Key(), rv.Type().Elem()
		if kt.Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map keys must be strings, got %v", ErrInvalidRecord, kt)
		}
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil map", ErrInvalidRecord)
		}
		for name, val := range updates {
			v, err := assignable(val, et, name)
			if err != nil {
				return nil, err
			}
			result = append(result, assignment{target: rv, key: reflect.ValueOf(name).Convert(kt), value: v})
		}
	default:
		return nil, fmt.Errorf("%w: cannot set attributes on %v", ErrInvalidRecord, rv.Type())
	}
	return result, nil
}

func assignable(val any, to reflect.Type, name string) (reflect.Value, error) {
	if val == nil {
		switch to.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			return reflect.Zero(to), nil
		default:
			return reflect.Value{}, fieldErrf(name, -1, ErrTypeMismatch, "cannot assign nil to %v", to)
		}
	}
	v := reflect.ValueOf(val)
	switch {
	case v.Type().AssignableTo(to):
		return v, nil
	case isNumberKind(v.Kind()) && isNumberKind(to.Kind()) && v.CanConvert(to):
		c := v.Convert(to)
		if !c.Convert(v.Type()).Equal(v) {
			return reflect.Value{}, fieldErrf(name, -1, ErrTypeMismatch, "%v does not fit into %v", val, to)
		}
		return c, nil
	case to.Kind() == reflect.Pointer && v.Type().AssignableTo(to.Elem()):
		p := reflect.New(to.Elem())
		p.Elem().Set(v)
		return p, nil
	default:
		return reflect.Value{}, fieldErrf(name, -1, ErrTypeMismatch, "cannot assign %T to %v", val, to)
	}
}

func isNumberKind(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uint64) || k == reflect.Float32 || k == reflect.Float64
}

// applyOverrides writes the assignments and returns a function that restores
// the previous state.
func applyOverrides(assignments []assignment) (undo func()) {
	olds := make([]reflect.Value, len(assignments))
	for i, a := range assignments {
		if a.key.IsValid() {
			olds[i] = a.target.MapIndex(a.key)
			a.target.SetMapIndex(a.key, a.value)
		} else {
			olds[i] = reflect.New(a.target.Type()).Elem()
			olds[i].Set(a.target)
			a.target.Set(a.value)
		}
	}
	return func() {
		for i := len(assignments) - 1; i >= 0; i-- {
			a := assignments[i]
			if a.key.IsValid() {
				a.target.SetMapIndex(a.key, olds[i]) // invalid deletes
			} else {
				a.target.Set(olds[i])
			}
		}
	}
}
