package expr

import (
	"math"
	"strconv"
	"strings"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindInt64
	KindFloat64
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Family groups kinds that can be compared with each other. Int64 and Float64
// share the numeric family.
type Family uint8

const (
	FamilyNone Family = iota
	FamilyNumeric
	FamilyBool
	FamilyString
)

func (k Kind) Family() Family {
	switch k {
	case KindInt64, KindFloat64:
		return FamilyNumeric
	case KindBool:
		return FamilyBool
	case KindString:
		return FamilyString
	default:
		return FamilyNone
	}
}

func (f Family) String() string {
	switch f {
	case FamilyNumeric:
		return "numeric"
	case FamilyBool:
		return "bool"
	case FamilyString:
		return "string"
	default:
		return "none"
	}
}

// Value is a nullable scalar of one of the four projected kinds.
type Value struct {
	Kind Kind
	I64  int64
	F64  float64
	B    bool
	S    string
}

var Null = Value{}

func Int(v int64) Value      { return Value{Kind: KindInt64, I64: v} }
func Float(v float64) Value  { return Value{Kind: KindFloat64, F64: v} }
func Bool(v bool) Value      { return Value{Kind: KindBool, B: v} }
func String(v string) Value  { return Value{Kind: KindString, S: v} }
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Float returns the numeric value as float64. Only valid for the numeric family.
func (v Value) Float() float64 {
	if v.Kind == KindInt64 {
		return float64(v.I64)
	}
	return v.F64
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt64:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindBool:
		if v.B {
			return "true"
		}
		return "false"
	case KindString:
		return strconv.Quote(v.S)
	default:
		return "null"
	}
}

// Compare orders two non-null values of the same family. ok is false when
// either side is null or the families differ.
func Compare(a, b Value) (cmp int, ok bool) {
	fa, fb := a.Kind.Family(), b.Kind.Family()
	if fa == FamilyNone || fa != fb {
		return 0, false
	}
	switch fa {
	case FamilyNumeric:
		return compareNumeric(a, b), true
	case FamilyBool:
		switch {
		case a.B == b.B:
			return 0, true
		case b.B:
			return -1, true
		default:
			return 1, true
		}
	default:
		return strings.Compare(a.S, b.S), true
	}
}

func compareNumeric(a, b Value) int {
	if a.Kind == KindInt64 && b.Kind == KindInt64 {
		return cmpInt(a.I64, b.I64)
	}
	if a.Kind == KindInt64 {
		return -compareFloatInt(b.F64, a.I64)
	}
	if b.Kind == KindInt64 {
		return compareFloatInt(a.F64, b.I64)
	}
	return cmpFloat(a.F64, b.F64)
}

// compareFloatInt compares exactly, without rounding i to float64.
func compareFloatInt(f float64, i int64) int {
	if math.IsNaN(f) {
		return -1
	}
	if f < -(1 << 63) {
		return -1
	}
	if f >= (1 << 63) {
		return 1
	}
	t := math.Trunc(f)
	if c := cmpInt(int64(t), i); c != 0 {
		return c
	}
	return cmpFloat(f, t)
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Equal reports whether both values are non-null and compare equal.
func Equal(a, b Value) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}
