package objidx

import (
	"errors"
	"strings"
	"testing"
)

func TestFieldError_ErrorAndUnwrap(t *testing.T) {
	err := fieldErrf("x", 2, ErrInvalidSchema, "oops %d", 1)
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %T, wanted *FieldError", err)
	}
	if !errors.Is(err, ErrInvalidSchema) {
		t.Fatalf("errors.Is(err, ErrInvalidSchema) = false, wanted true")
	}
	s := err.Error()
	if !strings.Contains(s, `field "x"`) || !strings.Contains(s, "position 2") || !strings.Contains(s, "oops 1") {
		t.Fatalf("err.Error() = %q, wanted field/position/msg", s)
	}

	s = fieldErrf("", -1, ErrTypeMismatch, "").Error()
	if s != ErrTypeMismatch.Error() {
		t.Fatalf("err.Error() = %q, wanted %q", s, ErrTypeMismatch.Error())
	}
}

func TestQueryError_ErrorAndUnwrap(t *testing.T) {
	err := queryErrf(1, Condition{"x", ">", nil}, ErrBadNullComparator, "")
	if !errors.Is(err, ErrBadNullComparator) {
		t.Fatalf("errors.Is(err, ErrBadNullComparator) = false, wanted true")
	}
	s := err.Error()
	if !strings.Contains(s, "condition 1") || !strings.Contains(s, `x > <nil>`) {
		t.Fatalf("err.Error() = %q, wanted position and condition", s)
	}
}

func TestStoreError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := storeErr(EngineBolt, "ri_7", "delete", 42, inner)
	if !errors.Is(err, inner) {
		t.Fatalf("errors.Is(err, inner) = false, wanted true")
	}
	if s := err.Error(); s != "bolt:ri_7.delete/42: inner" {
		t.Fatalf("err.Error() = %q, wanted %q", s, "bolt:ri_7.delete/42: inner")
	}
	if s := storeErr(EngineColumnar, "ri_1", "insert", 0, inner).Error(); s != "columnar:ri_1.insert: inner" {
		t.Fatalf("err.Error() = %q", s)
	}
}

func TestDataError(t *testing.T) {
	inner := errors.New("inner")
	err := dataErrf([]byte{0xAB, 0xCD}, 1, inner, "bad thing")
	if !errors.Is(err, inner) {
		t.Fatalf("errors.Is(err, inner) = false, wanted true")
	}
	if s := err.Error(); s != "bad thing at 1: inner: (2) abcd" {
		t.Fatalf("err.Error() = %q", s)
	}
	long := make([]byte, 200)
	if s := dataErrf(long, 0, nil, "x").Error(); !strings.HasSuffix(s, "...") || !strings.Contains(s, "(200)") {
		t.Fatalf("err.Error() = %q, wanted truncated data", s)
	}
}
