package objidx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andreyvit/objidx/expr"
)

var (
	ErrInvalidSchema     = errors.New("invalid schema")
	ErrUnknownField      = expr.ErrUnknownField
	ErrBadOperator       = errors.New("bad operator")
	ErrTypeMismatch      = expr.ErrTypeMismatch
	ErrBadNullComparator = errors.New("use IS or IS NOT to compare with null")
	ErrBadExpression     = expr.ErrSyntax
	ErrNotFound          = errors.New("record not found in index")
	ErrEngineUnavailable = errors.New("engine unavailable")
	ErrInvalidRecord     = errors.New("invalid record")
)

// FieldError describes a problem with a field definition, a projected field
// value, or an update override.
type FieldError struct {
	Field string
	Pos   int // position in the schema or -1
	Msg   string
	Err   error
}

func fieldErrf(field string, pos int, err error, format string, args ...any) error {
	return &FieldError{field, pos, fmt.Sprintf(format, args...), err}
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func (e *FieldError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Err.Error())
	if e.Field != "" {
		fmt.Fprintf(&buf, ": field %q", e.Field)
	}
	if e.Pos >= 0 {
		fmt.Fprintf(&buf, " at position %d", e.Pos)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	return buf.String()
}

// QueryError reports a structured condition that failed validation.
type QueryError struct {
	Pos  int
	Cond Condition
	Msg  string
	Err  error
}

func queryErrf(pos int, cond Condition, err error, format string, args ...any) error {
	return &QueryError{pos, cond, fmt.Sprintf(format, args...), err}
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func (e *QueryError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%v in condition %d %v", e.Err, e.Pos, e.Cond)
	}
	return fmt.Sprintf("%v in condition %d %v: %s", e.Err, e.Pos, e.Cond, e.Msg)
}

// StoreError wraps a failure reported by a backing store.
type StoreError struct {
	Engine EngineKind
	Table  string
	Op     string
	Key    uint64
	Err    error
}

func storeErr(engine EngineKind, table, op string, key uint64, err error) error {
	return &StoreError{engine, table, op, key, err}
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Error() string {
	var buf strings.Builder
	buf.WriteString(string(e.Engine))
	buf.WriteByte(':')
	buf.WriteString(e.Table)
	buf.WriteByte('.')
	buf.WriteString(e.Op)
	if e.Key != 0 {
		fmt.Fprintf(&buf, "/%d", e.Key)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// DataError reports a corrupted row or index key read back from a store.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const maxShown = 96
	data := e.Data
	var ellipsis string
	if len(data) > maxShown {
		data, ellipsis = data[:maxShown], "..."
	}
	if e.Err != nil {
		return fmt.Sprintf("%s at %d: %v: (%d) %x%s", e.Msg, e.Off, e.Err, len(e.Data), data, ellipsis)
	}
	return fmt.Sprintf("%s at %d: (%d) %x%s", e.Msg, e.Off, len(e.Data), data, ellipsis)
}
