package expr

import (
	"errors"
	"fmt"
)

var (
	ErrSyntax       = errors.New("bad expression")
	ErrUnknownField = errors.New("unknown field")
	ErrTypeMismatch = errors.New("type mismatch")
)

// SyntaxError reports a parse failure at a byte offset of the source.
type SyntaxError struct {
	Src string
	Pos int
	Msg string
}

func syntaxErrf(src string, pos int, format string, args ...any) error {
	return &SyntaxError{src, pos, fmt.Sprintf(format, args...)}
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v at offset %d in %q: %s", ErrSyntax, e.Pos, e.Src, e.Msg)
}

// BindError reports an operand that cannot be resolved or typed.
type BindError struct {
	Expr string
	Msg  string
	Err  error
}

func (e *BindError) Unwrap() error {
	return e.Err
}

func (e *BindError) Error() string {
	return fmt.Sprintf("%v in %s: %s", e.Err, e.Expr, e.Msg)
}
