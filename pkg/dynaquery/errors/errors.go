package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorCode string

const (
	ErrFieldNotFound        ErrorCode = "field_not_found"
	ErrUnsupportedAggregate ErrorCode = "unsupported_aggregate"
	ErrDivisionByZero       ErrorCode = "division_by_zero"
	ErrTypeMismatch         ErrorCode = "type_mismatch"
	ErrSchema               ErrorCode = "schema"
	ErrQueryParse           ErrorCode = "query_parse"
	ErrBackend              ErrorCode = "backend"
	ErrConfig               ErrorCode = "config"
	ErrNotImpl              ErrorCode = "not_implemented"
)

type Error struct {
	Code  ErrorCode
	Msg   string
	Field string
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Code, e.Msg)
	if e.Field != "" {
		base = fmt.Sprintf("%s (field=%s)", base, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, msg string) *Error { return &Error{Code: code, Msg: msg} }
func Wrap(code ErrorCode, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Cause: cause}
}

// FieldNotFound reports a field name the record type does not expose.
func FieldNotFound(field string) *Error {
	return &Error{Code: ErrFieldNotFound, Msg: "unknown field", Field: field}
}

func TypeMismatch(field, msg string) *Error {
	return &Error{Code: ErrTypeMismatch, Msg: msg, Field: field}
}

func QueryParseError(msg string) *Error {
	return &Error{Code: ErrQueryParse, Msg: msg}
}

// IsCode reports whether err (or anything it wraps) is an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

var ErrNotImplemented = stderrors.New("not implemented")
