package errs

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrSchemaResolution ErrorKind = "schema_resolution"
	ErrMapperMismatch   ErrorKind = "mapper_type_mismatch"
	ErrNormalization    ErrorKind = "value_normalization"
	ErrEncodingRange    ErrorKind = "encoding_range"
	ErrConfiguration    ErrorKind = "configuration"

	ErrIO         ErrorKind = "io"
	ErrSQL        ErrorKind = "sql"
	ErrQueryParse ErrorKind = "query_parse"
	ErrCursor     ErrorKind = "cursor"
	ErrNotFound   ErrorKind = "not_found"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Field != "" {
		base = fmt.Sprintf("%s (field=%s)", base, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NoMapper reports a field that no mapper in the schema handles.
func NoMapper(field string) *Error {
	return &Error{
		Kind:    ErrSchemaResolution,
		Message: fmt.Sprintf("No mapper found for field '%s'", field),
		Field:   field,
	}
}

// MapperMismatch reports a condition bound to a field whose mapper is of
// the wrong kind.
func MapperMismatch(field, expected, actual string) *Error {
	return &Error{
		Kind:    ErrMapperMismatch,
		Message: fmt.Sprintf("Field '%s' requires a %s mapper, but found a %s mapper", field, expected, actual),
		Field:   field,
	}
}

// Unsupported reports an operation that a mapper kind can not serve, such as
// sorting by a geo point.
func Unsupported(field, format string, args ...any) *Error {
	return &Error{Kind: ErrMapperMismatch, Message: fmt.Sprintf(format, args...), Field: field}
}

// Normalization reports a value that can not be converted to a mapper's base
// type. The message embeds the field and the textual form of the value.
func Normalization(field, format string, args ...any) *Error {
	return &Error{Kind: ErrNormalization, Message: fmt.Sprintf(format, args...), Field: field}
}

func EncodingRange(field, format string, args ...any) *Error {
	return &Error{Kind: ErrEncodingRange, Message: fmt.Sprintf(format, args...), Field: field}
}

func Configuration(format string, args ...any) *Error {
	return &Error{Kind: ErrConfiguration, Message: fmt.Sprintf(format, args...)}
}

func QueryParse(format string, args ...any) *Error {
	return &Error{Kind: ErrQueryParse, Message: fmt.Sprintf(format, args...)}
}

func Cursor(msg string) *Error {
	return &Error{Kind: ErrCursor, Message: msg}
}

func NotFound(what string) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("not found: %s", what)}
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there
// is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
