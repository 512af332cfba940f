package errors

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// UnknownCode is reported for errors that carry no *Error in their chain.
const UnknownCode = 500

// Status is the wire form of an error. Code is either an HTTP status or one
// of the domain codes declared in codes.go.
type Status struct {
	Code     int               `json:"code,omitempty"`
	Message  string            `json:"message,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Error is a coded error with optional metadata and cause. Values are
// immutable: WithMetadata and WithCause return copies, so package-level
// sentinels can be decorated freely.
type Error struct {
	Status
	cause error
}

// Error renders "code=4004 kind=IntegrityError message=... metadata={a=1} cause=...".
// Metadata keys are sorted.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("code=")
	b.WriteString(strconv.Itoa(e.Code))
	if k := e.Kind(); k != KindHTTP && k != KindUnknown {
		b.WriteString(" kind=")
		b.WriteString(string(k))
	}
	b.WriteString(" message=")
	b.WriteString(e.Message)

	if len(e.Metadata) > 0 {
		b.WriteString(" metadata={")
		for i, k := range slices.Sorted(maps.Keys(e.Metadata)) {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(e.Metadata[k])
		}
		b.WriteByte('}')
	}

	if e.cause != nil {
		b.WriteString(" cause=")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error in err's chain with the same code and message, so a
// sentinel still matches after WithCause or WithMetadata.
func (e *Error) Is(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return e.Code == ge.Code && e.Message == ge.Message
	}
	return false
}

// WithMetadata returns a copy of e with m merged into its metadata.
func (e *Error) WithMetadata(m map[string]string) *Error {
	if len(m) == 0 {
		return e
	}
	err := e.clone()
	if err.Metadata == nil {
		err.Metadata = make(map[string]string, len(m))
	}
	maps.Copy(err.Metadata, m)
	return err
}

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	if cause == nil {
		return e
	}
	err := e.clone()
	err.cause = cause
	return err
}

func (e *Error) clone() *Error {
	return &Error{
		Status: Status{Code: e.Code, Message: e.Message, Metadata: maps.Clone(e.Metadata)},
		cause:  e.cause,
	}
}

func (e *Error) GetCode() int { return e.Code }

// Kind returns the taxonomy kind of the code.
func (e *Error) Kind() Kind { return KindOf(e.Code) }

// HTTPStatus returns the HTTP status the error is reported with.
func (e *Error) HTTPStatus() int { return HTTPStatus(e.Code) }

// GetMetadata returns a copy of the metadata.
func (e *Error) GetMetadata() map[string]string { return maps.Clone(e.Metadata) }

// New creates an error. format is used verbatim when args is empty.
func New(code int, format string, args ...any) *Error {
	message := format
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	}
	return &Error{Status: Status{Code: code, Message: message}}
}

// NewWithMetadata creates an error with a copy of metadata.
func NewWithMetadata(code int, metadata map[string]string, format string, args ...any) *Error {
	err := New(code, format, args...)
	if len(metadata) > 0 {
		err.Metadata = maps.Clone(metadata)
	}
	return err
}

// FromError returns the first *Error in err's chain, or wraps err with
// UnknownCode when there is none.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return New(UnknownCode, "%v", err).WithCause(err)
}

// Code returns the code of the first *Error in err's chain, or UnknownCode.
func Code(err error) int {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return UnknownCode
}

// Wrap returns a new coded error caused by err, or nil when err is nil.
func Wrap(err error, code int, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return New(code, format, args...).WithCause(err)
}

// Is, As, Unwrap and Join forward to the standard library so callers only
// import this package.

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func Unwrap(err error) error { return errors.Unwrap(err) }

func Join(errs ...error) error { return errors.Join(errs...) }
