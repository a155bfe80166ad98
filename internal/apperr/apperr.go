// Package apperr is the error taxonomy of the signing core. Every failure the
// services report is one of four kinds; handlers map them to transport codes
// and everything else is treated as an internal error.
package apperr

import "fmt"

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindValidation
	KindConflict
	KindExpired
)

type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func NotFound(reason string) *Error   { return &Error{Kind: KindNotFound, Reason: reason} }
func Validation(reason string) *Error { return &Error{Kind: KindValidation, Reason: reason} }
func Conflict(reason string) *Error   { return &Error{Kind: KindConflict, Reason: reason} }
func Expired(reason string) *Error    { return &Error{Kind: KindExpired, Reason: reason} }

func NotFoundf(format string, args ...any) *Error {
	return NotFound(fmt.Sprintf(format, args...))
}

func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) *Error {
	return Conflict(fmt.Sprintf(format, args...))
}

func is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

func IsNotFound(err error) bool   { return is(err, KindNotFound) }
func IsValidation(err error) bool { return is(err, KindValidation) }
func IsConflict(err error) bool   { return is(err, KindConflict) }
func IsExpired(err error) bool    { return is(err, KindExpired) }
