package apperrors

import (
	"errors"
	"strings"
)

// appError implements Error.
type appError struct {
	msg           string
	base          error
	wrappedErrors []error
	details       []string
	statuscode    int
}

func (e *appError) Error() string {
	return e.msg
}

// ErrorAll returns the message followed by any detail lines, separated by "; ".
func (e *appError) ErrorAll() string {
	if len(e.details) == 0 {
		return e.msg
	}
	return e.msg + ": " + strings.Join(e.details, "; ")
}

func (e *appError) Unwrap() error {
	return e.base
}

func (e *appError) UnwrapAll() []error {
	return e.wrappedErrors
}

func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: append([]error{e}, e.wrappedErrors...),
		details:       e.details,
		statuscode:    e.statuscode,
	}
}

func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		statuscode: e.statuscode,
	}
}

func (e *appError) MsgErr(msg string, errs ...error) Error {
	all := append([]error{e}, errs...)
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: all,
		details:       e.details,
		statuscode:    e.statuscode,
	}
}

func (e *appError) Err(errs ...error) Error {
	all := append([]error{e}, errs...)
	return &appError{
		msg:           e.msg,
		base:          e,
		wrappedErrors: all,
		details:       e.details,
		statuscode:    e.statuscode,
	}
}

// WithDetails returns a shallow copy carrying the given detail lines. Existing
// details are replaced, not appended.
func (e *appError) WithDetails(details ...string) Error {
	cp := *e
	cp.details = append([]string(nil), details...)
	return &cp
}

func (e *appError) Details() []string {
	return e.details
}

func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statuscode = code
	return &cp
}

func (e *appError) StatusCode() int {
	return e.statuscode
}

// New creates a root-level Error with the given message.
func New(msg string) Error {
	return &appError{
		msg: msg,
	}
}

// Is reports whether target is the base error or any of the wrapped errors.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.wrappedErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// As walks the wrapped errors so a concrete cause attached with Err or MsgErr is
// reachable through errors.As.
func (e *appError) As(target any) bool {
	for _, err := range e.wrappedErrors {
		if errors.As(err, target) {
			return true
		}
	}
	return false
}
