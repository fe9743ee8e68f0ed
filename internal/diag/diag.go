// Package diag implements the diagnostic reporting contract described in
// spec.md §7: every error carries a source position, a stable code, a
// primary message, and an optional detail line, and is reported exactly
// once. Formatting/statistics/termination policy beyond that belongs to
// the front end (cmd/weave), not here — the core only needs a way to
// report a diagnostic with a location and abort, per spec.md §1.
package diag

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/weave-lang/weave/internal/token"
)

// Code names one of the error kinds spec.md §7 enumerates.
type Code string

const (
	SyntaxError       Code = "SyntaxError"
	IncludeError      Code = "IncludeError"
	TypeMismatch      Code = "TypeMismatch"
	MissingTests      Code = "MissingTests"
	BadForm           Code = "BadForm"
	InternalInvariant Code = "InternalInvariant"
)

// Error is a fatal, located diagnostic. It satisfies the error interface
// so it can travel through ordinary Go error-handling, and it supports
// errors.As / errors.Unwrap so a wrapped underlying cause survives.
type Error struct {
	Pos    token.Position
	Code   Code
	Msg    string
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Code, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s (%s)", e.Pos, e.Code, e.Msg, e.Detail)
}

// Unwrap exposes any wrapped underlying cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// New builds a located diagnostic with no detail line and no wrapped cause.
func New(pos token.Position, code Code, format string, args ...any) *Error {
	return &Error{Pos: pos, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// WithDetail attaches a detail line (e.g. the "wanted T, got T" suffix
// spec.md §7 specifies for TypeMismatch) and returns the same *Error for
// chaining at the call site.
func (e *Error) WithDetail(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap attaches pos/code/msg context to an underlying error (a path or
// file-read failure during include resolution)
// using github.com/pkg/errors so the original cause survives for
// errors.Unwrap/errors.Cause while still producing a single, located
// diagnostic line.
func Wrap(cause error, pos token.Position, code Code, format string, args ...any) *Error {
	return &Error{
		Pos:   pos,
		Code:  code,
		Msg:   fmt.Sprintf(format, args...),
		cause: errors.WithStack(cause),
	}
}

// Warning is an informational-only diagnostic (spec.md §7's diag_warn, e.g.
// addr-of's declared-vs-inferred type mismatch). It never aborts; callers
// decide where it goes (cmd/weave writes it to stderr).
type Warning struct {
	Pos token.Position
	Msg string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: warning: %s", w.Pos, w.Msg)
}
