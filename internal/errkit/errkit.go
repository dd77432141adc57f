// Package errkit defines ff's single typed-error shape, adapted from the
// teacher's internal/errors.IndexingError (Type + Underlying + Unwrap
// pattern), collapsed to the seven kinds spec §7 names and the exit-code
// table spec §6 specifies.
package errkit

import (
	"errors"
	"fmt"
)

// Kind is one of the seven error kinds spec §7 defines.
type Kind string

const (
	KindUsage      Kind = "usage"
	KindTestSyntax Kind = "test_syntax"
	KindAttribute  Kind = "attribute"
	KindType       Kind = "type"
	KindPlugin     Kind = "plugin"
	KindWalk       Kind = "walk"
	KindSubprocess Kind = "subprocess"
)

// exitCodes is the stable mapping from spec §6.
var exitCodes = map[Kind]int{
	KindUsage:      2,
	KindSubprocess: 3,
	KindWalk:       4,
	KindPlugin:     10,
	KindAttribute:  11,
	KindTestSyntax: 12,
	KindType:       12,
}

// Error is ff's single error type: a Kind, a message, and an optional
// wrapped cause.
type Error struct {
	Kind    Kind
	Op      string
	Path    string
	Msg     string
	Wrapped error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Wrapped != nil:
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Msg, e.Path, e.Wrapped)
	case e.Path != "":
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Msg, e.Path)
	case e.Wrapped != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Wrapped)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Wrapped }

// ExitCode returns the process exit code spec §6 assigns to e's Kind.
func (e *Error) ExitCode() int {
	if code, ok := exitCodes[e.Kind]; ok {
		return code
	}
	return 1
}

func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func Wrap(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Wrapped: cause}
}

func WithPath(kind Kind, op, msg, path string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Path: path, Wrapped: cause}
}

// ExitCode extracts the exit code from any error, defaulting to 1 for
// errors not wrapping an *Error (spec §6's table only names kinds this
// package produces; anything else, including the engine's --fail
// empty-result error, exits 1).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.ExitCode()
	}
	return 1
}
