package seed

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for each failure kind. A *Error of the matching kind
// satisfies errors.Is against these.
var (
	ErrNaming            = errors.New("seed: invalid seeder name")
	ErrMalformedDocument = errors.New("seed: malformed document")
	ErrTableNotFound     = errors.New("seed: table not found")
	ErrColumnNotFound    = errors.New("seed: column not found")
	ErrNoColumnsSelected = errors.New("seed: no columns selected")
	ErrWriteFailure      = errors.New("seed: write failure")
	ErrPreflightFailed   = errors.New("seed: pre-flight validation failed")
)

// ErrorKind tags the variant carried by an Error.
type ErrorKind int

const (
	KindNaming ErrorKind = iota + 1
	KindMalformedDocument
	KindTableNotFound
	KindColumnNotFound
	KindNoColumnsSelected
	KindWriteFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindNaming:
		return "naming"
	case KindMalformedDocument:
		return "malformed_document"
	case KindTableNotFound:
		return "table_not_found"
	case KindColumnNotFound:
		return "column_not_found"
	case KindNoColumnsSelected:
		return "no_columns_selected"
	case KindWriteFailure:
		return "write_failure"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNaming:
		return ErrNaming
	case KindMalformedDocument:
		return ErrMalformedDocument
	case KindTableNotFound:
		return ErrTableNotFound
	case KindColumnNotFound:
		return ErrColumnNotFound
	case KindNoColumnsSelected:
		return ErrNoColumnsSelected
	case KindWriteFailure:
		return ErrWriteFailure
	default:
		return nil
	}
}

// Error describes a failure tied to one seeder, table and/or column.
type Error struct {
	Kind   ErrorKind
	Seeder string
	Table  string
	Column string
	Err    error
}

// Error returns the error string.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	switch e.Kind {
	case KindNaming:
		fmt.Fprintf(&b, "seeder %q: name must match YYYY_MM_DD_HHMMSS_<table>", e.Seeder)
	case KindMalformedDocument:
		fmt.Fprintf(&b, "seeder %q: invalid JSON document", e.Seeder)
	case KindTableNotFound:
		fmt.Fprintf(&b, "table %q does not exist", e.Table)
	case KindColumnNotFound:
		fmt.Fprintf(&b, "column %q does not exist on table %q", e.Column, e.Table)
	case KindNoColumnsSelected:
		fmt.Fprintf(&b, "no columns selected for table %q", e.Table)
	case KindWriteFailure:
		fmt.Fprintf(&b, "seeder %q: write to table %q failed", e.Seeder, e.Table)
	default:
		b.WriteString("seed: unknown error")
	}
	if e.Kind == KindTableNotFound || e.Kind == KindColumnNotFound {
		if e.Seeder != "" {
			fmt.Fprintf(&b, " (seeder %q)", e.Seeder)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return target != nil && target == e.Kind.sentinel()
}

// KindOf returns the ErrorKind carried by err, or zero when err is not a *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// AbortError reports every artifact that failed pre-flight validation.
type AbortError struct {
	Problems []error
}

func (e *AbortError) Error() string {
	if e == nil {
		return ""
	}
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Error())
	}
	return fmt.Sprintf("%s: %d seeder(s) rejected: %s", ErrPreflightFailed, len(e.Problems), strings.Join(msgs, "; "))
}

func (e *AbortError) Is(target error) bool {
	return target == ErrPreflightFailed
}

// Unwrap exposes the individual problems to errors.Is / errors.As.
func (e *AbortError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return e.Problems
}
