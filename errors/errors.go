package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCompile Phase = "compile" // pattern construction
	PhaseMatch   Phase = "match"   // is-match requests
	PhaseFind    Phase = "find"    // find requests
	PhaseReplace Phase = "replace" // replace-all requests
	PhaseDispose Phase = "dispose" // handle release
	PhaseMarshal Phase = "marshal" // Go to boundary
	PhaseDecode  Phase = "decode"  // boundary to Go
	PhaseLoad    Phase = "load"    // backend loading
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidPattern Kind = "invalid_pattern"
	KindMatchEngine    Kind = "match_engine"
	KindUseAfterFree   Kind = "use_after_free"
	KindNullArgument   Kind = "null_argument"
	KindInvalidUTF8    Kind = "invalid_utf8"
	KindInteriorNUL    Kind = "interior_nul"
	KindUnavailable    Kind = "unavailable"
	KindMissingExport  Kind = "missing_export"
	KindInstantiation  Kind = "instantiation"
)

// Sentinels for errors.Is. They carry no phase, so they match an error of
// the same kind raised in any phase.
var (
	ErrInvalidPattern = &Error{Kind: KindInvalidPattern}
	ErrMatchEngine    = &Error{Kind: KindMatchEngine}
	ErrUseAfterFree   = &Error{Kind: KindUseAfterFree}
	ErrNullArgument   = &Error{Kind: KindNullArgument}
	ErrInvalidUTF8    = &Error{Kind: KindInvalidUTF8}
	ErrInteriorNUL    = &Error{Kind: KindInteriorNUL}
	ErrUnavailable    = &Error{Kind: KindUnavailable}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	Pattern string
	Arg     string
	Detail  string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Arg != "" {
		b.WriteString(" in ")
		b.WriteString(e.Arg)
	}

	if e.Pattern != "" {
		b.WriteString(" for pattern ")
		b.WriteString(fmt.Sprintf("%q", e.Pattern))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Kinds must be equal; the
// phase is compared only when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Phase == "" || e.Phase == t.Phase
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Pattern sets the pattern source the error refers to
func (b *Builder) Pattern(p string) *Builder {
	b.err.Pattern = p
	return b
}

// Arg sets the name of the offending argument
func (b *Builder) Arg(name string) *Builder {
	b.err.Arg = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidPattern creates a compilation failure carrying the engine diagnostic
func InvalidPattern(pattern, diagnostic string) *Error {
	return &Error{
		Phase:   PhaseCompile,
		Kind:    KindInvalidPattern,
		Pattern: pattern,
		Detail:  diagnostic,
	}
}

// MatchEngine creates an error for an engine-side failure during a request
func MatchEngine(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMatchEngine,
		Detail: detail,
	}
}

// UseAfterFree creates an error for an operation on a disposed pattern
func UseAfterFree(phase Phase, pattern string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindUseAfterFree,
		Pattern: pattern,
		Detail:  "pattern has been disposed",
	}
}

// NullArgument creates an error for an absent required argument
func NullArgument(phase Phase, arg string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNullArgument,
		Arg:    arg,
		Detail: "argument must not be null",
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, arg string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Arg:    arg,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InteriorNUL creates an error for a NUL byte that would truncate a C string
func InteriorNUL(phase Phase, arg string, index int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInteriorNUL,
		Arg:    arg,
		Detail: fmt.Sprintf("NUL byte at offset %d", index),
		Value:  index,
	}
}

// Unavailable creates an error for a backend that cannot be used in this build
func Unavailable(what, reason string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindUnavailable,
		Detail: fmt.Sprintf("%s unavailable: %s", what, reason),
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Diagnostic returns the engine diagnostic carried by an invalid-pattern error.
func Diagnostic(err error) (string, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindInvalidPattern {
		return "", false
	}
	return e.Detail, true
}

// MissingExportsError is returned when a guest module lacks boundary entry points
type MissingExportsError struct {
	Exports []string
}

// NewMissingExportsError creates an error from a list of export names
func NewMissingExportsError(exports []string) *MissingExportsError {
	return &MissingExportsError{Exports: append([]string(nil), exports...)}
}

func (e *MissingExportsError) Error() string {
	if len(e.Exports) == 0 {
		return "[load] missing_export: no exports specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[load] missing_export: guest module lacks %d export(s):", len(e.Exports))
	for _, name := range e.Exports {
		b.WriteString("\n    - ")
		b.WriteString(name)
	}
	return b.String()
}

// Is reports whether target matches this error type
func (e *MissingExportsError) Is(target error) bool {
	switch t := target.(type) {
	case *MissingExportsError:
		return true
	case *Error:
		return t.Kind == KindMissingExport && (t.Phase == "" || t.Phase == PhaseLoad)
	}
	return false
}
