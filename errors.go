package fancyregex

import "github.com/wippyai/fancy-regex/errors"

// Error kinds returned by this package. Match them with errors.Is; use
// errors.As with *errors.Error for the phase, pattern and detail.
var (
	// ErrInvalidPattern reports a pattern the engine refused to compile.
	ErrInvalidPattern = errors.ErrInvalidPattern
	// ErrMatchEngine reports an engine failure while serving a request.
	ErrMatchEngine = errors.ErrMatchEngine
	// ErrUseAfterFree reports a request against a closed pattern.
	ErrUseAfterFree = errors.ErrUseAfterFree
	// ErrNullArgument reports a nil *Regex.
	ErrNullArgument = errors.ErrNullArgument
	// ErrInvalidUTF8 reports caller text that is not valid UTF-8.
	ErrInvalidUTF8 = errors.ErrInvalidUTF8
	// ErrInteriorNUL reports caller text containing a NUL byte, which cannot
	// cross the boundary.
	ErrInteriorNUL = errors.ErrInteriorNUL
)

// Diagnostic returns the engine's explanation carried by an
// ErrInvalidPattern error.
func Diagnostic(err error) (string, bool) {
	return errors.Diagnostic(err)
}
