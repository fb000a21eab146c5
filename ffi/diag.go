package ffi

import (
	"github.com/wippyai/fancy-regex/errors"
	"github.com/wippyai/fancy-regex/marshal"
)

// FallbackDiagnostic is reported when the engine offers no diagnostic.
const FallbackDiagnostic = "invalid regex pattern"

// Diagnose asks the engine why pattern failed to compile. It issues exactly
// one GetError call and always returns a non-empty message.
func Diagnose(b Boundary, pattern marshal.CString) string {
	msg, ok, err := TakeString(b, errors.PhaseCompile, b.GetError(pattern))
	if err != nil || !ok || msg == "" {
		return FallbackDiagnostic
	}
	return msg
}
