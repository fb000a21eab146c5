// Package ffi declares the foreign call surface of a fancy-regex engine.
//
// The engine is reached through seven entry points with fixed ownership
// rules. Boundary mirrors them one to one so the same wrapper code can drive
// an in-process engine, a WebAssembly guest, or a native library:
//
//	Compile     pattern (borrowed)         -> Handle (owned by caller, 0 on failure)
//	Free        Handle (given back)
//	IsMatch     Handle, text (borrowed)    -> 1 match, 0 no match, -1 error
//	Find        Handle, text (borrowed)    -> string (owned by caller, 0 if no match)
//	ReplaceAll  Handle, text, replacement  -> string (owned by caller, 0 on error)
//	FreeString  string (given back, 0 is a no-op)
//	GetError    pattern (borrowed)         -> string (owned by caller, 0 if none)
//
// Every string returned by Find, ReplaceAll or GetError must be released with
// FreeString exactly once. TakeString does that for callers.
package ffi

import "github.com/wippyai/fancy-regex/marshal"

// Handle is an opaque reference to a compiled pattern.
type Handle uint64

// NullHandle is returned by Compile when the pattern cannot be compiled.
const NullHandle Handle = 0

// Ptr is an opaque reference to a boundary-allocated NUL-terminated string.
type Ptr uint64

// NullPtr is the null string pointer.
const NullPtr Ptr = 0

// Match codes returned by IsMatch.
const (
	CodeError   int32 = -1
	CodeNoMatch int32 = 0
	CodeMatch   int32 = 1
)

// Entry point names, shared by all backends.
const (
	EntryCompile    = "fancy_regex_new"
	EntryFree       = "fancy_regex_free"
	EntryIsMatch    = "fancy_regex_is_match"
	EntryFind       = "fancy_regex_find"
	EntryFreeString = "fancy_regex_free_string"
	EntryReplaceAll = "fancy_regex_replace_all"
	EntryGetError   = "fancy_regex_get_error"
)

// Boundary is the foreign call surface. Inputs are caller-owned and only
// borrowed for the duration of a call.
type Boundary interface {
	Compile(pattern marshal.CString) Handle
	Free(h Handle)
	IsMatch(h Handle, text marshal.CString) int32
	Find(h Handle, text marshal.CString) Ptr
	ReplaceAll(h Handle, text, replacement marshal.CString) Ptr
	GetError(pattern marshal.CString) Ptr
	FreeString(p Ptr)

	// Load returns a view of the string at p without its terminator.
	// The view is only valid until FreeString(p).
	Load(p Ptr) ([]byte, bool)
}

// Reentrant is implemented by boundaries that report whether concurrent
// requests against one handle are safe.
type Reentrant interface {
	Reentrant() bool
}

// IsReentrant reports whether b allows concurrent requests against one
// handle. Boundaries that make no claim are treated as non-reentrant.
func IsReentrant(b Boundary) bool {
	r, ok := b.(Reentrant)
	return ok && r.Reentrant()
}
