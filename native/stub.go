//go:build !cgo || !fancyregex_native

package native

import (
	"github.com/wippyai/fancy-regex/ffi"
	"github.com/wippyai/fancy-regex/marshal"
)

// Library is unavailable in this build. Every entry point reports the
// boundary's failure sentinel.
type Library struct{}

var _ ffi.Boundary = (*Library)(nil)

// Open always fails in this build.
func Open() (*Library, error) {
	return nil, ErrUnavailable
}

// Available reports whether this build links the native engine.
func Available() bool {
	return false
}

func (*Library) Reentrant() bool { return true }
func (*Library) Compile(marshal.CString) ffi.Handle { return ffi.NullHandle }
func (*Library) Free(ffi.Handle) {}
func (*Library) IsMatch(ffi.Handle, marshal.CString) int32 { return ffi.CodeError }
func (*Library) Find(ffi.Handle, marshal.CString) ffi.Ptr { return ffi.NullPtr }
func (*Library) GetError(marshal.CString) ffi.Ptr { return ffi.NullPtr }
func (*Library) FreeString(ffi.Ptr) {}
func (*Library) Load(ffi.Ptr) ([]byte, bool) { return nil, false }
func (*Library) ReplaceAll(ffi.Handle, marshal.CString, marshal.CString) ffi.Ptr {
	return ffi.NullPtr
}
