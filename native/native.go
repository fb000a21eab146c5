//go:build cgo && fancyregex_native

package native

/*
#cgo LDFLAGS: -lfancy_regex_ffi
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

typedef struct FancyRegex FancyRegex;

FancyRegex* fancy_regex_new(const char* pattern);
void fancy_regex_free(FancyRegex* regex);
int32_t fancy_regex_is_match(const FancyRegex* regex, const char* text);
char* fancy_regex_find(const FancyRegex* regex, const char* text);
void fancy_regex_free_string(char* s);
char* fancy_regex_replace_all(const FancyRegex* regex, const char* text, const char* replacement);
char* fancy_regex_get_error(const char* pattern);
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/wippyai/fancy-regex/ffi"
	"github.com/wippyai/fancy-regex/marshal"
)

// Library calls the engine linked into the process as libfancy_regex_ffi.
type Library struct{}

var (
	lib     *Library
	libOnce sync.Once
)

var _ ffi.Boundary = (*Library)(nil)

// Open returns the process-wide library binding.
func Open() (*Library, error) {
	libOnce.Do(func() {
		lib = &Library{}
		Logger().Debug("native engine linked")
	})
	return lib, nil
}

// Available reports whether this build links the native engine.
func Available() bool {
	return true
}

// Reentrant reports true; the engine keeps no shared mutable state.
func (*Library) Reentrant() bool {
	return true
}

// cstr returns a C view of c. The pointer is valid for the duration of the
// call only; cgo pins the backing array.
func cstr(c marshal.CString) *C.char {
	if c.IsNull() {
		return nil
	}
	return (*C.char)(unsafe.Pointer(unsafe.SliceData(c)))
}

// cptr turns an address handed out by the library back into a pointer.
// Such addresses always point into C-allocated memory, which the Go
// runtime neither moves nor collects.
func cptr[T ~uint64](addr T) unsafe.Pointer {
	return unsafe.Pointer(uintptr(addr))
}

func regex(h ffi.Handle) *C.FancyRegex {
	return (*C.FancyRegex)(cptr(h))
}

func cchars(p ffi.Ptr) *C.char {
	return (*C.char)(cptr(p))
}

func ptr(p *C.char) ffi.Ptr {
	return ffi.Ptr(uintptr(unsafe.Pointer(p)))
}

func (*Library) Compile(pattern marshal.CString) ffi.Handle {
	if pattern.IsNull() {
		return ffi.NullHandle
	}
	return ffi.Handle(uintptr(unsafe.Pointer(C.fancy_regex_new(cstr(pattern)))))
}

func (*Library) Free(h ffi.Handle) {
	if h == ffi.NullHandle {
		return
	}
	C.fancy_regex_free(regex(h))
}

func (*Library) IsMatch(h ffi.Handle, text marshal.CString) int32 {
	if h == ffi.NullHandle || text.IsNull() {
		return ffi.CodeError
	}
	return int32(C.fancy_regex_is_match(regex(h), cstr(text)))
}

func (*Library) Find(h ffi.Handle, text marshal.CString) ffi.Ptr {
	if h == ffi.NullHandle || text.IsNull() {
		return ffi.NullPtr
	}
	return ptr(C.fancy_regex_find(regex(h), cstr(text)))
}

func (*Library) ReplaceAll(h ffi.Handle, text, replacement marshal.CString) ffi.Ptr {
	if h == ffi.NullHandle || text.IsNull() || replacement.IsNull() {
		return ffi.NullPtr
	}
	return ptr(C.fancy_regex_replace_all(regex(h), cstr(text), cstr(replacement)))
}

func (*Library) GetError(pattern marshal.CString) ffi.Ptr {
	if pattern.IsNull() {
		return ffi.NullPtr
	}
	return ptr(C.fancy_regex_get_error(cstr(pattern)))
}

func (*Library) FreeString(p ffi.Ptr) {
	if p == ffi.NullPtr {
		return
	}
	C.fancy_regex_free_string(cchars(p))
}

// Load copies the string at p into Go memory.
func (*Library) Load(p ffi.Ptr) ([]byte, bool) {
	if p == ffi.NullPtr {
		return nil, false
	}
	cs := cchars(p)
	n := C.strlen(cs)
	return C.GoBytes(unsafe.Pointer(cs), C.int(n)), true
}
