// Package marshal converts text between Go strings and the NUL-terminated
// UTF-8 buffers exchanged with a native engine.
//
// Requests are encoded into fresh caller-owned buffers that live for the
// duration of one boundary call. Responses are decoded by copying out of the
// boundary's buffer, so a decoded string never aliases foreign memory.
package marshal

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/fancy-regex/errors"
)

// CString is a NUL-terminated UTF-8 buffer. A nil CString is the null pointer.
type CString []byte

// IsNull reports whether c represents the null pointer.
func (c CString) IsNull() bool {
	return c == nil
}

// Bytes returns the content without the terminator.
func (c CString) Bytes() []byte {
	b, _ := Terminated(c)
	return b
}

// String returns a copy of the content without the terminator.
func (c CString) String() string {
	return string(c.Bytes())
}

// Encode copies s into a fresh CString. arg names the argument in errors.
func Encode(arg, s string) (CString, error) {
	if !utf8.ValidString(s) {
		return nil, errors.InvalidUTF8(errors.PhaseMarshal, arg, []byte(s))
	}
	if i := strings.IndexByte(s, 0); i >= 0 {
		return nil, errors.InteriorNUL(errors.PhaseMarshal, arg, i)
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return buf, nil
}

// MustEncode is like Encode but panics on error.
func MustEncode(s string) CString {
	c, err := Encode("", s)
	if err != nil {
		panic(err)
	}
	return c
}

// Decode copies a boundary view into a Go string. The view ends at the first
// NUL byte if it contains one.
func Decode(view []byte) (string, error) {
	if i := bytes.IndexByte(view, 0); i >= 0 {
		view = view[:i]
	}
	if !utf8.Valid(view) {
		return "", errors.InvalidUTF8(errors.PhaseDecode, "", view)
	}
	return string(view), nil
}

// Terminated returns the content of a C string up to its first NUL byte.
// It reports false for the null pointer and for a buffer with no terminator.
func Terminated(b []byte) ([]byte, bool) {
	if b == nil {
		return nil, false
	}
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return nil, false
	}
	return b[:i:i], true
}
