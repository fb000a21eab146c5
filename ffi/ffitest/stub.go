// Package ffitest provides boundaries for testing code that drives an
// ffi.Boundary: a programmable Stub for fault injection and a Recorder that
// audits the ownership rules of any other boundary.
package ffitest

import (
	"sync"

	"github.com/wippyai/fancy-regex/ffi"
	"github.com/wippyai/fancy-regex/marshal"
)

// Stub is a programmable boundary. Nil function fields fall back to simple
// defaults: every pattern compiles, nothing matches, replacement returns the
// text unchanged and no diagnostic is available.
type Stub struct {
	CompileFunc    func(pattern string) bool
	IsMatchFunc    func(pattern, text string) int32
	FindFunc       func(pattern, text string) (string, bool)
	ReplaceAllFunc func(pattern, text, replacement string) (string, bool)
	GetErrorFunc   func(pattern string) (string, bool)

	// LoadFails makes every Load report an unreadable buffer.
	LoadFails bool
	// Concurrent is returned from Reentrant.
	Concurrent bool

	mu       sync.Mutex
	next     uint64
	patterns map[ffi.Handle]string
	strings  map[ffi.Ptr][]byte
}

var _ ffi.Boundary = (*Stub)(nil)

func (s *Stub) Reentrant() bool {
	return s.Concurrent
}

func (s *Stub) Compile(pattern marshal.CString) ffi.Handle {
	p, ok := marshal.Terminated(pattern)
	if !ok {
		return ffi.NullHandle
	}
	if s.CompileFunc != nil && !s.CompileFunc(string(p)) {
		return ffi.NullHandle
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.patterns == nil {
		s.patterns = make(map[ffi.Handle]string)
	}
	s.next++
	h := ffi.Handle(s.next)
	s.patterns[h] = string(p)
	return h
}

func (s *Stub) Free(h ffi.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.patterns, h)
}

func (s *Stub) pattern(h ffi.Handle) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[h]
	return p, ok
}

func (s *Stub) IsMatch(h ffi.Handle, text marshal.CString) int32 {
	p, ok := s.pattern(h)
	t, tok := marshal.Terminated(text)
	if !ok || !tok {
		return ffi.CodeError
	}
	if s.IsMatchFunc == nil {
		return ffi.CodeNoMatch
	}
	return s.IsMatchFunc(p, string(t))
}

func (s *Stub) Find(h ffi.Handle, text marshal.CString) ffi.Ptr {
	p, ok := s.pattern(h)
	t, tok := marshal.Terminated(text)
	if !ok || !tok || s.FindFunc == nil {
		return ffi.NullPtr
	}
	out, found := s.FindFunc(p, string(t))
	if !found {
		return ffi.NullPtr
	}
	return s.alloc(out)
}

func (s *Stub) ReplaceAll(h ffi.Handle, text, replacement marshal.CString) ffi.Ptr {
	p, ok := s.pattern(h)
	t, tok := marshal.Terminated(text)
	r, rok := marshal.Terminated(replacement)
	if !ok || !tok || !rok {
		return ffi.NullPtr
	}
	if s.ReplaceAllFunc == nil {
		return s.alloc(string(t))
	}
	out, good := s.ReplaceAllFunc(p, string(t), string(r))
	if !good {
		return ffi.NullPtr
	}
	return s.alloc(out)
}

func (s *Stub) GetError(pattern marshal.CString) ffi.Ptr {
	p, ok := marshal.Terminated(pattern)
	if !ok || s.GetErrorFunc == nil {
		return ffi.NullPtr
	}
	msg, has := s.GetErrorFunc(string(p))
	if !has {
		return ffi.NullPtr
	}
	return s.alloc(msg)
}

func (s *Stub) FreeString(p ffi.Ptr) {
	if p == ffi.NullPtr {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.strings, p)
}

func (s *Stub) Load(p ffi.Ptr) ([]byte, bool) {
	if s.LoadFails {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.strings[p]
	if !ok {
		return nil, false
	}
	return b[: len(b)-1 : len(b)-1], true
}

// Live reports the compiled patterns and strings the stub still holds.
func (s *Stub) Live() (patterns, strings int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patterns), len(s.strings)
}

func (s *Stub) alloc(v string) ffi.Ptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.strings == nil {
		s.strings = make(map[ffi.Ptr][]byte)
	}
	s.next++
	p := ffi.Ptr(s.next)
	buf := make([]byte, len(v)+1)
	copy(buf, v)
	s.strings[p] = buf
	return p
}
