package ffitest

import (
	"fmt"
	"sync"

	"github.com/wippyai/fancy-regex/ffi"
	"github.com/wippyai/fancy-regex/marshal"
)

// Recorder wraps a boundary, counts calls per entry point and audits
// ownership: every handle freed once, every returned string released once,
// no request against a released handle.
type Recorder struct {
	inner ffi.Boundary

	mu         sync.Mutex
	calls      map[string]int
	handles    map[ffi.Handle]bool
	strings    map[ffi.Ptr]bool
	violations []string
}

var _ ffi.Boundary = (*Recorder)(nil)

// NewRecorder wraps b.
func NewRecorder(b ffi.Boundary) *Recorder {
	return &Recorder{
		inner:   b,
		calls:   make(map[string]int),
		handles: make(map[ffi.Handle]bool),
		strings: make(map[ffi.Ptr]bool),
	}
}

// Calls returns how many times entry was invoked.
func (r *Recorder) Calls(entry string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[entry]
}

// TotalCalls returns the number of entry point invocations.
func (r *Recorder) TotalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

// LiveHandles returns the number of handles compiled and not yet freed.
func (r *Recorder) LiveHandles() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// LiveStrings returns the number of strings returned and not yet released.
func (r *Recorder) LiveStrings() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.strings)
}

// Violations returns a description of every ownership rule broken so far.
func (r *Recorder) Violations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.violations...)
}

func (r *Recorder) Reentrant() bool {
	return ffi.IsReentrant(r.inner)
}

func (r *Recorder) enter(entry string, h ffi.Handle, checkHandle bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[entry]++
	if checkHandle && !r.handles[h] {
		r.violations = append(r.violations, fmt.Sprintf("%s on released handle %d", entry, h))
	}
}

func (r *Recorder) owned(p ffi.Ptr) {
	if p == ffi.NullPtr {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strings[p] = true
}

func (r *Recorder) Compile(pattern marshal.CString) ffi.Handle {
	r.enter(ffi.EntryCompile, 0, false)
	h := r.inner.Compile(pattern)
	if h != ffi.NullHandle {
		r.mu.Lock()
		r.handles[h] = true
		r.mu.Unlock()
	}
	return h
}

func (r *Recorder) Free(h ffi.Handle) {
	r.mu.Lock()
	r.calls[ffi.EntryFree]++
	if !r.handles[h] {
		r.violations = append(r.violations, fmt.Sprintf("free of released handle %d", h))
	}
	delete(r.handles, h)
	r.mu.Unlock()

	r.inner.Free(h)
}

func (r *Recorder) IsMatch(h ffi.Handle, text marshal.CString) int32 {
	r.enter(ffi.EntryIsMatch, h, true)
	return r.inner.IsMatch(h, text)
}

func (r *Recorder) Find(h ffi.Handle, text marshal.CString) ffi.Ptr {
	r.enter(ffi.EntryFind, h, true)
	p := r.inner.Find(h, text)
	r.owned(p)
	return p
}

func (r *Recorder) ReplaceAll(h ffi.Handle, text, replacement marshal.CString) ffi.Ptr {
	r.enter(ffi.EntryReplaceAll, h, true)
	p := r.inner.ReplaceAll(h, text, replacement)
	r.owned(p)
	return p
}

func (r *Recorder) GetError(pattern marshal.CString) ffi.Ptr {
	r.enter(ffi.EntryGetError, 0, false)
	p := r.inner.GetError(pattern)
	r.owned(p)
	return p
}

func (r *Recorder) FreeString(p ffi.Ptr) {
	r.mu.Lock()
	r.calls[ffi.EntryFreeString]++
	if p != ffi.NullPtr {
		if !r.strings[p] {
			r.violations = append(r.violations, fmt.Sprintf("release of unowned string %d", p))
		}
		delete(r.strings, p)
	}
	r.mu.Unlock()

	r.inner.FreeString(p)
}

func (r *Recorder) Load(p ffi.Ptr) ([]byte, bool) {
	r.mu.Lock()
	if p != ffi.NullPtr && !r.strings[p] {
		r.violations = append(r.violations, fmt.Sprintf("load of unowned string %d", p))
	}
	r.mu.Unlock()
	return r.inner.Load(p)
}
