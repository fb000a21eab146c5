package fancyregex

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/fancy-regex/errors"
	"github.com/wippyai/fancy-regex/ffi"
)

// handle owns one native pattern. It is shared between a Regex and its
// garbage collection cleanup, so it must never point back at the Regex.
type handle struct {
	mu       sync.RWMutex
	boundary ffi.Boundary
	raw      ffi.Handle
	pattern  string
	disposed atomic.Bool
	// exclusive serializes every request, for boundaries that are not reentrant
	exclusive bool
}

// call runs fn with the live native handle. The lock is held across the
// check and the call, so release cannot free the handle underneath fn.
func (h *handle) call(phase errors.Phase, fn func(ffi.Handle) error) error {
	if h.exclusive {
		h.mu.Lock()
		defer h.mu.Unlock()
	} else {
		h.mu.RLock()
		defer h.mu.RUnlock()
	}

	if h.disposed.Load() || h.raw == ffi.NullHandle {
		return errors.UseAfterFree(phase, h.pattern)
	}
	return fn(h.raw)
}

// release frees the native handle. Only the first caller frees; it reports
// whether this call did.
func (h *handle) release() bool {
	if !h.disposed.CompareAndSwap(false, true) {
		return false
	}

	h.mu.Lock()
	raw := h.raw
	h.raw = ffi.NullHandle
	h.mu.Unlock()

	if raw != ffi.NullHandle {
		h.boundary.Free(raw)
	}
	return true
}

// reclaim runs when a Regex is garbage collected without Close.
func (h *handle) reclaim() {
	if h.release() {
		Logger().Warn("regex reclaimed without Close", zap.String("pattern", h.pattern))
	}
}

func (h *handle) state() State {
	if h.disposed.Load() {
		return StateDisposed
	}
	return StateLive
}
