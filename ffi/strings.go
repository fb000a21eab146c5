package ffi

import (
	"github.com/wippyai/fancy-regex/errors"
	"github.com/wippyai/fancy-regex/marshal"
)

// TakeString copies the string at p into Go memory and releases it.
// A null p yields ("", false, nil). The buffer is released on every other
// path, including a failed load or malformed content.
func TakeString(b Boundary, phase errors.Phase, p Ptr) (string, bool, error) {
	if p == NullPtr {
		return "", false, nil
	}
	defer b.FreeString(p)

	view, ok := b.Load(p)
	if !ok {
		return "", false, errors.MatchEngine(phase, "engine returned an unreadable string")
	}
	s, err := marshal.Decode(view)
	if err != nil {
		return "", false, errors.Wrap(phase, errors.KindMatchEngine, err, "engine returned malformed text")
	}
	return s, true, nil
}
