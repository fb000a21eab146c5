package fancyregex

import (
	"runtime"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/fancy-regex/errors"
	"github.com/wippyai/fancy-regex/ffi"
	"github.com/wippyai/fancy-regex/marshal"
)

// Regex is a compiled pattern. It is safe for concurrent use.
//
// A Regex owns engine memory and should be released with Close. A Regex that
// becomes unreachable without Close is released by the garbage collector and
// a warning is logged.
type Regex struct {
	h       *handle
	cleanup runtime.Cleanup
}

// Compile compiles pattern. A pattern the engine rejects yields an error
// matching ErrInvalidPattern that carries the engine diagnostic.
func Compile(pattern string, opts ...Option) (*Regex, error) {
	cfg := newConfig(opts)

	src, err := marshal.Encode("pattern", pattern)
	if err != nil {
		return nil, err
	}

	b := cfg.boundary
	raw := b.Compile(src)
	if raw == ffi.NullHandle {
		diag := ffi.Diagnose(b, src)
		Logger().Debug("pattern rejected",
			zap.String("pattern", pattern),
			zap.String("diagnostic", diag))
		return nil, errors.InvalidPattern(pattern, diag)
	}

	h := &handle{
		boundary:  b,
		raw:       raw,
		pattern:   pattern,
		exclusive: cfg.serialize || !ffi.IsReentrant(b),
	}
	re := &Regex{h: h}
	re.cleanup = runtime.AddCleanup(re, (*handle).reclaim, h)
	return re, nil
}

// MustCompile is like Compile but panics if the pattern cannot be compiled.
func MustCompile(pattern string, opts ...Option) *Regex {
	re, err := Compile(pattern, opts...)
	if err != nil {
		panic("fancyregex: Compile(" + strconv.Quote(pattern) + "): " + err.Error())
	}
	return re
}

func (r *Regex) call(phase errors.Phase, fn func(ffi.Handle) error) error {
	if r == nil || r.h == nil {
		return errors.NullArgument(phase, "regex")
	}
	return r.h.call(phase, fn)
}

// IsMatch reports whether text contains a match anywhere.
func (r *Regex) IsMatch(text string) (bool, error) {
	var matched bool
	err := r.call(errors.PhaseMatch, func(raw ffi.Handle) error {
		in, err := marshal.Encode("text", text)
		if err != nil {
			return err
		}
		switch ffi.DecodeMatch(r.h.boundary.IsMatch(raw, in)) {
		case ffi.ResultMatch:
			matched = true
		case ffi.ResultEngineError:
			return errors.New(errors.PhaseMatch, errors.KindMatchEngine).
				Pattern(r.h.pattern).
				Detail("error occurred during matching").
				Build()
		}
		return nil
	})
	return matched, err
}

// Find returns the leftmost match in text. The boolean is false when there
// is no match.
func (r *Regex) Find(text string) (string, bool, error) {
	var (
		match string
		found bool
	)
	err := r.call(errors.PhaseFind, func(raw ffi.Handle) error {
		in, err := marshal.Encode("text", text)
		if err != nil {
			return err
		}
		match, found, err = ffi.TakeString(r.h.boundary, errors.PhaseFind, r.h.boundary.Find(raw, in))
		return err
	})
	return match, found, err
}

// ReplaceAll replaces every non-overlapping match in text with repl.
// Inside repl, $n and ${n} refer to numbered groups, $name and ${name} to
// named groups, and $$ is a literal dollar sign.
func (r *Regex) ReplaceAll(text, repl string) (string, error) {
	var out string
	err := r.call(errors.PhaseReplace, func(raw ffi.Handle) error {
		in, err := marshal.Encode("text", text)
		if err != nil {
			return err
		}
		tmpl, err := marshal.Encode("replacement", repl)
		if err != nil {
			return err
		}
		p := r.h.boundary.ReplaceAll(raw, in, tmpl)
		if p == ffi.NullPtr {
			return errors.New(errors.PhaseReplace, errors.KindMatchEngine).
				Pattern(r.h.pattern).
				Detail("error occurred during replacement").
				Build()
		}
		out, _, err = ffi.TakeString(r.h.boundary, errors.PhaseReplace, p)
		return err
	})
	return out, err
}

// Close releases the compiled pattern. It is safe to call more than once
// and from several goroutines; the engine sees exactly one release.
// Requests made after Close fail with ErrUseAfterFree.
func (r *Regex) Close() error {
	if r == nil || r.h == nil {
		return nil
	}
	if r.h.release() {
		r.cleanup.Stop()
	}
	return nil
}

// Pattern returns the source text used to compile r.
func (r *Regex) Pattern() string {
	if r == nil || r.h == nil {
		return ""
	}
	return r.h.pattern
}

// String returns the source text used to compile r.
func (r *Regex) String() string {
	if r == nil {
		return "<nil>"
	}
	return r.Pattern()
}

// State returns StateLive until Close, then StateDisposed.
func (r *Regex) State() State {
	if r == nil || r.h == nil {
		return StateUninitialized
	}
	return r.h.state()
}
