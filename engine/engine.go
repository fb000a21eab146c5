package engine

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/auvred/regonaut"
	"github.com/coregx/coregex"
	"go.uber.org/zap"

	"github.com/wippyai/fancy-regex/ffi"
	"github.com/wippyai/fancy-regex/marshal"
	"github.com/wippyai/fancy-regex/resource"
)

// Engine is an in-process implementation of the fancy-regex C ABI.
// Handles and strings it returns are only meaningful to the Engine that
// produced them. Engine is safe for concurrent use.
type Engine struct {
	patterns *resource.Table[program]
	strs     *resource.Table[buffer]
	plain    bool
}

var _ ffi.Boundary = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithPlainSyntax controls whether patterns without backreferences,
// lookaround or atomic groups are compiled with the RE2 matcher. It is
// enabled by default. When disabled every pattern runs on the backtracking
// matcher.
func WithPlainSyntax(enabled bool) Option {
	return func(e *Engine) {
		e.plain = enabled
	}
}

// New creates an engine with its own handle tables.
func New(opts ...Option) *Engine {
	e := &Engine{
		patterns: resource.NewTable[program]("pattern"),
		strs:     resource.NewTable[buffer]("string"),
		plain:    true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.patterns.Subscribe(tableLogger{})
	e.strs.Subscribe(tableLogger{})
	return e
}

var (
	defaultEngine *Engine
	defaultOnce   sync.Once
)

// Default returns the process-wide engine.
func Default() *Engine {
	defaultOnce.Do(func() {
		defaultEngine = New()
	})
	return defaultEngine
}

// Reentrant reports that concurrent requests against one handle are safe.
func (e *Engine) Reentrant() bool {
	return true
}

// Stats describes the resources an engine currently holds.
type Stats struct {
	Patterns int
	Strings  int
}

// Stats returns the number of live compiled patterns and unreleased strings.
func (e *Engine) Stats() Stats {
	return Stats{
		Patterns: e.patterns.Len(),
		Strings:  e.strs.Len(),
	}
}

// Close releases every pattern and string still held. Handles and pointers
// issued earlier become invalid.
func (e *Engine) Close() error {
	warnLive(e.patterns)
	warnLive(e.strs)
	if err := e.patterns.Close(); err != nil {
		return err
	}
	return e.strs.Close()
}

type table interface {
	Kind() string
	Len() int
}

func warnLive(t table) {
	if n := t.Len(); n > 0 {
		Logger().Warn("closing engine with live handles",
			zap.String("kind", t.Kind()),
			zap.Int("count", n))
	}
}

func (e *Engine) compile(src string) (program, error) {
	if e.plain && classify(src) == dialectPlain {
		re, err := coregex.Compile(src)
		if err == nil {
			return newPlainProgram(re), nil
		}
		// RE2 rejected it; the backtracking matcher accepts a wider syntax.
		if fancy, ferr := compileFancy(src); ferr == nil {
			return fancy, nil
		}
		return nil, err
	}
	return compileFancy(src)
}

func compileFancy(src string) (program, error) {
	tr := translate(src)
	re, err := regonaut.Compile(tr.source, tr.flags)
	if err != nil {
		return nil, err
	}
	return &fancyProgram{re: re, groups: tr.groups}, nil
}

func (e *Engine) program(h ffi.Handle) (program, bool) {
	return e.patterns.Get(resource.Handle(h))
}

// input returns the content of a C string argument, rejecting null,
// unterminated and malformed buffers.
func input(c marshal.CString) ([]byte, bool) {
	b, ok := marshal.Terminated(c)
	if !ok || !utf8.Valid(b) {
		return nil, false
	}
	return b, true
}

// buffer is a NUL-terminated string handed out by the engine. Dropping it
// zeroes the bytes so views loaded before release do not keep the content.
type buffer []byte

func (b buffer) Drop() {
	clear(b)
}

func (e *Engine) store(b []byte) ffi.Ptr {
	buf := make(buffer, len(b)+1)
	copy(buf, b)
	return ffi.Ptr(e.strs.Insert(buf))
}

func recovered(entry string, r any) {
	Logger().Error("engine panic",
		zap.String("entry", entry),
		zap.String("panic", fmt.Sprint(r)),
		zap.Stack("stack"))
}

// Compile compiles pattern. It returns NullHandle if the pattern is null,
// not valid UTF-8 or rejected by the matcher.
func (e *Engine) Compile(pattern marshal.CString) (h ffi.Handle) {
	defer func() {
		if r := recover(); r != nil {
			recovered(ffi.EntryCompile, r)
			h = ffi.NullHandle
		}
	}()

	src, ok := input(pattern)
	if !ok {
		return ffi.NullHandle
	}
	prog, err := e.compile(string(src))
	if err != nil {
		Logger().Debug("pattern rejected", zap.ByteString("pattern", src), zap.Error(err))
		return ffi.NullHandle
	}
	return ffi.Handle(e.patterns.Insert(prog))
}

// Free releases a compiled pattern. Null and unknown handles are ignored.
func (e *Engine) Free(h ffi.Handle) {
	e.patterns.Remove(resource.Handle(h))
}

// IsMatch returns CodeMatch, CodeNoMatch, or CodeError for an unknown
// handle or unusable text.
func (e *Engine) IsMatch(h ffi.Handle, text marshal.CString) (code int32) {
	defer func() {
		if r := recover(); r != nil {
			recovered(ffi.EntryIsMatch, r)
			code = ffi.CodeError
		}
	}()

	prog, ok := e.program(h)
	if !ok {
		return ffi.CodeError
	}
	t, ok := input(text)
	if !ok {
		return ffi.CodeError
	}
	if prog.match(t) {
		return ffi.CodeMatch
	}
	return ffi.CodeNoMatch
}

// Find returns the first match as a new string, or NullPtr when there is
// no match or the request is unusable.
func (e *Engine) Find(h ffi.Handle, text marshal.CString) (p ffi.Ptr) {
	defer func() {
		if r := recover(); r != nil {
			recovered(ffi.EntryFind, r)
			p = ffi.NullPtr
		}
	}()

	prog, ok := e.program(h)
	if !ok {
		return ffi.NullPtr
	}
	t, ok := input(text)
	if !ok {
		return ffi.NullPtr
	}
	start, end, found := prog.find(t)
	if !found {
		return ffi.NullPtr
	}
	return e.store(t[start:end])
}

// ReplaceAll returns text with every match replaced, or NullPtr if the
// request is unusable.
func (e *Engine) ReplaceAll(h ffi.Handle, text, replacement marshal.CString) (p ffi.Ptr) {
	defer func() {
		if r := recover(); r != nil {
			recovered(ffi.EntryReplaceAll, r)
			p = ffi.NullPtr
		}
	}()

	prog, ok := e.program(h)
	if !ok {
		return ffi.NullPtr
	}
	t, ok := input(text)
	if !ok {
		return ffi.NullPtr
	}
	r, ok := input(replacement)
	if !ok {
		return ffi.NullPtr
	}
	out := prog.replace(make([]byte, 0, len(t)), t, r)
	return e.store(out)
}

// GetError compiles pattern again and returns the matcher's diagnostic.
// It returns NullPtr when the pattern compiles or cannot be read.
func (e *Engine) GetError(pattern marshal.CString) (p ffi.Ptr) {
	defer func() {
		if r := recover(); r != nil {
			recovered(ffi.EntryGetError, r)
			p = ffi.NullPtr
		}
	}()

	src, ok := input(pattern)
	if !ok {
		return ffi.NullPtr
	}
	if _, err := e.compile(string(src)); err != nil {
		return e.store([]byte(err.Error()))
	}
	return ffi.NullPtr
}

// FreeString releases a string returned by Find, ReplaceAll or GetError.
func (e *Engine) FreeString(p ffi.Ptr) {
	if p == ffi.NullPtr {
		return
	}
	e.strs.Remove(resource.Handle(p))
}

// Load returns the string at p without its terminator.
func (e *Engine) Load(p ffi.Ptr) ([]byte, bool) {
	buf, ok := e.strs.Get(resource.Handle(p))
	if !ok {
		return nil, false
	}
	n := len(buf) - 1
	return buf[:n:n], true
}
