package engine

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/fancy-regex/errors"
	"github.com/wippyai/fancy-regex/ffi"
	"github.com/wippyai/fancy-regex/marshal"
)

func mustCompile(t *testing.T, e *Engine, pattern string) ffi.Handle {
	t.Helper()
	h := e.Compile(marshal.MustEncode(pattern))
	if h == ffi.NullHandle {
		t.Fatalf("Compile(%q) returned null handle", pattern)
	}
	return h
}

func take(t *testing.T, e *Engine, p ffi.Ptr) (string, bool) {
	t.Helper()
	s, ok, err := ffi.TakeString(e, errors.PhaseFind, p)
	if err != nil {
		t.Fatalf("TakeString: %v", err)
	}
	return s, ok
}

func TestEngine_Compile(t *testing.T) {
	e := New()

	tests := []struct {
		name    string
		pattern marshal.CString
		valid   bool
	}{
		{"plain", marshal.MustEncode(`\d+`), true},
		{"fancy", marshal.MustEncode(`(\w+)\s+\1`), true},
		{"empty", marshal.MustEncode(``), true},
		{"invalid", marshal.MustEncode(`(?P<unclosed`), false},
		{"null", nil, false},
		{"unterminated", marshal.CString(`\d+`), false},
		{"malformed", marshal.CString("\xff\x00"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := e.Compile(tt.pattern)
			if (h != ffi.NullHandle) != tt.valid {
				t.Fatalf("Compile valid = %v, want %v", h != ffi.NullHandle, tt.valid)
			}
			e.Free(h)
		})
	}

	if got := e.Stats(); got != (Stats{}) {
		t.Fatalf("Stats after frees = %+v", got)
	}
}

func TestEngine_Dialect(t *testing.T) {
	tests := []struct {
		pattern string
		opts    []Option
		want    dialect
	}{
		{`\d+`, nil, dialectPlain},
		{`(\w+)\s+\1`, nil, dialectFancy},
		{`\d+`, []Option{WithPlainSyntax(false)}, dialectFancy},
	}

	for _, tt := range tests {
		e := New(tt.opts...)
		h := mustCompile(t, e, tt.pattern)
		prog, ok := e.program(h)
		if !ok {
			t.Fatalf("program(%d) not found", h)
		}
		if prog.dialect() != tt.want {
			t.Errorf("%q compiled as %v, want %v", tt.pattern, prog.dialect(), tt.want)
		}
		e.Free(h)
	}
}

func TestEngine_IsMatchCodes(t *testing.T) {
	e := New()
	h := mustCompile(t, e, `\d+`)

	tests := []struct {
		name string
		h    ffi.Handle
		text marshal.CString
		want int32
	}{
		{"match", h, marshal.MustEncode("a1"), ffi.CodeMatch},
		{"no match", h, marshal.MustEncode("ab"), ffi.CodeNoMatch},
		{"null text", h, nil, ffi.CodeError},
		{"malformed text", h, marshal.CString("\xc3\x28\x00"), ffi.CodeError},
		{"null handle", ffi.NullHandle, marshal.MustEncode("1"), ffi.CodeError},
		{"unknown handle", ffi.Handle(0xdead), marshal.MustEncode("1"), ffi.CodeError},
	}

	for _, tt := range tests {
		if got := e.IsMatch(tt.h, tt.text); got != tt.want {
			t.Errorf("%s: IsMatch = %d, want %d", tt.name, got, tt.want)
		}
	}

	e.Free(h)
	if got := e.IsMatch(h, marshal.MustEncode("1")); got != ffi.CodeError {
		t.Fatalf("IsMatch on freed handle = %d, want -1", got)
	}
}

func TestEngine_StaleHandleAfterReuse(t *testing.T) {
	e := New()
	old := mustCompile(t, e, `a`)
	e.Free(old)
	fresh := mustCompile(t, e, `b`)
	defer e.Free(fresh)

	if e.IsMatch(old, marshal.MustEncode("b")) != ffi.CodeError {
		t.Fatal("stale handle must not reach the new pattern")
	}
	if e.IsMatch(fresh, marshal.MustEncode("b")) != ffi.CodeMatch {
		t.Fatal("fresh handle should match")
	}
}

func TestEngine_Find(t *testing.T) {
	e := New()
	h := mustCompile(t, e, `\d+`)
	defer e.Free(h)

	s, ok := take(t, e, e.Find(h, marshal.MustEncode("hello 123 world")))
	if !ok || s != "123" {
		t.Fatalf("Find = %q, %v", s, ok)
	}

	if p := e.Find(h, marshal.MustEncode("hello world")); p != ffi.NullPtr {
		t.Fatal("Find without match must return null")
	}
	if p := e.Find(h, nil); p != ffi.NullPtr {
		t.Fatal("Find with null text must return null")
	}
	if e.Stats().Strings != 0 {
		t.Fatalf("strings leaked: %d", e.Stats().Strings)
	}
}

func TestEngine_ReplaceAll(t *testing.T) {
	e := New()
	h := mustCompile(t, e, `\d+`)
	defer e.Free(h)

	s, ok := take(t, e, e.ReplaceAll(h, marshal.MustEncode("hello 123 world 456"), marshal.MustEncode("XXX")))
	if !ok || s != "hello XXX world XXX" {
		t.Fatalf("ReplaceAll = %q, %v", s, ok)
	}

	s, ok = take(t, e, e.ReplaceAll(h, marshal.MustEncode("nothing"), marshal.MustEncode("XXX")))
	if !ok || s != "nothing" {
		t.Fatalf("ReplaceAll without matches = %q, %v", s, ok)
	}

	if p := e.ReplaceAll(h, marshal.MustEncode("1"), nil); p != ffi.NullPtr {
		t.Fatal("ReplaceAll with null replacement must return null")
	}
	if p := e.ReplaceAll(ffi.NullHandle, marshal.MustEncode("1"), marshal.MustEncode("x")); p != ffi.NullPtr {
		t.Fatal("ReplaceAll with null handle must return null")
	}
}

func TestEngine_GetError(t *testing.T) {
	e := New()

	if p := e.GetError(marshal.MustEncode(`\d+`)); p != ffi.NullPtr {
		t.Fatal("GetError for a valid pattern must return null")
	}
	if p := e.GetError(nil); p != ffi.NullPtr {
		t.Fatal("GetError for null must return null")
	}

	msg, ok := take(t, e, e.GetError(marshal.MustEncode(`(?P<unclosed`)))
	if !ok || strings.TrimSpace(msg) == "" {
		t.Fatalf("GetError = %q, %v", msg, ok)
	}

	msg, ok = take(t, e, e.GetError(marshal.MustEncode(`(\w+)\2`)))
	if !ok || msg == "" {
		t.Fatalf("GetError for bad backreference = %q, %v", msg, ok)
	}
}

func TestEngine_FreeString(t *testing.T) {
	e := New()
	h := mustCompile(t, e, `x`)
	defer e.Free(h)

	p := e.Find(h, marshal.MustEncode("x"))
	if p == ffi.NullPtr {
		t.Fatal("expected match")
	}
	view, ok := e.Load(p)
	if !ok || string(view) != "x" {
		t.Fatalf("Load = %q, %v", view, ok)
	}

	e.FreeString(p)
	e.FreeString(p)
	e.FreeString(ffi.NullPtr)

	if string(view) != "\x00" {
		t.Fatalf("released buffer still readable: %q", view)
	}

	if _, ok := e.Load(p); ok {
		t.Fatal("Load after FreeString must fail")
	}
	if e.Stats().Strings != 0 {
		t.Fatal("string not released")
	}
}

func TestEngine_Concurrent(t *testing.T) {
	e := New()
	plain := mustCompile(t, e, `\d+`)
	fancy := mustCompile(t, e, `(\w+)\s+\1`)
	defer e.Free(plain)
	defer e.Free(fancy)

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if e.IsMatch(fancy, marshal.MustEncode("hello hello")) != ffi.CodeMatch {
					errs <- "fancy IsMatch"
					return
				}
				s, ok, err := ffi.TakeString(e, errors.PhaseFind, e.Find(plain, marshal.MustEncode("abc 42")))
				if err != nil || !ok || s != "42" {
					errs <- "plain Find"
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
	if e.Stats().Strings != 0 {
		t.Fatalf("strings leaked: %d", e.Stats().Strings)
	}
}

type panicProgram struct{}

func (panicProgram) dialect() dialect              { return dialectFancy }
func (panicProgram) match([]byte) bool             { panic("boom") }
func (panicProgram) find([]byte) (int, int, bool)  { panic("boom") }
func (panicProgram) replace(_, _, _ []byte) []byte { panic("boom") }

func TestEngine_RecoversPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	e := New()
	h := ffi.Handle(e.patterns.Insert(panicProgram{}))
	text := marshal.MustEncode("x")

	if got := e.IsMatch(h, text); got != ffi.CodeError {
		t.Fatalf("IsMatch = %d, want -1", got)
	}
	if p := e.Find(h, text); p != ffi.NullPtr {
		t.Fatal("Find must return null after a panic")
	}
	if p := e.ReplaceAll(h, text, text); p != ffi.NullPtr {
		t.Fatal("ReplaceAll must return null after a panic")
	}

	var entries []string
	for _, entry := range logs.FilterMessage("engine panic").All() {
		entries = append(entries, entry.ContextMap()["entry"].(string))
	}
	want := []string{ffi.EntryIsMatch, ffi.EntryFind, ffi.EntryReplaceAll}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("logged panics mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_Close(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	e := New()
	h := mustCompile(t, e, `x`)
	p := e.Find(h, marshal.MustEncode("x"))

	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var kinds []string
	for _, entry := range logs.FilterMessage("closing engine with live handles").All() {
		kinds = append(kinds, entry.ContextMap()["kind"].(string))
	}
	if diff := cmp.Diff([]string{"pattern", "string"}, kinds); diff != "" {
		t.Errorf("live handle warnings mismatch (-want +got):\n%s", diff)
	}
	if e.Stats() != (Stats{}) {
		t.Fatalf("Stats after Close = %+v", e.Stats())
	}
	if e.IsMatch(h, marshal.MustEncode("x")) != ffi.CodeError {
		t.Fatal("handle must be invalid after Close")
	}
	if _, ok := e.Load(p); ok {
		t.Fatal("string must be invalid after Close")
	}
	if e.Compile(marshal.MustEncode("x")) != ffi.NullHandle {
		t.Fatal("Compile after Close must fail")
	}
}

func TestDefault(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default must return the same engine")
	}
	if !ffi.IsReentrant(Default()) {
		t.Fatal("engine must be reentrant")
	}
}
