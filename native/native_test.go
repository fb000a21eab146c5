//go:build cgo && fancyregex_native

package native_test

import (
	"errors"
	"testing"

	fancyregex "github.com/wippyai/fancy-regex"
	"github.com/wippyai/fancy-regex/ffi"
	"github.com/wippyai/fancy-regex/ffi/ffitest"
	"github.com/wippyai/fancy-regex/marshal"
	"github.com/wippyai/fancy-regex/native"
)

func open(t *testing.T) *ffitest.Recorder {
	t.Helper()
	lib, err := native.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return ffitest.NewRecorder(lib)
}

func TestLibrary_Regex(t *testing.T) {
	rec := open(t)

	tests := []struct {
		pattern string
		text    string
		found   string
	}{
		{`\d+`, "hello 123 world", "123"},
		{`(\w+)\s+\1`, "say hello hello", "hello hello"},
		{`\d+(?=px)`, "width: 100px", "100"},
		{`(?<=\$)\d+`, "price: $100", "100"},
	}
	for _, tt := range tests {
		re, err := fancyregex.Compile(tt.pattern, fancyregex.WithBoundary(rec))
		if err != nil {
			t.Fatalf("Compile(%q): %v", tt.pattern, err)
		}
		got, found, err := re.Find(tt.text)
		if err != nil || !found || got != tt.found {
			t.Errorf("%q.Find(%q) = %q, %v, %v", tt.pattern, tt.text, got, found, err)
		}
		re.Close()
	}

	re := fancyregex.MustCompile(`\d+`, fancyregex.WithBoundary(rec))
	out, err := re.ReplaceAll("hello 123 world 456", "XXX")
	if err != nil || out != "hello XXX world XXX" {
		t.Errorf("ReplaceAll = %q, %v", out, err)
	}
	re.Close()

	if n := rec.LiveHandles(); n != 0 {
		t.Errorf("LiveHandles = %d", n)
	}
	if n := rec.LiveStrings(); n != 0 {
		t.Errorf("LiveStrings = %d", n)
	}
	if v := rec.Violations(); len(v) > 0 {
		t.Errorf("violations: %v", v)
	}
}

func TestLibrary_InvalidPattern(t *testing.T) {
	rec := open(t)

	_, err := fancyregex.Compile(`(?P<unclosed`, fancyregex.WithBoundary(rec))
	if !errors.Is(err, fancyregex.ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
	if diag, _ := fancyregex.Diagnostic(err); diag == "" {
		t.Error("empty diagnostic")
	}
	if n := rec.Calls(ffi.EntryGetError); n != 1 {
		t.Errorf("GetError calls = %d, want 1", n)
	}
}

func TestLibrary_RawPointers(t *testing.T) {
	lib, err := native.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	h := lib.Compile(marshal.MustEncode(`\d+`))
	if h == ffi.NullHandle {
		t.Fatal("Compile returned a null handle")
	}
	defer lib.Free(h)

	p := lib.Find(h, marshal.MustEncode("abc 42"))
	if p == ffi.NullPtr {
		t.Fatal("Find returned null")
	}
	view, ok := lib.Load(p)
	if !ok || string(view) != "42" {
		t.Errorf("Load = %q, %v", view, ok)
	}
	lib.FreeString(p)
	lib.FreeString(ffi.NullPtr)
}
