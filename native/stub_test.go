//go:build !cgo || !fancyregex_native

package native

import (
	"errors"
	"testing"

	ferrors "github.com/wippyai/fancy-regex/errors"
	"github.com/wippyai/fancy-regex/ffi"
	"github.com/wippyai/fancy-regex/marshal"
)

func TestOpen_Unavailable(t *testing.T) {
	lib, err := Open()
	if lib != nil {
		t.Fatal("expected nil library")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !errors.Is(err, ferrors.ErrUnavailable) {
		t.Errorf("expected unavailable kind, got %v", err)
	}
	if Available() {
		t.Error("Available reported true")
	}
}

func TestStub_Sentinels(t *testing.T) {
	var lib Library
	pattern := marshal.MustEncode(`\d+`)

	if h := lib.Compile(pattern); h != ffi.NullHandle {
		t.Errorf("Compile = %d", h)
	}
	if code := lib.IsMatch(1, pattern); code != ffi.CodeError {
		t.Errorf("IsMatch = %d", code)
	}
	if p := lib.Find(1, pattern); p != ffi.NullPtr {
		t.Errorf("Find = %d", p)
	}
	if p := lib.ReplaceAll(1, pattern, pattern); p != ffi.NullPtr {
		t.Errorf("ReplaceAll = %d", p)
	}
	if diag := ffi.Diagnose(&lib, pattern); diag != ffi.FallbackDiagnostic {
		t.Errorf("Diagnose = %q", diag)
	}
}
