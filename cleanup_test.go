package fancyregex_test

import (
	"runtime"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	fancyregex "github.com/wippyai/fancy-regex"
	"github.com/wippyai/fancy-regex/engine"
	"github.com/wippyai/fancy-regex/ffi"
	"github.com/wippyai/fancy-regex/ffi/ffitest"
)

func observeWarnings(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.WarnLevel)
	fancyregex.SetLogger(zap.New(core))
	t.Cleanup(func() { fancyregex.SetLogger(zap.NewNop()) })
	return logs
}

// compileAndDrop compiles a pattern and lets it become unreachable.
func compileAndDrop(t *testing.T, b ffi.Boundary, explicit bool) {
	t.Helper()
	re, err := fancyregex.Compile(`\d+`, fancyregex.WithBoundary(b))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := re.IsMatch("42"); err != nil {
		t.Fatal(err)
	}
	if explicit {
		re.Close()
	}
}

func TestRegex_ReclaimedWithoutClose(t *testing.T) {
	logs := observeWarnings(t)
	rec := ffitest.NewRecorder(engine.New())

	compileAndDrop(t, rec, false)

	deadline := time.Now().Add(5 * time.Second)
	for logs.Len() == 0 && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}

	if n := rec.Calls(ffi.EntryFree); n != 1 {
		t.Fatalf("Free calls = %d, want 1", n)
	}
	if n := rec.LiveHandles(); n != 0 {
		t.Errorf("LiveHandles = %d, want 0", n)
	}

	entries := logs.FilterMessage("regex reclaimed without Close").All()
	if len(entries) != 1 {
		t.Fatalf("expected one reclaim warning, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["pattern"]; got != `\d+` {
		t.Errorf("pattern field = %v", got)
	}
}

func TestRegex_CloseCancelsReclaim(t *testing.T) {
	logs := observeWarnings(t)
	rec := ffitest.NewRecorder(engine.New())

	compileAndDrop(t, rec, true)

	for range 5 {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}

	if n := rec.Calls(ffi.EntryFree); n != 1 {
		t.Errorf("Free calls = %d, want 1", n)
	}
	if n := logs.Len(); n != 0 {
		t.Errorf("unexpected warnings: %v", logs.All())
	}
	if v := rec.Violations(); len(v) > 0 {
		t.Errorf("ownership violations: %v", v)
	}
}
