package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	fancyregex "github.com/wippyai/fancy-regex"
	"github.com/wippyai/fancy-regex/engine"
	"github.com/wippyai/fancy-regex/native"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"pattern only", []string{`\d+`}, ""},
		{"with texts", []string{"-find", `\d+`, "a1", "b2"}, ""},
		{"empty replacement", []string{"-replace", "", `\d+`}, ""},
		{"interactive without pattern", []string{"-i"}, ""},
		{"missing pattern", nil, "missing PATTERN"},
		{"bad backend", []string{"-backend", "jit", "x"}, "-backend must be one of"},
		{"bad color", []string{"-color", "rainbow", "x"}, "-color must be one of"},
		{"wasm without file", []string{"-backend", "wasm", "x"}, "-wasm is required"},
		{"find and count", []string{"-find", "-count", "x"}, "-count cannot be combined"},
		{"replace and find", []string{"-find", "-replace", "y", "x"}, "-replace cannot be combined"},
		{"too many pages", []string{"-pages", "70000", "x"}, "-pages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseFlags(tt.args)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if cfg == nil {
					t.Fatal("nil config")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseFlags_Replace(t *testing.T) {
	cfg, err := parseFlags([]string{"-replace", "$2 $1", `(\w+) (\w+)`, "hello world"})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Replacing || cfg.Replacement != "$2 $1" {
		t.Errorf("replace = %v, %q", cfg.Replacing, cfg.Replacement)
	}
	if cfg.Pattern != `(\w+) (\w+)` || len(cfg.Texts) != 1 {
		t.Errorf("pattern = %q, texts = %v", cfg.Pattern, cfg.Texts)
	}
}

func runArgs(t *testing.T, stdin string, args ...string) (string, bool) {
	t.Helper()
	cfg, err := parseFlags(append([]string{"-color", "never"}, args...))
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	var out bytes.Buffer
	matched, err := run(cfg, strings.NewReader(stdin), &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String(), matched
}

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		want    string
		matched bool
	}{
		{
			name:    "filter stdin",
			stdin:   "hello hello\nhello world\ntest test\n",
			args:    []string{`(\w+)\s+\1`},
			want:    "hello hello\ntest test\n",
			matched: true,
		},
		{
			name:    "find",
			args:    []string{"-find", `(?<=\$)\d+`, "price: $100", "free"},
			want:    "100\n",
			matched: true,
		},
		{
			name:    "replace",
			args:    []string{"-replace", "XXX", `\d+`, "hello 123 world 456", "none"},
			want:    "hello XXX world XXX\nnone\n",
			matched: true,
		},
		{
			name:    "count",
			stdin:   "a1\nb\nc3\n",
			args:    []string{"-count", `\d`},
			want:    "2\n",
			matched: true,
		},
		{
			name:    "replace with the matched text",
			args:    []string{"-replace", "$0", `\d`, "a1"},
			want:    "a1\n",
			matched: true,
		},
		{
			name: "no match",
			args: []string{`\d+`, "hello world"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, matched := runArgs(t, tt.stdin, tt.args...)
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
			if matched != tt.matched {
				t.Errorf("matched = %v, want %v", matched, tt.matched)
			}
		})
	}
}

func TestExecute_ExitStatus(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"match", []string{`\d`, "a1"}, 0},
		{"no match", []string{`\d`, "ab"}, 1},
		{"replace with the matched text", []string{"-replace", "$0", `\d`, "a1"}, 0},
		{"bad flags", []string{"-backend", "jit", "x"}, 2},
		{"invalid pattern", []string{`(?P<unclosed`, "x"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			args := append([]string{"-color", "never"}, tt.args...)
			if got := execute(args, strings.NewReader(""), &stdout, &stderr); got != tt.want {
				t.Errorf("exit status = %d, want %d (stderr %q)", got, tt.want, stderr.String())
			}
		})
	}
}

func TestRun_InvalidPattern(t *testing.T) {
	cfg, err := parseFlags([]string{`(?P<unclosed`, "x"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = run(cfg, strings.NewReader(""), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "invalid_pattern") {
		t.Fatalf("expected invalid pattern error, got %v", err)
	}
}

func TestRun_NativeUnavailable(t *testing.T) {
	cfg, err := parseFlags([]string{"-backend", "native", "x", "x"})
	if err != nil {
		t.Fatal(err)
	}
	if native.Available() {
		t.Skip("native engine linked into this build")
	}
	_, err = run(cfg, strings.NewReader(""), &bytes.Buffer{})
	if !errors.Is(err, native.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestHighlighter(t *testing.T) {
	re := fancyregex.MustCompile(`\d+`)
	defer re.Close()
	var out bytes.Buffer

	plain := newHighlighter(re, &out, false)
	if got := plain.render("a1b22"); got != "a1b22" {
		t.Errorf("disabled render = %q", got)
	}

	hl := newHighlighter(re, &out, true)
	got := hl.render("a1b22")
	if !strings.Contains(got, "\x1b[") {
		t.Errorf("expected ANSI sequences, got %q", got)
	}
	if strings.ContainsAny(got, markOpen+markClose) {
		t.Errorf("markers leaked into output: %q", got)
	}
	for _, part := range []string{"a", "1", "b", "22"} {
		if !strings.Contains(got, part) {
			t.Errorf("render lost %q: %q", part, got)
		}
	}

	if got := hl.render("x\x01y"); got != "x\x01y" {
		t.Errorf("line with marker bytes changed: %q", got)
	}
}

func TestInteractiveModel(t *testing.T) {
	cfg := &config{Backend: "inproc", Pattern: `(\w+)\s+\1`, Texts: []string{"hello hello"}, Replacement: "<$1>"}
	m := newInteractiveModel(engine.Default(), cfg)
	defer m.release()

	first := m.re
	if first == nil {
		t.Fatalf("pattern not compiled: %v", m.err)
	}
	view := m.View()
	for _, want := range []string{"true", `"hello hello"`, "<hello>"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	// typing into the pattern field recompiles and closes the old pattern
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if m.re == first {
		t.Fatal("pattern not recompiled")
	}
	if _, err := first.IsMatch("x"); err == nil {
		t.Error("previous pattern still usable after recompilation")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("(")})
	if m.err == nil || !strings.Contains(m.View(), "Error") {
		t.Error("expected compile error in view")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Error("expected quit command")
	}
	if m.re != nil {
		t.Error("pattern not released on quit")
	}
}
