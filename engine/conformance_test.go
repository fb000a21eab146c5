package engine

import (
	"os"
	"testing"

	"gopkg.in/yaml.v2"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/wippyai/fancy-regex/errors"
	"github.com/wippyai/fancy-regex/ffi"
	"github.com/wippyai/fancy-regex/marshal"
)

type conformanceCase struct {
	Name    string   `yaml:"name"`
	Pattern string   `yaml:"pattern"`
	Text    string   `yaml:"text"`
	Match   *bool    `yaml:"match"`
	Find    *string  `yaml:"find"`
	Replace *string  `yaml:"replace"`
	Want    string   `yaml:"want"`
	Engines []string `yaml:"engines"`
	Invalid bool     `yaml:"invalid"`
}

func (c conformanceCase) runsOn(engine string) bool {
	if len(c.Engines) == 0 {
		return true
	}
	for _, e := range c.Engines {
		if e == engine {
			return true
		}
	}
	return false
}

func loadConformance(t *testing.T) []conformanceCase {
	t.Helper()
	data, err := os.ReadFile("testdata/conformance.yaml")
	assert.NilError(t, err)

	var cases []conformanceCase
	assert.NilError(t, yaml.Unmarshal(data, &cases))
	assert.Assert(t, len(cases) > 0)
	return cases
}

func TestConformance(t *testing.T) {
	cases := loadConformance(t)
	engines := map[string]*Engine{
		"default":      New(),
		"backtracking": New(WithPlainSyntax(false)),
	}

	for name, e := range engines {
		t.Run(name, func(t *testing.T) {
			for _, c := range cases {
				if !c.runsOn(name) {
					continue
				}
				t.Run(c.Name, func(t *testing.T) {
					runConformanceCase(t, e, c)
				})
			}
			stats := e.Stats()
			assert.Equal(t, stats.Patterns, 0, "patterns leaked")
			assert.Equal(t, stats.Strings, 0, "strings leaked")
		})
	}
}

func runConformanceCase(t *testing.T, e *Engine, c conformanceCase) {
	pattern := marshal.MustEncode(c.Pattern)
	h := e.Compile(pattern)

	if c.Invalid {
		assert.Equal(t, h, ffi.NullHandle)
		assert.Assert(t, ffi.Diagnose(e, pattern) != ffi.FallbackDiagnostic)
		return
	}
	assert.Assert(t, h != ffi.NullHandle, "pattern %q rejected: %s", c.Pattern, ffi.Diagnose(e, pattern))
	defer e.Free(h)

	text := marshal.MustEncode(c.Text)

	code := e.IsMatch(h, text)
	assert.Assert(t, code != ffi.CodeError)
	matched := code == ffi.CodeMatch

	found, ok, err := ffi.TakeString(e, errors.PhaseFind, e.Find(h, text))
	assert.NilError(t, err)
	assert.Equal(t, ok, matched, "find and is_match disagree")

	if c.Match != nil {
		assert.Equal(t, matched, *c.Match)
	}
	if c.Find != nil {
		assert.Assert(t, ok, "expected a match")
		assert.Check(t, is.Equal(found, *c.Find))
	}
	if c.Replace != nil {
		out, ok, err := ffi.TakeString(e, errors.PhaseReplace, e.ReplaceAll(h, text, marshal.MustEncode(*c.Replace)))
		assert.NilError(t, err)
		assert.Assert(t, ok, "replace returned null")
		assert.Check(t, is.Equal(out, c.Want))
	}
}
