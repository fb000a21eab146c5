package engine

import (
	"strconv"
	"strings"

	"github.com/auvred/regonaut"
)

// dialect selects the matcher a pattern is compiled with.
type dialect uint8

const (
	// dialectPlain patterns use RE2 syntax only and run on coregex.
	dialectPlain dialect = iota
	// dialectFancy patterns need backtracking and run on regonaut.
	dialectFancy
)

func (d dialect) String() string {
	if d == dialectFancy {
		return "fancy"
	}
	return "plain"
}

// fancyGroups are group openers that need a backtracking matcher.
var fancyGroups = []string{"(?=", "(?!", "(?<=", "(?<!", "(?P=", "(?>"}

// classify reports whether pattern uses backreferences, lookaround or
// atomic groups.
func classify(pattern string) dialect {
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\':
			if i+1 >= len(pattern) {
				return dialectPlain
			}
			next := pattern[i+1]
			if !inClass {
				if next >= '1' && next <= '9' {
					return dialectFancy
				}
				if next == 'k' && i+2 < len(pattern) && pattern[i+2] == '<' {
					return dialectFancy
				}
			}
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				i++
			}
			// a leading ']' is a literal member
			if i+1 < len(pattern) && pattern[i+1] == ']' {
				i++
			}
		case c == '(':
			for _, g := range fancyGroups {
				if strings.HasPrefix(pattern[i:], g) {
					return dialectFancy
				}
			}
		}
	}
	return dialectPlain
}

// translation is a pattern rewritten for regonaut.
type translation struct {
	source string
	flags  regonaut.Flag
	// groups maps capture numbers as written to regonaut capture numbers.
	// It is nil when the two agree.
	groups []int
}

// translate rewrites a pattern into the ECMAScript dialect regonaut accepts.
//
// Named groups lose their P and Python style backreferences become \k<name>.
// \A and \z become lookarounds. Escaped ASCII punctuation that ECMAScript
// rejects becomes a \xHH escape. Leading inline flags become regonaut flags,
// later ones become scoped modifier groups, and x drops whitespace and
// comments. An atomic group (?>X) becomes (?:(?=(X))\N), which adds a
// capture, so a second pass renumbers backreferences.
func translate(pattern string) translation {
	flags, extended, rest := leadingFlags(pattern)

	first := &translator{src: rest, extended: extended}
	first.run()
	if first.atomics == 0 {
		return translation{source: first.out.String(), flags: flags}
	}

	second := &translator{src: rest, extended: extended, resolved: first.groups}
	second.run()
	return translation{source: second.out.String(), flags: flags, groups: first.groups}
}

// leadingFlags strips a leading (?imsx) group. Other leading groups are left
// for the translator.
func leadingFlags(pattern string) (regonaut.Flag, bool, string) {
	on, off, scoped, n, ok := flagGroup(pattern)
	if !ok || scoped || off != "" {
		return 0, false, pattern
	}

	var flags regonaut.Flag
	extended := false
	for _, c := range on {
		switch c {
		case 'i':
			flags |= regonaut.FlagIgnoreCase
		case 'm':
			flags |= regonaut.FlagMultiline
		case 's':
			flags |= regonaut.FlagDotAll
		case 'x':
			extended = true
		}
	}
	return flags, extended, pattern[n:]
}

// flagGroup parses an inline flag group such as (?i), (?-s) or (?ix: at the
// start of s. It returns the flags turned on and off, whether the group
// scopes a subpattern, and the length of the opener.
func flagGroup(s string) (on, off string, scoped bool, n int, ok bool) {
	if !strings.HasPrefix(s, "(?") {
		return "", "", false, 0, false
	}
	negate := false
	for i := 2; i < len(s); i++ {
		switch c := s[i]; c {
		case 'i', 'm', 's', 'x':
			if negate {
				off += string(c)
			} else {
				on += string(c)
			}
		case '-':
			if negate {
				return "", "", false, 0, false
			}
			negate = true
		case ')', ':':
			if i == 2 || (negate && off == "") {
				return "", "", false, 0, false
			}
			return on, off, c == ':', i + 1, true
		default:
			return "", "", false, 0, false
		}
	}
	return "", "", false, 0, false
}

// modifiers returns the ECMAScript modifier group opener for on and off,
// or "" when no flag other than x is involved.
func modifiers(on, off string) string {
	on = strings.ReplaceAll(on, "x", "")
	off = strings.ReplaceAll(off, "x", "")
	if on == "" && off == "" {
		return ""
	}
	if off == "" {
		return "(?" + on + ":"
	}
	return "(?" + on + "-" + off + ":"
}

// frame is an open group.
type frame struct {
	// extended is the x flag to restore when the group closes.
	extended bool
	// scoped holds modifier groups opened by (?flags) inside this group.
	// They close at every '|' and reopen after it.
	scoped []string
	// atomic is the regonaut capture number of an atomic group.
	atomic int
}

type translator struct {
	src      string
	out      strings.Builder
	extended bool
	inClass  bool
	frames   []frame
	captures int
	groups   []int
	atomics  int
	// resolved is the capture map of a previous pass, used to renumber
	// backreferences.
	resolved []int
}

func (t *translator) run() {
	t.out.Grow(len(t.src) + 8)
	t.frames = []frame{{}}
	t.groups = []int{0}

	src := t.src
	for i := 0; i < len(src); i++ {
		c := src[i]
		if t.extended && isSpace(c) {
			continue
		}
		if t.inClass {
			switch {
			case c == '\\':
				i = t.escape(i)
			case c == ']':
				t.inClass = false
				t.out.WriteByte(c)
			default:
				t.out.WriteByte(c)
			}
			continue
		}

		switch c {
		case '\\':
			i = t.escape(i)
		case '#':
			if !t.extended {
				t.out.WriteByte(c)
				continue
			}
			for i+1 < len(src) && src[i+1] != '\n' {
				i++
			}
		case '[':
			t.inClass = true
			t.out.WriteByte(c)
			if i+1 < len(src) && src[i+1] == '^' {
				t.out.WriteByte('^')
				i++
			}
			// a leading ']' is a member, which ECMAScript spells \]
			if i+1 < len(src) && src[i+1] == ']' {
				t.out.WriteString(`\]`)
				i++
			}
		case '(':
			i = t.open(i)
		case ')':
			t.close()
		case '|':
			t.alternate()
		default:
			t.out.WriteByte(c)
		}
	}

	// an unterminated group keeps the pattern invalid
	if len(t.frames) == 1 {
		t.closeScoped(&t.frames[0])
	}
}

// escape writes the escape sequence at src[i] and returns the index of its
// last byte.
func (t *translator) escape(i int) int {
	src := t.src
	if i+1 >= len(src) {
		t.out.WriteByte('\\')
		return i
	}
	next := src[i+1]
	switch {
	case !t.inClass && next == 'A':
		t.out.WriteString(`(?<![\s\S])`)
	case !t.inClass && next == 'z':
		t.out.WriteString(`(?![\s\S])`)
	case !t.inClass && next >= '1' && next <= '9':
		j := i + 1
		for j < len(src) && src[j] >= '0' && src[j] <= '9' {
			j++
		}
		n, _ := strconv.Atoi(src[i+1 : j])
		if n < len(t.resolved) {
			n = t.resolved[n]
		}
		t.out.WriteByte('\\')
		t.out.WriteString(strconv.Itoa(n))
		return j - 1
	case escapable(next):
		const hex = "0123456789abcdef"
		t.out.WriteString(`\x`)
		t.out.WriteByte(hex[next>>4])
		t.out.WriteByte(hex[next&0xf])
	default:
		t.out.WriteByte('\\')
		t.out.WriteByte(next)
	}
	return i + 1
}

// open writes the group opener at src[i] and returns the index of its last
// byte.
func (t *translator) open(i int) int {
	rest := t.src[i:]
	switch {
	case strings.HasPrefix(rest, "(?P="):
		if end := strings.IndexByte(rest, ')'); end > len("(?P=") {
			t.out.WriteString(`\k<`)
			t.out.WriteString(rest[len("(?P="):end])
			t.out.WriteByte('>')
			return i + end
		}
	case strings.HasPrefix(rest, "(?P<"):
		t.capture()
		t.push(frame{})
		t.out.WriteString("(?<")
		return i + len("(?P<") - 1
	case strings.HasPrefix(rest, "(?>"):
		t.captures++
		t.atomics++
		t.push(frame{atomic: t.captures})
		t.out.WriteString("(?:(?=(")
		return i + len("(?>") - 1
	case strings.HasPrefix(rest, "(?<") && !strings.HasPrefix(rest, "(?<=") && !strings.HasPrefix(rest, "(?<!"):
		t.capture()
	case strings.HasPrefix(rest, "(?"):
		on, off, scoped, n, ok := flagGroup(rest)
		if !ok {
			break
		}
		extended := t.extended
		if strings.Contains(on, "x") {
			extended = true
		}
		if strings.Contains(off, "x") {
			extended = false
		}
		mod := modifiers(on, off)

		if scoped {
			t.push(frame{})
			if mod == "" {
				mod = "(?:"
			}
			t.out.WriteString(mod)
		} else if mod != "" {
			top := &t.frames[len(t.frames)-1]
			top.scoped = append(top.scoped, mod)
			t.out.WriteString(mod)
		}
		t.extended = extended
		return i + n - 1
	default:
		t.capture()
	}
	t.push(frame{})
	t.out.WriteByte('(')
	return i
}

func (t *translator) capture() {
	t.captures++
	t.groups = append(t.groups, t.captures)
}

func (t *translator) push(f frame) {
	f.extended = t.extended
	t.frames = append(t.frames, f)
}

func (t *translator) close() {
	if len(t.frames) == 1 {
		// unbalanced; close the modifiers so the ')' stays unmatched
		t.closeScoped(&t.frames[0])
		t.out.WriteByte(')')
		return
	}
	top := t.frames[len(t.frames)-1]
	t.frames = t.frames[:len(t.frames)-1]

	t.closeScoped(&top)
	if top.atomic > 0 {
		t.out.WriteString(`))\`)
		t.out.WriteString(strconv.Itoa(top.atomic))
	}
	t.out.WriteByte(')')
	t.extended = top.extended
}

func (t *translator) alternate() {
	top := &t.frames[len(t.frames)-1]
	for range top.scoped {
		t.out.WriteByte(')')
	}
	t.out.WriteByte('|')
	for _, mod := range top.scoped {
		t.out.WriteString(mod)
	}
}

func (t *translator) closeScoped(f *frame) {
	for range f.scoped {
		t.out.WriteByte(')')
	}
	f.scoped = nil
}

// escapable reports whether \c is a literal c in the Rust dialect but not
// in ECMAScript unicode mode. \< and \> are word boundaries in Rust and are
// left for the matcher to reject.
func escapable(c byte) bool {
	switch {
	case c >= 0x80:
		return false
	case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return false
	}
	return !strings.ContainsRune(`^$\/.*+?()[]{}|<>`, rune(c))
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
