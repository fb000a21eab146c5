package engine

import (
	"github.com/auvred/regonaut"
	"github.com/coregx/coregex"
)

// program is a compiled pattern held behind a handle.
type program interface {
	dialect() dialect
	match(text []byte) bool
	find(text []byte) (start, end int, ok bool)
	// replace appends text to dst with every non-overlapping match replaced
	// by the expanded template.
	replace(dst, text, template []byte) []byte
}

type plainProgram struct {
	re    *coregex.Regex
	names map[string]int
}

func newPlainProgram(re *coregex.Regex) *plainProgram {
	p := &plainProgram{re: re, names: make(map[string]int)}
	for i, name := range re.SubexpNames() {
		if _, seen := p.names[name]; name != "" && !seen {
			p.names[name] = i
		}
	}
	return p
}

func (p *plainProgram) dialect() dialect { return dialectPlain }

func (p *plainProgram) match(text []byte) bool {
	return p.re.Match(text)
}

func (p *plainProgram) find(text []byte) (int, int, bool) {
	loc := p.re.FindIndex(text)
	if loc == nil {
		return 0, 0, false
	}
	return loc[0], loc[1], true
}

func (p *plainProgram) replace(dst, text, template []byte) []byte {
	last := 0
	for _, m := range p.re.FindAllSubmatchIndex(text, -1) {
		dst = append(dst, text[last:m[0]]...)
		dst = expand(dst, template, func(index int, name string) []byte {
			if index < 0 {
				i, ok := p.names[name]
				if !ok {
					return nil
				}
				index = i
			}
			if 2*index+1 >= len(m) || m[2*index] < 0 {
				return nil
			}
			return text[m[2*index]:m[2*index+1]]
		})
		last = m[1]
	}
	return append(dst, text[last:]...)
}

type fancyProgram struct {
	re *regonaut.RegExp
	// groups maps capture numbers as written to regonaut's; nil when equal.
	groups []int
}

func (p *fancyProgram) dialect() dialect { return dialectFancy }

func (p *fancyProgram) match(text []byte) bool {
	return p.re.FindMatch(text) != nil
}

func (p *fancyProgram) find(text []byte) (int, int, bool) {
	m := p.re.FindMatch(text)
	if m == nil {
		return 0, 0, false
	}
	g := m.Groups[0]
	return g.Start, g.End, true
}

func (p *fancyProgram) replace(dst, text, template []byte) []byte {
	last, prevEnd := 0, -1
	for m := p.re.FindMatch(text); m != nil; m = p.re.FindNextMatch(m) {
		whole := m.Groups[0]
		// an empty match touching the previous match is not a new occurrence
		if whole.Start == whole.End && whole.Start == prevEnd {
			continue
		}
		dst = append(dst, text[last:whole.Start]...)
		dst = expand(dst, template, func(index int, name string) []byte {
			if index < 0 {
				g, ok := m.NamedGroups[name]
				if !ok {
					return nil
				}
				return g.Data()
			}
			if p.groups != nil {
				if index >= len(p.groups) {
					return nil
				}
				index = p.groups[index]
			}
			if index >= len(m.Groups) {
				return nil
			}
			return m.Groups[index].Data()
		})
		last, prevEnd = whole.End, whole.End
	}
	return append(dst, text[last:]...)
}
