package main

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	fancyregex "github.com/wippyai/fancy-regex"
)

// Match delimiters inserted by ReplaceAll. Lines containing them are
// printed without highlighting.
const (
	markOpen  = "\x01"
	markClose = "\x02"
)

type highlighter struct {
	re      *fancyregex.Regex
	style   lipgloss.Style
	enabled bool
}

func newHighlighter(re *fancyregex.Regex, out io.Writer, enabled bool) *highlighter {
	r := lipgloss.NewRenderer(out)
	if enabled {
		r.SetColorProfile(termenv.ANSI256)
	}
	return &highlighter{
		re:      re,
		style:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
		enabled: enabled,
	}
}

func (h *highlighter) paint(s string) string {
	if !h.enabled {
		return s
	}
	return h.style.Render(s)
}

// render returns line with every match painted.
func (h *highlighter) render(line string) string {
	if !h.enabled || strings.ContainsAny(line, markOpen+markClose) {
		return line
	}
	marked, err := h.re.ReplaceAll(line, markOpen+"${0}"+markClose)
	if err != nil {
		return line
	}
	return h.splice(marked)
}

func (h *highlighter) splice(marked string) string {
	var b strings.Builder
	for {
		i := strings.Index(marked, markOpen)
		if i < 0 {
			b.WriteString(marked)
			return b.String()
		}
		j := strings.Index(marked[i:], markClose)
		if j < 0 {
			b.WriteString(marked)
			return b.String()
		}
		b.WriteString(marked[:i])
		if match := marked[i+len(markOpen) : i+j]; match != "" {
			b.WriteString(h.style.Render(match))
		}
		marked = marked[i+j+len(markClose):]
	}
}
