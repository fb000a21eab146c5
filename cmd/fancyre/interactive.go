package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	fancyregex "github.com/wippyai/fancy-regex"
	"github.com/wippyai/fancy-regex/ffi"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	fieldPattern = iota
	fieldText
	fieldReplacement
	fieldCount
)

type interactiveModel struct {
	boundary ffi.Boundary
	backend  string
	re       *fancyregex.Regex
	compiled string
	err      error
	hl       *highlighter
	inputs   [fieldCount]textinput.Model
	focusIdx int
}

func newInteractiveModel(b ffi.Boundary, cfg *config) *interactiveModel {
	m := &interactiveModel{boundary: b, backend: cfg.Backend}

	prompts := [fieldCount]string{"pattern: ", "text:    ", "replace: "}
	values := [fieldCount]string{cfg.Pattern, strings.Join(cfg.Texts, " "), cfg.Replacement}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = prompts[i]
		ti.Width = 60
		ti.SetValue(values[i])
		m.inputs[i] = ti
	}
	m.inputs[fieldPattern].Focus()
	m.recompile()
	return m
}

// recompile compiles the pattern field if it changed, closing the previous
// pattern first.
func (m *interactiveModel) recompile() {
	pattern := m.inputs[fieldPattern].Value()
	if m.re != nil && pattern == m.compiled {
		return
	}
	m.release()

	m.compiled = pattern
	m.re, m.err = fancyregex.Compile(pattern, fancyregex.WithBoundary(m.boundary))
	if m.re != nil {
		m.hl = &highlighter{re: m.re, style: errorStyle.Bold(true), enabled: true}
	}
}

func (m *interactiveModel) release() {
	if m.re != nil {
		m.re.Close()
		m.re = nil
		m.hl = nil
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.release()
			return m, tea.Quit

		case "tab", "down", "enter":
			m.focus((m.focusIdx + 1) % fieldCount)
			return m, nil

		case "shift+tab", "up":
			m.focus((m.focusIdx + fieldCount - 1) % fieldCount)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focusIdx], cmd = m.inputs[m.focusIdx].Update(msg)
	if m.focusIdx == fieldPattern {
		m.recompile()
	}
	return m, cmd
}

func (m *interactiveModel) focus(i int) {
	m.inputs[m.focusIdx].Blur()
	m.focusIdx = i
	m.inputs[m.focusIdx].Focus()
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("fancyre"))
	b.WriteString(" ")
	b.WriteString(m.backend)
	b.WriteString("\n\n")

	for i := range m.inputs {
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	} else {
		b.WriteString(m.results())
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("tab/↑/↓ switch field • esc quit"))
	return b.String()
}

func (m *interactiveModel) results() string {
	if m.re == nil {
		return ""
	}
	text := m.inputs[fieldText].Value()

	var b strings.Builder
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-9s", label)))
		b.WriteString(value)
		b.WriteString("\n")
	}

	ok, err := m.re.IsMatch(text)
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", err))
	}
	row("match", resultStyle.Render(fmt.Sprint(ok)))

	match, found, err := m.re.Find(text)
	switch {
	case err != nil:
		row("find", errorStyle.Render(err.Error()))
	case found:
		row("find", resultStyle.Render(fmt.Sprintf("%q", match)))
	default:
		row("find", helpStyle.Render("no match"))
	}

	row("text", m.hl.render(text))

	out, err := m.re.ReplaceAll(text, m.inputs[fieldReplacement].Value())
	if err != nil {
		row("replaced", errorStyle.Render(err.Error()))
	} else {
		row("replaced", resultStyle.Render(out))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func runInteractive(cfg *config) error {
	ctx := context.Background()
	b, release, err := openBoundary(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	m := newInteractiveModel(b, cfg)
	defer m.release()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
