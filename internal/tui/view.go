// Package tui is a terminal front end for the chat widget: a Bubble Tea
// program that plays the part of the page the controller drives.
package tui

import (
	"html/template"
	"strings"
	"sync"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"chat-widget/internal/widget"
)

var (
	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	botLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	textStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	inputBoxStyle  = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// View implements widget.View. The controller calls it from its own
// goroutines, so state is kept here under a lock and the Bubble Tea model
// pulls it on each refresh.
type View struct {
	mu       sync.Mutex
	input    string
	cleared  bool
	scrolled bool
	lines    []string
	notify   func()
}

func NewView() *View {
	return &View{}
}

type viewState struct {
	lines   []string
	cleared bool
	scroll  bool
}

func (v *View) setNotify(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notify = fn
}

func (v *View) setInput(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.input = s
}

func (v *View) InputValue() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.input
}

func (v *View) ClearInput() {
	v.mu.Lock()
	v.input = ""
	v.cleared = true
	v.mu.Unlock()
	v.changed()
}

func (v *View) AppendEntry(e widget.Entry, _ template.HTML) {
	v.mu.Lock()
	v.lines = append(v.lines, formatEntry(e))
	v.mu.Unlock()
	v.changed()
}

func (v *View) ScrollToBottom() {
	v.mu.Lock()
	v.scrolled = true
	v.mu.Unlock()
	v.changed()
}

// drain returns the current transcript lines and consumes pending clear and
// scroll requests.
func (v *View) drain() viewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := viewState{
		lines:   append([]string(nil), v.lines...),
		cleared: v.cleared,
		scroll:  v.scrolled,
	}
	v.cleared = false
	v.scrolled = false
	return st
}

func (v *View) changed() {
	v.mu.Lock()
	fn := v.notify
	v.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func formatEntry(e widget.Entry) string {
	label := botLabelStyle.Render(e.Speaker.Label() + ":")
	if e.Speaker == widget.SpeakerUser {
		label = userLabelStyle.Render(e.Speaker.Label() + ":")
	}
	return label + " " + textStyle.Render(sanitize(e.Text))
}

// sanitize is the terminal counterpart of HTML escaping: control characters
// (escape sequences included) are dropped so text cannot drive the terminal.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
