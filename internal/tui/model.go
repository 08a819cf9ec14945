package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"chat-widget/internal/widget"
)

const inputHeight = 3

type refreshMsg struct{}

type model struct {
	view   *View
	clicks chan<- struct{}
	input  textinput.Model
	vp     viewport.Model
}

func newModel(view *View, clicks chan<- struct{}) model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "> "
	ti.CharLimit = 2000
	ti.Focus()

	return model{
		view:   view,
		clicks: clicks,
		input:  ti,
		vp:     viewport.New(80, 20),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.view.setInput(m.input.Value())
			select {
			case m.clicks <- struct{}{}:
			default:
			}
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.view.setInput(m.input.Value())
		return m, cmd

	case tea.WindowSizeMsg:
		m.vp.Width = msg.Width
		m.vp.Height = max(1, msg.Height-inputHeight-1)
		m.input.Width = max(10, msg.Width-8)
		return m, nil

	case refreshMsg:
		st := m.view.drain()
		if st.cleared {
			m.input.Reset()
		}
		m.vp.SetContent(strings.Join(st.lines, "\n"))
		if st.scroll {
			m.vp.GotoBottom()
		}
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	return m.vp.View() + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		helpStyle.Render("enter: send • pgup/pgdn: scroll • esc: quit")
}

// Run shows the chat widget in the terminal until the user quits or ctx is
// cancelled, and returns the transcript it built.
func Run(ctx context.Context, sender widget.Sender, opts ...widget.Option) (*widget.Transcript, error) {
	view := NewView()
	ctrl, err := widget.New(sender, view, opts...)
	if err != nil {
		return nil, err
	}

	clicks := make(chan struct{}, 8)
	p := tea.NewProgram(newModel(view, clicks), tea.WithAltScreen(), tea.WithContext(ctx))
	view.setNotify(func() { go p.Send(refreshMsg{}) })

	if err := ctrl.Attach(ctx, clicks); err != nil {
		return nil, err
	}
	_, runErr := p.Run()
	ctrl.Detach()

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return ctrl.Transcript(), fmt.Errorf("tui: run: %w", runErr)
	}
	return ctrl.Transcript(), nil
}
