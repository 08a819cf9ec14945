package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/widget"
)

type echoSender struct{}

func (echoSender) Send(_ context.Context, message string) (string, error) {
	return "echo: " + message, nil
}

func typeText(t *testing.T, m model, s string) model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(model)
}

func TestSanitize_DropsControlCharacters(t *testing.T) {
	require.Equal(t, "[31mred[0m\nok\tdone", sanitize("\x1b[31mred\x1b[0m\nok\tdone"))
	require.Equal(t, "bell", sanitize("be\all"))
}

func TestView_DrainConsumesFlags(t *testing.T) {
	v := NewView()
	notified := 0
	v.setNotify(func() { notified++ })

	v.setInput("hello")
	require.Equal(t, "hello", v.InputValue())

	v.ClearInput()
	v.AppendEntry(widget.Entry{Speaker: widget.SpeakerUser, Text: "hello"}, "")
	v.ScrollToBottom()
	require.Equal(t, 3, notified)
	require.Empty(t, v.InputValue())

	st := v.drain()
	require.True(t, st.cleared)
	require.True(t, st.scroll)
	require.Len(t, st.lines, 1)
	require.Contains(t, st.lines[0], "hello")

	st = v.drain()
	require.False(t, st.cleared)
	require.False(t, st.scroll)
	require.Len(t, st.lines, 1)
}

func TestModel_EnterClicksSend(t *testing.T) {
	v := NewView()
	clicks := make(chan struct{}, 1)
	m := typeText(t, newModel(v, clicks), "hi there")
	require.Equal(t, "hi there", v.InputValue())

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	select {
	case <-clicks:
	default:
		t.Fatal("enter did not click send")
	}

	// A full click queue drops the press rather than blocking the UI.
	clicks <- struct{}{}
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, clicks, 1)
}

func TestModel_RefreshAppliesViewState(t *testing.T) {
	v := NewView()
	m := typeText(t, newModel(v, make(chan struct{}, 1)), "typed")

	v.ClearInput()
	v.AppendEntry(widget.Entry{Speaker: widget.SpeakerBot, Text: "reply"}, "")
	v.ScrollToBottom()

	next, _ := m.Update(refreshMsg{})
	m = next.(model)
	require.Empty(t, m.input.Value())
	require.Contains(t, m.View(), "reply")
}

func TestModel_QuitKeys(t *testing.T) {
	m := newModel(NewView(), make(chan struct{}, 1))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestView_DrivenByController(t *testing.T) {
	v := NewView()
	ctrl, err := widget.New(echoSender{}, v, widget.WithScrollDelay(time.Millisecond))
	require.NoError(t, err)

	v.setInput("ping")
	require.True(t, ctrl.Submit(context.Background()))
	ctrl.Wait()

	st := v.drain()
	require.True(t, st.cleared)
	require.True(t, st.scroll)
	require.Len(t, st.lines, 2)
	require.Contains(t, st.lines[1], "echo: ping")
}
