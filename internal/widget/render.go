package widget

import (
	"fmt"
	"html/template"
	"strings"
)

// Speaker identifies who produced a transcript entry.
type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerBot  Speaker = "bot"
)

// Label is the display prefix shown before an entry's text.
func (s Speaker) Label() string {
	if s == SpeakerUser {
		return "You"
	}
	return "Bot"
}

// Entry is one rendered line of the conversation. Text is the raw, unescaped
// content; escaping happens only in Renderer.
type Entry struct {
	Seq     uint64
	Speaker Speaker
	Text    string
}

var entryTemplate = template.Must(template.New("entry").Parse(
	`<div class="msg {{.Speaker}}"><b>{{.Speaker.Label}}:</b> {{.Text}}</div>`,
))

// Renderer turns entries into HTML fragments. Every piece of dynamic text in
// the transcript goes through this template, so there is one escaping path.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() *Renderer {
	return &Renderer{tmpl: entryTemplate}
}

func (r *Renderer) Render(e Entry) (template.HTML, error) {
	var b strings.Builder
	if err := r.tmpl.Execute(&b, e); err != nil {
		return "", fmt.Errorf("widget: render entry: %w", err)
	}
	return template.HTML(b.String()), nil //nolint:gosec // produced by html/template
}
