package widget

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
)

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Chat transcript</title></head>
<body>
<div id="chat-box">
{{.}}</div>
</body>
</html>
`))

// Transcript is the append-only record of the conversation for one widget.
// Entries are never edited, removed or reordered.
type Transcript struct {
	mu        sync.Mutex
	entries   []Entry
	fragments []template.HTML
}

func (t *Transcript) append(e Entry, fragment template.HTML) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
	t.fragments = append(t.fragments, fragment)
}

// Entries returns a copy of the entries in append order.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// HTML returns the rendered transcript, one fragment per entry.
func (t *Transcript) HTML() template.HTML {
	t.mu.Lock()
	defer t.mu.Unlock()
	var b strings.Builder
	for _, f := range t.fragments {
		b.WriteString(string(f))
		b.WriteByte('\n')
	}
	return template.HTML(b.String()) //nolint:gosec // fragments come from Renderer
}

// WriteDocument writes the transcript as a standalone HTML page.
func (t *Transcript) WriteDocument(w io.Writer) error {
	if err := documentTemplate.Execute(w, t.HTML()); err != nil {
		return fmt.Errorf("widget: write transcript document: %w", err)
	}
	return nil
}
