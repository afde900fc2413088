// Package markup builds the display fragments hooks return from
// on_view and on_hover. Scripts get these helpers as builtins so view
// code never concatenates raw strings; the engine's default view is
// built from the same helpers.
package markup

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
)

var md = goldmark.New()

// Heading renders a section heading. Level is clamped to 1..6.
func Heading(level int, text string) string {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return fmt.Sprintf("<h%d>%s</h%d>", level, html.EscapeString(text), level)
}

// Paragraph renders a paragraph of plain text.
func Paragraph(text string) string {
	return "<p>" + html.EscapeString(text) + "</p>"
}

// LinkTo renders an internal link to another note.
func LinkTo(noteID, label string) string {
	return fmt.Sprintf(`<a href="note://%s">%s</a>`,
		html.EscapeString(noteID), html.EscapeString(label))
}

// Markdown converts markdown source to markup. Used for textarea fields
// in the default view and exposed to scripts directly.
func Markdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// RenderTags renders a note's tag set.
func RenderTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<ul class="tags">`)
	for _, t := range tags {
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(t))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

// Field renders one label/value pair.
func Field(label, value string) string {
	return fmt.Sprintf(`<div class="field"><span class="label">%s</span><span class="value">%s</span></div>`,
		html.EscapeString(label), html.EscapeString(value))
}

// Row is one table row: a label and an already-rendered value fragment.
type Row struct {
	Label string
	Value string // markup, not escaped again
}

// Table renders rows of label/value pairs.
func Table(rows []Row) string {
	var b strings.Builder
	b.WriteString("<table>")
	for _, r := range rows {
		b.WriteString("<tr><th>")
		b.WriteString(html.EscapeString(r.Label))
		b.WriteString("</th><td>")
		b.WriteString(r.Value)
		b.WriteString("</td></tr>")
	}
	b.WriteString("</table>")
	return b.String()
}

// Stack joins fragments vertically.
func Stack(fragments ...string) string {
	var parts []string
	for _, f := range fragments {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, "\n")
}

// Escape exposes plain-text escaping for script code building custom
// fragments.
func Escape(text string) string {
	return html.EscapeString(text)
}
