// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verdora/verdora-tui/internal/markdown"
	"github.com/verdora/verdora-tui/internal/ui/styles"
)

// =============================================================================
// MARKDOWN -> TERMINAL
// =============================================================================

// Renderer turns the assistant's markdown node tree into styled terminal
// text. It is invoked on every streaming frame, so it avoids allocation
// beyond the output builder and never fails: malformed input degrades to
// plain paragraphs upstream in the parser.
type Renderer struct {
	theme *styles.Theme
	width int
}

// NewRenderer creates a renderer for the given theme and wrap width.
func NewRenderer(theme *styles.Theme, width int) *Renderer {
	if width < 20 {
		width = 20
	}
	return &Renderer{theme: theme, width: width}
}

// SetWidth updates the wrap width after a terminal resize.
func (r *Renderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	r.width = width
}

// Render converts raw assistant markdown into terminal text.
func (r *Renderer) Render(raw string) string {
	nodes := markdown.Parse(raw)
	if len(nodes) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(nodes))
	for _, node := range nodes {
		blocks = append(blocks, r.renderNode(node))
	}
	return strings.Join(blocks, "\n\n")
}

func (r *Renderer) renderNode(node markdown.Node) string {
	switch node.Kind {
	case markdown.NodeHeading:
		return r.renderHeading(node)
	case markdown.NodeBulletList:
		return r.renderList(node, false)
	case markdown.NodeNumberList:
		return r.renderList(node, true)
	case markdown.NodeTable:
		return r.renderTable(node)
	case markdown.NodeRule:
		return r.theme.Rule.Render(strings.Repeat("─", r.width))
	default:
		return r.wrap(r.renderSpans(node.Spans), r.width)
	}
}

func (r *Renderer) renderHeading(node markdown.Node) string {
	prefix := "## "
	if node.Level == 3 {
		prefix = "### "
	}
	return r.theme.Heading.Render(prefix + plainText(node.Spans))
}

func (r *Renderer) renderList(node markdown.Node, numbered bool) string {
	var b strings.Builder
	for i, item := range node.Items {
		if i > 0 {
			b.WriteByte('\n')
		}
		marker := "• "
		if numbered {
			marker = fmt.Sprintf("%d. ", i+1)
		}
		indent := strings.Repeat(" ", runewidth.StringWidth(marker))
		body := r.wrap(r.renderSpans(item), r.width-len(indent))
		lines := strings.Split(body, "\n")
		b.WriteString(marker + lines[0])
		for _, line := range lines[1:] {
			b.WriteString("\n" + indent + line)
		}
	}
	return b.String()
}

// renderTable lays out cells with runewidth-aware padding so accented text
// and the ² in surface areas line up correctly.
func (r *Renderer) renderTable(node markdown.Node) string {
	if len(node.Rows) == 0 {
		return ""
	}

	// Column widths from plain (unstyled) cell text. ANSI escapes from
	// styled spans would inflate len().
	widths := make([]int, 0)
	for _, row := range node.Rows {
		for c, cell := range row {
			w := runewidth.StringWidth(plainText(cell))
			if c >= len(widths) {
				widths = append(widths, w)
			} else if w > widths[c] {
				widths[c] = w
			}
		}
	}

	var b strings.Builder
	for i, row := range node.Rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		cells := make([]string, len(widths))
		for c := range widths {
			text := ""
			styled := ""
			if c < len(row) {
				text = plainText(row[c])
				styled = r.renderSpans(row[c])
			}
			pad := strings.Repeat(" ", widths[c]-runewidth.StringWidth(text))
			if i == 0 {
				styled = r.theme.TableHead.Render(text)
			}
			cells[c] = styled + pad
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		if i == 0 {
			b.WriteByte('\n')
			seps := make([]string, len(widths))
			for c, w := range widths {
				seps[c] = strings.Repeat("─", w)
			}
			b.WriteString(r.theme.Rule.Render(strings.Join(seps, "  ")))
		}
	}
	return b.String()
}

func (r *Renderer) renderSpans(spans []markdown.Span) string {
	var b strings.Builder
	for _, span := range spans {
		switch span.Style {
		case markdown.SpanBold:
			b.WriteString(r.theme.Bold.Render(span.Text))
		case markdown.SpanItalic:
			b.WriteString(r.theme.Italic.Render(span.Text))
		case markdown.SpanBoldItalic:
			b.WriteString(r.theme.Bold.Italic(true).Render(span.Text))
		case markdown.SpanStrike:
			b.WriteString(r.theme.Strike.Render(span.Text))
		case markdown.SpanCode:
			b.WriteString(r.theme.InlineCode.Render(span.Text))
		case markdown.SpanLink:
			b.WriteString(r.theme.Link.Render(span.Text))
			if span.URL != span.Text {
				b.WriteString(" (" + span.URL + ")")
			}
		default:
			b.WriteString(span.Text)
		}
	}
	return b.String()
}

// wrap soft-wraps styled text. lipgloss understands ANSI sequences, so
// styled runs keep their width accounting intact.
func (r *Renderer) wrap(text string, width int) string {
	if width < 10 {
		width = 10
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}

// plainText flattens spans to their raw text, dropping styling.
func plainText(spans []markdown.Span) string {
	var b strings.Builder
	for _, span := range spans {
		b.WriteString(span.Text)
	}
	return b.String()
}
