// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"html"
	"strings"
)

// =============================================================================
// HTML BACK-END
// =============================================================================

// renderHTML serializes the node tree to markup built exclusively from the
// whitelist tag set: p, h2, h3, ul, ol, li, table, thead, tbody, tr, th, td,
// strong, em, del, code, a, hr, br. Every piece of source text goes through
// html.EscapeString; attacker markup can only ever come out as text.
func renderHTML(nodes []Node) string {
	var sb strings.Builder

	for _, n := range nodes {
		switch n.Kind {
		case NodeParagraph:
			sb.WriteString("<p>")
			writeSpans(&sb, n.Spans)
			sb.WriteString("</p>")

		case NodeHeading:
			tag := "h2"
			if n.Level == 3 {
				tag = "h3"
			}
			sb.WriteString("<" + tag + ">")
			writeSpans(&sb, n.Spans)
			sb.WriteString("</" + tag + ">")

		case NodeBulletList:
			sb.WriteString("<ul>")
			for _, item := range n.Items {
				sb.WriteString("<li>")
				writeSpans(&sb, item)
				sb.WriteString("</li>")
			}
			sb.WriteString("</ul>")

		case NodeNumberList:
			sb.WriteString("<ol>")
			for _, item := range n.Items {
				sb.WriteString("<li>")
				writeSpans(&sb, item)
				sb.WriteString("</li>")
			}
			sb.WriteString("</ol>")

		case NodeTable:
			writeTable(&sb, n.Rows)

		case NodeRule:
			sb.WriteString("<hr/>")
		}
	}

	return sb.String()
}

// writeTable writes header and body rows. The first row is always the
// header, separator row or not.
func writeTable(sb *strings.Builder, rows [][][]Span) {
	if len(rows) == 0 {
		return
	}

	sb.WriteString("<table><thead><tr>")
	for _, cell := range rows[0] {
		sb.WriteString("<th>")
		writeSpans(sb, cell)
		sb.WriteString("</th>")
	}
	sb.WriteString("</tr></thead>")

	if len(rows) > 1 {
		sb.WriteString("<tbody>")
		for _, row := range rows[1:] {
			sb.WriteString("<tr>")
			for _, cell := range row {
				sb.WriteString("<td>")
				writeSpans(sb, cell)
				sb.WriteString("</td>")
			}
			sb.WriteString("</tr>")
		}
		sb.WriteString("</tbody>")
	}
	sb.WriteString("</table>")
}

// writeSpans serializes inline spans. Soft line breaks inside a paragraph
// surface as <br/>.
func writeSpans(sb *strings.Builder, spans []Span) {
	for _, sp := range spans {
		switch sp.Style {
		case SpanBold:
			sb.WriteString("<strong>" + escape(sp.Text) + "</strong>")
		case SpanItalic:
			sb.WriteString("<em>" + escape(sp.Text) + "</em>")
		case SpanBoldItalic:
			sb.WriteString("<strong><em>" + escape(sp.Text) + "</em></strong>")
		case SpanStrike:
			sb.WriteString("<del>" + escape(sp.Text) + "</del>")
		case SpanCode:
			sb.WriteString("<code>" + escape(sp.Text) + "</code>")
		case SpanLink:
			// rel and target are the outbound-link affordance: streamed
			// links never navigate the embedding page itself.
			sb.WriteString(`<a href="` + html.EscapeString(sp.URL) + `" target="_blank" rel="noopener noreferrer">`)
			sb.WriteString(escape(sp.Text))
			sb.WriteString("</a>")
		default:
			sb.WriteString(escape(sp.Text))
		}
	}
}

// escape HTML-escapes text and turns embedded newlines into <br/>.
func escape(s string) string {
	escaped := html.EscapeString(s)
	return strings.ReplaceAll(escaped, "\n", "<br/>")
}
