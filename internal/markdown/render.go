// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"regexp"
	"strings"
)

// =============================================================================
// DIRECTIVE STRIPPING
// =============================================================================

// Suggestion directives are hidden protocol residue some assistant models
// emit inline ("[[suggestions: a | b]]"). They are stripped before any other
// processing. An unterminated directive is stripped to end of input: while
// its closing marker is still streaming in, showing nothing is the safe
// approximation.
var (
	directiveRe     = regexp.MustCompile(`\[\[suggestions?:[^\]]*\]\]`)
	directiveOpenRe = regexp.MustCompile(`\[\[suggestions?:[^\]]*$`)
)

// stripDirectives removes complete and trailing-partial suggestion
// directives.
func stripDirectives(s string) string {
	s = directiveRe.ReplaceAllString(s, "")
	s = directiveOpenRe.ReplaceAllString(s, "")
	return s
}

// =============================================================================
// BLOCK PARSER
// =============================================================================

var (
	numberedRe  = regexp.MustCompile(`^\d+[.)]\s+`)
	separatorRe = regexp.MustCompile(`^[\s|:-]+$`)
)

// Parse turns accumulated raw text into the whitelist node tree. It is pure
// and total: any input, including text truncated mid-construct, produces a
// well-formed tree.
func Parse(raw string) []Node {
	raw = stripDirectives(raw)
	lines := strings.Split(raw, "\n")

	var nodes []Node
	var para []string

	flushPara := func() {
		if len(para) == 0 {
			return
		}
		joined := strings.Join(para, "\n")
		para = nil
		nodes = append(nodes, Node{Kind: NodeParagraph, Spans: parseInline(joined)})
	}

	i := 0
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flushPara()
			i++

		case isTableLine(trimmed):
			flushPara()
			var node Node
			node, i = parseTable(lines, i)
			nodes = append(nodes, node)

		case strings.HasPrefix(trimmed, "### "):
			flushPara()
			nodes = append(nodes, Node{
				Kind:  NodeHeading,
				Level: 3,
				Spans: parseInline(strings.TrimPrefix(trimmed, "### ")),
			})
			i++

		case strings.HasPrefix(trimmed, "## "):
			flushPara()
			nodes = append(nodes, Node{
				Kind:  NodeHeading,
				Level: 2,
				Spans: parseInline(strings.TrimPrefix(trimmed, "## ")),
			})
			i++

		case isBulletLine(trimmed):
			flushPara()
			var items [][]Span
			for i < len(lines) {
				t := strings.TrimSpace(lines[i])
				if !isBulletLine(t) {
					break
				}
				items = append(items, parseInline(t[2:]))
				i++
			}
			nodes = append(nodes, Node{Kind: NodeBulletList, Items: items})

		case numberedRe.MatchString(trimmed):
			flushPara()
			var items [][]Span
			for i < len(lines) {
				t := strings.TrimSpace(lines[i])
				loc := numberedRe.FindString(t)
				if loc == "" {
					break
				}
				items = append(items, parseInline(t[len(loc):]))
				i++
			}
			nodes = append(nodes, Node{Kind: NodeNumberList, Items: items})

		case isRuleLine(trimmed):
			flushPara()
			nodes = append(nodes, Node{Kind: NodeRule})
			i++

		default:
			para = append(para, trimmed)
			i++
		}
	}
	flushPara()

	return nodes
}

// Render is the canonical entry point: full accumulated text in, safe HTML
// markup out. Stateless and idempotent: calling it a thousand times on the
// same content yields byte-identical output.
func Render(raw string) string {
	return renderHTML(Parse(raw))
}

// =============================================================================
// BLOCK CLASSIFIERS
// =============================================================================

// isBulletLine reports "- item" or "* item" bullets. A bare marker without
// content is not yet a bullet (it may become one next token).
func isBulletLine(trimmed string) bool {
	return (strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ")) &&
		len(trimmed) > 2
}

// isTableLine reports a pipe-delimited row.
func isTableLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "|") && strings.Count(trimmed, "|") >= 2
}

// isRuleLine reports a horizontal rule: three or more dashes or asterisks
// and nothing else.
func isRuleLine(trimmed string) bool {
	if len(trimmed) < 3 {
		return false
	}
	dash := strings.Count(trimmed, "-") == len(trimmed)
	star := strings.Count(trimmed, "*") == len(trimmed)
	return dash || star
}

// =============================================================================
// TABLE PARSER
// =============================================================================

// parseTable consumes consecutive pipe rows starting at lines[start] and
// returns the table node plus the index after it.
//
// The separator row (dashes and colons) is optional: when absent, the first
// row is still the header. A table caught mid-stream with only its header
// row renders as a one-row table rather than raw pipes.
func parseTable(lines []string, start int) (Node, int) {
	var rows [][][]Span
	i := start
	sawSeparator := false

	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if !isTableLine(trimmed) {
			break
		}
		if !sawSeparator && len(rows) > 0 && separatorRe.MatchString(trimmed) {
			sawSeparator = true
			i++
			continue
		}
		rows = append(rows, splitRow(trimmed))
		i++
	}

	return Node{Kind: NodeTable, Rows: rows}, i
}

// splitRow splits "| a | b |" into parsed cells, dropping the empty edge
// fields produced by the leading and trailing pipes.
func splitRow(trimmed string) [][]Span {
	parts := strings.Split(trimmed, "|")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}

	cells := make([][]Span, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, parseInline(strings.TrimSpace(p)))
	}
	return cells
}
