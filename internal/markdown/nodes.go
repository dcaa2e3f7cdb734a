// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown renders the assistant's streamed text into safe structured
// markup.
//
// The renderer is a pure function over the full accumulated content: it is
// re-invoked on every token, must never panic on truncated input, and emits
// only a fixed whitelist of structural tags. Raw text always passes through
// escaping; the input comes from a remote, only partially trusted source and
// is never concatenated into output verbatim.
package markdown

// =============================================================================
// NODE MODEL
// =============================================================================

// NodeKind enumerates the block-level constructs the renderer can produce.
// The set is closed: output is assembled exclusively from these variants.
type NodeKind int

const (
	NodeParagraph NodeKind = iota
	NodeHeading
	NodeBulletList
	NodeNumberList
	NodeTable
	NodeRule
)

// Node is one block of rendered output.
type Node struct {
	Kind NodeKind

	// Level is the heading level (2 or 3). Only set for NodeHeading.
	Level int

	// Spans is the inline content of a paragraph or heading.
	Spans []Span

	// Items holds one span sequence per list item.
	Items [][]Span

	// Rows holds table cells; Rows[0] is the header row.
	Rows [][][]Span
}

// =============================================================================
// SPAN MODEL
// =============================================================================

// SpanStyle enumerates inline styles.
type SpanStyle int

const (
	SpanText SpanStyle = iota
	SpanBold
	SpanItalic
	SpanBoldItalic
	SpanStrike
	SpanCode
	SpanLink
)

// Span is one inline run of styled text. Text is raw (unescaped) here;
// back-ends escape on output. URL is only set for SpanLink and is always an
// http(s) URL; anything else is demoted to plain text during parsing.
type Span struct {
	Style SpanStyle
	Text  string
	URL   string
}
