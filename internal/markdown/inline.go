// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"strings"
)

// =============================================================================
// INLINE PARSER
// =============================================================================

// parseInline scans one line of text into styled spans.
//
// Resolution order inside the scan: code spans bind tightest (their content
// is never re-parsed), then links, then the emphasis markers from longest to
// shortest so `***` is not mistaken for bold-then-italic. An opening marker
// with no closing counterpart renders as literal text, the safe
// approximation while the closing half is still in flight.
func parseInline(s string) []Span {
	var spans []Span
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			spans = append(spans, Span{Style: SpanText, Text: text.String()})
			text.Reset()
		}
	}

	i := 0
	for i < len(s) {
		switch {
		case s[i] == '`':
			if end := strings.IndexByte(s[i+1:], '`'); end >= 0 {
				flush()
				spans = append(spans, Span{Style: SpanCode, Text: s[i+1 : i+1+end]})
				i += end + 2
				continue
			}
			text.WriteByte(s[i])
			i++

		case s[i] == '[':
			if sp, consumed := parseLink(s[i:]); consumed > 0 {
				flush()
				spans = append(spans, sp)
				i += consumed
				continue
			}
			text.WriteByte(s[i])
			i++

		case strings.HasPrefix(s[i:], "***"):
			if sp, consumed := parseDelimited(s[i:], "***", SpanBoldItalic); consumed > 0 {
				flush()
				spans = append(spans, sp)
				i += consumed
				continue
			}
			text.WriteString("***")
			i += 3

		case strings.HasPrefix(s[i:], "**"):
			if sp, consumed := parseDelimited(s[i:], "**", SpanBold); consumed > 0 {
				flush()
				spans = append(spans, sp)
				i += consumed
				continue
			}
			text.WriteString("**")
			i += 2

		case s[i] == '*':
			if sp, consumed := parseDelimited(s[i:], "*", SpanItalic); consumed > 0 {
				flush()
				spans = append(spans, sp)
				i += consumed
				continue
			}
			text.WriteByte('*')
			i++

		case strings.HasPrefix(s[i:], "~~"):
			if sp, consumed := parseDelimited(s[i:], "~~", SpanStrike); consumed > 0 {
				flush()
				spans = append(spans, sp)
				i += consumed
				continue
			}
			text.WriteString("~~")
			i += 2

		default:
			text.WriteByte(s[i])
			i++
		}
	}

	flush()
	return spans
}

// parseDelimited matches marker…marker with non-empty content and returns
// the span plus the number of bytes consumed, or (zero, 0) when the closing
// marker has not arrived.
func parseDelimited(s, marker string, style SpanStyle) (Span, int) {
	inner := s[len(marker):]
	end := strings.Index(inner, marker)
	if end <= 0 {
		return Span{}, 0
	}
	return Span{Style: style, Text: inner[:end]}, len(marker)*2 + end
}

// parseLink matches [text](url) at the start of s. Only http and https URLs
// qualify; anything else stays literal so the whitelist holds.
func parseLink(s string) (Span, int) {
	closeBracket := strings.IndexByte(s, ']')
	if closeBracket < 0 || closeBracket+1 >= len(s) || s[closeBracket+1] != '(' {
		return Span{}, 0
	}
	closeParen := strings.IndexByte(s[closeBracket+2:], ')')
	if closeParen < 0 {
		return Span{}, 0
	}

	label := s[1:closeBracket]
	url := s[closeBracket+2 : closeBracket+2+closeParen]
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return Span{}, 0
	}

	return Span{Style: SpanLink, Text: label, URL: url}, closeBracket + closeParen + 3
}

// plainText flattens spans back to unstyled text. Used by the table parser
// for cells and by previews.
func plainText(spans []Span) string {
	var sb strings.Builder
	for _, sp := range spans {
		sb.WriteString(sp.Text)
	}
	return sb.String()
}
