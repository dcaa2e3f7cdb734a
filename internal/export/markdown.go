// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/verdora/verdora-tui/internal/storage"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts as plain Markdown documents.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string { return ".md" }

// Export converts a transcript to Markdown.
func (e *MarkdownExporter) Export(sess *storage.StoredSession) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if len(sess.Messages) == 0 {
		return nil, fmt.Errorf("session has no messages")
	}

	var sb strings.Builder
	sb.WriteString("# " + sanitizeHeading(sess.Summary) + "\n\n")
	sb.WriteString("Conversation du " + sess.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range sess.Messages {
		label := "**Client**"
		if msg.Role == "assistant" {
			label = "**Assistant**"
		}
		sb.WriteString(label)
		if e.options.IncludeTimestamps {
			sb.WriteString(" (" + msg.Timestamp.Format("15:04") + ")")
		}
		sb.WriteString(" :\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}
	return []byte(sb.String()), nil
}

// sanitizeHeading keeps a summary on a single heading line.
func sanitizeHeading(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	if s == "" {
		return "Conversation"
	}
	return s
}
