// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/verdora/verdora-tui/internal/markdown"
	"github.com/verdora/verdora-tui/internal/storage"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports transcripts to a standalone HTML page with embedded
// CSS. Assistant content is rendered through the whitelist markdown
// transform; user content is escaped verbatim.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// FileExtension returns ".html".
func (e *HTMLExporter) FileExtension() string { return ".html" }

// Export converts a transcript to HTML.
func (e *HTMLExporter) Export(sess *storage.StoredSession) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if len(sess.Messages) == 0 {
		return nil, fmt.Errorf("session has no messages")
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"fr\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(sess.Summary)))
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", sess.CreatedAt.Format(time.RFC3339)))
	sb.WriteString(pageCSS)
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", html.EscapeString(e.options.Theme)))
	sb.WriteString("<div class=\"container\">\n")

	sb.WriteString("<header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("<h1>%s</h1>\n", html.EscapeString(sess.Summary)))
	sb.WriteString(fmt.Sprintf("<p class=\"meta\">Conversation du %s</p>\n",
		sess.CreatedAt.Format("02/01/2006 15:04")))
	sb.WriteString("</header>\n")

	sb.WriteString("<main class=\"conversation\">\n")
	for i := range sess.Messages {
		e.writeMessage(&sb, &sess.Messages[i])
	}
	sb.WriteString("</main>\n")

	sb.WriteString("<footer class=\"footer\">Export Verdora</footer>\n")
	sb.WriteString("</div>\n</body>\n</html>\n")
	return []byte(sb.String()), nil
}

func (e *HTMLExporter) writeMessage(sb *strings.Builder, msg *storage.StoredMessage) {
	role := "user"
	label := "Client"
	if msg.Role == "assistant" {
		role = "assistant"
		label = "Assistant"
	}

	sb.WriteString(fmt.Sprintf("<section class=\"message %s\">\n", role))
	sb.WriteString("<div class=\"role\">" + label)
	if e.options.IncludeTimestamps {
		sb.WriteString(fmt.Sprintf(" <time>%s</time>", msg.Timestamp.Format("15:04")))
	}
	sb.WriteString("</div>\n")

	sb.WriteString("<div class=\"content\">\n")
	if msg.Role == "assistant" {
		// Same whitelist transform as the live chat view.
		sb.WriteString(markdown.Render(msg.Content))
	} else {
		sb.WriteString("<p>" + strings.ReplaceAll(html.EscapeString(msg.Content), "\n", "<br/>") + "</p>")
	}
	sb.WriteString("\n</div>\n")

	if msg.Role == "assistant" && msg.Feedback != "" {
		sb.WriteString(fmt.Sprintf("<div class=\"feedback\">Avis : %s</div>\n",
			html.EscapeString(msg.Feedback)))
	}
	sb.WriteString("</section>\n")
}

// pageCSS is the embedded stylesheet for exported pages.
const pageCSS = `    <style>
        body { font-family: system-ui, sans-serif; margin: 0; background: #f5f3ee; color: #22301f; }
        body.dark-theme { background: #1c211a; color: #e4e7de; }
        .container { max-width: 760px; margin: 0 auto; padding: 24px; }
        .header h1 { font-size: 1.4rem; margin-bottom: 4px; }
        .meta { color: #6b7a63; font-size: 0.85rem; }
        .message { margin: 16px 0; padding: 12px 16px; border-radius: 8px; }
        .message.user { background: #e3ead9; }
        .message.assistant { background: #ffffff; border: 1px solid #d8ddd0; }
        .dark-theme .message.user { background: #2b3427; }
        .dark-theme .message.assistant { background: #242b21; border-color: #39422f; }
        .role { font-weight: 600; font-size: 0.8rem; text-transform: uppercase; margin-bottom: 8px; }
        .role time { font-weight: 400; color: #6b7a63; margin-left: 6px; }
        .content table { border-collapse: collapse; margin: 8px 0; }
        .content th, .content td { border: 1px solid #c9d0bf; padding: 4px 10px; text-align: left; }
        .content code { background: #edf0e6; padding: 1px 4px; border-radius: 3px; }
        .feedback { font-size: 0.8rem; color: #6b7a63; margin-top: 8px; }
        .footer { text-align: center; color: #9aa58e; font-size: 0.75rem; margin-top: 32px; }
    </style>
`
