// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/verdora/verdora-tui/internal/model"
)

// =============================================================================
// STREAM PRINTER
// =============================================================================

// streamPrinter writes a streaming reply to a plain terminal incrementally.
// Every update carries the full accumulated content; the printer emits only
// the suffix it has not written yet, so tokens appear as they arrive without
// redrawing the line.
type streamPrinter struct {
	out        io.Writer
	written    int
	toolShown  string
	anyPrinted bool
}

func newStreamPrinter(out io.Writer) *streamPrinter {
	return &streamPrinter{out: out}
}

// Update prints the unseen part of the message. Tool activity shows as a
// bracketed note on its own line and is not part of the content flow.
func (p *streamPrinter) Update(msg *model.Message) {
	if msg.ToolStatus != "" && msg.ToolStatus != p.toolShown {
		if p.anyPrinted {
			fmt.Fprintln(p.out)
		}
		fmt.Fprintf(p.out, "[%s...]\n", msg.ToolStatus)
		p.toolShown = msg.ToolStatus
	}

	content := msg.ContentText()
	if len(content) > p.written {
		fmt.Fprint(p.out, content[p.written:])
		p.written = len(content)
		p.anyPrinted = true
	}
}

// Finish closes the streamed block with a newline when anything was printed.
func (p *streamPrinter) Finish() {
	if p.anyPrinted {
		fmt.Fprintln(p.out)
	}
}
