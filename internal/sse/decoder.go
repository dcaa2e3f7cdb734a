// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse turns the assistant endpoint's streaming response body into
// typed protocol events. It is split into two layers: LineDecoder reassembles
// complete text lines from arbitrarily-split byte chunks, and ParseEvent maps
// one line to one typed event.
package sse

import (
	"bytes"
	"strings"
)

// =============================================================================
// LINE DECODER
// =============================================================================

// LineDecoder reassembles complete lines from a chunked byte stream.
//
// The HTTP transport may hand us chunks split at any byte offset, including
// in the middle of a multi-byte UTF-8 sequence. Because UTF-8 continuation
// bytes can never equal '\n', splitting on newline bytes is safe: a partial
// rune simply stays in the buffer until the chunk that completes its line
// arrives. No line is emitted before its terminating newline is seen.
type LineDecoder struct {
	// buf holds the trailing partial line between Write calls.
	buf bytes.Buffer
}

// NewLineDecoder creates an empty decoder.
func NewLineDecoder() *LineDecoder {
	return &LineDecoder{}
}

// Write consumes one chunk and returns every line completed by it, in order.
// Trailing '\r' is stripped so CRLF and LF streams decode identically.
// The final partial line (if any) is retained for the next call.
func (d *LineDecoder) Write(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	d.buf.Write(chunk)

	var lines []string
	for {
		data := d.buf.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimRight(data[:idx], "\r")
		lines = append(lines, string(line))
		d.buf.Next(idx + 1)
	}
	return lines
}

// Flush returns the buffered remainder as a final line, if non-empty.
// Call once when the stream ends; the decoder is reusable afterwards.
func (d *LineDecoder) Flush() (string, bool) {
	if d.buf.Len() == 0 {
		return "", false
	}
	line := strings.TrimRight(d.buf.String(), "\r")
	d.buf.Reset()
	if line == "" {
		return "", false
	}
	return line, true
}

// Pending reports how many bytes are held back waiting for a newline.
func (d *LineDecoder) Pending() int {
	return d.buf.Len()
}

// Reset discards any buffered partial line.
func (d *LineDecoder) Reset() {
	d.buf.Reset()
}
