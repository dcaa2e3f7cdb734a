// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"encoding/json"
	"strings"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// Kind discriminates the payload types the assistant endpoint emits.
type Kind int

const (
	// KindToken carries one incremental text fragment.
	KindToken Kind = iota
	// KindToolStart carries a human-readable status label while the
	// assistant runs a tool (e.g. "looking up product").
	KindToolStart
	// KindDone terminates the turn with intent, suggestions and the
	// escalate flag.
	KindDone
	// KindError terminates the turn with a server-declared failure.
	KindError
	// KindUnknown is a structurally valid payload whose type discriminator
	// this client does not recognize. Callers should log and ignore it so
	// a newer protocol version does not break older clients.
	KindUnknown
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindToolStart:
		return "tool_start"
	case KindDone:
		return "done"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one parsed protocol payload. Only the fields matching Kind are
// meaningful; the rest stay at their zero values.
type Event struct {
	Kind Kind

	// Text is the token fragment (KindToken) or the server-provided error
	// message (KindError).
	Text string

	// Label is the tool status label (KindToolStart).
	Label string

	// Completion metadata (KindDone).
	Intent      string
	Suggestions []string
	Escalate    bool

	// RawType preserves the wire discriminator for KindUnknown logging.
	RawType string
}

// =============================================================================
// EVENT PARSER
// =============================================================================

// dataPrefix marks protocol data lines. Anything else on the stream
// (comments, keep-alives, blank lines) is noise to be skipped.
const dataPrefix = "data:"

// payload mirrors the wire shape of one data line.
type payload struct {
	Type        string   `json:"type"`
	Content     string   `json:"content"`
	Label       string   `json:"label"`
	Intent      string   `json:"intent"`
	Suggestions []string `json:"suggestions"`
	Escalate    bool     `json:"escalate"`
	Message     string   `json:"message"`
}

// ParseEvent maps one decoded line to a typed event.
//
// Lines without the data prefix and payloads that fail to parse are skipped
// (ok == false), never treated as fatal: losing one malformed frame must not
// lose the conversation. A parseable payload with an unrecognized type comes
// back as KindUnknown so the caller can log it.
func ParseEvent(line string) (Event, bool) {
	if !strings.HasPrefix(line, dataPrefix) {
		return Event{}, false
	}
	data := strings.TrimSpace(line[len(dataPrefix):])
	if data == "" {
		return Event{}, false
	}

	var p payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return Event{}, false
	}

	switch p.Type {
	case "token":
		return Event{Kind: KindToken, Text: p.Content}, true
	case "tool_start":
		return Event{Kind: KindToolStart, Label: p.Label}, true
	case "done":
		return Event{
			Kind:        KindDone,
			Intent:      p.Intent,
			Suggestions: p.Suggestions,
			Escalate:    p.Escalate,
		}, true
	case "error":
		return Event{Kind: KindError, Text: p.Message}, true
	case "":
		// A JSON object without a discriminator is malformed, not a
		// future event kind.
		return Event{}, false
	default:
		return Event{Kind: KindUnknown, RawType: p.Type}, true
	}
}
