// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation data structures and the per-message
// streaming state machine.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/verdora/verdora-tui/internal/sse"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message. The set is closed: the protocol
// never renders system messages.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// =============================================================================
// STATUS TYPE
// =============================================================================

// Status is the lifecycle state of an assistant message.
//
// Transitions:
//
//	pending --first token--> streaming --done--> complete
//	pending|streaming --error event or transport failure--> error
//	pending|streaming --superseded or closed--> aborted
//
// complete, error and aborted are terminal: Apply refuses further events.
type Status int

const (
	StatusPending Status = iota
	StatusStreaming
	StatusComplete
	StatusError
	StatusAborted
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusStreaming:
		return "streaming"
	case StatusComplete:
		return "complete"
	case StatusError:
		return "error"
	case StatusAborted:
		return "aborted"
	default:
		return "invalid"
	}
}

// Terminal reports whether no further mutation is permitted.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError || s == StatusAborted
}

// =============================================================================
// FEEDBACK TYPE
// =============================================================================

// Feedback is the user's thumbs-up/down signal on a completed assistant
// message.
type Feedback string

const (
	FeedbackNone     Feedback = ""
	FeedbackPositive Feedback = "positive"
	FeedbackNegative Feedback = "negative"
)

// IntentUrgent is the classification that always offers a human hand-off.
const IntentUrgent = "urgence"

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single conversation turn half. User messages are created
// complete; assistant messages start pending and accumulate content while
// streaming.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content is the final text. While streaming, tokens accumulate in
	// the builder and Content stays empty; ContentText() reads both.
	// The builder avoids quadratic allocation under per-token appends.
	Content string `json:"content"`
	acc     strings.Builder

	Status Status `json:"status"`

	// ToolStatus is a transient label ("recherche produit") shown while
	// the assistant runs a tool. Cleared by the next token and on
	// completion.
	ToolStatus string `json:"-"`

	// Question is the user text this assistant reply answers, kept so a
	// hand-off card can summarize the topic. Empty on user messages.
	Question string `json:"-"`

	// Completion metadata, attached by the done event only.
	Intent      string   `json:"intent,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Escalated   bool     `json:"escalated,omitempty"`

	// Feedback is settable exactly once per call, overwritable, and only
	// meaningful on complete assistant messages.
	Feedback Feedback `json:"feedback,omitempty"`
}

// NewUserMessage creates a complete user message.
func NewUserMessage(content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleUser,
		Content:   content,
		Status:    StatusComplete,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage creates the pending placeholder for an assistant turn.
func NewAssistantMessage() *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleAssistant,
		Status:    StatusPending,
		Timestamp: time.Now(),
	}
}

// ContentText returns the message text, streamed or final.
func (m *Message) ContentText() string {
	if m.Status == StatusStreaming || m.Status == StatusPending {
		return m.acc.String()
	}
	return m.Content
}

// Streaming reports whether the message is still accumulating tokens.
func (m *Message) Streaming() bool {
	return m.Status == StatusPending || m.Status == StatusStreaming
}

// =============================================================================
// EVENT APPLICATION
// =============================================================================

// Apply mutates the message according to one protocol event. Events against
// a terminal status are ignored, which enforces the no-mutation-after-
// terminal invariant at the single call site that touches message state.
// It returns true when the message changed.
func (m *Message) Apply(ev sse.Event) bool {
	if m.Role != RoleAssistant || m.Status.Terminal() {
		return false
	}

	switch ev.Kind {
	case sse.KindToken:
		if m.Status == StatusPending {
			m.Status = StatusStreaming
		}
		m.acc.WriteString(ev.Text)
		m.ToolStatus = ""
		return true

	case sse.KindToolStart:
		m.ToolStatus = ev.Label
		return true

	case sse.KindDone:
		m.Content = m.acc.String()
		m.acc.Reset()
		m.Status = StatusComplete
		m.ToolStatus = ""
		m.Intent = ev.Intent
		if ev.Suggestions != nil {
			m.Suggestions = ev.Suggestions
		} else {
			m.Suggestions = []string{}
		}
		m.Escalated = ev.Escalate
		return true

	case sse.KindError:
		// The server declared the generation unreliable: partial tokens
		// are discarded, not preserved.
		m.Fail(ev.Text)
		return true

	default:
		// Unknown kinds are forward-compatibility noise.
		return false
	}
}

// Fail moves the message to the error state with the given text, or the
// caller's fallback when empty. No-op on terminal messages.
func (m *Message) Fail(text string) {
	if m.Status.Terminal() {
		return
	}
	m.acc.Reset()
	m.Content = text
	m.Status = StatusError
	m.ToolStatus = ""
}

// Abort marks a superseded or closed turn. Accumulated content is kept for
// display but never grows again. No-op on terminal messages.
func (m *Message) Abort() {
	if m.Status.Terminal() {
		return
	}
	m.Content = m.acc.String()
	m.acc.Reset()
	m.Status = StatusAborted
	m.ToolStatus = ""
}

// SetFeedback records the user's signal. Legal only on complete assistant
// messages; returns false otherwise.
func (m *Message) SetFeedback(fb Feedback) bool {
	if m.Role != RoleAssistant || m.Status != StatusComplete {
		return false
	}
	if fb != FeedbackPositive && fb != FeedbackNegative {
		return false
	}
	m.Feedback = fb
	return true
}

// Preview returns a rune-safe truncated preview of the message content.
func (m *Message) Preview(maxLen int) string {
	content := m.ContentText()
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen-1]) + "…"
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}
