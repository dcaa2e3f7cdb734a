// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryWindow is how many trailing messages accompany a new turn as
// context. The window is fixed per session, not per request.
const DefaultHistoryWindow = 10

// =============================================================================
// HISTORY ENTRY
// =============================================================================

// HistoryEntry is the wire projection of one past message: role and content
// only. No local metadata (feedback, intent, status) ever leaks into the
// request context.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session correlates every turn of one conversation. It owns the message
// list, the session identity and the single cancellation slot for the
// in-flight request.
//
// All message mutation happens on one goroutine (the UI event loop); the
// cancellation slot is the only cross-goroutine touch point and carries its
// own mutex.
type Session struct {
	// ID is generated once and stays stable across turns and resets.
	ID        string
	CreatedAt time.Time

	// Messages in chronological, authoritative insertion order.
	Messages []*Message

	windowSize int

	// Single cancellation slot: at most one request is in flight, and a
	// new turn always cancels the previous transport first. The
	// generation counter lets a finishing turn release only its own
	// cancel function, never a successor's.
	cancelMu   sync.Mutex
	cancelFunc context.CancelFunc
	cancelGen  uint64
}

// NewSession creates a session with a fresh identity.
func NewSession() *Session {
	return &Session{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
		windowSize: DefaultHistoryWindow,
	}
}

// NewSessionWithWindow creates a session with a custom history window size.
func NewSessionWithWindow(window int) *Session {
	s := NewSession()
	if window > 0 {
		s.windowSize = window
	}
	return s
}

// =============================================================================
// TURN MANAGEMENT
// =============================================================================

// BeginTurn starts a new turn: it cancels any outstanding request (the
// superseded turn aborts its own message when the cancellation reaches it),
// captures the trailing history window, then appends the user message and
// the pending assistant placeholder.
//
// The returned history reflects the conversation before this turn, ready to
// ride along on the request.
func (s *Session) BeginTurn(text string) (user, assistant *Message, history []HistoryEntry) {
	s.CancelActive()
	history = s.HistoryWindow()

	user = NewUserMessage(text)
	assistant = NewAssistantMessage()
	assistant.Question = text
	s.Messages = append(s.Messages, user, assistant)
	return user, assistant, history
}

// ActiveMessage returns the assistant message currently pending or
// streaming, or nil. The per-session invariant holds exactly one such
// message at most.
func (s *Session) ActiveMessage() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m.Role == RoleAssistant && m.Streaming() {
			return m
		}
	}
	return nil
}

// HistoryWindow projects the trailing window of past messages as role and
// content pairs, oldest first. Unfinished, aborted and errored messages are
// not context: only completed turns travel back to the endpoint.
func (s *Session) HistoryWindow() []HistoryEntry {
	entries := make([]HistoryEntry, 0, s.windowSize)
	for i := len(s.Messages) - 1; i >= 0 && len(entries) < s.windowSize; i-- {
		m := s.Messages[i]
		if m.Status != StatusComplete || m.Content == "" {
			continue
		}
		entries = append(entries, HistoryEntry{
			Role:    m.Role.String(),
			Content: m.Content,
		})
	}
	// Collected newest-first; reverse to chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}

// MessageByID returns the message with the given ID, or nil.
func (s *Session) MessageByID(id string) *Message {
	for _, m := range s.Messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// IndexOf returns the position of a message in the history, or -1. The
// feedback endpoint keys submissions by this index rather than by ID.
func (s *Session) IndexOf(id string) int {
	for i, m := range s.Messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Reset atomically replaces the whole history. The session identity is a
// client-lifetime value and survives the reset.
func (s *Session) Reset() {
	s.CancelActive()
	s.Messages = nil
}

// =============================================================================
// CANCELLATION SLOT
// =============================================================================

// SetCancel stores the cancel function for the request now in flight and
// returns its generation. Any previously stored function is invoked first
// so the transport can never leak.
func (s *Session) SetCancel(fn context.CancelFunc) uint64 {
	s.cancelMu.Lock()
	prev := s.cancelFunc
	s.cancelGen++
	gen := s.cancelGen
	s.cancelFunc = fn
	s.cancelMu.Unlock()

	if prev != nil {
		prev()
	}
	return gen
}

// CancelActive aborts the in-flight request (if any) and clears the slot.
// It touches only the mutex-guarded cancel slot, never the history or the
// streaming message, so any goroutine may call it: the turn that owns the
// request observes context.Canceled and marks its own message aborted.
func (s *Session) CancelActive() {
	s.cancelMu.Lock()
	fn := s.cancelFunc
	s.cancelFunc = nil
	s.cancelMu.Unlock()

	if fn != nil {
		fn()
	}
}

// ClearCancel drops the stored cancel function after the turn that owns
// generation gen finishes, cancelling its context to release resources.
// A stale generation (the slot was already handed to a newer turn) is a
// no-op.
func (s *Session) ClearCancel(gen uint64) {
	s.cancelMu.Lock()
	var fn context.CancelFunc
	if s.cancelGen == gen {
		fn = s.cancelFunc
		s.cancelFunc = nil
	}
	s.cancelMu.Unlock()

	if fn != nil {
		fn()
	}
}
