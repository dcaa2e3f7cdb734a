// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/verdora/verdora-tui/internal/config"
	"github.com/verdora/verdora-tui/internal/model"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamSnapshot is a point-in-time copy of the message being streamed. The
// turn goroutine owns the live message while it streams; the UI only ever
// sees these immutable copies.
type StreamSnapshot struct {
	ID         string
	Content    string
	ToolStatus string
	Status     model.Status
}

// StreamUpdateMsg carries a fresh snapshot of the active turn.
type StreamUpdateMsg struct {
	Snapshot StreamSnapshot
}

// TurnDoneMsg signals that a turn reached a terminal state. The message is
// frozen once terminal, so the UI may read it directly from here on.
type TurnDoneMsg struct {
	Message *model.Message
}

// StreamTickMsg drives the capped-rate re-render while streaming.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// VOICE MESSAGES
// =============================================================================

// TranscriptMsg carries a recognized dictation utterance to append to the
// composer.
type TranscriptMsg struct {
	Text string
}

// =============================================================================
// MISC MESSAGES
// =============================================================================

// ConfigReloadedMsg delivers a hot-reloaded configuration to the UI. Sent
// from the file watcher goroutine through program.Send so the swap happens
// on the event loop.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// StatusNoteMsg shows a transient note in the status bar.
type StatusNoteMsg struct {
	Note string
}

// ExportDoneMsg reports the outcome of a transcript export.
type ExportDoneMsg struct {
	Path string
	Err  error
}
