// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the conversation view of the Verdora terminal
// assistant. One Bubble Tea model owns the whole screen: transcript
// viewport, composer, suggestion chips, hand-off card and status bar.
//
// Threading model: the session is only ever mutated by the turn goroutine
// inside assistant.Send, which publishes immutable StreamSnapshot copies
// over a channel. The Bubble Tea loop renders from snapshots during a turn
// and only touches the session again once the terminal message arrives.
package chat

import (
	"log"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verdora/verdora-tui/internal/assistant"
	"github.com/verdora/verdora-tui/internal/config"
	"github.com/verdora/verdora-tui/internal/escalate"
	"github.com/verdora/verdora-tui/internal/model"
	"github.com/verdora/verdora-tui/internal/storage"
	"github.com/verdora/verdora-tui/internal/ui/styles"
	"github.com/verdora/verdora-tui/internal/voice"
)

// =============================================================================
// CHAT STATE
// =============================================================================

type State int

const (
	StateReady     State = iota // Waiting for input
	StateStreaming              // A turn is in flight
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the conversation screen.
type Model struct {
	// State
	state State

	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int

	// Conversation
	session *model.Session

	// Back-end
	client *assistant.Client
	voice  *voice.Adapter
	store  *storage.TranscriptStore // nil when storage is disabled
	cfg    *config.Config
	logger *log.Logger

	// Streaming plumbing. The turn goroutine publishes into updates and
	// done; the gate rations how often a snapshot reaches the renderer.
	updates  chan StreamSnapshot
	done     chan *model.Message
	gate     *SnapshotGate
	snapshot StreamSnapshot

	// transcript is the UI's view of settled messages. While a turn is in
	// flight the session belongs to the turn goroutine, so the UI renders
	// this stale slice plus pendingUser and the live snapshot, and only
	// re-adopts session.Messages on TurnDoneMsg.
	transcript  []*model.Message
	pendingUser string

	// queuedText holds a question submitted while the previous turn was
	// still settling. It starts as soon as the old turn reports done.
	queuedText string

	// Voice transcripts cross from the recognition goroutine here.
	transcripts chan string

	// Rendering
	renderer *Renderer

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Key bindings
	keyMap KeyMap

	// Suggestion chips from the last complete reply. suggestIndex is -1
	// when no chip is selected.
	suggestIndex int

	// Hand-off card derived from the last complete reply.
	handoff *Handoff

	// Transient status line and help overlay
	statusNote string
	showHelp   bool
}

// Handoff pairs the derived contact channels with the reply they belong to.
type Handoff struct {
	escalate.Handoff
	MessageID string
}

// New creates the conversation model.
func New(cfg *config.Config, client *assistant.Client, voiceAdapter *voice.Adapter, store *storage.TranscriptStore, theme *styles.Theme, logger *log.Logger) Model {
	ti := textinput.New()
	ti.Prompt = "❯ "
	ti.Placeholder = "Posez votre question jardin..."
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return Model{
		state:        StateReady,
		theme:        theme,
		session:      model.NewSessionWithWindow(cfg.Assistant.HistoryWindow),
		client:       client,
		voice:        voiceAdapter,
		store:        store,
		cfg:          cfg,
		logger:       logger,
		updates:      make(chan StreamSnapshot, 1),
		done:         make(chan *model.Message, 1),
		gate:         NewSnapshotGate(),
		transcripts:  make(chan string, 4),
		renderer:     NewRenderer(theme, 80),
		input:        ti,
		spinner:      sp,
		keyMap:       DefaultKeyMap(),
		suggestIndex: -1,
	}
}

// OnTranscript is the voice adapter callback. It runs on the recognition
// goroutine and must not touch the model; the transcript crosses over the
// channel and surfaces as a TranscriptMsg.
func (m *Model) OnTranscript(text string) {
	select {
	case m.transcripts <- text:
	default:
		// A stale transcript the user never consumed is discarded
		// rather than blocking the recognizer.
	}
}

// Session exposes the conversation for persistence at shutdown.
func (m *Model) Session() *model.Session {
	return m.session
}

// SetVoice attaches the dictation adapter. The adapter's callback needs the
// model's transcript channel, so it is built after the model and wired here.
func (m *Model) SetVoice(a *voice.Adapter) {
	m.voice = a
}

// Init starts the spinner and the transcript listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.waitForTranscript(),
	)
}

// lastCompleteReply returns the most recent assistant message that finished
// successfully, or nil. Suggestions, feedback keys and the hand-off card
// all anchor to this message. It scans the settled transcript, not the live
// session, so it stays safe while a turn goroutine owns the session.
func (m *Model) lastCompleteReply() *model.Message {
	for i := len(m.transcript) - 1; i >= 0; i-- {
		msg := m.transcript[i]
		if msg.Role == model.RoleAssistant && msg.Status == model.StatusComplete {
			return msg
		}
	}
	return nil
}

// contact builds the escalation contact from the live configuration.
func (m *Model) contact() escalate.Contact {
	return escalate.Contact{
		Phone:    m.cfg.Contact.Phone,
		WhatsApp: m.cfg.Contact.WhatsApp,
	}
}

// refreshHandoff recomputes the hand-off card after a turn settles or the
// configuration reloads. The card is derived, never cached on the message.
func (m *Model) refreshHandoff() {
	last := m.lastCompleteReply()
	h := escalate.Derive(last, m.contact())
	if h == nil {
		m.handoff = nil
		return
	}
	m.handoff = &Handoff{Handoff: *h, MessageID: last.ID}
}
