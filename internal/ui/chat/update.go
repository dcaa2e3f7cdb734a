// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verdora/verdora-tui/internal/assistant"
	"github.com/verdora/verdora-tui/internal/export"
	"github.com/verdora/verdora-tui/internal/model"
	"github.com/verdora/verdora-tui/internal/storage"
)

// =============================================================================
// UPDATE LOOP
// =============================================================================

// Update routes Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case StreamUpdateMsg:
		return m.handleStreamUpdate(msg)
	case StreamTickMsg:
		return m.handleStreamTick()
	case TurnDoneMsg:
		return m.handleTurnDone(msg)
	case TranscriptMsg:
		return m.handleTranscript(msg)
	case ExportDoneMsg:
		return m.handleExportDone(msg)
	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)
	case StatusNoteMsg:
		m.statusNote = msg.Note
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	contentWidth := m.width - 4
	m.renderer.SetWidth(contentWidth)
	m.input.Width = m.width - 6

	viewportHeight := m.height - m.chromeHeight()
	if viewportHeight < 3 {
		viewportHeight = 3
	}
	if m.viewport.Width == 0 {
		m.viewport = viewport.New(m.width, viewportHeight)
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = viewportHeight
	}
	m.syncViewport(true)
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.session.CancelActive()
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Cancel):
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if m.state == StateStreaming {
			m.session.CancelActive()
			m.statusNote = "Réponse interrompue"
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keyMap.NewConv):
		return m.handleNewConversation()

	case key.Matches(msg, m.keyMap.Export):
		return m.handleExport()

	case key.Matches(msg, m.keyMap.Voice):
		return m.handleVoiceToggle()

	case key.Matches(msg, m.keyMap.Suggest):
		return m.handleSuggestCycle()

	case key.Matches(msg, m.keyMap.ThumbsUp):
		return m.handleFeedback(model.FeedbackPositive)

	case key.Matches(msg, m.keyMap.ThumbsDn):
		return m.handleFeedback(model.FeedbackNegative)

	case key.Matches(msg, m.keyMap.Up), key.Matches(msg, m.keyMap.Down),
		key.Matches(msg, m.keyMap.PageUp), key.Matches(msg, m.keyMap.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	switch text {
	case "/aide", "/help":
		m.input.Reset()
		m.showHelp = !m.showHelp
		return m, nil
	case "/nouvelle", "/new":
		m.input.Reset()
		return m.handleNewConversation()
	case "/export":
		m.input.Reset()
		return m.handleExport()
	case "/quitter", "/quit":
		m.session.CancelActive()
		return m, tea.Quit
	}

	m.input.Reset()
	m.suggestIndex = -1
	m.statusNote = ""

	if m.state == StateStreaming {
		// A new question supersedes the in-flight turn. Cancel the
		// transport now and start once the old turn has settled; the
		// session must never be mutated from two goroutines.
		m.session.CancelActive()
		m.queuedText = text
		return m, nil
	}
	return m.startTurn(text)
}

func (m Model) handleNewConversation() (tea.Model, tea.Cmd) {
	if m.state == StateStreaming {
		m.session.CancelActive()
	}
	// Synchronous save: Reset empties the message list, so a deferred
	// save would persist nothing. Skipped while a cancelled turn is still
	// settling; the exit-time save covers whatever remains.
	if m.state == StateReady && m.store != nil && len(m.transcript) > 0 {
		if err := m.store.SaveSession(m.session); err != nil && m.logger != nil {
			m.logger.Printf("transcript save failed: %v", err)
		}
	}
	m.session.Reset()
	m.transcript = nil
	m.pendingUser = ""
	m.snapshot = StreamSnapshot{}
	m.handoff = nil
	m.suggestIndex = -1
	m.statusNote = "Nouvelle conversation"
	m.syncViewport(true)
	return m, nil
}

func (m Model) handleExport() (tea.Model, tea.Cmd) {
	if m.state == StateStreaming {
		m.statusNote = "Attendez la fin de la réponse pour exporter"
		return m, nil
	}
	if len(m.transcript) == 0 {
		m.statusNote = "Rien à exporter"
		return m, nil
	}
	stored := storage.Snapshot(m.session)
	opts := export.DefaultOptions()
	opts.Theme = m.cfg.UI.Theme
	return m, func() tea.Msg {
		path, err := export.ExportToFile(stored, export.NewHTMLExporter(opts), opts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}

func (m Model) handleVoiceToggle() (tea.Model, tea.Cmd) {
	if m.voice == nil || !m.voice.Supported() {
		m.statusNote = "Dictée non disponible sur ce poste"
		return m, nil
	}
	m.voice.Toggle()
	if m.voice.Listening() {
		m.statusNote = "Dictée en cours... parlez"
	} else {
		m.statusNote = "Dictée arrêtée"
	}
	return m, nil
}

// handleSuggestCycle rotates the last reply's suggestion chips through the
// composer. A second Tab on the last chip clears the composer again.
func (m Model) handleSuggestCycle() (tea.Model, tea.Cmd) {
	last := m.lastCompleteReply()
	if last == nil || len(last.Suggestions) == 0 {
		return m, nil
	}
	m.suggestIndex++
	if m.suggestIndex >= len(last.Suggestions) {
		m.suggestIndex = -1
		m.input.Reset()
		return m, nil
	}
	m.input.SetValue(last.Suggestions[m.suggestIndex])
	m.input.CursorEnd()
	return m, nil
}

func (m Model) handleFeedback(fb model.Feedback) (tea.Model, tea.Cmd) {
	if m.state == StateStreaming {
		// The turn goroutine owns the session until TurnDoneMsg.
		return m, nil
	}
	last := m.lastCompleteReply()
	if last == nil {
		return m, nil
	}
	// SendFeedback mutates the message and indexes the session, so it
	// runs here on the event loop; only the POST leaves this goroutine.
	if err := m.client.SendFeedback(m.session, last, fb); err != nil {
		return m, nil
	}
	m.statusNote = "Merci pour votre avis !"
	m.syncViewport(false)
	return m, clearNoteCmd()
}

// =============================================================================
// TURN LIFECYCLE
// =============================================================================

// startTurn launches one request round-trip on its own goroutine. The
// session is handed to that goroutine until TurnDoneMsg comes back.
func (m Model) startTurn(text string) (tea.Model, tea.Cmd) {
	m.state = StateStreaming
	m.pendingUser = text
	m.snapshot = StreamSnapshot{}
	m.gate.Reset()
	m.handoff = nil
	m.syncViewport(true)

	// A snapshot from the previous turn may still sit in the buffer;
	// drop it so the first update this turn delivers is its own.
	select {
	case <-m.updates:
	default:
	}

	sess, client := m.session, m.client
	updates, done := m.updates, m.done

	go func() {
		onUpdate := func(msg *model.Message) {
			snap := StreamSnapshot{
				ID:         msg.ID,
				Content:    msg.ContentText(),
				ToolStatus: msg.ToolStatus,
				Status:     msg.Status,
			}
			// Latest-wins: a dropped intermediate snapshot is
			// subsumed by the next one.
			select {
			case updates <- snap:
			default:
				select {
				case <-updates:
				default:
				}
				select {
				case updates <- snap:
				default:
				}
			}
		}
		done <- client.Send(context.Background(), sess, text, onUpdate)
	}()

	return m, tea.Batch(m.waitForUpdate(), streamTickCmd(), m.spinner.Tick)
}

// waitForUpdate blocks on the next streaming event. The terminal message
// takes priority so a buffered snapshot cannot delay turn completion.
func (m Model) waitForUpdate() tea.Cmd {
	updates, done := m.updates, m.done
	return func() tea.Msg {
		select {
		case final := <-done:
			return TurnDoneMsg{Message: final}
		case snap := <-updates:
			return StreamUpdateMsg{Snapshot: snap}
		}
	}
}

func (m Model) handleStreamUpdate(msg StreamUpdateMsg) (tea.Model, tea.Cmd) {
	m.gate.Put(msg.Snapshot)
	if msg.Snapshot.Status.Terminal() {
		// The turn just settled; bypass the frame interval so the last
		// tokens are never held back.
		if snap, ok := m.gate.ForceTake(); ok {
			m.snapshot = snap
			m.syncViewport(true)
		}
	}
	return m, m.waitForUpdate()
}

func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}
	if snap, ok := m.gate.Take(); ok {
		m.snapshot = snap
		m.syncViewport(true)
	}
	return m, streamTickCmd()
}

func (m Model) handleTurnDone(msg TurnDoneMsg) (tea.Model, tea.Cmd) {
	m.state = StateReady
	m.pendingUser = ""
	m.snapshot = StreamSnapshot{}
	m.gate.Reset()

	// The turn goroutine has exited; the session is ours again.
	m.transcript = m.session.Messages
	m.suggestIndex = -1
	m.refreshHandoff()
	m.syncViewport(true)

	// Saving here, before any queued turn hands the session to a new
	// goroutine, keeps the store reading a quiescent message list. Local
	// SQLite writes are cheap enough to do inline.
	if m.store != nil && len(m.transcript) > 0 {
		if err := m.store.SaveSession(m.session); err != nil && m.logger != nil {
			m.logger.Printf("transcript save failed: %v", err)
		}
	}

	if m.queuedText != "" {
		text := m.queuedText
		m.queuedText = ""
		return m.startTurn(text)
	}
	return m, nil
}

// =============================================================================
// VOICE AND EXPORT EVENTS
// =============================================================================

func (m Model) handleTranscript(msg TranscriptMsg) (tea.Model, tea.Cmd) {
	if text := strings.TrimSpace(msg.Text); text != "" {
		current := m.input.Value()
		if current != "" && !strings.HasSuffix(current, " ") {
			current += " "
		}
		m.input.SetValue(current + text)
		m.input.CursorEnd()
		m.statusNote = "Transcription insérée, Entrée pour envoyer"
	}
	return m, m.waitForTranscript()
}

func (m Model) waitForTranscript() tea.Cmd {
	transcripts := m.transcripts
	return func() tea.Msg {
		return TranscriptMsg{Text: <-transcripts}
	}
}

// handleConfigReloaded swaps in a hot-reloaded configuration. Contact
// details feed the hand-off card, so it is re-derived immediately; an
// endpoint change rebuilds the client for the next turn.
func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Config == nil {
		return m, nil
	}
	if msg.Config.Assistant.BaseURL != m.cfg.Assistant.BaseURL ||
		msg.Config.Assistant.TimeoutSecs != m.cfg.Assistant.TimeoutSecs {
		m.client = assistant.NewClient(assistant.Options{
			BaseURL: msg.Config.Assistant.BaseURL,
			Timeout: time.Duration(msg.Config.Assistant.TimeoutSecs) * time.Second,
			Metadata: map[string]string{
				"page": msg.Config.Assistant.Page,
			},
			Logger: m.logger,
		})
	}
	m.cfg = msg.Config
	m.refreshHandoff()
	m.syncViewport(false)
	m.statusNote = "Configuration rechargée"
	return m, clearNoteCmd()
}

func (m Model) handleExportDone(msg ExportDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.statusNote = "Export impossible : " + msg.Err.Error()
	} else {
		m.statusNote = "Conversation exportée vers " + msg.Path
	}
	return m, clearNoteCmd()
}

// clearNoteCmd fades a transient note after a few seconds.
func clearNoteCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return StatusNoteMsg{Note: ""}
	})
}
