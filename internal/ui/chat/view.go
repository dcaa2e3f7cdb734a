// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verdora/verdora-tui/internal/model"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the complete conversation screen.
// Layout: header (1 line) + transcript (viewport) + chips/card (variable) +
// input (3 lines) + status bar (1 line).
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Chargement..."
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	sections := []string{
		m.renderHeader(),
		m.viewport.View(),
	}
	if chips := m.renderSuggestions(); chips != "" {
		sections = append(sections, chips)
	}
	if card := m.renderHandoffCard(); card != "" {
		sections = append(sections, card)
	}
	sections = append(sections, m.renderInput(), m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// chromeHeight is the number of terminal rows everything except the
// transcript viewport occupies. Keep in sync with View.
func (m Model) chromeHeight() int {
	h := 1 + 3 + 1 // header, input, status bar
	if m.renderSuggestions() != "" {
		h += 3
	}
	if m.handoff != nil {
		h += lipgloss.Height(m.renderHandoffCard())
	}
	return h
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	brand := m.theme.HeaderBrand.Render("🌿 Verdora")
	title := m.theme.Header.Render("Assistant jardin")
	return lipgloss.JoinHorizontal(lipgloss.Center, brand, title)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// syncViewport re-renders the transcript into the viewport. gotoBottom keeps
// the view pinned to the newest content, which is what streaming wants;
// feedback marks redraw in place without stealing the scroll position.
func (m *Model) syncViewport(gotoBottom bool) {
	if m.viewport.Width == 0 {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	if gotoBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderTranscript() string {
	var blocks []string
	for _, msg := range m.transcript {
		if block := m.renderMessage(msg); block != "" {
			blocks = append(blocks, block)
		}
	}
	if m.pendingUser != "" {
		blocks = append(blocks, m.renderUserBlock(m.pendingUser))
	}
	if m.state == StateStreaming {
		blocks = append(blocks, m.renderStreamingBlock())
	}
	if len(blocks) == 0 {
		return m.renderEmptyState()
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderMessage(msg *model.Message) string {
	switch {
	case msg.Role == model.RoleUser:
		return m.renderUserBlock(msg.ContentText())
	case msg.Status == model.StatusComplete:
		return m.renderAssistantBlock(msg)
	case msg.Status == model.StatusError:
		return m.theme.RoleLabel.Render("Assistant") + "\n" +
			m.theme.ErrorBubble.Width(m.bubbleWidth()).Render(msg.ContentText())
	case msg.Status == model.StatusAborted:
		return m.renderAbortedBlock(msg)
	default:
		// A pending or streaming message in the settled transcript
		// means the turn goroutine still owns it; skip it here.
		return ""
	}
}

func (m *Model) renderUserBlock(text string) string {
	label := m.theme.RoleLabel.Render("Vous")
	bubble := m.theme.UserBubble.Width(m.bubbleWidth()).Render(text)
	return label + "\n" + bubble
}

func (m *Model) renderAssistantBlock(msg *model.Message) string {
	label := m.theme.RoleLabel.Render("Assistant")
	if msg.Feedback != model.FeedbackNone {
		mark := "👍"
		if msg.Feedback == model.FeedbackNegative {
			mark = "👎"
		}
		label += " " + m.theme.FeedbackMark.Render(mark)
	}
	body := m.renderer.Render(msg.ContentText())
	return label + "\n" + m.theme.AssistantBubble.Width(m.bubbleWidth()).Render(body)
}

func (m *Model) renderAbortedBlock(msg *model.Message) string {
	label := m.theme.RoleLabel.Render("Assistant")
	note := m.theme.AbortedNote.Render("Réponse interrompue")
	if partial := msg.ContentText(); partial != "" {
		body := m.renderer.Render(partial)
		return label + "\n" + m.theme.AssistantBubble.Width(m.bubbleWidth()).Render(body) + "\n" + note
	}
	return label + "\n" + note
}

// renderStreamingBlock shows the in-flight reply from the latest snapshot.
func (m *Model) renderStreamingBlock() string {
	label := m.theme.RoleLabel.Render("Assistant")

	var parts []string
	if m.snapshot.Content != "" {
		parts = append(parts, m.renderer.Render(m.snapshot.Content))
	}
	switch {
	case m.snapshot.ToolStatus != "":
		parts = append(parts, m.theme.ToolStatus.Render(m.spinner.View()+" "+m.snapshot.ToolStatus))
	case m.snapshot.Content == "":
		parts = append(parts, m.theme.ToolStatus.Render(m.spinner.View()+" L'assistant réfléchit..."))
	default:
		parts = append(parts, m.spinner.View())
	}

	body := strings.Join(parts, "\n")
	return label + "\n" + m.theme.AssistantBubble.Width(m.bubbleWidth()).Render(body)
}

func (m *Model) renderEmptyState() string {
	lines := []string{
		"",
		m.theme.HeaderBrand.Render("Bienvenue chez Verdora !"),
		"",
		"Posez une question sur vos plantations, semis,",
		"traitements ou aménagements de jardin.",
		"",
		m.theme.ShortcutDesc.Render("Exemple : Quel dosage d'engrais pour 500 m² de gazon ?"),
	}
	return lipgloss.NewStyle().
		Width(m.viewport.Width).
		Align(lipgloss.Center).
		Render(strings.Join(lines, "\n"))
}

func (m Model) bubbleWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

// =============================================================================
// SUGGESTIONS AND HAND-OFF
// =============================================================================

func (m Model) renderSuggestions() string {
	if m.state == StateStreaming || !m.cfg.UI.ShowSuggestions {
		return ""
	}
	last := m.lastCompleteReply()
	if last == nil || len(last.Suggestions) == 0 {
		return ""
	}
	chips := make([]string, 0, len(last.Suggestions))
	for i, s := range last.Suggestions {
		style := m.theme.SuggestionChip
		if i == m.suggestIndex {
			style = m.theme.SuggestionSelected
		}
		chips = append(chips, style.Render(s))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, chips...)
}

func (m Model) renderHandoffCard() string {
	if m.handoff == nil {
		return ""
	}
	lines := []string{
		m.theme.EscalationTitle.Render("🧑‍🌾 Parlez à un conseiller"),
		"Téléphone : " + m.handoff.Phone,
	}
	if m.handoff.WhatsAppLink != "" {
		lines = append(lines, "WhatsApp  : "+m.theme.Link.Render(m.handoff.WhatsAppLink))
	}
	return m.theme.EscalationCard.Width(m.bubbleWidth()).Render(strings.Join(lines, "\n"))
}

// =============================================================================
// INPUT AND STATUS BAR
// =============================================================================

func (m Model) renderInput() string {
	var voice string
	if m.voice != nil && m.voice.Listening() {
		voice = " " + m.theme.VoiceActive.Render("● micro")
	}
	return m.theme.InputContainer.Width(m.width - 2).Render(m.input.View() + voice)
}

func (m Model) renderStatusBar() string {
	if m.statusNote != "" {
		return m.theme.StatusBar.Width(m.width).Render(m.statusNote)
	}

	shortcuts := []struct{ k, d string }{
		{"Entrée", "envoyer"},
		{"Tab", "suggestions"},
		{"C-t", "dictée"},
		{"C-e", "exporter"},
		{"C-n", "nouveau"},
		{"/aide", "aide"},
	}
	parts := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		parts = append(parts, m.theme.ShortcutKey.Render(s.k)+" "+m.theme.ShortcutDesc.Render(s.d))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

func (m Model) renderHelpOverlay() string {
	rows := []struct{ k, d string }{
		{"Entrée", "Envoyer la question"},
		{"Échap", "Interrompre la réponse en cours"},
		{"Tab", "Parcourir les suggestions"},
		{"F5 / F6", "Donner un avis 👍 / 👎"},
		{"Ctrl+T", "Activer ou arrêter la dictée vocale"},
		{"Ctrl+E", "Exporter la conversation en HTML"},
		{"Ctrl+N", "Nouvelle conversation"},
		{"↑ ↓ PgUp PgDn", "Faire défiler l'historique"},
		{"Ctrl+C", "Quitter"},
	}

	var b strings.Builder
	b.WriteString(m.theme.HeaderBrand.Render("Aide Verdora") + "\n\n")
	for _, r := range rows {
		b.WriteString(m.theme.ShortcutKey.Render(padRight(r.k, 14)))
		b.WriteString(" " + r.d + "\n")
	}
	b.WriteString("\n" + m.theme.ShortcutDesc.Render("Échap pour fermer"))

	box := m.theme.AssistantBubble.Padding(1, 2).Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func padRight(s string, width int) string {
	for len([]rune(s)) < width {
		s += " "
	}
	return s
}
