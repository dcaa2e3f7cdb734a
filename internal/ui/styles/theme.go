// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderBrand lipgloss.Style

	// Message bubbles
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	RoleLabel       lipgloss.Style
	ToolStatus      lipgloss.Style
	ErrorBubble     lipgloss.Style
	AbortedNote     lipgloss.Style

	// Markdown rendering
	Heading    lipgloss.Style
	Bold       lipgloss.Style
	Italic     lipgloss.Style
	Strike     lipgloss.Style
	InlineCode lipgloss.Style
	Link       lipgloss.Style
	TableHead  lipgloss.Style
	Rule       lipgloss.Style

	// Chips and cards
	SuggestionChip     lipgloss.Style
	SuggestionSelected lipgloss.Style
	EscalationCard     lipgloss.Style
	EscalationTitle    lipgloss.Style
	FeedbackMark       lipgloss.Style

	// Input area
	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	VoiceActive    lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// Spinner
	Spinner lipgloss.Style
}

// NewTheme builds the theme for the detected terminal.
func NewTheme(dark bool) *Theme {
	t := &Theme{
		IsDark:       dark,
		ColorProfile: termenv.ColorProfile(),
	}

	t.Header = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 1)
	t.HeaderBrand = lipgloss.NewStyle().
		Foreground(Leaf).
		Bold(true)

	t.UserBubble = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(LeafDeep).
		Padding(0, 1)
	t.AssistantBubble = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Moss).
		Padding(0, 1)
	t.RoleLabel = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)
	t.ToolStatus = lipgloss.NewStyle().
		Foreground(Sun).
		Italic(true)
	t.ErrorBubble = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Foreground(Rose).
		Padding(0, 1)
	t.AbortedNote = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.Heading = lipgloss.NewStyle().Foreground(Leaf).Bold(true)
	t.Bold = lipgloss.NewStyle().Bold(true)
	t.Italic = lipgloss.NewStyle().Italic(true)
	t.Strike = lipgloss.NewStyle().Strikethrough(true)
	t.InlineCode = lipgloss.NewStyle().
		Foreground(Terracotta).
		Background(SurfaceDim)
	t.Link = lipgloss.NewStyle().Foreground(Sun).Underline(true)
	t.TableHead = lipgloss.NewStyle().Bold(true).Foreground(Leaf)
	t.Rule = lipgloss.NewStyle().Foreground(TextMuted)

	t.SuggestionChip = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Sun).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.SuggestionSelected = t.SuggestionChip.
		Foreground(TextPrimary).
		BorderForeground(Leaf).
		Bold(true)
	t.EscalationCard = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Terracotta).
		Padding(0, 1)
	t.EscalationTitle = lipgloss.NewStyle().
		Foreground(Terracotta).
		Bold(true)
	t.FeedbackMark = lipgloss.NewStyle().Foreground(TextMuted)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(TextMuted).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Leaf).Bold(true)
	t.VoiceActive = lipgloss.NewStyle().Foreground(Terracotta).Bold(true).Blink(true)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Leaf).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().Foreground(Leaf)

	return t
}
