// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings for the chat interface.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Submit   key.Binding
	Cancel   key.Binding
	Quit     key.Binding
	NewConv  key.Binding
	Export   key.Binding
	Voice    key.Binding
	Suggest  key.Binding
	ThumbsUp key.Binding
	ThumbsDn key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "défiler"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "défiler"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page précédente"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page suivante"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Entrée", "envoyer"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Échap", "interrompre"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quitter"),
		),
		NewConv: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "nouvelle conversation"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "exporter"),
		),
		Voice: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "dictée"),
		),
		Suggest: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "suggestions"),
		),
		ThumbsUp: key.NewBinding(
			key.WithKeys("f5"),
			key.WithHelp("F5", "avis positif"),
		),
		ThumbsDn: key.NewBinding(
			key.WithKeys("f6"),
			key.WithHelp("F6", "avis négatif"),
		),
	}
}
