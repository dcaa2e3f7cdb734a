// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the verdora TUI.
package styles

import "github.com/charmbracelet/lipgloss"

// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
// The palette follows the storefront identity: garden greens with warm
// accents.

// Leaf is the primary brand green.
var Leaf = lipgloss.AdaptiveColor{Light: "#2F6B3A", Dark: "#7BC88A"}

// LeafDeep is the darker brand green for borders and emphasis.
var LeafDeep = lipgloss.AdaptiveColor{Light: "#1E4A27", Dark: "#3E7A4C"}

// Moss is the secondary green for assistant bubbles.
var Moss = lipgloss.AdaptiveColor{Light: "#5B7D52", Dark: "#95B08C"}

// Terracotta is the warm accent used for escalation cards.
var Terracotta = lipgloss.AdaptiveColor{Light: "#B0482B", Dark: "#E08563"}

// Sun is the accent for suggestion chips and highlights.
var Sun = lipgloss.AdaptiveColor{Light: "#A07409", Dark: "#E3C05C"}

// Rose marks errors.
var Rose = lipgloss.AdaptiveColor{Light: "#C01E3E", Dark: "#F28BA0"}

// Surface is the default background surface.
var Surface = lipgloss.AdaptiveColor{Light: "#FBFAF5", Dark: "#20251E"}

// SurfaceDim is the dimmed background for bars and chrome.
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#EFEDE4", Dark: "#191D17"}

// TextPrimary is the main text color.
var TextPrimary = lipgloss.AdaptiveColor{Light: "#26301F", Dark: "#E2E6DA"}

// TextSecondary is for labels and metadata.
var TextSecondary = lipgloss.AdaptiveColor{Light: "#5C6852", Dark: "#A8B29C"}

// TextMuted is for hints and dividers.
var TextMuted = lipgloss.AdaptiveColor{Light: "#8D9684", Dark: "#6D7565"}
