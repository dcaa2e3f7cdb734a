// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"

	"github.com/verdora/verdora-tui/internal/ui/styles"
)

func newTestRenderer() *Renderer {
	return NewRenderer(styles.NewTheme(true), 80)
}

// =============================================================================
// TERMINAL RENDERER TESTS
// =============================================================================

func TestRenderParagraphAndHeading(t *testing.T) {
	r := newTestRenderer()

	out := r.Render("## Semis de printemps\n\nSemez vos tomates sous abri.")
	if !strings.Contains(out, "## Semis de printemps") {
		t.Errorf("heading missing from output: %q", out)
	}
	if !strings.Contains(out, "Semez vos tomates sous abri.") {
		t.Errorf("paragraph missing from output: %q", out)
	}
}

func TestRenderBulletList(t *testing.T) {
	r := newTestRenderer()

	out := r.Render("- Arrosez le matin\n- Paillez le sol")
	if !strings.Contains(out, "• Arrosez le matin") {
		t.Errorf("expected bullet marker, got %q", out)
	}
	if !strings.Contains(out, "• Paillez le sol") {
		t.Errorf("expected second bullet, got %q", out)
	}
}

func TestRenderNumberedList(t *testing.T) {
	r := newTestRenderer()

	out := r.Render("1. Bêcher\n2. Semer\n3. Arroser")
	for _, want := range []string{"1. Bêcher", "2. Semer", "3. Arroser"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
}

func TestRenderTableAlignsColumns(t *testing.T) {
	r := newTestRenderer()

	out := r.Render("| Culture | Dosage |\n|---|---|\n| Gazon | 3 kg / 100 m² |\n| Potager | 1 kg |")
	lines := strings.Split(out, "\n")
	if len(lines) < 4 {
		t.Fatalf("expected header, separator and two rows, got %q", out)
	}
	if !strings.Contains(out, "Gazon") || !strings.Contains(out, "3 kg / 100 m²") {
		t.Errorf("table cells missing: %q", out)
	}
	// Both data rows start their second column at the same offset.
	gazon := lines[2]
	potager := lines[3]
	if strings.Index(gazon, "3 kg") != strings.Index(potager, "1 kg") {
		t.Errorf("columns misaligned:\n%q\n%q", gazon, potager)
	}
}

func TestRenderRule(t *testing.T) {
	r := newTestRenderer()

	out := r.Render("avant\n\n---\n\naprès")
	if !strings.Contains(out, "─") {
		t.Errorf("expected horizontal rule, got %q", out)
	}
}

func TestRenderLinkShowsURL(t *testing.T) {
	r := newTestRenderer()

	out := r.Render("Voir [notre guide](https://verdora.fr/guides/semis) en ligne.")
	if !strings.Contains(out, "notre guide") {
		t.Errorf("link text missing: %q", out)
	}
	if !strings.Contains(out, "https://verdora.fr/guides/semis") {
		t.Errorf("link target missing: %q", out)
	}
}

func TestRenderEmptyInput(t *testing.T) {
	r := newTestRenderer()
	if out := r.Render(""); out != "" {
		t.Errorf("empty input should render empty, got %q", out)
	}
}

func TestRenderNarrowWidthClamped(t *testing.T) {
	r := NewRenderer(styles.NewTheme(false), 5)
	out := r.Render("Les plants de tomates demandent un arrosage régulier en été.")
	if out == "" {
		t.Error("narrow renderer should still produce output")
	}
}

func TestSetWidthRewraps(t *testing.T) {
	r := newTestRenderer()
	long := "Un paillage épais limite l'évaporation et protège la vie du sol pendant les fortes chaleurs."

	wide := r.Render(long)
	r.SetWidth(30)
	narrow := r.Render(long)

	if strings.Count(narrow, "\n") <= strings.Count(wide, "\n") {
		t.Errorf("narrow render should wrap onto more lines\nwide: %q\nnarrow: %q", wide, narrow)
	}
}
