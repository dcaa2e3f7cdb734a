// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package escalate

import (
	"strings"
	"testing"

	"github.com/verdora/verdora-tui/internal/model"
	"github.com/verdora/verdora-tui/internal/sse"
)

var testContact = Contact{
	Phone:    "+33 4 67 00 00 00",
	WhatsApp: "+33 6 12 34 56 78",
}

// completed builds a complete assistant message via the real event path.
func completed(question, intent string, escalate bool) *model.Message {
	sess := model.NewSession()
	_, msg, _ := sess.BeginTurn(question)
	msg.Apply(sse.Event{Kind: sse.KindToken, Text: "réponse"})
	msg.Apply(sse.Event{Kind: sse.KindDone, Intent: intent, Escalate: escalate})
	return msg
}

func TestNeeded_Gating(t *testing.T) {
	tests := []struct {
		name     string
		intent   string
		escalate bool
		want     bool
	}{
		{"advice without flag", "conseil", false, false},
		{"urgent intent alone", "urgence", false, true},
		{"flag alone regardless of intent", "conseil", true, true},
		{"flag with urgent intent", "urgence", true, true},
		{"no classification at all", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := completed("question", tt.intent, tt.escalate)
			if got := Needed(msg); got != tt.want {
				t.Errorf("Needed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNeeded_OnlyCompleteAssistantMessages(t *testing.T) {
	if Needed(nil) {
		t.Error("Needed(nil) = true")
	}
	if Needed(model.NewUserMessage("urgence !")) {
		t.Error("Needed() = true for a user message")
	}

	sess := model.NewSession()
	_, streaming, _ := sess.BeginTurn("q")
	streaming.Apply(sse.Event{Kind: sse.KindToken, Text: "x"})
	streaming.Escalated = true
	if Needed(streaming) {
		t.Error("Needed() = true for a streaming message")
	}
}

func TestDerive_BuildsContactChannels(t *testing.T) {
	msg := completed("Mes semis sont morts, que faire ?", "urgence", false)

	h := Derive(msg, testContact)
	if h == nil {
		t.Fatal("Derive() = nil for an urgent reply")
	}
	if h.Phone != testContact.Phone {
		t.Errorf("phone = %q", h.Phone)
	}
	if !strings.HasPrefix(h.WhatsAppLink, "https://wa.me/33612345678?text=") {
		t.Errorf("link = %q, want wa.me deep link with digits-only number", h.WhatsAppLink)
	}
	if !strings.Contains(h.WhatsAppLink, "semis") {
		t.Errorf("link %q does not carry the conversation topic", h.WhatsAppLink)
	}
	if strings.ContainsAny(h.WhatsAppLink, " é") {
		t.Errorf("link %q is not percent-encoded", h.WhatsAppLink)
	}
}

func TestDerive_NilWhenNotNeeded(t *testing.T) {
	msg := completed("Quel dosage ?", "conseil", false)
	if h := Derive(msg, testContact); h != nil {
		t.Errorf("Derive() = %+v, want nil", h)
	}
}

func TestDerive_RecomputedNotCached(t *testing.T) {
	msg := completed("question", "conseil", false)
	if Derive(msg, testContact) != nil {
		t.Fatal("unexpected hand-off before reclassification")
	}

	// The contract forbids caching: flipping the flag later must show up
	// on the next derive.
	msg.Escalated = true
	if Derive(msg, testContact) == nil {
		t.Error("Derive() = nil after the escalation flag changed")
	}
}

func TestDerive_TopicTruncated(t *testing.T) {
	long := strings.Repeat("très longue question sur l'arrosage ", 20)
	msg := completed(long, "urgence", false)

	h := Derive(msg, testContact)
	if h == nil {
		t.Fatal("Derive() = nil")
	}
	if len(h.WhatsAppLink) > 600 {
		t.Errorf("link length = %d, topic not truncated", len(h.WhatsAppLink))
	}
}

func TestDerive_EmptyWhatsAppNumber(t *testing.T) {
	msg := completed("question", "urgence", false)
	h := Derive(msg, Contact{Phone: "04 67 00 00 00"})
	if h == nil {
		t.Fatal("Derive() = nil")
	}
	if h.WhatsAppLink != "" {
		t.Errorf("link = %q, want empty without a configured number", h.WhatsAppLink)
	}
}
