// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package escalate decides when a completed assistant reply should carry a
// human hand-off card and builds the contact channels for it.
package escalate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/verdora/verdora-tui/internal/model"
)

// maxTopicRunes bounds the conversation topic carried in the WhatsApp link.
const maxTopicRunes = 120

// Contact holds the two fixed hand-off channels offered to the customer.
type Contact struct {
	// Phone is the store's phone number, displayed as-is.
	Phone string

	// WhatsApp is the store's WhatsApp number in international digits
	// form, used to build the wa.me deep link.
	WhatsApp string
}

// Handoff is the derived hand-off affordance for one completed message.
type Handoff struct {
	Phone        string
	WhatsAppLink string
}

// Needed reports whether msg warrants offering a human contact. A reply asks
// for hand-off either through its urgency classification or through the
// explicit escalation flag.
func Needed(msg *model.Message) bool {
	if msg == nil || msg.Role != model.RoleAssistant || msg.Status != model.StatusComplete {
		return false
	}
	return msg.Escalated || msg.Intent == model.IntentUrgent
}

// Derive recomputes the hand-off affordance for msg. It returns nil when no
// hand-off is warranted. The result is never cached on the message; callers
// derive it again on every display.
func Derive(msg *model.Message, contact Contact) *Handoff {
	if !Needed(msg) {
		return nil
	}
	return &Handoff{
		Phone:        contact.Phone,
		WhatsAppLink: whatsAppLink(contact.WhatsApp, topicFor(msg)),
	}
}

// whatsAppLink builds a wa.me deep link pre-filled with the conversation
// topic so the customer does not have to restate their question.
func whatsAppLink(number, topic string) string {
	number = digitsOnly(number)
	if number == "" {
		return ""
	}
	link := "https://wa.me/" + number
	if topic != "" {
		text := fmt.Sprintf("Bonjour, je viens de l'assistant Verdora au sujet de : %s", topic)
		link += "?text=" + url.QueryEscape(text)
	}
	return link
}

// topicFor summarizes the conversation topic from the user question that
// produced msg, falling back to the reply itself.
func topicFor(msg *model.Message) string {
	topic := msg.Question
	if topic == "" {
		topic = msg.ContentText()
	}
	topic = strings.Join(strings.Fields(topic), " ")
	runes := []rune(topic)
	if len(runes) > maxTopicRunes {
		topic = string(runes[:maxTopicRunes]) + "…"
	}
	return topic
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
