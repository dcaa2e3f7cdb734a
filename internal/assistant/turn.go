// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"context"
	"errors"

	"github.com/verdora/verdora-tui/internal/model"
	"github.com/verdora/verdora-tui/internal/sse"
)

// =============================================================================
// TURN PROTOCOL
// =============================================================================

// Send runs one complete turn against the session:
//
//  1. cancels any in-flight request (the superseded assistant message ends
//     aborted, never mutated again),
//  2. appends the user message and the pending assistant placeholder,
//  3. opens exactly one streaming request carrying the new text, the
//     trailing history window and the session id,
//  4. applies every event to the placeholder as it arrives,
//  5. converts transport failures into a terminal message state; a
//     user-initiated abort ends the turn silently, anything else shows the
//     static fallback.
//
// onUpdate (optional) fires after every message mutation so a caller can
// re-render incrementally. Send never returns an error for outcomes already
// reflected on the message; the returned message is always terminal.
func (c *Client) Send(ctx context.Context, sess *model.Session, text string, onUpdate func(*model.Message)) *model.Message {
	_, asst, history := sess.BeginTurn(text)

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	gen := sess.SetCancel(cancel)
	defer sess.ClearCancel(gen)

	notify := func() {
		if onUpdate != nil {
			onUpdate(asst)
		}
	}

	req := ChatRequest{
		Message:   text,
		History:   history,
		SessionID: sess.ID,
	}

	err := c.Stream(turnCtx, req, func(ev sse.Event) {
		if ev.Kind == sse.KindError && ev.Text == "" {
			// An error frame without a message still replaces the
			// partial content; give it the static fallback.
			ev.Text = FallbackErrorText
		}
		if asst.Apply(ev) {
			notify()
		}
	})

	switch {
	case err == nil:
		// Terminal event already applied.
	case errors.Is(err, context.Canceled):
		// Superseded or cancelled. This goroutine owns the message, so
		// the abort happens here and nowhere else.
		asst.Abort()
		notify()
	default:
		asst.Fail(FallbackErrorText)
		notify()
	}

	return asst
}
