// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/verdora/verdora-tui/internal/model"
)

// =============================================================================
// FEEDBACK
// =============================================================================

// ErrFeedbackNotAllowed means the target message cannot carry feedback
// (wrong role, or not complete yet).
var ErrFeedbackNotAllowed = errors.New("feedback only applies to completed assistant messages")

// feedbackTimeout bounds the background submission; the user never waits on
// it.
const feedbackTimeout = 5 * time.Second

// SendFeedback records the user's thumbs signal on the message and submits
// it to the endpoint in the background.
//
// The local set is optimistic and authoritative: submission is fire-and-
// forget, rate-limited, and a failed POST is logged without ever touching
// message state or surfacing to the user. Calling again with a different
// value overwrites; calling with the same value is a harmless repeat.
func (c *Client) SendFeedback(sess *model.Session, msg *model.Message, fb model.Feedback) error {
	if !msg.SetFeedback(fb) {
		return ErrFeedbackNotAllowed
	}

	index := sess.IndexOf(msg.ID)
	if !c.IsConfigured() || index < 0 {
		return nil
	}
	if !c.feedbackLimiter.Allow() {
		c.logger.Printf("assistant: feedback throttled for message %s", msg.ID)
		return nil
	}

	req := feedbackRequest{
		SessionID:    sess.ID,
		MessageIndex: index,
		Feedback:     string(fb),
	}

	go func() {
		if err := c.postFeedback(req); err != nil {
			c.logger.Printf("assistant: feedback submission failed: %v", err)
		}
	}()

	return nil
}

// postFeedback performs the actual POST. Split out for the goroutine and
// for tests.
func (c *Client) postFeedback(req feedbackRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), feedbackTimeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/feedback", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create feedback request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("feedback rejected: status %d", resp.StatusCode)
	}
	return nil
}
