// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assistant implements the HTTP client for the Verdora assistant
// endpoint: one streaming POST per turn, plus the fire-and-forget feedback
// call. It owns the turn protocol; message state lives in internal/model and
// wire parsing in internal/sse.
package assistant

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/verdora/verdora-tui/internal/model"
	"github.com/verdora/verdora-tui/internal/sse"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured means the client has no endpoint URL.
	ErrNotConfigured = errors.New("assistant endpoint not configured")

	// ErrTruncated means the stream ended before a done or error event.
	ErrTruncated = errors.New("stream ended without terminal event")
)

// FallbackErrorText is the static, non-technical copy shown for any
// transport failure or server error without its own message. It points the
// user at the human channels so a broken bot never strands them.
const FallbackErrorText = "Notre assistant est momentanément indisponible. " +
	"Vous pouvez nous joindre par téléphone ou sur WhatsApp, nous répondons rapidement."

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatRequest is the body of the streaming POST: the new user turn, the
// bounded trailing history window, the session identity and free-form
// metadata such as the current page.
type ChatRequest struct {
	Message   string               `json:"message"`
	History   []model.HistoryEntry `json:"history"`
	SessionID string               `json:"sessionId"`
	Metadata  map[string]string    `json:"metadata,omitempty"`
}

// feedbackRequest keys a thumbs signal by session and message index within
// the turn history.
type feedbackRequest struct {
	SessionID    string `json:"sessionId"`
	MessageIndex int    `json:"messageIndex"`
	Feedback     string `json:"feedback"`
}

// =============================================================================
// CLIENT
// =============================================================================

// readBufferSize is the chunk size for reads off the response body. Small
// enough to surface tokens promptly, large enough to stay off the syscall
// hot path.
const readBufferSize = 4096

// Client talks to the assistant endpoint.
type Client struct {
	baseURL  string
	http     *http.Client
	metadata map[string]string
	logger   *log.Logger

	// Feedback is best-effort; the limiter keeps an angry click burst
	// from hammering the endpoint.
	feedbackLimiter *rate.Limiter
}

// Options configures a Client.
type Options struct {
	// BaseURL is the endpoint root, e.g. "https://api.verdora.fr/assistant".
	BaseURL string

	// Timeout bounds the whole streaming request. Zero means no client
	// timeout; cancellation still applies per turn.
	Timeout time.Duration

	// Metadata rides along on every chat request.
	Metadata map[string]string

	// Logger receives background noise (unknown event kinds, feedback
	// failures). Nil silences it.
	Logger *log.Logger
}

// NewClient creates a client for the given endpoint.
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	transport := &http.Transport{
		TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2: true,
	}

	return &Client{
		baseURL: opts.BaseURL,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		metadata:        opts.Metadata,
		logger:          logger,
		feedbackLimiter: rate.NewLimiter(rate.Every(time.Second), 4),
	}
}

// IsConfigured reports whether the client can reach an endpoint.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// =============================================================================
// STREAMING
// =============================================================================

// Stream opens the turn's streaming request and delivers each recognized
// event to onEvent in arrival order. It blocks until the stream finishes.
//
// Returns nil once a terminal (done or error) event has been delivered,
// ctx.Err() on cancellation, ErrTruncated when the stream ends early, and a
// transport error otherwise. Unknown event kinds are logged and skipped;
// malformed lines are skipped silently.
func (c *Client) Stream(ctx context.Context, req ChatRequest, onEvent func(sse.Event)) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	if req.Metadata == nil {
		req.Metadata = c.metadata
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Unwrap url.Error so callers can errors.Is the context error.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("chat request failed: status %d", resp.StatusCode)
	}

	return c.readStream(ctx, resp.Body, onEvent)
}

// readStream pulls chunks off the body, reassembles lines, and dispatches
// events. Cancellation is cooperative: the context is checked between
// chunks, never mid-line.
func (c *Client) readStream(ctx context.Context, body io.Reader, onEvent func(sse.Event)) error {
	decoder := sse.NewLineDecoder()
	buf := make([]byte, readBufferSize)

	dispatch := func(line string) bool {
		ev, ok := sse.ParseEvent(line)
		if !ok {
			return false
		}
		if ev.Kind == sse.KindUnknown {
			c.logger.Printf("assistant: ignoring unknown event kind %q", ev.RawType)
			return false
		}
		onEvent(ev)
		return ev.Kind == sse.KindDone || ev.Kind == sse.KindError
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			for _, line := range decoder.Write(buf[:n]) {
				if dispatch(line) {
					return nil
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				if line, ok := decoder.Flush(); ok && dispatch(line) {
					return nil
				}
				return ErrTruncated
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read stream: %w", err)
		}
	}
}
