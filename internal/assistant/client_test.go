// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/verdora/verdora-tui/internal/model"
	"github.com/verdora/verdora-tui/internal/sse"
)

// =============================================================================
// TEST SERVER HELPERS
// =============================================================================

// streamHandler writes the given raw lines to the response one write per
// element, flushing between writes so chunk boundaries reach the client.
func streamHandler(t *testing.T, chunks []string, capture *ChatRequest) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			http.NotFound(w, r)
			return
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request body: %v", err)
			}
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, c := range chunks {
			fmt.Fprint(w, c)
			flusher.Flush()
		}
	}
}

func newTestClient(url string) *Client {
	return NewClient(Options{BaseURL: url, Timeout: 5 * time.Second})
}

// =============================================================================
// END-TO-END TURN TESTS
// =============================================================================

func TestSend_CompleteTurn(t *testing.T) {
	var captured ChatRequest
	srv := httptest.NewServer(streamHandler(t, []string{
		"data: {\"type\":\"token\",\"content\":\"Pour \"}\n",
		"data: {\"type\":\"token\",\"content\":\"500 m²...\"}\n",
		"data: {\"type\":\"done\",\"intent\":\"conseil\",\"suggestions\":[\"Autre culture ?\"],\"escalate\":false}\n",
	}, &captured))
	defer srv.Close()

	sess := model.NewSession()
	var renders []string
	msg := newTestClient(srv.URL).Send(context.Background(), sess, "Quel dosage pour 500m2 ?", func(m *model.Message) {
		renders = append(renders, m.ContentText())
	})

	if msg.Status != model.StatusComplete {
		t.Fatalf("status = %v, want complete", msg.Status)
	}
	if msg.Content != "Pour 500 m²..." {
		t.Errorf("content = %q", msg.Content)
	}
	if len(msg.Suggestions) != 1 || msg.Suggestions[0] != "Autre culture ?" {
		t.Errorf("suggestions = %v", msg.Suggestions)
	}
	if msg.Escalated {
		t.Error("escalated = true, want false")
	}
	if msg.Intent != "conseil" {
		t.Errorf("intent = %q", msg.Intent)
	}

	// Intermediate renders are prefix-consistent.
	want := []string{"Pour ", "Pour 500 m²..."}
	for i, w := range want {
		if renders[i] != w {
			t.Errorf("render %d = %q, want %q", i, renders[i], w)
		}
	}

	// Wire shape: message, session id, history (empty first turn).
	if captured.Message != "Quel dosage pour 500m2 ?" {
		t.Errorf("wire message = %q", captured.Message)
	}
	if captured.SessionID != sess.ID {
		t.Errorf("wire sessionId = %q, want %q", captured.SessionID, sess.ID)
	}
	if len(captured.History) != 0 {
		t.Errorf("first turn history = %v, want empty", captured.History)
	}
}

func TestSend_ServerErrorDiscardsTokens(t *testing.T) {
	srv := httptest.NewServer(streamHandler(t, []string{
		"data: {\"type\":\"token\",\"content\":\"Pour \"}\n",
		"data: {\"type\":\"token\",\"content\":\"500\"}\n",
		"data: {\"type\":\"error\",\"message\":\"Service indisponible\"}\n",
	}, nil))
	defer srv.Close()

	sess := model.NewSession()
	msg := newTestClient(srv.URL).Send(context.Background(), sess, "dosage ?", nil)

	if msg.Status != model.StatusError {
		t.Fatalf("status = %v, want error", msg.Status)
	}
	if msg.ContentText() != "Service indisponible" {
		t.Errorf("content = %q, want server error verbatim", msg.ContentText())
	}
	// The session accepts a new turn right away: the composer never locks.
	if sess.ActiveMessage() != nil {
		t.Error("session still has an active message after error")
	}
}

func TestSend_ServerErrorWithoutMessageUsesFallback(t *testing.T) {
	srv := httptest.NewServer(streamHandler(t, []string{
		"data: {\"type\":\"token\",\"content\":\"Pour \"}\n",
		"data: {\"type\":\"error\"}\n",
	}, nil))
	defer srv.Close()

	sess := model.NewSession()
	msg := newTestClient(srv.URL).Send(context.Background(), sess, "dosage ?", nil)

	if msg.Status != model.StatusError {
		t.Fatalf("status = %v, want error", msg.Status)
	}
	if msg.ContentText() != FallbackErrorText {
		t.Errorf("content = %q, want the static fallback", msg.ContentText())
	}
	if sess.ActiveMessage() != nil {
		t.Error("session still has an active message after error")
	}
}

func TestSend_MalformedFramesIgnored(t *testing.T) {
	clean := []string{
		"data: {\"type\":\"token\",\"content\":\"a\"}\n",
		"data: {\"type\":\"token\",\"content\":\"b\"}\n",
		"data: {\"type\":\"done\"}\n",
	}
	noisy := []string{
		": keep-alive\n",
		clean[0],
		"data: {broken json\n",
		"total garbage line\n",
		clean[1],
		"data: {\"type\":\"mystery_kind\",\"content\":\"x\"}\n",
		clean[2],
	}

	run := func(chunks []string) string {
		srv := httptest.NewServer(streamHandler(t, chunks, nil))
		defer srv.Close()
		msg := newTestClient(srv.URL).Send(context.Background(), model.NewSession(), "q", nil)
		return msg.Content
	}

	if got, want := run(noisy), run(clean); got != want {
		t.Errorf("content with garbage = %q, without = %q", got, want)
	}
}

func TestSend_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	msg := newTestClient(srv.URL).Send(context.Background(), model.NewSession(), "q", nil)

	if msg.Status != model.StatusError {
		t.Fatalf("status = %v, want error", msg.Status)
	}
	if msg.ContentText() != FallbackErrorText {
		t.Errorf("content = %q, want static fallback", msg.ContentText())
	}
}

func TestSend_TruncatedStream(t *testing.T) {
	srv := httptest.NewServer(streamHandler(t, []string{
		"data: {\"type\":\"token\",\"content\":\"Pour \"}\n",
		// Connection ends without a terminal event.
	}, nil))
	defer srv.Close()

	msg := newTestClient(srv.URL).Send(context.Background(), model.NewSession(), "q", nil)

	if msg.Status != model.StatusError {
		t.Fatalf("status = %v, want error", msg.Status)
	}
	if msg.ContentText() != FallbackErrorText {
		t.Errorf("content = %q, want static fallback", msg.ContentText())
	}
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

// blockingServer streams its prelude, then holds the connection open until
// the test releases it.
func blockingServer(t *testing.T, prelude []string) (*httptest.Server, chan struct{}, chan struct{}) {
	t.Helper()
	streamed := make(chan struct{})
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for _, c := range prelude {
			fmt.Fprint(w, c)
			flusher.Flush()
		}
		close(streamed)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	return srv, streamed, release
}

func TestSend_AbortIsSilent(t *testing.T) {
	srv, streamed, release := blockingServer(t, []string{
		"data: {\"type\":\"token\",\"content\":\"réponse partielle\"}\n",
	})
	defer srv.Close()
	defer close(release)

	sess := model.NewSession()
	client := newTestClient(srv.URL)

	done := make(chan *model.Message, 1)
	go func() {
		done <- client.Send(context.Background(), sess, "q", nil)
	}()

	<-streamed
	// Give the client a beat to apply the token, then supersede.
	time.Sleep(50 * time.Millisecond)
	sess.CancelActive()

	msg := <-done
	if msg.Status != model.StatusAborted {
		t.Fatalf("status = %v, want aborted", msg.Status)
	}
	if msg.ContentText() != "réponse partielle" {
		t.Errorf("aborted content = %q, want partial preserved", msg.ContentText())
	}
}

func TestSend_NewTurnSupersedesInFlight(t *testing.T) {
	srv, streamed, release := blockingServer(t, []string{
		"data: {\"type\":\"token\",\"content\":\"A en cours\"}\n",
	})
	defer srv.Close()
	defer close(release)

	fast := httptest.NewServer(streamHandler(t, []string{
		"data: {\"type\":\"token\",\"content\":\"B terminé\"}\n",
		"data: {\"type\":\"done\"}\n",
	}, nil))
	defer fast.Close()

	sess := model.NewSession()

	doneA := make(chan *model.Message, 1)
	go func() {
		doneA <- newTestClient(srv.URL).Send(context.Background(), sess, "question A", nil)
	}()
	<-streamed
	time.Sleep(50 * time.Millisecond)

	// Turn B starts while A is still streaming.
	msgB := newTestClient(fast.URL).Send(context.Background(), sess, "question B", nil)
	msgA := <-doneA

	if msgA.Status != model.StatusAborted {
		t.Errorf("turn A status = %v, want aborted", msgA.Status)
	}
	if msgB.Status != model.StatusComplete || msgB.Content != "B terminé" {
		t.Errorf("turn B = %v %q, want complete", msgB.Status, msgB.Content)
	}
}

// =============================================================================
// STREAM READER TESTS
// =============================================================================

// TestStream_ChunkBoundaries splits one event line across many flushes,
// including inside the multi-byte ² rune, and expects a single clean token.
func TestStream_ChunkBoundaries(t *testing.T) {
	line := "data: {\"type\":\"token\",\"content\":\"500 m²...\"}\n" +
		"data: {\"type\":\"done\"}\n"

	// One-byte chunks split every rune boundary and then some.
	var chunks []string
	for i := 0; i < len(line); i++ {
		chunks = append(chunks, line[i:i+1])
	}

	srv := httptest.NewServer(streamHandler(t, chunks, nil))
	defer srv.Close()

	var mu sync.Mutex
	var tokens []string
	err := newTestClient(srv.URL).Stream(context.Background(), ChatRequest{Message: "q"}, func(ev sse.Event) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Kind == sse.KindToken {
			tokens = append(tokens, ev.Text)
		}
	})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	if len(tokens) != 1 || tokens[0] != "500 m²..." {
		t.Errorf("tokens = %q, want one clean token", tokens)
	}
}

func TestStream_NotConfigured(t *testing.T) {
	c := NewClient(Options{})
	err := c.Stream(context.Background(), ChatRequest{}, func(sse.Event) {})
	if err != ErrNotConfigured {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

// =============================================================================
// FEEDBACK TESTS
// =============================================================================

func completedTurn(t *testing.T) (*model.Session, *model.Message) {
	t.Helper()
	sess := model.NewSession()
	_, msg, _ := sess.BeginTurn("q")
	msg.Apply(sse.Event{Kind: sse.KindToken, Text: "réponse"})
	msg.Apply(sse.Event{Kind: sse.KindDone})
	return sess, msg
}

func TestSendFeedback_Submits(t *testing.T) {
	received := make(chan feedbackRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feedback" {
			http.NotFound(w, r)
			return
		}
		var req feedbackRequest
		json.NewDecoder(r.Body).Decode(&req)
		received <- req
	}))
	defer srv.Close()

	sess, msg := completedTurn(t)
	client := newTestClient(srv.URL)

	if err := client.SendFeedback(sess, msg, model.FeedbackPositive); err != nil {
		t.Fatalf("SendFeedback() error: %v", err)
	}
	if msg.Feedback != model.FeedbackPositive {
		t.Error("local feedback not set optimistically")
	}

	select {
	case req := <-received:
		if req.SessionID != sess.ID || req.MessageIndex != 1 || req.Feedback != "positive" {
			t.Errorf("wire feedback = %+v", req)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("feedback never reached the endpoint")
	}
}

func TestSendFeedback_FailureLeavesLocalState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	sess, msg := completedTurn(t)
	client := newTestClient(srv.URL)

	if err := client.SendFeedback(sess, msg, model.FeedbackNegative); err != nil {
		t.Fatalf("SendFeedback() error: %v", err)
	}
	// Give the background POST time to fail.
	time.Sleep(100 * time.Millisecond)
	if msg.Feedback != model.FeedbackNegative {
		t.Error("remote failure altered local feedback")
	}
}

func TestSendFeedback_RejectsStreamingMessage(t *testing.T) {
	sess := model.NewSession()
	_, msg, _ := sess.BeginTurn("q")

	if err := NewClient(Options{}).SendFeedback(sess, msg, model.FeedbackPositive); err != ErrFeedbackNotAllowed {
		t.Errorf("err = %v, want ErrFeedbackNotAllowed", err)
	}
}
