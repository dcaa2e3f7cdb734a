// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voice wraps an optional speech-to-text capability behind a small
// supported/listening/toggle surface.
//
// Dictation is driven by an external recognizer command configured by the
// user (for example whisper-cli or nerd-dictation). When no recognizer is
// installed the adapter reports unsupported and every toggle is a no-op,
// so callers never need a separate capability check.
package voice

import (
	"context"
	"io"
	"log"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// RECOGNITION ENGINE
// =============================================================================

// Engine runs one speech recognition session per call.
type Engine interface {
	// Available reports whether the underlying recognizer can run on
	// this machine.
	Available() bool

	// Recognize blocks until a final transcript is produced, the
	// recognizer fails, or ctx is cancelled. The transcript is raw
	// engine output; the adapter normalizes it before delivery.
	Recognize(ctx context.Context) (string, error)
}

// CommandEngine shells out to a configured dictation command and treats its
// standard output as the final transcript.
type CommandEngine struct {
	command string
	args    []string
}

// NewCommandEngine builds an engine around the given command line. An empty
// command yields an engine that is never available.
func NewCommandEngine(command string, args ...string) *CommandEngine {
	return &CommandEngine{command: command, args: args}
}

// Available reports whether the configured command resolves on PATH.
func (e *CommandEngine) Available() bool {
	if e.command == "" {
		return false
	}
	_, err := exec.LookPath(e.command)
	return err == nil
}

// Recognize runs the dictation command once and returns its stdout.
func (e *CommandEngine) Recognize(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, e.command, e.args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// =============================================================================
// DICTATION ADAPTER
// =============================================================================

// Adapter owns the single-recognition-session invariant. At most one engine
// session runs at a time; a second toggle stops the active one. Recognition
// errors and engine-initiated termination both reset the listening flag so
// the caller can always recover by toggling again.
type Adapter struct {
	engine       Engine
	onTranscript func(string)
	logger       *log.Logger

	mu        sync.Mutex
	listening bool
	cancel    context.CancelFunc
	gen       uint64
}

// NewAdapter wires an engine to a transcript callback. The callback receives
// the recognized text for the caller to append to its composer; it is invoked
// exactly once per completed utterance, from the recognition goroutine.
func NewAdapter(engine Engine, onTranscript func(string), logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Adapter{engine: engine, onTranscript: onTranscript, logger: logger}
}

// Supported reports whether dictation can be used at all.
func (a *Adapter) Supported() bool {
	return a.engine != nil && a.engine.Available()
}

// Listening reports whether a recognition session is currently active.
func (a *Adapter) Listening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listening
}

// Toggle starts a recognition session, or stops the active one. It is a
// no-op when dictation is unsupported.
func (a *Adapter) Toggle() {
	if !a.Supported() {
		return
	}

	a.mu.Lock()
	if a.listening {
		// Stop: cancel the engine and bump the generation so the
		// session's late result is discarded.
		a.listening = false
		a.gen++
		if a.cancel != nil {
			a.cancel()
			a.cancel = nil
		}
		a.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.listening = true
	a.cancel = cancel
	a.gen++
	gen := a.gen
	a.mu.Unlock()

	go a.listen(ctx, gen)
}

// listen runs one engine session and delivers its outcome.
func (a *Adapter) listen(ctx context.Context, gen uint64) {
	text, err := a.engine.Recognize(ctx)

	a.mu.Lock()
	if gen != a.gen {
		// Session was superseded or stopped; its result is stale.
		a.mu.Unlock()
		return
	}
	a.listening = false
	a.cancel = nil
	onTranscript := a.onTranscript
	a.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			a.logger.Printf("voice: recognition failed: %v", err)
		}
		return
	}

	transcript := strings.TrimSpace(norm.NFC.String(text))
	if transcript == "" {
		return
	}
	if onTranscript != nil {
		onTranscript(transcript)
	}
}
