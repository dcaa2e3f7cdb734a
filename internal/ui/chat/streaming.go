// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// SNAPSHOT GATE
// =============================================================================

// defaultMaxFPS caps the streaming re-render rate.
const defaultMaxFPS = 30

// SnapshotGate keeps only the latest pending snapshot and rations how often
// it is released for rendering. Snapshots arrive once per token, which can
// exceed a thousand per second on a fast connection; re-rendering the whole
// markdown view at that rate flickers and burns CPU. Each snapshot carries
// the full accumulated content, so dropping intermediates loses nothing.
//
// Thread-safety: Put is called from the turn goroutine while Take runs on
// the Bubble Tea loop, so both are mutex-protected.
type SnapshotGate struct {
	mu        sync.Mutex
	pending   StreamSnapshot
	dirty     bool
	lastFlush time.Time
	interval  time.Duration
}

// NewSnapshotGate creates a gate capped at the default frame rate.
func NewSnapshotGate() *SnapshotGate {
	return NewSnapshotGateWithFPS(defaultMaxFPS)
}

// NewSnapshotGateWithFPS creates a gate with a custom frame rate cap.
func NewSnapshotGateWithFPS(maxFPS int) *SnapshotGate {
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = defaultMaxFPS
	}
	return &SnapshotGate{
		interval: time.Second / time.Duration(maxFPS),
	}
}

// Put stores a snapshot, replacing any pending one. Later snapshots always
// supersede earlier ones because content only grows within a turn.
func (g *SnapshotGate) Put(snap StreamSnapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = snap
	g.dirty = true
}

// Take returns the pending snapshot if the frame interval has elapsed.
func (g *SnapshotGate) Take() (StreamSnapshot, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.dirty || time.Since(g.lastFlush) < g.interval {
		return StreamSnapshot{}, false
	}
	g.dirty = false
	g.lastFlush = time.Now()
	return g.pending, true
}

// ForceTake returns the pending snapshot regardless of the frame interval.
// Used when a turn ends so the last tokens are never held back.
func (g *SnapshotGate) ForceTake() (StreamSnapshot, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.dirty {
		return StreamSnapshot{}, false
	}
	g.dirty = false
	g.lastFlush = time.Now()
	return g.pending, true
}

// Reset discards any pending snapshot.
func (g *SnapshotGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dirty = false
	g.pending = StreamSnapshot{}
}

// =============================================================================
// STREAMING TICK COMMAND
// =============================================================================

// streamTickCmd drives the streaming re-render loop at the frame cap.
func streamTickCmd() tea.Cmd {
	return tea.Tick(time.Second/defaultMaxFPS, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
