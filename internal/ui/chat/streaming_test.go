// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
	"time"

	"github.com/verdora/verdora-tui/internal/model"
)

// =============================================================================
// SNAPSHOT GATE TESTS
// =============================================================================

func TestNewSnapshotGate(t *testing.T) {
	g := NewSnapshotGate()
	if g == nil {
		t.Fatal("NewSnapshotGate returned nil")
	}
	if g.interval != time.Second/30 {
		t.Errorf("Expected default interval %v, got %v", time.Second/30, g.interval)
	}
}

func TestSnapshotGateRejectsBadFPS(t *testing.T) {
	for _, fps := range []int{0, -5, 1000} {
		g := NewSnapshotGateWithFPS(fps)
		if g.interval != time.Second/defaultMaxFPS {
			t.Errorf("fps %d: expected clamped interval, got %v", fps, g.interval)
		}
	}
}

func TestSnapshotGateTakeEmpty(t *testing.T) {
	g := NewSnapshotGate()
	if _, ok := g.Take(); ok {
		t.Error("Take on empty gate should report nothing pending")
	}
}

func TestSnapshotGateLatestWins(t *testing.T) {
	g := NewSnapshotGate()
	g.Put(StreamSnapshot{Content: "Pour"})
	g.Put(StreamSnapshot{Content: "Pour 500"})
	g.Put(StreamSnapshot{Content: "Pour 500 m²"})

	snap, ok := g.Take()
	if !ok {
		t.Fatal("expected a pending snapshot")
	}
	if snap.Content != "Pour 500 m²" {
		t.Errorf("Expected latest snapshot, got %q", snap.Content)
	}

	// Nothing left after a take.
	if _, ok := g.Take(); ok {
		t.Error("second Take should find nothing pending")
	}
}

func TestSnapshotGateRationsRate(t *testing.T) {
	g := NewSnapshotGate()

	g.Put(StreamSnapshot{Content: "a"})
	if _, ok := g.Take(); !ok {
		t.Fatal("first take should release immediately")
	}

	// A snapshot arriving inside the frame interval is held back.
	g.Put(StreamSnapshot{Content: "ab"})
	if _, ok := g.Take(); ok {
		t.Error("take inside the frame interval should hold the snapshot")
	}

	// It is still pending, not lost.
	time.Sleep(g.interval + 5*time.Millisecond)
	snap, ok := g.Take()
	if !ok {
		t.Fatal("snapshot should be released after the interval")
	}
	if snap.Content != "ab" {
		t.Errorf("Expected held snapshot, got %q", snap.Content)
	}
}

func TestSnapshotGateForceTake(t *testing.T) {
	g := NewSnapshotGate()

	g.Put(StreamSnapshot{Content: "a"})
	g.Take()
	g.Put(StreamSnapshot{Content: "fin", Status: model.StatusComplete})

	// ForceTake ignores the frame interval so turn completion never
	// leaves tokens on the floor.
	snap, ok := g.ForceTake()
	if !ok {
		t.Fatal("ForceTake should release the pending snapshot")
	}
	if snap.Content != "fin" {
		t.Errorf("Expected final snapshot, got %q", snap.Content)
	}
}

func TestSnapshotGateReset(t *testing.T) {
	g := NewSnapshotGate()
	g.Put(StreamSnapshot{Content: "périmé"})
	g.Reset()
	if _, ok := g.ForceTake(); ok {
		t.Error("Reset should discard the pending snapshot")
	}
}
