// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"
)

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "data.txt")

	if err := AtomicWriteFile(path, []byte("première version"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile() error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "première version" {
		t.Errorf("content = %q", got)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("mode = %o, want 0600", perm)
	}

	// Overwrite replaces the whole file.
	if err := AtomicWriteFile(path, []byte("v2"), 0600); err != nil {
		t.Fatal(err)
	}
	got, _ = os.ReadFile(path)
	if string(got) != "v2" {
		t.Errorf("content after overwrite = %q", got)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("leftover files in dir: %v", entries)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"shorter than max", "bonjour", 10, "bonjour"},
		{"exact length", "bonjour", 7, "bonjour"},
		{"truncated ascii", "bonjour", 4, "bon…"},
		{"truncated accents", "pépinière", 5, "pépi…"},
		{"zero max", "bonjour", 0, ""},
		{"max one", "bonjour", 1, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("result %q is not valid UTF-8", got)
			}
		})
	}
}

func TestTruncateRunesNoEllipsis(t *testing.T) {
	if got := TruncateRunesNoEllipsis("m² de gazon", 4); got != "m² d" {
		t.Errorf("got %q", got)
	}
	if got := TruncateRunesNoEllipsis("court", 10); got != "court" {
		t.Errorf("got %q", got)
	}
}

func TestRuneLen(t *testing.T) {
	if got := RuneLen("500 m²"); got != 6 {
		t.Errorf("RuneLen = %d, want 6", got)
	}
}
