// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/verdora/verdora-tui/internal/storage"
)

func sampleSession() *storage.StoredSession {
	now := time.Now()
	return &storage.StoredSession{
		ID:        "sess-1",
		Summary:   "Quel dosage pour 500m2 ?",
		CreatedAt: now,
		UpdatedAt: now,
		Messages: []storage.StoredMessage{
			{
				ID: "m1", Role: "user", Status: "complete",
				Content:   "Quel dosage pour 500m2 ?",
				Timestamp: now,
			},
			{
				ID: "m2", Role: "assistant", Status: "complete",
				Content:   "Pour **500 m²**, comptez :\n\n- 2 sacs d'engrais\n- 1 passage au printemps",
				Intent:    "conseil",
				Feedback:  "positive",
				Timestamp: now,
			},
		},
	}
}

func TestHTMLExport(t *testing.T) {
	out, err := NewHTMLExporter(nil).Export(sampleSession())
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	page := string(out)

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<strong>500 m²</strong>",
		"<ul><li>",
		"Avis : positive",
		"Quel dosage pour 500m2 ?",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestHTMLExport_EscapesUntrustedContent(t *testing.T) {
	sess := sampleSession()
	sess.Summary = "<script>alert('x')</script>"
	sess.Messages[0].Content = "<img src=x onerror=alert(1)>"
	sess.Messages[1].Content = "réponse <script>alert('y')</script>"

	out, err := NewHTMLExporter(nil).Export(sess)
	if err != nil {
		t.Fatal(err)
	}
	page := string(out)

	if strings.Contains(page, "<script>") || strings.Contains(page, "<img") {
		t.Error("untrusted markup passed through unescaped")
	}
	if !strings.Contains(page, "&lt;script&gt;") {
		t.Error("expected escaped script tag in output")
	}
}

func TestHTMLExport_RejectsEmpty(t *testing.T) {
	if _, err := NewHTMLExporter(nil).Export(nil); err == nil {
		t.Error("Export(nil) = nil error")
	}
	if _, err := NewHTMLExporter(nil).Export(&storage.StoredSession{ID: "x"}); err == nil {
		t.Error("Export() with no messages = nil error")
	}
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleSession())
	if err != nil {
		t.Fatal(err)
	}
	doc := string(out)

	if !strings.HasPrefix(doc, "# Quel dosage pour 500m2 ?") {
		t.Errorf("doc does not start with summary heading: %q", doc[:40])
	}
	if !strings.Contains(doc, "**Assistant**") || !strings.Contains(doc, "**Client**") {
		t.Error("role labels missing")
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	path, err := ExportToFile(sampleSession(), NewHTMLExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile() error: %v", err)
	}
	if !strings.HasSuffix(path, ".html") {
		t.Errorf("path = %q, want .html", path)
	}
	if !strings.Contains(path, "Quel_dosage_pour_500m2_-") {
		t.Errorf("filename %q not sanitized as expected", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("exported file is empty")
	}
}
