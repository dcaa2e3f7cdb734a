// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"reflect"
	"testing"
)

// =============================================================================
// EVENT PARSER TESTS
// =============================================================================

func TestParseEvent_Kinds(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Event
	}{
		{
			name: "token",
			line: `data: {"type":"token","content":"Pour "}`,
			want: Event{Kind: KindToken, Text: "Pour "},
		},
		{
			name: "token without space after prefix",
			line: `data:{"type":"token","content":"500 m²"}`,
			want: Event{Kind: KindToken, Text: "500 m²"},
		},
		{
			name: "tool start",
			line: `data: {"type":"tool_start","label":"recherche produit"}`,
			want: Event{Kind: KindToolStart, Label: "recherche produit"},
		},
		{
			name: "done with metadata",
			line: `data: {"type":"done","intent":"conseil","suggestions":["Autre culture ?"],"escalate":false}`,
			want: Event{Kind: KindDone, Intent: "conseil", Suggestions: []string{"Autre culture ?"}},
		},
		{
			name: "done with escalation",
			line: `data: {"type":"done","intent":"urgence","escalate":true}`,
			want: Event{Kind: KindDone, Intent: "urgence", Escalate: true},
		},
		{
			name: "server error",
			line: `data: {"type":"error","message":"Service indisponible"}`,
			want: Event{Kind: KindError, Text: "Service indisponible"},
		},
		{
			name: "future event kind",
			line: `data: {"type":"citation","content":"..."}`,
			want: Event{Kind: KindUnknown, RawType: "citation"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseEvent(tc.line)
			if !ok {
				t.Fatalf("ParseEvent(%q) not recognized", tc.line)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ParseEvent(%q) = %+v, want %+v", tc.line, got, tc.want)
			}
		})
	}
}

func TestParseEvent_SkippedLines(t *testing.T) {
	lines := []string{
		"",
		": keep-alive",
		"event: message",
		"id: 42",
		"retry: 3000",
		"random garbage",
		"data:",
		"data:   ",
		`data: not json at all`,
		`data: {"type":"token","content":`, // truncated JSON
		`data: {"content":"no discriminator"}`,
		`data: ["unexpected","array"]`,
	}

	for _, line := range lines {
		if ev, ok := ParseEvent(line); ok {
			t.Errorf("ParseEvent(%q) = %+v, want skip", line, ev)
		}
	}
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{
		KindToken:     "token",
		KindToolStart: "tool_start",
		KindDone:      "done",
		KindError:     "error",
		KindUnknown:   "unknown",
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
