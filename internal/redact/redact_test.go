package redact

import (
	"strings"
	"testing"
)

func TestMapMasksSensitiveKeys(t *testing.T) {
	input := map[string]any{
		"key":              "0001001100110100010101110111100110011011101111001101111111110001",
		"substitution_key": map[string]any{"a": "x"},
		"Shift":            13,
		"endpoint":         "/caesar/encrypt",
		"text_length":      42,
	}
	masked := Map(input)
	for _, k := range []string{"key", "substitution_key", "Shift"} {
		if masked[k] != "[REDACTED]" {
			t.Fatalf("expected %s to be masked, got %#v", k, masked[k])
		}
	}
	if masked["endpoint"] != "/caesar/encrypt" {
		t.Fatalf("unexpected value for endpoint: %#v", masked["endpoint"])
	}
	if masked["text_length"] != 42 {
		t.Fatalf("unexpected value for text_length: %#v", masked["text_length"])
	}
}

func TestMapAppliesNeverPersistMask(t *testing.T) {
	input := map[string]any{
		"client":        "cipherlabctl",
		"nested":        []any{"key=abc123"},
		"never_persist": []any{"client", "missing"},
	}
	masked := Map(input)
	if _, exists := masked["never_persist"]; exists {
		t.Fatalf("never_persist key should be removed")
	}
	if masked["client"] != "[REDACTED]" {
		t.Fatalf("expected client to be masked, got %#v", masked["client"])
	}
	nested, ok := masked["nested"].([]any)
	if !ok || len(nested) != 1 {
		t.Fatalf("expected nested slice to be preserved, got %#v", masked["nested"])
	}
	if item, _ := nested[0].(string); item != "key=[REDACTED]" {
		t.Fatalf("expected nested value to be redacted, got %q", item)
	}
}

func TestMapStringAppliesNeverPersistMask(t *testing.T) {
	input := map[string]string{
		"remote":        "10.0.0.1",
		"another_field": "ok",
		"never_persist": "remote, missing",
	}
	masked := MapString(input)
	if _, exists := masked["never_persist"]; exists {
		t.Fatalf("never_persist key should be removed")
	}
	if val := masked["remote"]; val != "[REDACTED]" {
		t.Fatalf("expected remote to be masked, got %q", val)
	}
	if val := masked["another_field"]; val != "ok" {
		t.Fatalf("unexpected value for another_field: %q", val)
	}
}

func TestStringMasksKeyMaterial(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "des key",
			in:   "bad key 0001001100110100010101110111100110011011101111001101111111110001 given",
			want: "bad key [REDACTED] given",
		},
		{
			name: "hex ciphertext",
			in:   "ciphertext 85e813540f0ab40585e813540f0ab405 rejected",
			want: "ciphertext [REDACTED] rejected",
		},
		{
			name: "shift pair",
			in:   "shift=13",
			want: "shift=[REDACTED]",
		},
		{
			name: "plain message",
			in:   "invalid parameter: text must not be empty",
			want: "invalid parameter: text must not be empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := String(tt.in); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestMapNilAndEmpty(t *testing.T) {
	if got := Map(nil); got != nil {
		t.Fatalf("expected nil input to return nil, got %#v", got)
	}
	if got := MapString(map[string]string{}); got != nil {
		t.Fatalf("expected empty input to return nil, got %#v", got)
	}
	if got := Slice(nil); got != nil {
		t.Fatalf("expected nil slice to return nil, got %#v", got)
	}
}

func TestSliceRedactsEachElement(t *testing.T) {
	got := Slice([]string{"ok", "password=hunter22"})
	if got[0] != "ok" || !strings.Contains(got[1], "[REDACTED]") {
		t.Fatalf("unexpected redaction result %#v", got)
	}
}
