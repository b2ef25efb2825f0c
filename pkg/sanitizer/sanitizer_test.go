package sanitizer

import "testing"

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only whitespace", "   \t\n  ", ""},
		{"trims edges", "  change of plans  ", "change of plans"},
		{"collapses internal runs", "change   of \t plans", "change of plans"},
		{"newlines become spaces", "line one\nline two", "line one line two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"us number with formatting", "(212) 555-0142", "+12125550142"},
		{"us number e164 passthrough", "+12125550142", "+12125550142"},
		{"uk number", "+44 20 7946 0958", "+442079460958"},
		{"garbage", "not-a-phone", ""},
		{"too short", "12345", ""},
		{"letters mixed in", "212 CALL NOW", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizePhone(tt.input); got != tt.want {
				t.Errorf("SanitizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
