package util

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExcerptSanitizesForStorage(t *testing.T) {
	text := "before \x00Acme Foundation\x00 after \xff"
	got := Excerpt(text, "Acme Foundation", 160)
	if strings.ContainsRune(got, 0) {
		t.Errorf("excerpt still contains NUL bytes: %q", got)
	}
	if !utf8.ValidString(got) {
		t.Errorf("excerpt is not valid UTF-8: %q", got)
	}
	if !strings.Contains(got, "Acme Foundation") {
		t.Errorf("excerpt lost the matched name: %q", got)
	}
}

func TestExcerptSliceCannotSplitRune(t *testing.T) {
	// the byte window ends mid-rune; the partial rune must be stripped
	text := "Acme " + strings.Repeat("ü", 40)
	got := Excerpt(text, "Acme", 10)
	if !utf8.ValidString(got) {
		t.Errorf("excerpt is not valid UTF-8: %q", got)
	}
}

func TestSanitizePostgresText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"nul\x00byte", "nulbyte"},
		{"bad\xffutf8", "badutf8"},
		{"", ""},
	}
	for _, tt := range cases {
		if got := SanitizePostgresText(tt.in); got != tt.want {
			t.Errorf("SanitizePostgresText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
