package prediction

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClipKeepsShortText(t *testing.T) {
	if got := Clip("Graduate"); got != "Graduate" {
		t.Fatalf("Clip: %q", got)
	}
	exact := strings.Repeat("a", maxClip)
	if got := Clip(exact); got != exact {
		t.Fatalf("Clip(exact) changed length to %d", len(got))
	}
}

func TestClipCutsOnRuneBoundary(t *testing.T) {
	// "é" is two bytes, so byte 200 falls inside a rune after one ASCII byte.
	s := "x" + strings.Repeat("é", 150)
	got := Clip(s)
	if !utf8.ValidString(got) {
		t.Fatalf("Clip returned invalid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("Clip missing marker: %q", got)
	}
	body := strings.TrimSuffix(got, "...")
	if len(body) != 199 || !strings.HasPrefix(s, body) {
		t.Fatalf("Clip body len=%d", len(body))
	}
}
