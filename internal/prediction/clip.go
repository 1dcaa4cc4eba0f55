package prediction

import "unicode/utf8"

// maxClip bounds inference output quoted in errors and logs.
const maxClip = 200

// Clip shortens s to at most maxClip bytes for messages, cutting on a rune
// boundary so the result stays valid UTF-8.
func Clip(s string) string {
	if len(s) <= maxClip {
		return s
	}
	cut := maxClip
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
