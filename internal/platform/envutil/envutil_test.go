package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"", 5 * time.Second},
		{"90s", 90 * time.Second},
		{"30", 30 * time.Second},
		{"0", 0},
		{"soon", 5 * time.Second},
	}
	for _, tc := range cases {
		t.Setenv("SR_TEST_DURATION", tc.raw)
		if got := Duration("SR_TEST_DURATION", 5*time.Second); got != tc.want {
			t.Fatalf("Duration(%q): got %v want %v", tc.raw, got, tc.want)
		}
	}
}

func TestBool(t *testing.T) {
	t.Setenv("SR_TEST_BOOL", "on")
	if !Bool("SR_TEST_BOOL", false) {
		t.Fatalf("want true for on")
	}
	t.Setenv("SR_TEST_BOOL", "nope")
	if Bool("SR_TEST_BOOL", true) {
		t.Fatalf("want false for unrecognized value")
	}
}

func TestFloat(t *testing.T) {
	t.Setenv("SR_TEST_FLOAT", "0.25")
	if got := Float("SR_TEST_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float: got %v", got)
	}
	t.Setenv("SR_TEST_FLOAT", "half")
	if got := Float("SR_TEST_FLOAT", 1); got != 1 {
		t.Fatalf("Float fallback: got %v", got)
	}
}
