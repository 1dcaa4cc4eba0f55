package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	got := sanitizeKVs([]interface{}{"SUPABASE_KEY", "abc", "service_key", "def", "student.id", "42", "dangling"})
	want := []interface{}{"SUPABASE_KEY", "[REDACTED]", "service_key", "[REDACTED]", "student.id", "42", "dangling"}
	if len(got) != len(want) {
		t.Fatalf("len: got=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got=%v want=%v", i, got[i], want[i])
		}
	}
	if !isRedactKey("postgres_password") || !isRedactKey("dsn") || isRedactKey("outcome") {
		t.Fatalf("isRedactKey mismatch")
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	if got := levelFromEnv(zapcore.DebugLevel); got != zapcore.WarnLevel {
		t.Fatalf("got %v", got)
	}
	t.Setenv("LOG_LEVEL", "loud")
	if got := levelFromEnv(zapcore.InfoLevel); got != zapcore.InfoLevel {
		t.Fatalf("invalid level should fall back, got %v", got)
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"production", "test", "development", ""} {
		log, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		log.With("service", "test").Debug("ok", "k", "v")
	}
}
