package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		" DEBUG ": zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"off":     zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := ParseLevel(raw)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %v,%v want %v", raw, got, ok, want)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
}

func TestNewHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: zerolog.WarnLevel, NoColor: true, Out: &buf})
	logger.Info().Msg("hidden")
	logger.Warn().Str("peripheral", "modem").Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") || !strings.Contains(out, "peripheral=modem") {
		t.Fatalf("unexpected log output: %q", out)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogNoColor, "true")
	cfg := DefaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel || !cfg.NoColor || !cfg.Timestamp {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
