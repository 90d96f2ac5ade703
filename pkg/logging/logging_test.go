package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetupWriter(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	if err := SetupWriter(&buf, "warn", false); err != nil {
		t.Fatalf("setup: %v", err)
	}

	log.Info().Msg("hidden")
	log.Warn().Str("function", "main").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"function":"main"`) || !strings.Contains(out, `"message":"shown"`) {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if err := SetupWriter(&bytes.Buffer{}, "loud", false); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}
