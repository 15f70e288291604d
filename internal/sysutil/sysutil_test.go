package sysutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetLogLevel_AllVariants(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel},
	}

	for _, tc := range cases {
		SetLogLevel(tc.in)
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Fatalf("SetLogLevel(%q) -> %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestSetupLogger_JSONAndPretty(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	SetupLogger("dogbreeds", false, &buf)
	log.Info().Msg("hello")
	out := buf.String()
	if !strings.Contains(out, `"service":"dogbreeds"`) || !strings.Contains(out, `"message":"hello"`) || !strings.Contains(out, `"time":`) {
		t.Fatalf("unexpected JSON log: %s", out)
	}

	buf.Reset()
	SetupLogger("", true, &buf)
	log.Info().Msg("pretty")
	out = buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") || !strings.Contains(out, "pretty") {
		t.Fatalf("expected console output, got: %s", out)
	}
}
