package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		raw  string
		want zerolog.Level
		ok   bool
	}{
		{"debug", zerolog.DebugLevel, true},
		{" WARN ", zerolog.WarnLevel, true},
		{"warning", zerolog.WarnLevel, true},
		{"off", zerolog.Disabled, true},
		{"", zerolog.InfoLevel, false},
		{"loud", zerolog.InfoLevel, false},
	}

	for _, tc := range testCases {
		got, ok := ParseLevel(tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
	}
}

func TestNew(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	var buf bytes.Buffer
	logger := New(Options{App: "tlvctl", Level: "warn", Out: &buf, NoColor: true})

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "app=tlvctl")
}

func TestNew_EnvOverride(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")

	var buf bytes.Buffer
	logger := New(Options{Level: "error", Out: &buf, NoColor: true})
	logger.Debug().Msg("visible")

	assert.Contains(t, buf.String(), "visible")
}
