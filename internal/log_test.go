package internal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"ERROR", LogLevelError},
		{"warn", LogLevelWarn},
		{" debug ", LogLevelDebug},
		{"TRACE", LogLevelTrace},
		{"", LogLevelInfo},
		{"verbose", LogLevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(LogLevelWarn, &buf)

	l.Info("hidden %d", 1)
	l.Debug("hidden")
	l.Warn("shown %s", "warn")
	l.Error("shown error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown warn")
	assert.Contains(t, out, "[ERROR] shown error")
}

func TestLoggerComponentTag(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(LogLevelDebug, &buf).With("MonteCarlo")

	l.Debug("chunk %d done", 3)
	assert.Equal(t, "[DEBUG] [MonteCarlo] chunk 3 done\n", buf.String())
	assert.Equal(t, LogLevelDebug, l.GetLevel())
}
