package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	Init(level)
	t.Cleanup(func() {
		Restore(prev)
		Init("info")
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"debug":    "debug",
		" WARN ":   "warn",
		"warning":  "warn",
		"Error":    "error",
		"fatal":    "fatal",
		"":         "info",
		"nonsense": "info",
	}
	for in, want := range cases {
		Init(in)
		assert.Equal(t, want, LevelString(), "input %q", in)
	}
	Init("info")
}

func TestThresholdSuppressesLowerLevels(t *testing.T) {
	buf := capture(t, "warn")

	Debugf("debug-msg")
	Infof("info-msg")
	Println("println-msg")
	Warnf("warn-msg")
	Error("error-msg")

	out := buf.String()
	assert.NotContains(t, out, "debug-msg")
	assert.NotContains(t, out, "info-msg")
	assert.NotContains(t, out, "println-msg")
	assert.Contains(t, out, "[WARN] warn-msg")
	assert.Contains(t, out, "[ERROR] error-msg")
}

func TestPrintlnLogsAtInfo(t *testing.T) {
	buf := capture(t, "info")
	Println("saved", 3, "notes")
	require.Contains(t, buf.String(), "[INFO] saved 3 notes")
}

func TestNamedComponentPrefix(t *testing.T) {
	buf := capture(t, "debug")

	c := Named("collection")
	c.Debugf("attached %d", 1)
	c.Errorf("snapshot failed: %s", "boom")

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] collection: attached 1")
	assert.Contains(t, out, "[ERROR] collection: snapshot failed: boom")
}
