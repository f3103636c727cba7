package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setSingletonForTest temporarily replaces the singleton logger and restores
// the original when the test completes.
func setSingletonForTest(t *testing.T, l *slog.Logger) {
	t.Helper()
	prev := singleton.Load()
	singleton.Store(l)
	t.Cleanup(func() { singleton.Store(prev) })
}

func TestUnstructuredLogsCheck(t *testing.T) { //nolint:paralleltest // mutates env
	tests := []struct {
		name     string
		envValue string
		expected bool
	}{
		{"Default Case", "", true},
		{"Explicitly True", "true", true},
		{"Explicitly False", "false", false},
		{"Invalid Value", "not-a-bool", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("UNSTRUCTURED_LOGS", tt.envValue)
			assert.Equal(t, tt.expected, unstructuredLogs())
		})
	}
}

// TestLogLevels tests that each log function writes to the underlying handler.
func TestLogLevels(t *testing.T) { //nolint:paralleltest // mutates singleton
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	setSingletonForTest(t, slog.New(handler))

	cases := []struct {
		name  string
		log   func()
		level string
	}{
		{"Debug", func() { Debug("debug message") }, "DEBUG"},
		{"Debugf", func() { Debugf("debug %s", "message") }, "DEBUG"},
		{"Debugw", func() { Debugw("debug message", "key", "value") }, "DEBUG"},
		{"Info", func() { Info("info message") }, "INFO"},
		{"Infof", func() { Infof("info %s", "message") }, "INFO"},
		{"Infow", func() { Infow("info message", "key", "value") }, "INFO"},
		{"Warn", func() { Warn("warn message") }, "WARN"},
		{"Warnf", func() { Warnf("warn %s", "message") }, "WARN"},
		{"Warnw", func() { Warnw("warn message", "key", "value") }, "WARN"},
		{"Error", func() { Error("error message") }, "ERROR"},
		{"Errorf", func() { Errorf("error %s", "message") }, "ERROR"},
		{"Errorw", func() { Errorw("error message", "key", "value") }, "ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()
			tc.log()
			require.NotEmpty(t, buf.String())
			assert.Contains(t, buf.String(), tc.level)
			assert.Contains(t, buf.String(), "message")
		})
	}
}

func TestGetAndSet(t *testing.T) { //nolint:paralleltest // mutates singleton
	var buf bytes.Buffer
	replacement := slog.New(slog.NewJSONHandler(&buf, nil))
	setSingletonForTest(t, replacement)

	require.Same(t, replacement, Get())
	Info("hello")
	assert.Contains(t, buf.String(), "hello")
}
