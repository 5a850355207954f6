package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{" warn ", WarnLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultLoggerRoutesByLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&stdout, &stderr, false)
	logger.SetLevel(DebugLevel)

	logger.Debug("debug message")
	logger.Info("info message", Fields{"frames": 12})
	logger.Warn("warn message")
	logger.Error(errors.New("boom"), "error message")

	assert.Contains(t, stdout.String(), "[DEBUG] debug message")
	assert.Contains(t, stdout.String(), "[INFO] info message map[frames:12]")
	assert.Contains(t, stderr.String(), "[WARN] warn message")
	assert.Contains(t, stderr.String(), "[ERROR] error message: boom")
	assert.NotContains(t, stdout.String(), "warn message")
}

func TestDefaultLoggerLevelFilter(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&stdout, &stderr, false)
	logger.SetLevel(WarnLevel)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "shown")
}

func TestDefaultLoggerFatalExits(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&stdout, &stderr, false)

	code := -1
	logger.exit = func(c int) { code = c }

	logger.Fatal(errors.New("bad input"), "cannot continue")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "[FATAL] cannot continue: bad input")
}

func TestDefaultLoggerWithFieldsAndContext(t *testing.T) {
	var stdout, stderr bytes.Buffer
	base := NewDefaultLoggerWithWriters(&stdout, &stderr, false)

	ctx := ContextWithFields(context.Background(), Fields{"run": "a1"})
	logger := base.WithFields(Fields{"component": "test"}).WithContext(ctx)
	logger.Info("hello")

	out := stdout.String()
	assert.Contains(t, out, "component:test")
	assert.Contains(t, out, "run:a1")
}

func TestDefaultLoggerColors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&stdout, &stderr, true)

	logger.Warn("careful")
	assert.Contains(t, stderr.String(), ColorYellow)
	assert.Contains(t, stderr.String(), ColorReset)
}

func TestSetGlobalLoggerNil(t *testing.T) {
	previous := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(previous) })

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	assert.True(t, ok)

	// must not panic
	Info("ignored", Fields{"k": 1})
	WithFields(Fields{"k": 2}).Warn("ignored")
}

func TestZapLoggerStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger, err := NewZapLoggerFromCore(core, DebugLevel)
	require.NoError(t, err)

	logger.WithFields(Fields{"component": "driver"}).Info("step", Fields{"iteration": 3})
	logger.Error(errors.New("singular"), "solver failed")

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "step", entries[0].Message)
	assert.Equal(t, "driver", first["component"])
	assert.EqualValues(t, 3, first["iteration"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "singular", entries[1].ContextMap()["error"])
}

func TestZapLoggerSetLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger, err := NewZapLoggerFromCore(core, InfoLevel)
	require.NoError(t, err)

	logger.Debug("dropped")
	logger.SetLevel(DebugLevel)
	logger.Debug("kept")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
}
