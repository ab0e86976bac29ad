package clog

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	logger, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "verbose"})
	assert.Error(t, err)
}

func TestNewInvalidFormat(t *testing.T) {
	_, err := New(&Config{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"warn", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"trace", InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestWithNamespace(t *testing.T) {
	logger, err := New(&Config{Level: "debug"})
	require.NoError(t, err)

	child := logger.WithNamespace("circuitbreaker")
	require.NotNil(t, child)
	grandchild := child.WithNamespace("stat")
	require.NotNil(t, grandchild)

	// 命名空间只追加，不影响父 Logger
	assert.NotSame(t, logger, child)
}

func TestSetLevel(t *testing.T) {
	logger, err := New(&Config{Level: "info"})
	require.NoError(t, err)

	require.NoError(t, logger.SetLevel(DebugLevel))
	require.NoError(t, logger.SetLevel(ErrorLevel))
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	// 所有操作均为空操作，不应 panic
	logger.Info("ignored", String("k", "v"))
	logger.Error("ignored", Error(assert.AnError))
	assert.Same(t, logger, logger.With(String("k", "v")))
	assert.NoError(t, logger.SetLevel(DebugLevel))
}

func TestErrorField(t *testing.T) {
	f := Error(assert.AnError)
	assert.Equal(t, "err_msg", f.Key)

	empty := Error(nil)
	assert.Equal(t, slog.String("", ""), empty)
}
