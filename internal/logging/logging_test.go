package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(" info "))
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	// Typos surface everything rather than hiding it.
	assert.Equal(t, slog.LevelDebug, ParseLevel("verbose"))
	assert.Equal(t, slog.LevelDebug, ParseLevel(""))
}

func TestNewLoggerHonorsLevel(t *testing.T) {
	t.Parallel()

	logger := New("warn")
	ctx := context.Background()
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))
}
