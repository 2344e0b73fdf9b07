package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := logger.WithContext(context.Background())

	ctx = WithFields(ctx, map[string]any{"session": "s-1"})
	FromCtx(ctx).Info().Msg("hello")

	assert.Contains(t, buf.String(), `"session":"s-1"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestGooseLogger_Printf(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ctx := logger.WithContext(context.Background())

	NewGooseLoggerFromCtx(ctx).Printf("OK   %s\n", "00001_create_exchanges.sql")

	assert.Contains(t, buf.String(), `"component":"goose"`)
	assert.Contains(t, buf.String(), "00001_create_exchanges.sql")
}
