package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/LavaJover/shvark-payment-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(config.LogConfig{LogLevel: "warn", LogFormat: "json"}, &buf))

	log.Info("dropped")
	log.Warn("kept", "payment_request_id", "pr-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "pr-1", line["payment_request_id"])
}

func TestWriter(t *testing.T) {
	assert.Equal(t, os.Stdout, Writer(config.LogConfig{LogOutput: "stdout"}))

	w := Writer(config.LogConfig{LogOutput: "file", LogFile: "payments.log", LogMaxSizeMB: 10})
	lj, ok := w.(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, "payments.log", lj.Filename)
	assert.Equal(t, 10, lj.MaxSize)
}
