package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tonhe/fritzmon/internal/fritz"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "fritzmon.log")
	log, closeLog, err := New("info", path)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("poll complete", zap.Int("points", 3))
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "poll complete")
	assert.Contains(t, string(data), "points")
	assert.NotContains(t, string(data), "hidden")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, _, err := New("loud", "")
	assert.Error(t, err)
}

func TestObserver(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	obs := Observer(zap.New(core))
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	obs(fritz.Event{Type: fritz.EventError, Kind: fritz.KindToken, At: at, Err: errors.New("refused")})
	obs(fritz.Event{Type: fritz.EventData, Kind: fritz.KindInfo, At: at, OSVersion: "7.57"})
	obs(fritz.Event{Type: fritz.EventData, Kind: fritz.KindGraph, At: at, Bandwidth: &fritz.Bandwidth{
		Upstream:   fritz.Traffic{Total: 12.5},
		Downstream: fritz.Traffic{Total: 800},
	}})

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "TOKEN", entries[0].ContextMap()["kind"])
	assert.Equal(t, "refused", entries[0].ContextMap()["error"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, "7.57", entries[1].ContextMap()["os_version"])

	assert.Equal(t, 800.0, entries[2].ContextMap()["downstream_kbps"])
}
