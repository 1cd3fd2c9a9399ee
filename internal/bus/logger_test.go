package bus

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapAdapter_RoutesLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := newZapAdapter(zap.New(core)).With(watermill.LogFields{"topic": TopicOutcomes})

	adapter.Info("subscribed", watermill.LogFields{"subscriber": "ui"})
	adapter.Trace("sending message", nil)
	adapter.Error("publish failed", errors.New("closed"), watermill.LogFields{"uuid": "abc"})

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "subscribed", entries[0].Message)
	assert.Equal(t, TopicOutcomes, entries[0].ContextMap()["topic"])
	assert.Equal(t, "ui", entries[0].ContextMap()["subscriber"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "closed", entries[2].ContextMap()["error"])
	assert.Equal(t, "abc", entries[2].ContextMap()["uuid"])
}

func TestBus_WatermillLogsReachZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b := New(zap.New(core))
	require.NoError(t, b.Close())

	watermillLogs := logs.FilterLoggerName("watermill").All()
	require.NotEmpty(t, watermillLogs)
	assert.Equal(t, "bus", watermillLogs[0].ContextMap()["component"])
}
