package cli

import (
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pfrederiksen/exam-events/internal/logger"
)

func TestCronLogger_RecoveredPanic(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cl := cronLogger{log: logger.NewFromZap(zap.New(core))}

	job := cron.NewChain(cron.Recover(cl)).Then(cron.FuncJob(func() { panic("scrape exploded") }))
	require.NotPanics(t, job.Run)

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "panic", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "scrape exploded", ctx["error"])
	assert.Contains(t, ctx, "stack")
}

func TestCronLogger_InfoAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cl := cronLogger{log: logger.NewFromZap(zap.New(core))}

	cl.Info("wake", "now", "2027-03-10", 42, "odd key", "dangling")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "2027-03-10", ctx["now"])
	assert.Equal(t, "odd key", ctx["42"])
	assert.NotContains(t, ctx, "dangling")
}
