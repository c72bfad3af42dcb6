package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestComponentTagsLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	Component("cache").Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "cache", logs.All()[0].ContextMap()["component"])
}

func TestInitLogger_BadLevelFallsBackToInfo(t *testing.T) {
	l, err := InitLogger("loud", false)
	require.NoError(t, err)
	t.Cleanup(func() { SetLogger(nil) })
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}

func TestSanitizeLogUsername(t *testing.T) {
	assert.Equal(t, "alice", SanitizeLogUsername("al\x00ice"))
	long := strings.Repeat("a", 80)
	assert.Equal(t, strings.Repeat("a", 50)+"...", SanitizeLogUsername(long))
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	SafeGo(func() { panic("boom") })

	assert.Eventually(t, func() bool { return logs.Len() == 1 }, time.Second, 5*time.Millisecond)
}
