package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"sovereign-sentinel/internal/config"
)

func TestNewLogger_RespectsLevel(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "WARN", Encoding: "json"}, "test")
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "loud"}, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "解析日志级别失败")
}
