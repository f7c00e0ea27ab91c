package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("../../configs")
	require.NoError(t, err)

	// expire_hours 配置为小时数，加载后换算为 time.Duration
	assert.Equal(t, 72*time.Hour, cfg.JWT.ExpireTime)
	assert.True(t, cfg.JWT.ExpireTime > 0, "token 有效期必须为正")

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 50, cfg.League.MaxParticipants)
	assert.Equal(t, "local", cfg.Storage.Type)
}
