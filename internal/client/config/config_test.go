package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "fallback-key")

	var c Config
	c.LoadDefaults()

	assert.Equal(t, BackendLocal, c.Backend)
	assert.Equal(t, "caliope.db", c.DatabaseFile)
	assert.Equal(t, "127.0.0.1:50051", c.GatewayAddr)
	assert.Equal(t, "fallback-key", c.AIAPIKey)
	assert.Equal(t, "gemini-2.5-flash", c.AIModel)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 5*time.Second, c.LogoutTimeout)
	assert.NoError(t, c.Validate())
}

func TestLoadDefaults_PrefersGeminiKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "primary")
	t.Setenv("API_KEY", "secondary")

	var c Config
	c.LoadDefaults()
	assert.Equal(t, "primary", c.AIAPIKey)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "127.0.0.1:50051", cfg.GatewayAddr)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
}

func TestValidate(t *testing.T) {
	var c Config
	c.LoadDefaults()

	c.Backend = "cloud"
	assert.Error(t, c.Validate())

	c.Backend = BackendRemote
	c.GatewayAddr = ""
	assert.Error(t, c.Validate())

	c.GatewayAddr = "gw:50051"
	assert.NoError(t, c.Validate())

	c.DatabaseFile = ""
	assert.Error(t, c.Validate())
}
