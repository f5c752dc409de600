package config

import (
	"fmt"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/client/ai"
	"github.com/aquemenida/caliope-ai-studio/internal/client/federated"
	"github.com/aquemenida/caliope-ai-studio/internal/flagx"
)

const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Config holds runtime settings for the Caliope client.
type Config struct {
	Backend             string
	DatabaseFile        string
	GatewayAddr         string
	DocumentStoreDSN    string
	AIAPIKey            string
	AIModel             string
	GoogleClientID      string
	GoogleClientSecret  string
	GoogleRedirectURL   string
	RedisAddr           string
	OnlineCheckInterval time.Duration
	NotificationTTL     time.Duration
	LogoutTimeout       time.Duration
	LogFormat           string
}

// LoadDefaults populates c with defaults. The AI key defaults to the
// GEMINI_API_KEY or API_KEY environment variable.
func (c *Config) LoadDefaults() {
	c.Backend = BackendLocal
	c.DatabaseFile = "caliope.db"
	c.GatewayAddr = "127.0.0.1:50051"
	c.AIAPIKey = flagx.EnvOr("", "GEMINI_API_KEY", "API_KEY")
	c.AIModel = ai.DefaultModel
	c.GoogleRedirectURL = federated.DefaultRedirectURL
	c.OnlineCheckInterval = 3 * time.Second
	c.NotificationTTL = 5 * time.Second
	c.LogoutTimeout = 5 * time.Second
	c.LogFormat = "text"
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal, BackendRemote:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendLocal, BackendRemote)
	}
	if c.DatabaseFile == "" {
		return fmt.Errorf("database file is required")
	}
	if c.Backend == BackendRemote && c.GatewayAddr == "" {
		return fmt.Errorf("remote backend needs a gateway address")
	}
	return nil
}

// LoadConfig applies defaults, then the JSON file, then flags. Later
// sources take precedence.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
