package config

import (
	"encoding/json"
	"os"

	"github.com/aquemenida/caliope-ai-studio/internal/flagx"
	"github.com/aquemenida/caliope-ai-studio/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "3s" or
// integer nanoseconds.
type JsonConfig struct {
	Backend             string         `json:"backend"`
	DatabaseFile        string         `json:"database_file"`
	GatewayAddr         string         `json:"gateway_addr"`
	DocumentStoreDSN    string         `json:"document_store_dsn"`
	AIAPIKey            string         `json:"ai_api_key"`
	AIModel             string         `json:"ai_model"`
	GoogleClientID      string         `json:"google_client_id"`
	GoogleClientSecret  string         `json:"google_client_secret"`
	GoogleRedirectURL   string         `json:"google_redirect_url"`
	RedisAddr           string         `json:"redis_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	NotificationTTL     timex.Duration `json:"notification_ttl"`
	LogoutTimeout       timex.Duration `json:"logout_timeout"`
	LogFormat           string         `json:"log_format"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays cfg with the file given by -c or -config. Keys absent
// from the file keep their current value. Read or decode errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.Backend, jc.Backend)
	setString(&cfg.DatabaseFile, jc.DatabaseFile)
	setString(&cfg.GatewayAddr, jc.GatewayAddr)
	setString(&cfg.DocumentStoreDSN, jc.DocumentStoreDSN)
	setString(&cfg.AIAPIKey, jc.AIAPIKey)
	setString(&cfg.AIModel, jc.AIModel)
	setString(&cfg.GoogleClientID, jc.GoogleClientID)
	setString(&cfg.GoogleClientSecret, jc.GoogleClientSecret)
	setString(&cfg.GoogleRedirectURL, jc.GoogleRedirectURL)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	setString(&cfg.LogFormat, jc.LogFormat)
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.NotificationTTL.Duration > 0 {
		cfg.NotificationTTL = jc.NotificationTTL.Duration
	}
	if jc.LogoutTimeout.Duration > 0 {
		cfg.LogoutTimeout = jc.LogoutTimeout.Duration
	}
}
