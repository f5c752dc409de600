package config

import (
	"flag"
	"os"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/flagx"
)

var clientFlags = []string{"-b", "-f", "-a", "-d", "-k", "-m", "-g", "-s", "-r", "-i", "-n", "-l"}

// parseFlags overlays cfg with command-line flags. Unknown flags are
// filtered out with flagx.FilterArgs; a malformed value panics.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], clientFlags)

	fs := flag.NewFlagSet("client", flag.ContinueOnError)

	fs.StringVar(&cfg.Backend, "b", cfg.Backend, "persistence backend: local or remote")
	fs.StringVar(&cfg.DatabaseFile, "f", cfg.DatabaseFile, "local SQLite database file")
	fs.StringVar(&cfg.GatewayAddr, "a", cfg.GatewayAddr, "identity gateway address and port")
	fs.StringVar(&cfg.DocumentStoreDSN, "d", cfg.DocumentStoreDSN, "document store DSN (mongodb:// or postgres://)")
	fs.StringVar(&cfg.AIAPIKey, "k", cfg.AIAPIKey, "Gemini API key")
	fs.StringVar(&cfg.AIModel, "m", cfg.AIModel, "Gemini model")
	fs.StringVar(&cfg.GoogleClientID, "g", cfg.GoogleClientID, "Google OAuth client id")
	fs.StringVar(&cfg.GoogleClientSecret, "s", cfg.GoogleClientSecret, "Google OAuth client secret")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "Redis address for the daily tip cache")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	notificationTTL := fs.Int("n", int(cfg.NotificationTTL.Seconds()), "notification lifetime (in seconds)")
	fs.StringVar(&cfg.LogFormat, "l", cfg.LogFormat, "log format: text, json or zap")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.NotificationTTL = time.Duration(*notificationTTL) * time.Second
}
