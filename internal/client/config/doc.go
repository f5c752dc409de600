// Package config loads runtime configuration for the Caliope client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults); the AI key falls back
//     to GEMINI_API_KEY or API_KEY.
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-b string   backend: local (SQLite roster) or remote (identity gateway)
//	-f string   SQLite database file
//	-a string   address:port of the identity gateway
//	-d string   document store DSN for remote profiles
//	-k string   Gemini API key
//	-m string   Gemini model
//	-g string   Google OAuth client id
//	-s string   Google OAuth client secret
//	-r string   Redis address for the daily tip cache
//	-i int      online status check interval (seconds)
//	-n int      notification lifetime (seconds)
//	-l string   log format: text, json or zap
//
// # JSON schema
//
//	{
//	  "backend": "remote",
//	  "gateway_addr": "127.0.0.1:50051",
//	  "document_store_dsn": "mongodb://localhost:27017/caliope",
//	  "online_check_interval": "3s",
//	  "logout_timeout": "5s"
//	}
package config
