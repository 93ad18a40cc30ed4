// Package config loads runtime configuration for the DonorLink CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// Durations can be strings like "10s" or integer nanoseconds:
//
//	{
//	  "remote": "rest",
//	  "rest_url": "https://db.example.org",
//	  "api_key": "eyJhbGciOi...",
//	  "realtime": "websocket",
//	  "realtime_url": "wss://db.example.org/realtime/v1/websocket",
//	  "snapshot_db": "donorlink.db",
//	  "request_timeout": "10s",
//	  "stats_interval": "30s",
//	  "log_backend": "zap",
//	  "log_level": "debug"
//	}
//
// Call (*Config).Validate before use. Environment variables are not read.
package config
