package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/flagx"
)

var knownFlags = []string{"m", "a", "k", "d", "s", "w", "r", "f", "t", "i", "l", "b"}

// parseFlags populates Config fields from command-line flags.
//
//	-m string   remote transport: rest or postgres
//	-a string   REST gateway base URL
//	-k string   API key sent with every REST call
//	-d string   Postgres DSN (postgres remote and change stream)
//	-s string   change stream: websocket, redis, postgres or none
//	-w string   websocket URL of the change stream
//	-r string   Redis address of the change stream
//	-f string   local snapshot database file
//	-t int      request timeout (in seconds)
//	-i int      stats refresh interval (in seconds)
//	-l string   log level
//	-b string   log backend: slog or zap
//
// os.Args is filtered with flagx.Filter so the config file flag does not
// interfere.
func parseFlags(cfg *Config) {
	args := flagx.Filter(os.Args[1:], knownFlags...)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.Remote, "m", cfg.Remote, "remote transport (rest|postgres)")
	fs.StringVar(&cfg.RESTURL, "a", cfg.RESTURL, "REST gateway base URL")
	fs.StringVar(&cfg.APIKey, "k", cfg.APIKey, "API key")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "Postgres DSN")
	fs.StringVar(&cfg.Realtime, "s", cfg.Realtime, "change stream (websocket|redis|postgres|none)")
	fs.StringVar(&cfg.RealtimeURL, "w", cfg.RealtimeURL, "change stream websocket URL")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "change stream Redis address")
	fs.StringVar(&cfg.SnapshotDB, "f", cfg.SnapshotDB, "local snapshot database file")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	statsInterval := fs.Int("i", int(cfg.StatsInterval.Seconds()), "stats refresh interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogBackend, "b", cfg.LogBackend, "log backend (slog|zap)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.StatsInterval = time.Duration(*statsInterval) * time.Second
}
