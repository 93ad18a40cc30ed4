package config

import "time"

// Remote store transports.
const (
	RemoteREST     = "rest"
	RemotePostgres = "postgres"
)

// Change stream transports.
const (
	RealtimeWebsocket = "websocket"
	RealtimeRedis     = "redis"
	RealtimePostgres  = "postgres"
	RealtimeNone      = "none"
)

// Config holds runtime settings for the DonorLink CLI.
//
// Remote selects how the directory is read and written: over the store's
// REST gateway (RESTURL, APIKey) or with SQL against DatabaseDSN. Realtime
// selects where change events come from. SnapshotDB is the local SQLite file
// that keeps the last confirmed lists between runs.
type Config struct {
	Remote      string
	RESTURL     string
	APIKey      string
	DatabaseDSN string

	Realtime    string
	RealtimeURL string
	RedisAddr   string
	RedisPrefix string

	SnapshotDB string

	RequestTimeout time.Duration
	StatsInterval  time.Duration

	LogBackend string
	LogFormat  string
	LogLevel   string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Remote = RemoteREST
	c.RESTURL = "http://127.0.0.1:54321"
	c.Realtime = RealtimeWebsocket
	c.RealtimeURL = "ws://127.0.0.1:54321/realtime/v1/websocket"
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisPrefix = "donorlink:changes:"
	c.SnapshotDB = "donorlink.db"
	c.RequestTimeout = 10 * time.Second
	c.StatsInterval = 30 * time.Second
	c.LogBackend = "slog"
	c.LogFormat = "auto"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
