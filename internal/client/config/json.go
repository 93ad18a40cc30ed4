package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/donorlink/internal/flagx"
	"github.com/dmitrijs2005/donorlink/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// use timex.Duration so they can be written as "10s" or as nanoseconds.
type JsonConfig struct {
	Remote         string         `json:"remote"`
	RESTURL        string         `json:"rest_url"`
	APIKey         string         `json:"api_key"`
	DatabaseDSN    string         `json:"database_dsn"`
	Realtime       string         `json:"realtime"`
	RealtimeURL    string         `json:"realtime_url"`
	RedisAddr      string         `json:"redis_addr"`
	RedisPrefix    string         `json:"redis_prefix"`
	SnapshotDB     string         `json:"snapshot_db"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	StatsInterval  timex.Duration `json:"stats_interval"`
	LogBackend     string         `json:"log_backend"`
	LogFormat      string         `json:"log_format"`
	LogLevel       string         `json:"log_level"`
}

// parseJson overlays cfg with the JSON file named by -c, -config or
// DONORLINK_CONFIG. Keys
// missing from the file keep their current values. Read and decode errors
// panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
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

	setString(&cfg.Remote, jc.Remote)
	setString(&cfg.RESTURL, jc.RESTURL)
	setString(&cfg.APIKey, jc.APIKey)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.Realtime, jc.Realtime)
	setString(&cfg.RealtimeURL, jc.RealtimeURL)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	setString(&cfg.RedisPrefix, jc.RedisPrefix)
	setString(&cfg.SnapshotDB, jc.SnapshotDB)
	setString(&cfg.LogBackend, jc.LogBackend)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.StatsInterval.Duration > 0 {
		cfg.StatsInterval = jc.StatsInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
