package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "Test1 OK",
			args: []string{"cmd", "-m", "postgres", "-d", "postgres://db/donors", "-s", "redis", "-r", "cache:6379",
				"-t", "5", "-i", "60", "-l", "debug", "-b", "zap", "-x", "ignored"},
			expected: &Config{
				Remote: "postgres", DatabaseDSN: "postgres://db/donors", Realtime: "redis", RedisAddr: "cache:6379",
				RequestTimeout: 5 * time.Second, StatsInterval: 60 * time.Second, LogLevel: "debug", LogBackend: "zap",
			},
		},
		{name: "Test2 incorrect timeout", args: []string{"cmd", "-t", "abc"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
