package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidConfig = errors.New("invalid config")

// Validate checks that the selected transports have what they need. An API
// key that is a JWT whose exp claim has passed yields common.ErrUnauthorized;
// signatures are not verified.
func (c *Config) Validate() error {
	return c.validate(time.Now())
}

func (c *Config) validate(now time.Time) error {
	switch c.Remote {
	case RemoteREST:
		if c.RESTURL == "" {
			return fmt.Errorf("%w: rest remote needs a base URL", ErrInvalidConfig)
		}
	case RemotePostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("%w: postgres remote needs a DSN", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown remote %q", ErrInvalidConfig, c.Remote)
	}

	switch c.Realtime {
	case RealtimeWebsocket:
		if c.RealtimeURL == "" {
			return fmt.Errorf("%w: websocket change stream needs a URL", ErrInvalidConfig)
		}
	case RealtimeRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis change stream needs an address", ErrInvalidConfig)
		}
	case RealtimePostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("%w: postgres change stream needs a DSN", ErrInvalidConfig)
		}
	case RealtimeNone:
	default:
		return fmt.Errorf("%w: unknown change stream %q", ErrInvalidConfig, c.Realtime)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidConfig)
	}

	return checkAPIKey(c.APIKey, now)
}

// checkAPIKey rejects expired JWT keys. Opaque keys and tokens without exp
// pass.
func checkAPIKey(key string, now time.Time) error {
	if key == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if exp.Before(now) {
		return fmt.Errorf("%w: api key expired at %s", common.ErrUnauthorized, exp.Format(time.RFC3339))
	}
	return nil
}
