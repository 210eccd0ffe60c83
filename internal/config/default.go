package config

import (
	"time"

	"github.com/yndnr/valtok-go/pkg/token"
)

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:8080"
	DefaultRateLimit       = 50
	DefaultRateBurst       = 100
	DefaultShutdownTimeout = 15 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default configuration. It has no keys, so it does
// not pass Verify on its own.
func Default() *Config {
	return &Config{
		Token: TokenSection{
			Lifespan:     token.DefaultLifespan,
			ProviderName: token.DefaultName,
		},
		Server: ServerSection{
			HTTP:            HTTPConfig{Addr: DefaultHTTPAddr},
			RateLimit:       DefaultRateLimit,
			RateBurst:       DefaultRateBurst,
			MetricsEnabled:  true,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
