package config

import (
	"github.com/yndnr/valtok-go/internal/telemetry/logger"
)

// Sanitize returns a deep copy of cfg with secrets replaced, for display
// and logging.
func Sanitize(cfg *Config) *Config {
	out := *cfg

	out.Keys.Ring = make([]KeyConfig, len(cfg.Keys.Ring))
	for i, kc := range cfg.Keys.Ring {
		if kc.Secret != "" {
			kc.Secret = logger.Redacted
		}
		if kc.Passphrase != "" {
			kc.Passphrase = logger.Redacted
		}
		out.Keys.Ring[i] = kc
	}

	out.Server.APIKeys = make([]string, len(cfg.Server.APIKeys))
	for i := range cfg.Server.APIKeys {
		out.Server.APIKeys[i] = logger.Redacted
	}
	return &out
}
