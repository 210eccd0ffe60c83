package config

import (
	"github.com/yndnr/valtok-go/internal/infra/confloader"
)

// Load reads defaults, then path (if not empty), then VALTOK_ environment
// variables. The result is not verified.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := confloader.NewLoader(confloader.WithConfigFile(path)).Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
