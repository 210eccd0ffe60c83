package config

import "time"

// Config is the root configuration shared by valtok-server and the CLI.
type Config struct {
	Token  TokenSection  `koanf:"token" json:"token" yaml:"token"`
	Keys   KeysSection   `koanf:"keys" json:"keys" yaml:"keys"`
	Server ServerSection `koanf:"server" json:"server" yaml:"server"`
	Log    LogSection    `koanf:"log" json:"log" yaml:"log"`
}

// TokenSection configures the token provider.
type TokenSection struct {
	// Lifespan is how long a generated token stays valid.
	Lifespan time.Duration `koanf:"lifespan" json:"lifespan" yaml:"lifespan"`

	// ProviderName is the protection purpose passed to the key ring.
	// Changing it invalidates every outstanding token.
	ProviderName string `koanf:"provider_name" json:"provider_name" yaml:"provider_name"`
}

// KeysSection describes the key ring. Keys may be listed inline, in File,
// or both; File entries are appended and File's default wins.
type KeysSection struct {
	// Default is the ID of the key that protects new tokens. It may be
	// omitted when the ring holds exactly one key.
	Default string `koanf:"default" json:"default" yaml:"default"`

	// Algorithm applies to keys that do not set their own.
	Algorithm string `koanf:"algorithm" json:"algorithm" yaml:"algorithm"`

	// File is an optional YAML file with the same default/algorithm/ring
	// schema. The server watches it and swaps the ring on change.
	File string `koanf:"file" json:"file,omitempty" yaml:"file,omitempty"`

	Ring []KeyConfig `koanf:"ring" json:"ring" yaml:"ring"`
}

// KeyConfig is one ring entry. Exactly one of Secret and Passphrase is set.
type KeyConfig struct {
	// ID is the key's ULID.
	ID string `koanf:"id" json:"id" yaml:"id"`

	// Secret is base64 key material (32 bytes).
	Secret string `koanf:"secret" json:"secret,omitempty" yaml:"secret,omitempty"`

	// Passphrase derives the material with Argon2id, salted by ID.
	Passphrase string `koanf:"passphrase" json:"passphrase,omitempty" yaml:"passphrase,omitempty"`

	Algorithm string `koanf:"algorithm" json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
}

// ServerSection configures valtok-server.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http" json:"http" yaml:"http"`

	// APIKeys enables API key authentication when non-empty.
	APIKeys []string `koanf:"api_keys" json:"api_keys" yaml:"api_keys"`

	// RateLimit is the per-client request rate (req/s). Zero disables it.
	RateLimit float64 `koanf:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `koanf:"rate_burst" json:"rate_burst" yaml:"rate_burst"`

	// TrustedProxies lists proxy addresses or CIDR ranges whose
	// X-Forwarded-For header names the client. Empty means the TCP peer is
	// always the client.
	TrustedProxies []string `koanf:"trusted_proxies" json:"trusted_proxies" yaml:"trusted_proxies"`

	MetricsEnabled  bool          `koanf:"metrics_enabled" json:"metrics_enabled" yaml:"metrics_enabled"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr        string `koanf:"addr" json:"addr" yaml:"addr"`
	TLSCertFile string `koanf:"tls_cert_file" json:"tls_cert_file,omitempty" yaml:"tls_cert_file,omitempty"`
	TLSKeyFile  string `koanf:"tls_key_file" json:"tls_key_file,omitempty" yaml:"tls_key_file,omitempty"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}
