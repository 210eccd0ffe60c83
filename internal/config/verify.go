package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/yndnr/valtok-go/internal/telemetry/logger"
)

// Verify validates the configuration and reports every problem found.
// Key material is checked for shape only; passphrases are not derived.
func Verify(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	return errors.Join(
		verifyToken(&cfg.Token),
		verifyKeys(&cfg.Keys),
		verifyServer(&cfg.Server),
		verifyLog(&cfg.Log),
	)
}

func verifyToken(t *TokenSection) error {
	var errs []error
	if t.Lifespan <= 0 {
		errs = append(errs, fmt.Errorf("token.lifespan must be positive, got %s", t.Lifespan))
	}
	if t.ProviderName == "" {
		errs = append(errs, errors.New("token.provider_name is required"))
	}
	return errors.Join(errs...)
}

// verifyKeys checks inline keys. When File is set the ring is completed at
// load time, so only the file's readability is checked here.
func verifyKeys(ks *KeysSection) error {
	resolved, err := ks.Resolve()
	if err != nil {
		return err
	}
	if len(resolved.Ring) == 0 {
		return errors.New("keys.ring must contain at least one key")
	}

	var errs []error
	seen := make(map[string]bool, len(resolved.Ring))
	for i, kc := range resolved.Ring {
		if _, _, err := kc.check(resolved.Algorithm); err != nil {
			errs = append(errs, fmt.Errorf("keys.ring[%d]: %w", i, err))
			continue
		}
		id := strings.ToUpper(kc.ID)
		if seen[id] {
			errs = append(errs, fmt.Errorf("keys.ring[%d]: duplicate id %s", i, kc.ID))
		}
		seen[id] = true
	}

	switch {
	case resolved.Default == "" && len(resolved.Ring) > 1:
		errs = append(errs, ErrNoDefaultKey)
	case resolved.Default != "" && !seen[strings.ToUpper(resolved.Default)]:
		errs = append(errs, fmt.Errorf("keys.default %s is not in the ring", resolved.Default))
	}
	return errors.Join(errs...)
}

func verifyServer(s *ServerSection) error {
	var errs []error
	if s.HTTP.Addr == "" {
		errs = append(errs, errors.New("server.http.addr is required"))
	}
	if (s.HTTP.TLSCertFile == "") != (s.HTTP.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.http.tls_cert_file and tls_key_file must be set together"))
	}
	if s.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	if s.RateLimit > 0 && s.RateBurst < 1 {
		errs = append(errs, errors.New("server.rate_burst must be at least 1 when rate limiting is enabled"))
	}
	for i, k := range s.APIKeys {
		if strings.TrimSpace(k) == "" {
			errs = append(errs, fmt.Errorf("server.api_keys[%d] is empty", i))
		}
	}
	for i, p := range s.TrustedProxies {
		if !validProxy(p) {
			errs = append(errs, fmt.Errorf("server.trusted_proxies[%d]: %q is not an IP address or CIDR range", i, p))
		}
	}
	if s.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	return errors.Join(errs...)
}

func validProxy(s string) bool {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

func verifyLog(l *LogSection) error {
	var errs []error
	if _, err := logger.ParseLevel(l.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(l.Format) {
	case "", "json", "text", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", l.Format))
	}
	return errors.Join(errs...)
}
