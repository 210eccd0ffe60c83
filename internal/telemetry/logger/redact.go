package logger

import (
	"log/slog"
	"strings"
)

// Key fragments that mark an attribute as secret.
var sensitiveKeyPatterns = []string{
	"password",
	"passphrase",
	"secret",
	"token",
	"stamp",
	"key",
	"credential",
	"auth",
	"bearer",
}

// Keys that match a pattern above but are safe by construction.
var safeKeys = map[string]bool{
	"token_fp": true,
	"key_id":   true,
}

// Redacted replaces secret values in logs and rendered configuration.
const Redacted = "***REDACTED***"

// redactSensitive hides non-empty string values of sensitive keys and
// recurses into groups.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if a.Value.String() != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, Redacted)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindAny:
		if _, ok := a.Value.Any().([]byte); ok && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, Redacted)
		}
	}
	return a
}

// IsSensitiveKey reports whether values under key must not be logged.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if safeKeys[k] {
		return false
	}
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(k, pattern) {
			return true
		}
	}
	return false
}
