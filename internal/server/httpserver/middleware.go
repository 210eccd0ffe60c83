package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/valtok-go/internal/server/httpserver/handler"
	"github.com/yndnr/valtok-go/internal/telemetry/logger"
	"github.com/yndnr/valtok-go/pkg/cmap"
	"github.com/yndnr/valtok-go/pkg/token"
)

// Error codes written by middleware.
const (
	CodeAuthRequired = "VT-AUTH-4010"
	CodeAuthInvalid  = "VT-AUTH-4011"
	CodeRateLimited  = "VT-SYS-4290"
	CodeInternal     = "VT-SYS-5000"
)

// maxRequestIDLength bounds client-supplied X-Request-ID values.
const maxRequestIDLength = 128

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first middleware is the
// outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestRecorder receives per-request measurements.
type RequestRecorder interface {
	RecordRequest(method, path string, status int, d time.Duration)
}

// RequestID assigns every request an ID, reusing a sane X-Request-ID from
// the client, and stores it with a request-scoped logger in the context.
func RequestID(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" || len(requestID) > maxRequestIDLength {
				requestID = ulid.Make().String()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := logger.WithRequestID(r.Context(), requestID)
			ctx = logger.WithLogger(ctx, log.With("request_id", requestID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover recovers from panics and returns 500 error.
func Recover(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					log.Error("panic recovered",
						"request_id", logger.RequestIDFromContext(r.Context()),
						"error", err,
						"path", r.URL.Path,
					)
					writeError(w, r, http.StatusInternalServerError, CodeInternal, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Auth checks the caller's API key against keys. Keys are read from
// X-API-Key or an Authorization Bearer header. With no keys configured
// authentication is disabled.
func Auth(keys []string) Middleware {
	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := extractAPIKey(r)
			if presented == "" {
				writeError(w, r, http.StatusUnauthorized, CodeAuthRequired, "authentication required")
				return
			}

			// Compare against every key so timing does not reveal which matched.
			ok := false
			for _, k := range keys {
				if token.ConstantTimeEqual(presented, k) {
					ok = true
				}
			}
			if !ok {
				writeError(w, r, http.StatusUnauthorized, CodeAuthInvalid, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitConfig configures per-client rate limiting.
type RateLimitConfig struct {
	// Rate is the sustained requests per second per client IP.
	Rate float64
	// Burst is the bucket size.
	Burst int
	// IdleTTL is how long an unused client limiter is kept.
	IdleTTL time.Duration
	// OnLimited is called for every rejected request.
	OnLimited func()
	// Now replaces time.Now.
	Now func() time.Time
}

// DefaultIdleTTL is the default limiter eviction age.
const DefaultIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// RateLimit applies a token bucket per client IP, as resolved by ClientIP.
// Without ClientIP the connecting peer address is the key. Limiters idle for longer
// than IdleTTL are evicted lazily, at most once per IdleTTL.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}

	limiters := cmap.New[*clientLimiter]()
	var lastSweep atomic.Int64
	lastSweep.Store(cfg.Now().UnixNano())

	sweep := func(now time.Time) {
		prev := lastSweep.Load()
		if now.UnixNano()-prev < int64(cfg.IdleTTL) || !lastSweep.CompareAndSwap(prev, now.UnixNano()) {
			return
		}
		cutoff := now.Add(-cfg.IdleTTL).UnixNano()
		limiters.DeleteFunc(func(_ string, cl *clientLimiter) bool {
			return cl.lastSeen.Load() < cutoff
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := cfg.Now()
			sweep(now)

			cl, _ := limiters.GetOrCompute(getClientIP(r), func() (*clientLimiter, error) {
				return &clientLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)}, nil
			})
			cl.lastSeen.Store(now.UnixNano())

			if !cl.limiter.AllowN(now, 1) {
				if cfg.OnLimited != nil {
					cfg.OnLimited()
				}
				w.Header().Set("Retry-After", "1")
				writeError(w, r, http.StatusTooManyRequests, CodeRateLimited, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Metrics records method, route and status of every request.
func Metrics(rec RequestRecorder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			rec.RecordRequest(r.Method, routeOf(r), wrapped.statusCode, time.Since(start))
		})
	}
}

// Audit logs request/response for audit trail.
func Audit(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			attrs := []any{
				"request_id", logger.RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", getClientIP(r),
			}

			switch {
			case wrapped.statusCode >= 500:
				log.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				log.Warn("request completed with client error", attrs...)
			default:
				log.Info("request completed", attrs...)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// routeOf returns the matched route path, so metric labels stay bounded.
func routeOf(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}

func extractAPIKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(bearer)
	}
	return ""
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(handler.NewErrorResponse(logger.RequestIDFromContext(r.Context()), code, message))
}

type clientIPKey struct{}

// ParseTrustedProxies parses proxy addresses and CIDR ranges. A bare address
// matches only itself.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// ClientIP resolves the client address once per request for RateLimit and
// Audit. Forwarding headers are honored only when the connecting peer is in
// trusted.
func ClientIP(trusted []netip.Prefix) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientIP(r, trusted)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIPKey{}, ip)))
		})
	}
}

// getClientIP returns the address resolved by ClientIP, or the connecting
// peer when ClientIP is not installed.
func getClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey{}).(string); ok {
		return ip
	}
	return remoteHost(r)
}

// resolveClientIP walks X-Forwarded-For from the right and returns the first
// hop that is not a trusted proxy.
func resolveClientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := remoteHost(r)
	if !isTrusted(peer, trusted) {
		return peer
	}

	hops := r.Header.Values("X-Forwarded-For")
	for i := len(hops) - 1; i >= 0; i-- {
		parts := strings.Split(hops[i], ",")
		for j := len(parts) - 1; j >= 0; j-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(parts[j]))
			if err != nil {
				// Unparseable hops end the walk.
				return peer
			}
			ip := addr.Unmap().String()
			if !isTrusted(ip, trusted) {
				return ip
			}
			peer = ip
		}
	}
	if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil && len(hops) == 0 {
		return xri.Unmap().String()
	}
	return peer
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(r *http.Request) string {
	// Use net.SplitHostPort to correctly handle IPv6 addresses like [::1]:8080
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.Unmap().String()
	}
	return host
}
