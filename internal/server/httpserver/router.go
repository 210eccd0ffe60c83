package httpserver

import (
	"net/http"
	"net/netip"

	"github.com/yndnr/valtok-go/internal/server/httpserver/handler"
	"github.com/yndnr/valtok-go/internal/telemetry/logger"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Tokens issues and validates tokens.
	Tokens handler.TokenService

	// Stamps creates security stamps.
	Stamps handler.StampSource

	// Ready reports whether the key ring is loaded.
	Ready func() bool

	// Logger for request logging.
	Logger logger.Logger

	// APIKeys are the accepted API keys (empty = no authentication).
	APIKeys []string

	// RateLimit is the per-IP rate limit in requests/second (0 = disabled).
	RateLimit float64

	// RateBurst is the per-IP bucket size.
	RateBurst int

	// TrustedProxies may set X-Forwarded-For (empty = use the peer address).
	TrustedProxies []netip.Prefix

	// OnRateLimited is called for every rejected request.
	OnRateLimited func()

	// Recorder receives request metrics (nil = disabled).
	Recorder RequestRecorder

	// MetricsHandler serves /metrics (nil = not mounted).
	MetricsHandler http.Handler

	// MetricsAuthRequired puts /metrics behind API key authentication.
	MetricsAuthRequired bool

	// EnableAudit enables audit logging for API requests.
	EnableAudit bool
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	h := handler.New(cfg.Tokens, cfg.Stamps, cfg.Ready, log)

	mux := http.NewServeMux()

	// Health endpoints - no authentication required
	health := Chain(h, Recover(log), RequestID(log))
	mux.Handle("GET /health", health)
	mux.Handle("GET /ready", health)

	if cfg.MetricsHandler != nil {
		metrics := []Middleware{Recover(log), RequestID(log)}
		if cfg.MetricsAuthRequired {
			metrics = append(metrics, Auth(cfg.APIKeys))
		}
		mux.Handle("GET /metrics", Chain(cfg.MetricsHandler, metrics...))
	}

	// API endpoints
	// Order: Recover -> RequestID -> ClientIP -> Metrics -> RateLimit -> Auth -> Audit -> Handler
	api := []Middleware{Recover(log), RequestID(log), ClientIP(cfg.TrustedProxies)}
	if cfg.Recorder != nil {
		api = append(api, Metrics(cfg.Recorder))
	}
	if cfg.RateLimit > 0 {
		api = append(api, RateLimit(RateLimitConfig{
			Rate:      cfg.RateLimit,
			Burst:     cfg.RateBurst,
			OnLimited: cfg.OnRateLimited,
		}))
	}
	api = append(api, Auth(cfg.APIKeys))
	if cfg.EnableAudit {
		api = append(api, Audit(log))
	}
	apiHandler := Chain(h, api...)

	mux.Handle("POST /v1/tokens", apiHandler)
	mux.Handle("POST /v1/tokens/validate", apiHandler)
	mux.Handle("POST /v1/stamps", apiHandler)

	return mux
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		RateLimit:           50,
		RateBurst:           100,
		MetricsAuthRequired: false,
		EnableAudit:         true,
	}
}
