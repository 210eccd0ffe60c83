package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/yndnr/valtok-go/internal/telemetry/logger"
	"github.com/yndnr/valtok-go/pkg/token"
)

// MaxBodyBytes bounds request bodies. It covers a maximum-length token plus
// three maximum-length fields written entirely as six-byte \u escapes.
const MaxBodyBytes = 128 << 10

// Error codes written by handlers.
const (
	CodeBadRequest = "VT-SYS-4000"
	CodeNotReady   = "VT-SYS-5030"
)

// TokenService issues and validates tokens. *token.Provider implements it.
type TokenService interface {
	Issue(purpose, resourceID, securityStamp string) (token.Issued, error)
	Validate(tok, purpose, resourceID, securityStamp string) bool
}

// StampSource creates security stamps. *token.StampGenerator implements it.
type StampSource interface {
	New() (string, error)
}

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	tokens TokenService
	stamps StampSource
	ready  func() bool
	logger logger.Logger
	mux    *http.ServeMux
}

// New creates a new Handler. ready reports whether a key ring is loaded; nil
// means always ready.
func New(tokens TokenService, stamps StampSource, ready func() bool, log logger.Logger) *Handler {
	if ready == nil {
		ready = func() bool { return true }
	}
	if log == nil {
		log = logger.Nop()
	}
	h := &Handler{
		tokens: tokens,
		stamps: stamps,
		ready:  ready,
		logger: log,
		mux:    http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("POST /v1/tokens", h.handleGenerateToken)
	h.mux.HandleFunc("POST /v1/tokens/validate", h.handleValidateToken)
	h.mux.HandleFunc("POST /v1/stamps", h.handleNewStamp)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	response := NewResponse(logger.RequestIDFromContext(r.Context()), data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log(r).Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	response := NewErrorResponse(logger.RequestIDFromContext(r.Context()), code, message)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) log(r *http.Request) logger.Logger {
	if id := logger.RequestIDFromContext(r.Context()); id != "" {
		return h.logger.With("request_id", id)
	}
	return h.logger
}

// decodeJSON reads a bounded JSON body into v.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return false
	}
	return true
}

// handleServiceError converts token errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := token.CodeOf(err)
	status := errorCodeToHTTPStatus(code)
	if code == "" || status >= http.StatusInternalServerError {
		h.log(r).Error("internal error", "error", err)
		if code == "" {
			code = token.ErrInternal.Code
		}
		h.writeError(w, r, http.StatusInternalServerError, code, "internal server error")
		return
	}
	h.writeError(w, r, status, code, err.Error())
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasPrefix(code, "VT-ARG-"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"), strings.HasSuffix(code, "-4002"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4010"), strings.HasSuffix(code, "-4011"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-4030"):
		return http.StatusForbidden
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
