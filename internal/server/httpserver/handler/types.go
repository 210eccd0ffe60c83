package handler

import "time"

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// GenerateTokenRequest is the request body for POST /v1/tokens.
// Pointer fields distinguish a missing or null value from an empty string.
type GenerateTokenRequest struct {
	Purpose       *string `json:"purpose"`
	ResourceID    *string `json:"resource_id"`
	SecurityStamp *string `json:"security_stamp"`
}

// GenerateTokenResponse is the response body for POST /v1/tokens.
type GenerateTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidateTokenRequest is the request body for POST /v1/tokens/validate.
type ValidateTokenRequest struct {
	Token         *string `json:"token"`
	Purpose       *string `json:"purpose"`
	ResourceID    *string `json:"resource_id"`
	SecurityStamp *string `json:"security_stamp"`
}

// ValidateTokenResponse is the response body for POST /v1/tokens/validate.
type ValidateTokenResponse struct {
	Valid bool `json:"valid"`
}

// StampResponse is the response body for POST /v1/stamps.
type StampResponse struct {
	SecurityStamp string `json:"security_stamp"`
}

// StatusResponse is the response body for /health and /ready.
type StatusResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}
