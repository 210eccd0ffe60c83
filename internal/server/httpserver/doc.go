// Package httpserver provides the HTTP/HTTPS server for valtok.
//
// Endpoints:
//
//   - POST /v1/tokens: issue a validation token
//   - POST /v1/tokens/validate: validate a token, answering only valid or not
//   - POST /v1/stamps: new security stamp
//   - GET /health, GET /ready, GET /metrics
//
// Middleware chain: Recover, RequestID, Metrics, RateLimit, Auth, Audit.
package httpserver
