// Package handler provides HTTP request handlers for valtok.
//
//   - token.go: token issue and validation, security stamps
//   - health.go: health and readiness checks
//
// Handlers decode the request, call the token provider and write the
// standard envelope. Validation answers only valid or not valid; the
// reason a token was rejected never leaves the process.
package handler
