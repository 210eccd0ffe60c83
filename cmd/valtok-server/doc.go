// Package main provides the entry point for valtok-server.
//
// The server exposes token generation, token validation and security stamp
// generation over HTTP(S), plus health, readiness and Prometheus metrics
// endpoints.
//
// Usage:
//
//	valtok-server [flags]
//	valtok-server -config /path/to/valtok.yaml
//
// When keys.file is set the server watches it and swaps the key ring on
// change. SIGHUP re-reads the configuration file for the log level and the
// key ring.
package main
